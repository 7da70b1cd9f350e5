package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	ledger "homesite-energy/internal/ledger/domain"
)

// BuildSummaryCSV renders the per-asset and per-rate breakdowns as CSV.
func BuildSummaryCSV(s ledger.Summary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"section", "name", "detail", "energy_kwh", "pre_tax", "tax", "total"},
		{"totals", "expenditure", "", "", f2(s.Expenditure.PreTax), f2(s.Expenditure.Tax), f2(s.Expenditure.Total)},
		{"totals", "income", "", "", f2(s.Income.PreTax), f2(s.Income.Tax), f2(s.Income.Total)},
		{"totals", "standing", "", "", f2(s.Standing.PreTax), f2(s.Standing.Tax), f2(s.Standing.Total)},
		{"totals", "net", "", "", "", "", f2(s.Net)},
	}
	for _, asset := range s.Assets {
		records = append(records, []string{
			"asset", asset.Asset, "", f3(asset.EnergyKWh),
			f2(asset.Expenditure.PreTax + asset.Income.PreTax + asset.Standing.PreTax),
			f2(asset.Expenditure.Tax + asset.Income.Tax + asset.Standing.Tax),
			f2(asset.Expenditure.Total + asset.Standing.Total - asset.Income.Total),
		})
	}
	for _, rate := range s.Rates {
		records = append(records, []string{
			"rate", rate.TariffName, rate.RateID, f3(rate.EnergyKWh),
			f2(rate.Amount.PreTax), f2(rate.Amount.Tax), f2(rate.Amount.Total),
		})
	}
	for _, circuit := range s.Circuits {
		records = append(records, []string{
			"circuit", circuit.Asset, circuit.Circuit, f3(circuit.EnergyKWh),
			f2(circuit.Indicated.PreTax), f2(circuit.Indicated.Tax), f2(circuit.Indicated.Total),
		})
	}
	if s.Comparison != nil {
		records = append(records,
			[]string{"comparison", "actual", "", "", "", "", f2(s.Comparison.ActualTotal)},
			[]string{"comparison", "comparison", "", "", "", "", f2(s.Comparison.ComparisonTotal)},
			[]string{"comparison", "delta", "", "", "", "", f2(s.Comparison.Delta)},
		)
	}

	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSummaryPDF renders a minimal PDF for a ledger summary.
func BuildSummaryPDF(s ledger.Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Ledger Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("From: %s", s.From.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("To: %s", s.To.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Postings: %d", s.Postings))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Expenditure: %.2f", s.Expenditure.Total))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Income: %.2f", s.Income.Total))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Standing: %.2f", s.Standing.Total))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Net: %.2f", s.Net))
	pdf.Ln(5)
	if s.Comparison != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Comparison delta: %.2f", s.Comparison.Delta))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Asset", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Energy (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Expenditure", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Income", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Standing", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, asset := range s.Assets {
		pdf.CellFormat(50, 6, asset.Asset, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.3f", asset.EnergyKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", asset.Expenditure.Total), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", asset.Income.Total), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", asset.Standing.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Tariff", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Rate", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Energy (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, rate := range s.Rates {
		pdf.CellFormat(60, 6, rate.TariffName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, rate.RateID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.3f", rate.EnergyKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", rate.Amount.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSummaryXLSX renders a minimal XLSX for a ledger summary.
func BuildSummaryXLSX(s ledger.Summary) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	assetsSheet := "assets"
	ratesSheet := "rates"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(assetsSheet)
	f.NewSheet(ratesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Energy Ledger Summary")
	_ = f.SetCellValue(summarySheet, "A3", "From")
	_ = f.SetCellValue(summarySheet, "B3", s.From.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "To")
	_ = f.SetCellValue(summarySheet, "B4", s.To.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "Postings")
	_ = f.SetCellValue(summarySheet, "B5", s.Postings)
	_ = f.SetCellValue(summarySheet, "A6", "Expenditure")
	_ = f.SetCellValue(summarySheet, "B6", s.Expenditure.Total)
	_ = f.SetCellValue(summarySheet, "A7", "Income")
	_ = f.SetCellValue(summarySheet, "B7", s.Income.Total)
	_ = f.SetCellValue(summarySheet, "A8", "Standing")
	_ = f.SetCellValue(summarySheet, "B8", s.Standing.Total)
	_ = f.SetCellValue(summarySheet, "A9", "Net")
	_ = f.SetCellValue(summarySheet, "B9", s.Net)
	if s.Comparison != nil {
		_ = f.SetCellValue(summarySheet, "A10", "Comparison delta")
		_ = f.SetCellValue(summarySheet, "B10", s.Comparison.Delta)
	}

	_ = f.SetCellValue(assetsSheet, "A1", "Asset")
	_ = f.SetCellValue(assetsSheet, "B1", "Energy (kWh)")
	_ = f.SetCellValue(assetsSheet, "C1", "Expenditure")
	_ = f.SetCellValue(assetsSheet, "D1", "Income")
	_ = f.SetCellValue(assetsSheet, "E1", "Standing")
	for i, asset := range s.Assets {
		row := i + 2
		_ = f.SetCellValue(assetsSheet, fmt.Sprintf("A%d", row), asset.Asset)
		_ = f.SetCellValue(assetsSheet, fmt.Sprintf("B%d", row), asset.EnergyKWh)
		_ = f.SetCellValue(assetsSheet, fmt.Sprintf("C%d", row), asset.Expenditure.Total)
		_ = f.SetCellValue(assetsSheet, fmt.Sprintf("D%d", row), asset.Income.Total)
		_ = f.SetCellValue(assetsSheet, fmt.Sprintf("E%d", row), asset.Standing.Total)
	}

	_ = f.SetCellValue(ratesSheet, "A1", "Tariff")
	_ = f.SetCellValue(ratesSheet, "B1", "Rate")
	_ = f.SetCellValue(ratesSheet, "C1", "Direction")
	_ = f.SetCellValue(ratesSheet, "D1", "Energy (kWh)")
	_ = f.SetCellValue(ratesSheet, "E1", "Total")
	for i, rate := range s.Rates {
		row := i + 2
		_ = f.SetCellValue(ratesSheet, fmt.Sprintf("A%d", row), rate.TariffName)
		_ = f.SetCellValue(ratesSheet, fmt.Sprintf("B%d", row), rate.RateID)
		_ = f.SetCellValue(ratesSheet, fmt.Sprintf("C%d", row), rate.Direction)
		_ = f.SetCellValue(ratesSheet, fmt.Sprintf("D%d", row), rate.EnergyKWh)
		_ = f.SetCellValue(ratesSheet, fmt.Sprintf("E%d", row), rate.Amount.Total)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
func f3(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
