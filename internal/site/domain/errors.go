package site

import "errors"

var (
	// ErrUnknownAsset is returned when an asset name is not registered.
	ErrUnknownAsset = errors.New("site: unknown asset")
	// ErrUnknownMeter is returned when a binding references a meter no
	// module exposes.
	ErrUnknownMeter = errors.New("site: unknown meter")
	// ErrDuplicateAsset is returned when two assets share a name.
	ErrDuplicateAsset = errors.New("site: duplicate asset name")
	// ErrDuplicateMeter is returned when one meter is bound twice.
	ErrDuplicateMeter = errors.New("site: meter bound to multiple assets")
	// ErrGridCount is returned unless exactly one grid asset exists.
	ErrGridCount = errors.New("site: exactly one grid asset required")
	// ErrInvalidAssetType is returned for an unrecognized asset type.
	ErrInvalidAssetType = errors.New("site: invalid asset type")
	// ErrMissingTariff is returned when an asset carries no tariff.
	ErrMissingTariff = errors.New("site: asset has no tariff")
)
