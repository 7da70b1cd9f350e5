package auth

// Permission names one protected capability of the service.
type Permission string

const (
	// PermReadLedger covers the summary, export, error and site views.
	PermReadLedger Permission = "ledger:read"
	// PermPushReadings covers the reading ingest endpoints.
	PermPushReadings Permission = "readings:push"
	// PermManageSite covers everything else; only the admin holds it.
	PermManageSite Permission = "site:manage"
)

// Role labels a credential class. Meter modules push readings,
// household users read the ledger, the admin does both.
type Role string

const (
	RoleHousehold Role = "household"
	RoleMeter     Role = "meter"
	RoleAdmin     Role = "admin"
)

var grants = map[Role][]Permission{
	RoleHousehold: {PermReadLedger},
	RoleMeter:     {PermPushReadings},
	RoleAdmin:     {PermReadLedger, PermPushReadings, PermManageSite},
}

// ParseRole maps a claim value onto a known role.
func ParseRole(value string) (Role, bool) {
	role := Role(value)
	_, ok := grants[role]
	if !ok {
		return "", false
	}
	return role, true
}

// Allows reports whether the role carries the permission.
func (r Role) Allows(p Permission) bool {
	for _, granted := range grants[r] {
		if granted == p {
			return true
		}
	}
	return false
}
