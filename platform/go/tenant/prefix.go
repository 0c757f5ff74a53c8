package tenant

import (
	"strings"

	"github.com/google/uuid"
)

// ObjectPrefix returns `<envKey>/tenants/<tenantId>/`, the storage namespace of a tenant.
func ObjectPrefix(envKey string, id uuid.UUID) string {
	envKey = strings.Trim(strings.TrimSpace(envKey), "/")
	if envKey == "" {
		return "tenants/" + id.String() + "/"
	}
	return envKey + "/tenants/" + id.String() + "/"
}
