package cmdutil

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseUUID parses the value of flag name as a UUID.
func ParseUUID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s: %w", name, err)
	}
	return id, nil
}
