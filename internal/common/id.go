package common

import (
	"github.com/google/uuid"
)

// NewMigrationID generates a unique migration run ID with the "mig_" prefix
func NewMigrationID() string {
	return "mig_" + uuid.New().String()
}
