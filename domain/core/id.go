package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	BundleID ID
	RunID    ID
)

// String conversions for domain IDs
func (id BundleID) String() string { return ID(id).String() }
func (id RunID) String() string    { return ID(id).String() }

// NewBundleID creates a fresh bundle identifier
func NewBundleID() BundleID {
	return BundleID(NewID())
}

// NewRunID creates a fresh run identifier
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseBundleID parses a string into BundleID
func ParseBundleID(s string) (BundleID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("bundle ID cannot be empty")
	}
	return BundleID(s), nil
}
