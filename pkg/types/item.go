package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the kind of report an item represents
type ItemStatus string

const (
	StatusLost  ItemStatus = "LOST"
	StatusFound ItemStatus = "FOUND"
)

// Opposite returns the status an item of this status can be matched against
func (s ItemStatus) Opposite() ItemStatus {
	if s == StatusLost {
		return StatusFound
	}
	return StatusLost
}

// Valid reports whether s is LOST or FOUND
func (s ItemStatus) Valid() bool {
	return s == StatusLost || s == StatusFound
}

// ParseItemStatus converts a case-insensitive string to an ItemStatus
func ParseItemStatus(s string) (ItemStatus, error) {
	status := ItemStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// Text and cross-modal embedding dimensions
const (
	TextDimension       = 384
	CrossModalDimension = 768
)

// Item is a single lost or found report
type Item struct {
	ID          uuid.UUID
	ReporterID  uuid.UUID
	Status      ItemStatus
	Description string
	Location    string
	ImageURL    string // Empty when no image was stored

	// Embeddings computed once at report time
	TextVector      []float32 // 384-dim text model
	CrossModalText  []float32 // 768-dim cross-modal text
	CrossModalImage []float32 // 768-dim cross-modal image; nil without an image

	IsActive      bool
	IsAdminReport bool
	HasMatch      bool
	ReportedAt    time.Time
}

// HasImage reports whether an image was stored for the item
func (i *Item) HasImage() bool {
	return i.ImageURL != ""
}
