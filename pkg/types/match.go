package types

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the state of a proposed match
type MatchStatus string

const (
	MatchPending  MatchStatus = "PENDING"
	MatchApproved MatchStatus = "APPROVED"
	MatchRejected MatchStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed
func (s MatchStatus) Terminal() bool {
	return s == MatchApproved || s == MatchRejected
}

// Match pairs one LOST item with one FOUND item
type Match struct {
	ID              uuid.UUID
	LostItemID      uuid.UUID
	FoundItemID     uuid.UUID
	LoserID         uuid.UUID
	FinderID        uuid.UUID
	ConfidenceScore float64
	Status          MatchStatus
	CreatedAt       time.Time
}

// Involves reports whether the user is the loser or the finder
func (m *Match) Involves(userID uuid.UUID) bool {
	return m.LoserID == userID || m.FinderID == userID
}

// Contact is the disclosure payload shared after approval
type Contact struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
}

// ScoredItem is an item with a ranking score in [0,1]
type ScoredItem struct {
	Item  *Item
	Score float64
}
