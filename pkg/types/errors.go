package types

import "errors"

// Domain errors shared by every layer
var (
	// Lookup errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Authorization and state errors
	ErrForbidden     = errors.New("forbidden")
	ErrNotPending    = errors.New("match already resolved")
	ErrMatchApproved = errors.New("item has an approved match")
	ErrNotResolvable = errors.New("only lost items can be resolved")

	// Report validation errors
	ErrImageRequired      = errors.New("found items require an image")
	ErrInvalidStatus      = errors.New("invalid item status")
	ErrEmptyDescription   = errors.New("description cannot be empty")
	ErrEmptyLocation      = errors.New("location cannot be empty")
	ErrOfficeReportStatus = errors.New("office can only report found items")
)
