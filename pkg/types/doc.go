// Package types provides shared type definitions for the lost-and-found service.
//
// This package defines the domain records used across storage, matching,
// search and the match lifecycle: users, reported items, proposed matches
// and the contact details disclosed once a match is approved.
//
// # Core Types
//
// Item is a single lost or found report. Its embedding vectors are computed
// once at report time and stored inline:
//
//	item := &types.Item{
//	    Status:      types.StatusLost,
//	    Description: "black leather wallet",
//	    Location:    "library",
//	    IsActive:    true,
//	}
//
// Match links one LOST item with one FOUND item. It is created PENDING by
// the matching engine and moves at most once, to APPROVED or REJECTED:
//
//	if match.Status.Terminal() {
//	    return types.ErrNotPending
//	}
//
// # Roles
//
// The loser is the reporter of the LOST item and the only user allowed to
// approve or reject a match. The finder is the reporter of the FOUND item.
package types
