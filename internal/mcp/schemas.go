package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func actorProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "ID of the user performing the action",
	}
}

func idProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// createUserTool returns the tool definition for create_user
func createUserTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_user",
		Description: "Register a campus member. Emails are unique, case-insensitively.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Full name",
				},
				"email": map[string]interface{}{
					"type":        "string",
					"description": "Email address, used for notifications",
				},
				"roll_number": map[string]interface{}{
					"type":        "string",
					"description": "Student roll number",
				},
				"hostel": map[string]interface{}{
					"type":        "string",
					"description": "Hostel of residence",
				},
				"contact_number": map[string]interface{}{
					"type":        "string",
					"description": "Phone number disclosed after an approved match",
				},
				"admin": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, the user acts for the admin office",
					"default":     false,
				},
			},
			Required: []string{"name", "email"},
		},
	}
}

// reportItemTool returns the tool definition for report_item
func reportItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "report_item",
		Description: "Report a lost or found item. Found items require an image. Matching runs in the background.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": actorProperty(),
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Kind of report",
					"enum":        []string{"LOST", "FOUND"},
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Free-text description of the item",
				},
				"location": map[string]interface{}{
					"type":        "string",
					"description": "Where the item was lost or found",
				},
				"image_base64": map[string]interface{}{
					"type":        "string",
					"description": "JPEG, PNG or WebP image, base64 encoded",
				},
				"on_behalf_of": map[string]interface{}{
					"type":        "string",
					"description": "Admin only: email of the user this report is filed for",
				},
				"office": map[string]interface{}{
					"type":        "boolean",
					"description": "Admin only: the office itself found the item",
					"default":     false,
				},
			},
			Required: []string{"user_id", "status", "description", "location"},
		},
	}
}

// resolveItemTool returns the tool definition for resolve_item
func resolveItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "resolve_item",
		Description: "Archive one of your own lost items once you have it back",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": actorProperty(),
				"item_id": idProperty("ID of the lost item"),
			},
			Required: []string{"user_id", "item_id"},
		},
	}
}

// deleteItemTool returns the tool definition for delete_item
func deleteItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_item",
		Description: "Delete one of your own reports and its matches. Refused once a match was approved.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": actorProperty(),
				"item_id": idProperty("ID of the item to delete"),
			},
			Required: []string{"user_id", "item_id"},
		},
	}
}

// listFoundItemsTool returns the tool definition for list_found_items
func listFoundItemsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_found_items",
		Description: "Browse active found items, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive substring of the location",
				},
				"after": map[string]interface{}{
					"type":        "string",
					"description": "Only items reported at or after this time (RFC 3339 or YYYY-MM-DD)",
				},
				"before": map[string]interface{}{
					"type":        "string",
					"description": "Only items reported before this time (RFC 3339 or YYYY-MM-DD)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of items to return (1-100)",
					"default":     50,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}

// listUserItemsTool returns the tool definition for list_user_items
func listUserItemsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_user_items",
		Description: "List every item a user reported, including archived ones",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": actorProperty(),
			},
			Required: []string{"user_id"},
		},
	}
}

// searchItemsTool returns the tool definition for search_items
func searchItemsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_items",
		Description: "Search reports by text. Hybrid mode blends fuzzy text and semantic similarity.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": actorProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text; queries shorter than two characters return nothing",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (fuzzy + vector), fuzzy, vector, or admin (includes archived items and approved counterparts)",
					"enum":        []string{"hybrid", "fuzzy", "vector", "admin"},
					"default":     "hybrid",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to LOST or FOUND items",
					"enum":        []string{"LOST", "FOUND"},
				},
				"include_archived": map[string]interface{}{
					"type":        "boolean",
					"description": "Admin only: include archived items",
					"default":     false,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"user_id", "query"},
		},
	}
}

// listMatchesTool returns the tool definition for list_matches
func listMatchesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_matches",
		Description: "List matches where the user lost or found one of the items, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": actorProperty(),
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one match status",
					"enum":        []string{"PENDING", "APPROVED", "REJECTED"},
				},
			},
			Required: []string{"user_id"},
		},
	}
}

// approveMatchTool returns the tool definition for approve_match
func approveMatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "approve_match",
		Description: "Confirm a pending match as its loser. Archives both items and shares contact details.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id":  actorProperty(),
				"match_id": idProperty("ID of the pending match"),
			},
			Required: []string{"user_id", "match_id"},
		},
	}
}

// rejectMatchTool returns the tool definition for reject_match
func rejectMatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reject_match",
		Description: "Decline a pending match as its loser. Both items stay active.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id":  actorProperty(),
				"match_id": idProperty("ID of the pending match"),
			},
			Required: []string{"user_id", "match_id"},
		},
	}
}

// rematchAllTool returns the tool definition for rematch_all
func rematchAllTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rematch_all",
		Description: "Admin only: re-run matching for every active item and wait for it to finish",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": actorProperty(),
			},
			Required: []string{"user_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report item and match counts, embedding model state and worker load",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
