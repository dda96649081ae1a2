// Package mcp implements the Model Context Protocol (MCP) server for the
// campus lost-and-found service.
//
// The server exposes the service as tools:
//   - create_user: Register a campus member (optionally as admin office)
//   - report_item: Report a lost or found item; matching runs in the background
//   - resolve_item, delete_item: Owner actions on a report
//   - list_found_items, list_user_items: Browse reports
//   - search_items: Hybrid, fuzzy, vector or admin search
//   - list_matches, approve_match, reject_match: Review proposed matches
//   - rematch_all: Admin backfill over every active item
//   - get_status: Counters, embedding model state and worker load
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Authentication is out of scope: every tool that acts on behalf of a user
// takes that user's id as user_id.
//
// # Tool: report_item
//
//	Request:
//	{
//	  "name": "report_item",
//	  "arguments": {
//	    "user_id": "5b0f...",
//	    "status": "FOUND",
//	    "description": "black leather wallet",
//	    "location": "Library 2nd floor",
//	    "image_base64": "iVBORw0KGgo..."
//	  }
//	}
//
//	Response:
//	{
//	  "item": {"id": "9c1e...", "status": "FOUND", "is_active": true, ...},
//	  "matching": "queued"
//	}
//
// # Tool: approve_match
//
// Only the loser of a pending match may approve it. The response carries
// the contact details both parties may now see; for office reports the
// finder contact is the admin office.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors:
//
//	{
//	  "error": {
//	    "code": -32002,
//	    "message": "forbidden",
//	    "data": {"error": "forbidden: only the owner of the lost item can decide on match ..."}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing arguments, failed validation, bad image)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: User, item or match not found
//   - -32002: Forbidden
//   - -32003: Conflict (duplicate email, match already resolved, approved item, backfill running)
//   - -32004: Empty query
//   - -32005: Embedding model or worker pool unavailable
//
// # Logging
//
// The server logs to stderr; stdout is reserved for the MCP protocol.
package mcp
