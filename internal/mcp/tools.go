package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/lostfound/internal/embedder"
	"github.com/dshills/lostfound/internal/imaging"
	"github.com/dshills/lostfound/internal/searcher"
	"github.com/dshills/lostfound/internal/service"
	"github.com/dshills/lostfound/internal/worker"
	"github.com/dshills/lostfound/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound      = -32001 // Referenced user, item or match does not exist
	ErrorCodeForbidden     = -32002 // Actor may not perform the operation
	ErrorCodeConflict      = -32003 // Operation conflicts with the current state
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
	ErrorCodeUnavailable   = -32005 // Embedding model or worker pool not available
)

const (
	maxLimit       = 100
	dateOnlyLayout = "2006-01-02"
)

// handleCreateUser handles the create_user tool invocation
func (s *Server) handleCreateUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	email, err := requireString(args, "email")
	if err != nil {
		return nil, err
	}

	user, err := s.app.CreateUser(ctx, service.CreateUserInput{
		Name:          name,
		Email:         email,
		RollNumber:    getStringDefault(args, "roll_number", ""),
		Hostel:        getStringDefault(args, "hostel", ""),
		ContactNumber: getStringDefault(args, "contact_number", ""),
		Admin:         getBoolDefault(args, "admin", false),
	})
	if err != nil {
		return nil, s.toolError("create_user", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"user": userJSON(user),
	})), nil
}

// handleReportItem handles the report_item tool invocation
func (s *Server) handleReportItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	actorID, err := requireUUID(args, "user_id")
	if err != nil {
		return nil, err
	}
	rawStatus, err := requireString(args, "status")
	if err != nil {
		return nil, err
	}
	status, err := types.ParseItemStatus(rawStatus)
	if err != nil {
		return nil, invalidParam("status", err.Error())
	}

	var image []byte
	if encoded := getStringDefault(args, "image_base64", ""); encoded != "" {
		image, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, invalidParam("image_base64", "not valid base64")
		}
	}

	item, err := s.app.ReportItem(ctx, actorID, service.ReportInput{
		Status:      status,
		Description: getStringDefault(args, "description", ""),
		Location:    getStringDefault(args, "location", ""),
		Image:       image,
		OnBehalfOf:  getStringDefault(args, "on_behalf_of", ""),
		Office:      getBoolDefault(args, "office", false),
	})
	if err != nil {
		return nil, s.toolError("report_item", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"item":     itemJSON(item),
		"matching": "queued",
	})), nil
}

// handleResolveItem handles the resolve_item tool invocation
func (s *Server) handleResolveItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	actorID, itemID, err := actorAndID(args, "item_id")
	if err != nil {
		return nil, err
	}

	item, err := s.app.ResolveItem(ctx, actorID, itemID)
	if err != nil {
		return nil, s.toolError("resolve_item", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"item": itemJSON(item),
	})), nil
}

// handleDeleteItem handles the delete_item tool invocation
func (s *Server) handleDeleteItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	actorID, itemID, err := actorAndID(args, "item_id")
	if err != nil {
		return nil, err
	}

	if err := s.app.DeleteItem(ctx, actorID, itemID); err != nil {
		return nil, s.toolError("delete_item", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"item_id": itemID.String(),
	})), nil
}

// handleListFoundItems handles the list_found_items tool invocation
func (s *Server) handleListFoundItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	limit, err := getLimit(args, 50)
	if err != nil {
		return nil, err
	}
	after, err := getTime(args, "after")
	if err != nil {
		return nil, err
	}
	before, err := getTime(args, "before")
	if err != nil {
		return nil, err
	}

	items, err := s.app.ListFoundItems(ctx, service.FoundFilter{
		Location: getStringDefault(args, "location", ""),
		After:    after,
		Before:   before,
		Limit:    limit,
	})
	if err != nil {
		return nil, s.toolError("list_found_items", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"items": itemsJSON(items),
		"count": len(items),
	})), nil
}

// handleListUserItems handles the list_user_items tool invocation
func (s *Server) handleListUserItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	userID, err := requireUUID(args, "user_id")
	if err != nil {
		return nil, err
	}

	items, err := s.app.ListUserItems(ctx, userID)
	if err != nil {
		return nil, s.toolError("list_user_items", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"items": itemsJSON(items),
		"count": len(items),
	})), nil
}

// handleSearchItems handles the search_items tool invocation
func (s *Server) handleSearchItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	actorID, err := requireUUID(args, "user_id")
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit, err := getLimit(args, 10)
	if err != nil {
		return nil, err
	}

	mode, err := searcher.ParseMode(getStringDefault(args, "mode", string(searcher.ModeHybrid)))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   args["mode"],
			"allowed": []searcher.Mode{searcher.ModeHybrid, searcher.ModeFuzzy, searcher.ModeVector, searcher.ModeAdmin},
		})
	}

	var status types.ItemStatus
	if raw := getStringDefault(args, "status", ""); raw != "" {
		if status, err = types.ParseItemStatus(raw); err != nil {
			return nil, invalidParam("status", err.Error())
		}
	}

	resp, err := s.app.Search(ctx, actorID, service.SearchInput{
		Query:           query,
		Mode:            mode,
		Status:          status,
		IncludeArchived: getBoolDefault(args, "include_archived", false),
		Limit:           limit,
	})
	if err != nil {
		return nil, s.toolError("search_items", err)
	}

	results := make([]map[string]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]interface{}{
			"rank":  i + 1,
			"score": round(r.Score),
			"item":  itemJSON(r.Item),
		}
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results":     results,
		"mode":        resp.Mode,
		"degraded":    resp.Degraded,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	})), nil
}

// handleListMatches handles the list_matches tool invocation
func (s *Server) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	userID, err := requireUUID(args, "user_id")
	if err != nil {
		return nil, err
	}

	status := types.MatchStatus(strings.ToUpper(getStringDefault(args, "status", "")))
	switch status {
	case "", types.MatchPending, types.MatchApproved, types.MatchRejected:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid status", map[string]interface{}{
			"param":   "status",
			"value":   args["status"],
			"allowed": []types.MatchStatus{types.MatchPending, types.MatchApproved, types.MatchRejected},
		})
	}

	views, err := s.app.MatchesForUser(ctx, userID, status)
	if err != nil {
		return nil, s.toolError("list_matches", err)
	}

	matches := make([]map[string]interface{}, len(views))
	for i, v := range views {
		m := matchJSON(v.Match)
		m["role"] = "finder"
		if v.Match.LoserID == userID {
			m["role"] = "loser"
		}
		if v.Lost != nil {
			m["lost_item"] = itemJSON(v.Lost)
		}
		if v.Found != nil {
			m["found_item"] = itemJSON(v.Found)
		}
		matches[i] = m
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})), nil
}

// handleApproveMatch handles the approve_match tool invocation
func (s *Server) handleApproveMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	actorID, matchID, err := actorAndID(args, "match_id")
	if err != nil {
		return nil, err
	}

	decision, err := s.app.ApproveMatch(ctx, actorID, matchID)
	if err != nil {
		return nil, s.toolError("approve_match", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"match":          matchJSON(decision.Match),
		"lost_item":      itemJSON(decision.Lost),
		"found_item":     itemJSON(decision.Found),
		"loser_contact":  decision.LoserContact,
		"finder_contact": decision.FinderContact,
	})), nil
}

// handleRejectMatch handles the reject_match tool invocation
func (s *Server) handleRejectMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	actorID, matchID, err := actorAndID(args, "match_id")
	if err != nil {
		return nil, err
	}

	match, err := s.app.RejectMatch(ctx, actorID, matchID)
	if err != nil {
		return nil, s.toolError("reject_match", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"match": matchJSON(match),
	})), nil
}

// handleRematchAll handles the rematch_all tool invocation
func (s *Server) handleRematchAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	actorID, err := requireUUID(args, "user_id")
	if err != nil {
		return nil, err
	}

	result, err := s.app.RematchAll(ctx, actorID)
	if err != nil {
		return nil, s.toolError("rematch_all", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"items_processed": result.Items,
		"matches_created": result.Matches,
		"items_failed":    result.Failed,
		"duration_ms":     result.Duration.Milliseconds(),
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.app.Status(ctx)
	if err != nil {
		return nil, s.toolError("get_status", err)
	}

	response := map[string]interface{}{
		"embedder": map[string]interface{}{
			"state":   status.Embedder,
			"ready":   status.EmbedderUp,
			"backend": status.Backend,
		},
		"worker":               status.Worker,
		"search_cache_entries": status.CacheEntries,
	}
	if st := status.Stats; st != nil {
		response["statistics"] = map[string]interface{}{
			"users":              st.Users,
			"active_lost_items":  st.ActiveLostItems,
			"active_found_items": st.ActiveFoundItems,
			"pending_matches":    st.PendingMatches,
			"approved_matches":   st.ApprovedMatches,
			"rejected_matches":   st.RejectedMatches,
			"database_size_mb":   fmt.Sprintf("%.2f", st.DatabaseSizeMB),
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func invalidParam(param, reason string) error {
	return newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("invalid %s", param), map[string]interface{}{
		"param":  param,
		"reason": reason,
	})
}

// toolError maps an application error onto an MCP error code. Unexpected
// errors are logged since the client only sees a generic message.
func (s *Server) toolError(tool string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, "not found", data)
	case errors.Is(err, types.ErrForbidden):
		return newMCPError(ErrorCodeForbidden, "forbidden", data)
	case errors.Is(err, types.ErrAlreadyExists),
		errors.Is(err, types.ErrNotPending),
		errors.Is(err, types.ErrMatchApproved),
		errors.Is(err, worker.ErrBackfillRunning):
		return newMCPError(ErrorCodeConflict, "conflict", data)
	case errors.Is(err, embedder.ErrNotReady),
		errors.Is(err, worker.ErrPoolClosed),
		errors.Is(err, worker.ErrPoolNotStarted):
		return newMCPError(ErrorCodeUnavailable, "service unavailable", data)
	case errors.Is(err, service.ErrInvalidUser),
		errors.Is(err, types.ErrInvalidStatus),
		errors.Is(err, types.ErrEmptyDescription),
		errors.Is(err, types.ErrEmptyLocation),
		errors.Is(err, types.ErrImageRequired),
		errors.Is(err, types.ErrOfficeReportStatus),
		errors.Is(err, types.ErrNotResolvable),
		errors.Is(err, imaging.ErrEmpty),
		errors.Is(err, imaging.ErrTooLarge),
		errors.Is(err, imaging.ErrUnsupported):
		return newMCPError(ErrorCodeInvalidParams, "invalid request", data)
	}

	s.logger.Error().Err(err).Str("tool", tool).Msg("tool failed")
	return newMCPError(ErrorCodeInternalError, fmt.Sprintf("%s failed", tool), data)
}

// arguments returns the call arguments; a call without arguments yields an
// empty map
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

func requireUUID(args map[string]interface{}, key string) (uuid.UUID, error) {
	val, err := requireString(args, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(val))
	if err != nil {
		return uuid.Nil, invalidParam(key, "not a valid id")
	}
	return id, nil
}

func actorAndID(args map[string]interface{}, key string) (uuid.UUID, uuid.UUID, error) {
	actorID, err := requireUUID(args, "user_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := requireUUID(args, key)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return actorID, id, nil
}

func getLimit(args map[string]interface{}, defaultValue int) (int, error) {
	limit := getIntDefault(args, "limit", defaultValue)
	if limit < 1 || limit > maxLimit {
		return 0, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return limit, nil
}

// getTime parses an optional RFC 3339 timestamp or calendar date
func getTime(args map[string]interface{}, key string) (time.Time, error) {
	raw := strings.TrimSpace(getStringDefault(args, key, ""))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return time.Time{}, invalidParam(key, "expected RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

func userJSON(u *types.User) map[string]interface{} {
	return map[string]interface{}{
		"id":             u.ID.String(),
		"name":           u.Name,
		"email":          u.Email,
		"roll_number":    u.RollNumber,
		"hostel":         u.Hostel,
		"contact_number": u.ContactNumber,
		"role":           u.Role,
		"created_at":     u.CreatedAt.Format(time.RFC3339),
	}
}

// itemJSON renders an item without its embeddings
func itemJSON(item *types.Item) map[string]interface{} {
	out := map[string]interface{}{
		"id":              item.ID.String(),
		"reporter_id":     item.ReporterID.String(),
		"status":          item.Status,
		"description":     item.Description,
		"location":        item.Location,
		"is_active":       item.IsActive,
		"is_admin_report": item.IsAdminReport,
		"has_match":       item.HasMatch,
		"reported_at":     item.ReportedAt.Format(time.RFC3339),
	}
	if item.HasImage() {
		out["image_url"] = item.ImageURL
	}
	return out
}

func itemsJSON(items []*types.Item) []map[string]interface{} {
	out := make([]map[string]interface{}, len(items))
	for i, item := range items {
		out[i] = itemJSON(item)
	}
	return out
}

func matchJSON(m *types.Match) map[string]interface{} {
	return map[string]interface{}{
		"id":               m.ID.String(),
		"lost_item_id":     m.LostItemID.String(),
		"found_item_id":    m.FoundItemID.String(),
		"loser_id":         m.LoserID.String(),
		"finder_id":        m.FinderID.String(),
		"confidence_score": round(m.ConfidenceScore),
		"status":           m.Status,
		"created_at":       m.CreatedAt.Format(time.RFC3339),
	}
}

// round keeps four decimals for display
func round(score float64) float64 {
	return float64(int64(score*10000+0.5)) / 10000
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
