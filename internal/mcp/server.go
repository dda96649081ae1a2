package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dshills/lostfound/internal/lifecycle"
	"github.com/dshills/lostfound/internal/searcher"
	"github.com/dshills/lostfound/internal/service"
	"github.com/dshills/lostfound/internal/worker"
	"github.com/dshills/lostfound/pkg/types"
)

// ServerName is the MCP server name
const ServerName = "lostfound"

// App is the application surface the tools call into. *service.Service
// implements it.
type App interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (*types.User, error)
	ReportItem(ctx context.Context, actorID uuid.UUID, in service.ReportInput) (*types.Item, error)
	ResolveItem(ctx context.Context, actorID, itemID uuid.UUID) (*types.Item, error)
	DeleteItem(ctx context.Context, actorID, itemID uuid.UUID) error
	ListFoundItems(ctx context.Context, f service.FoundFilter) ([]*types.Item, error)
	ListUserItems(ctx context.Context, userID uuid.UUID) ([]*types.Item, error)
	MatchesForUser(ctx context.Context, userID uuid.UUID, status types.MatchStatus) ([]*service.MatchView, error)
	ApproveMatch(ctx context.Context, actorID, matchID uuid.UUID) (*lifecycle.Decision, error)
	RejectMatch(ctx context.Context, actorID, matchID uuid.UUID) (*types.Match, error)
	Search(ctx context.Context, actorID uuid.UUID, in service.SearchInput) (*searcher.Response, error)
	RematchAll(ctx context.Context, actorID uuid.UUID) (*worker.BackfillResult, error)
	Status(ctx context.Context) (*service.Status, error)
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	app    App
	logger zerolog.Logger
}

// NewServer creates a new MCP server exposing app as tools
func NewServer(app App, version string, logger zerolog.Logger) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, version),
		app:    app,
		logger: logger.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info().Msg("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	// Users
	s.mcp.AddTool(createUserTool(), s.handleCreateUser)

	// Items
	s.mcp.AddTool(reportItemTool(), s.handleReportItem)
	s.mcp.AddTool(resolveItemTool(), s.handleResolveItem)
	s.mcp.AddTool(deleteItemTool(), s.handleDeleteItem)
	s.mcp.AddTool(listFoundItemsTool(), s.handleListFoundItems)
	s.mcp.AddTool(listUserItemsTool(), s.handleListUserItems)
	s.mcp.AddTool(searchItemsTool(), s.handleSearchItems)

	// Matches
	s.mcp.AddTool(listMatchesTool(), s.handleListMatches)
	s.mcp.AddTool(approveMatchTool(), s.handleApproveMatch)
	s.mcp.AddTool(rejectMatchTool(), s.handleRejectMatch)
	s.mcp.AddTool(rematchAllTool(), s.handleRematchAll)

	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
