// Package webhook implements the signed ingestion surface: credential
// issuance, request verification and the HTTP routes game servers call.
package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/klauspost/compress/gzhttp"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/triskcraft/custodian/internal/digs"
	"github.com/triskcraft/custodian/internal/discord"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Enqueuer buffers dig count updates for coalesced persistence.
type Enqueuer interface {
	Enqueue(updates []digs.Update) int
}

// PlayerStore is the roster persistence the link flow needs.
type PlayerStore interface {
	GetLinkCode(ctx context.Context, code string) (*types.LinkCode, error)
	Link(ctx context.Context, code, uuid, nickname string, userID snowflake.ID, rank string) (*types.Player, error)
}

// Roster serves cached player listings and accepts invalidations.
type Roster interface {
	Get(ctx context.Context) ([]*types.Player, error)
	Invalidate(ctx context.Context)
}

// NicknameResolver maps a Minecraft nickname to its profile UUID.
type NicknameResolver interface {
	NicknameToUUID(ctx context.Context, nickname string) (string, error)
}

// TrendSource provides role population samples for trend rendering.
type TrendSource interface {
	GetStatistics(ctx context.Context, roleID snowflake.ID, since time.Time) ([]*types.RoleStatistic, error)
}

// Server wires the webhook routes to their collaborators.
type Server struct {
	queue    Enqueuer
	players  PlayerStore
	roster   Roster
	profiles NicknameResolver
	trends   TrendSource
	resolver discord.Resolver

	guildID snowflake.ID
	ranks   []discord.RankMapping
	logger  *zap.Logger
}

// NewServer builds the HTTP handler for the webhook service.
func NewServer(
	verifier *Verifier,
	queue Enqueuer,
	players PlayerStore,
	roster Roster,
	profiles NicknameResolver,
	trends TrendSource,
	resolver discord.Resolver,
	guildID snowflake.ID,
	ranks []discord.RankMapping,
	logger *zap.Logger,
) http.Handler {
	server := &Server{
		queue:    queue,
		players:  players,
		roster:   roster,
		profiles: profiles,
		trends:   trends,
		resolver: resolver,
		guildID:  guildID,
		ranks:    ranks,
		logger:   logger.Named("webhook_server"),
	}

	router := bunrouter.New()

	router.Use(ErrorMiddleware(logger)).WithGroup("/webhooks", func(g *bunrouter.Group) {
		g.Use(verifier.Require(PermissionDigs)).POST("/digs", server.handleDigs)
		g.Use(verifier.Require(PermissionLink)).POST("/link", server.handleLink)
	})

	router.Use(ErrorMiddleware(logger)).WithGroup("/v1", func(g *bunrouter.Group) {
		g.GET("/members", server.handleMembers)
		g.GET("/roles/:id/trend", server.handleRoleTrend)
	})

	return gzhttp.GzipHandler(router)
}
