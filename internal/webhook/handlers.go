package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/disgoorg/snowflake/v2"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/triskcraft/custodian/internal/digs"
	"github.com/triskcraft/custodian/internal/discord"
	"github.com/triskcraft/custodian/internal/mojang"
	"github.com/triskcraft/custodian/internal/scheduler"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// trendWindow is how far back the trend endpoint samples.
const trendWindow = 7 * 24 * time.Hour

// handleDigs accepts a batch of dig count reports. Entries are validated
// up front; a single bad entry rejects the whole batch so the game server
// notices misconfiguration immediately.
func (s *Server) handleDigs(w http.ResponseWriter, req bunrouter.Request) error {
	rawBody, ok := RawBodyFromContext(req.Context())
	if !ok {
		return BadRequest("Unreadable body")
	}

	var updates []digs.Update
	if err := sonic.Unmarshal(rawBody, &updates); err != nil {
		return BadRequest("Invalid payload")
	}

	if len(updates) == 0 {
		return BadRequest("Empty batch")
	}

	for _, update := range updates {
		if update.UUID == "" && update.Nickname == "" {
			return BadRequest("Entry missing player identity")
		}

		if update.Digs < 0 {
			return BadRequest("Dig count cannot be negative")
		}
	}

	accepted := s.queue.Enqueue(updates)

	s.logger.Debug("Accepted digs batch", zap.Int("entries", accepted))

	return bunrouter.JSON(w, bunrouter.H{"accepted": accepted})
}

type linkRequest struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
	UUID     string `json:"uuid"`
}

// handleLink consumes a pending link code and binds the Minecraft account
// to the Discord member that requested the code.
func (s *Server) handleLink(w http.ResponseWriter, req bunrouter.Request) error {
	rawBody, ok := RawBodyFromContext(req.Context())
	if !ok {
		return BadRequest("Unreadable body")
	}

	var payload linkRequest
	if err := sonic.Unmarshal(rawBody, &payload); err != nil {
		return BadRequest("Invalid payload")
	}

	if payload.Code == "" || payload.Nickname == "" {
		return BadRequest("Code and nickname are required")
	}

	ctx := req.Context()

	linkCode, err := s.players.GetLinkCode(ctx, payload.Code)
	if err != nil {
		if errors.Is(err, types.ErrLinkCodeNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("failed to look up link code: %w", err)
	}

	member, err := s.resolver.Member(ctx, s.guildID, linkCode.UserID)
	if err != nil {
		// The code's owner left the guild between requesting and redeeming
		return BadRequest("Discord member not found")
	}

	uuid := payload.UUID
	if uuid == "" {
		uuid, err = s.profiles.NicknameToUUID(ctx, payload.Nickname)
		if err != nil {
			if errors.Is(err, mojang.ErrProfileNotFound) {
				return BadRequest("Unknown Minecraft nickname")
			}

			return fmt.Errorf("failed to resolve nickname: %w", err)
		}
	}

	rank := discord.DeriveRank(member, s.ranks)

	player, err := s.players.Link(ctx, payload.Code, uuid, payload.Nickname, linkCode.UserID, rank)
	if err != nil {
		if errors.Is(err, types.ErrLinkCodeNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("failed to link player: %w", err)
	}

	s.roster.Invalidate(ctx)

	s.logger.Info("Linked Minecraft account",
		zap.String("nickname", payload.Nickname),
		zap.Uint64("userID", uint64(linkCode.UserID)))

	return bunrouter.JSON(w, player)
}

// handleMembers serves the linked-player roster from cache.
func (s *Server) handleMembers(w http.ResponseWriter, req bunrouter.Request) error {
	players, err := s.roster.Get(req.Context())
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	return bunrouter.JSON(w, bunrouter.H{"members": players})
}

// handleRoleTrend renders the recent population trend for a tracked role.
func (s *Server) handleRoleTrend(w http.ResponseWriter, req bunrouter.Request) error {
	roleID, err := strconv.ParseUint(req.Param("id"), 10, 64)
	if err != nil {
		return BadRequest("Invalid role ID")
	}

	since := time.Now().Add(-trendWindow)

	stats, err := s.trends.GetStatistics(req.Context(), snowflake.ID(roleID), since)
	if err != nil {
		return fmt.Errorf("failed to load role statistics: %w", err)
	}

	buf, err := scheduler.RenderRoleTrend(fmt.Sprintf("Role %d activity", roleID), stats)
	if err != nil {
		if errors.Is(err, scheduler.ErrNotEnoughSamples) {
			return ErrNotFound
		}

		return fmt.Errorf("failed to render trend: %w", err)
	}

	w.Header().Set("Content-Type", "image/png")
	_, err = w.Write(buf.Bytes())

	return err
}
