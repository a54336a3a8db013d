package realtime

import (
	"context"
	"errors"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"cinetix/internal/screenings"
	"cinetix/internal/seats"
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/middleware"
	"cinetix/internal/shared/utils/response"
	"cinetix/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// Session maps are sharded so one hot function cannot serialize every
	// other function's broadcasts behind a single mutex.
	sessionShards = 16

	// Bound for seat actions triggered from a socket; the seat engine's
	// own lock wait sits well inside it.
	actionTimeout = 10 * time.Second
)

// SeatEngine is the slice of the seat inventory driven from sockets.
type SeatEngine interface {
	QueryMap(ctx context.Context, functionID, viewerID string) (*seats.SeatMapResponse, error)
	TryHold(ctx context.Context, functionID, userID string, seats []string) (*seats.HoldResponse, error)
	Release(ctx context.Context, functionID, userID string, seats []string) (*seats.ReleaseResponse, error)
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]map[*session]struct{}
}

// Hub groups sessions by function and fans seat-state changes out to them.
// It implements the seat engine's broadcaster, so every frame it emits was
// published from inside the owning function's critical section and arrives
// in a single serialized order per function.
type Hub struct {
	seats    SeatEngine
	cfg      *config.Config
	log      *logger.Logger
	upgrader websocket.Upgrader
	shards   [sessionShards]shard
}

func NewHub(seatEngine SeatEngine, cfg *config.Config) *Hub {
	h := &Hub{
		seats: seatEngine,
		cfg:   cfg,
		log:   logger.GetDefault(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are already open at the HTTP layer via CORS.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for i := range h.shards {
		h.shards[i].sessions = make(map[string]map[*session]struct{})
	}
	return h
}

// ServeWS upgrades GET /ws/functions/:id?token=... into a session. The
// token is checked before the upgrade; an unknown function surfaces as an
// error frame after it, when there is a socket to answer on.
func (h *Hub) ServeWS(ctx *gin.Context) {
	functionID := ctx.Param("id")

	claims, err := middleware.ValidateAccessToken(h.cfg, ctx.Query("token"))
	if err != nil {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or missing token", nil)
		return
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or missing token", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed", "function_id", functionID)
		return
	}

	s := newSession(h, conn, functionID, userID, h.cfg.Realtime.SessionBuffer)
	h.register(s)
	go s.writePump()

	// Snapshot is read after registering, so any concurrent change either
	// lands in the snapshot or arrives as a queued frame right behind it.
	snapCtx, cancel := context.WithTimeout(ctx.Request.Context(), actionTimeout)
	snapshot, err := h.seats.QueryMap(snapCtx, functionID, userID)
	cancel()
	if err != nil {
		// Best-effort goodbye frame; the session is torn down either way.
		if errors.Is(err, screenings.ErrScreeningNotFound) {
			s.sendError("unknown function")
		} else {
			s.sendError("seat map unavailable")
		}
		h.log.WithError(err).Warn("Closing session without snapshot", "function_id", functionID)
		h.unregister(s)
		s.close()
		return
	}

	s.trySend(ServerMessage{
		Type:       MsgConnectionEstablished,
		FunctionID: functionID,
		UserID:     userID,
		SeatMap:    snapshot,
	})

	go s.readPump()
}

func (h *Hub) register(s *session) {
	sh := h.shardFor(s.functionID)
	sh.mu.Lock()
	group, ok := sh.sessions[s.functionID]
	if !ok {
		group = make(map[*session]struct{})
		sh.sessions[s.functionID] = group
	}
	group[s] = struct{}{}
	sh.mu.Unlock()

	h.log.Debug("Realtime session joined", "function_id", s.functionID, "user_id", s.userID)
}

// unregister removes the session and releases whatever seats it still has
// selected, cleaning up abandoned carts.
func (h *Hub) unregister(s *session) {
	sh := h.shardFor(s.functionID)
	sh.mu.Lock()
	if group, ok := sh.sessions[s.functionID]; ok {
		delete(group, s)
		if len(group) == 0 {
			delete(sh.sessions, s.functionID)
		}
	}
	sh.mu.Unlock()

	held := s.takeSeats()
	if len(held) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if _, err := h.seats.Release(ctx, s.functionID, s.userID, held); err != nil {
		h.log.WithError(err).Warn("Failed to release seats on disconnect",
			"function_id", s.functionID,
			"user_id", s.userID,
			"seats", held,
		)
	}
}

// route dispatches one inbound frame. It runs on the session's read loop,
// so a session's actions are naturally serialized.
func (h *Hub) route(s *session, msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch msg.Action {
	case ActionSelect:
		hold, err := h.seats.TryHold(ctx, s.functionID, s.userID, msg.Seats)
		if err != nil {
			h.selectionFailed(s, err)
			return
		}
		s.addSeats(hold.Seats)
		s.trySend(ServerMessage{
			Type:       MsgSelectionConfirmed,
			FunctionID: s.functionID,
			UserID:     s.userID,
			Seats:      hold.Seats,
			ExpiresAt:  &hold.ExpiresAt,
		})

	case ActionDeselect:
		released, err := h.seats.Release(ctx, s.functionID, s.userID, msg.Seats)
		if err != nil {
			s.sendError(clientText(err))
			return
		}
		// The group, this session included, hears about it through the
		// engine's broadcast.
		s.removeSeats(released.Released)

	default:
		s.sendError("unknown action")
	}
}

func (h *Hub) selectionFailed(s *session, err error) {
	msg := ServerMessage{Type: MsgSelectionFailed, FunctionID: s.functionID, UserID: s.userID}
	var unavailable *seats.SeatUnavailableError
	if errors.As(err, &unavailable) {
		msg.Conflicts = unavailable.Conflicts
	} else {
		msg.Message = clientText(err)
	}
	s.trySend(msg)
}

// SeatsHeld implements the seat engine's broadcaster. The holder's own
// sessions are skipped: the originator already hears about the hold through
// selection_confirmed (or the HTTP response), never through its own echo.
func (h *Hub) SeatsHeld(functionID, userID string, seatCodes []string, expiresAt time.Time) {
	h.broadcastExcept(functionID, userID, ServerMessage{
		Type:       MsgSeatHeld,
		FunctionID: functionID,
		UserID:     userID,
		Seats:      seatCodes,
		ExpiresAt:  &expiresAt,
	})
}

// SeatsReleased implements the seat engine's broadcaster.
func (h *Hub) SeatsReleased(functionID, userID string, seatCodes []string) {
	h.broadcast(functionID, ServerMessage{
		Type:       MsgSeatReleased,
		FunctionID: functionID,
		UserID:     userID,
		Seats:      seatCodes,
	})
}

// HoldsExpired implements the seat engine's broadcaster.
func (h *Hub) HoldsExpired(functionID string, seatCodes []string) {
	h.broadcast(functionID, ServerMessage{
		Type:       MsgHoldExpired,
		FunctionID: functionID,
		Seats:      seatCodes,
	})
}

// SaleConfirmed implements the purchase coordinator's announcer.
func (h *Hub) SaleConfirmed(functionID, userID string, seatCodes []string) {
	h.broadcast(functionID, ServerMessage{
		Type:       MsgSaleConfirmed,
		FunctionID: functionID,
		UserID:     userID,
		Seats:      seatCodes,
	})
}

// broadcast fans a frame out to every session of the function. Slow
// sessions are dropped by trySend rather than blocking the caller, which
// may be inside the function's critical section.
func (h *Hub) broadcast(functionID string, msg ServerMessage) {
	h.broadcastExcept(functionID, "", msg)
}

// broadcastExcept skips the excluded user's sessions; they are told through
// a direct frame instead of the group echo.
func (h *Hub) broadcastExcept(functionID, excludeUser string, msg ServerMessage) {
	msg.Timestamp = time.Now().UTC()

	sh := h.shardFor(functionID)
	sh.mu.RLock()
	group := sh.sessions[functionID]
	targets := make([]*session, 0, len(group))
	for s := range group {
		if excludeUser != "" && s.userID == excludeUser {
			continue
		}
		targets = append(targets, s)
	}
	sh.mu.RUnlock()

	for _, s := range targets {
		s.trySend(msg)
	}
}

// Shutdown closes every open session.
func (h *Hub) Shutdown() {
	for i := range h.shards {
		sh := &h.shards[i]
		sh.mu.RLock()
		targets := make([]*session, 0)
		for _, group := range sh.sessions {
			for s := range group {
				targets = append(targets, s)
			}
		}
		sh.mu.RUnlock()

		for _, s := range targets {
			s.close()
		}
	}
	h.log.Info("Realtime hub stopped")
}

// SessionCount reports open sessions for a function.
func (h *Hub) SessionCount(functionID string) int {
	sh := h.shardFor(functionID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.sessions[functionID])
}

func (h *Hub) shardFor(functionID string) *shard {
	hash := fnv.New32a()
	hash.Write([]byte(functionID))
	return &h.shards[hash.Sum32()%sessionShards]
}

// clientText keeps store internals out of frames while letting business
// outcomes through verbatim.
func clientText(err error) string {
	switch {
	case errors.Is(err, seats.ErrSalesClosed),
		errors.Is(err, seats.ErrInvalidSeat),
		errors.Is(err, seats.ErrNoSeats),
		errors.Is(err, seats.ErrTooManySeats),
		errors.Is(err, seats.ErrLockBusy),
		errors.Is(err, screenings.ErrScreeningNotFound):
		return err.Error()
	default:
		return "temporary failure, try again"
	}
}
