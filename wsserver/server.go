package wsserver

import (
	"context"
	std "errors"
	"strings"

	"meet-hub/auth"
	"meet-hub/domain"
	"meet-hub/errors"
	"meet-hub/observability"
	"meet-hub/search"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Server wires the WebSocket endpoint and the small REST surface
// (history, read receipts, search, health) onto one Fiber app.
type Server struct {
	app     *fiber.App
	deps    Deps
	index   *search.MessageIndex
	metrics *observability.Metrics
}

func NewServer(deps Deps, index *search.MessageIndex, metrics *observability.Metrics) *Server {
	s := &Server{
		app:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		deps:    deps,
		index:   index,
		metrics: metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api/meetings/:id")
	api.Get("/messages", s.listMessages)
	api.Post("/messages/:messageID/read", s.markRead)
	api.Get("/search", s.searchMessages)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		// Identity is resolved before the upgrade; the socket handler
		// only sees the result. A bad token downgrades to anonymous,
		// authorization decides whether anonymous may enter.
		c.Locals("user", userFromRequest(c))
		return c.Next()
	})
	s.app.Get("/ws/meeting/:id", websocket.New(s.handleMeetingSocket))
}

func (s *Server) Listen(address string) error {
	return s.app.Listen(address)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// userFromRequest reads the session token from the Authorization
// header or, for browser WebSocket clients that cannot set headers,
// the token query parameter.
func userFromRequest(c *fiber.Ctx) domain.User {
	tokenStr := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}
	if tokenStr == "" {
		return domain.User{}
	}
	user, err := auth.ValidateToken(tokenStr)
	if err != nil {
		return domain.User{}
	}
	return user
}

func (s *Server) handleMeetingSocket(conn *websocket.Conn) {
	meetingID := domain.MeetingID(conn.Params("id"))
	user, _ := conn.Locals("user").(domain.User)

	session := NewSession(s.deps, meetingID, user)
	if err := session.Run(context.Background(), conn); err != nil {
		s.deps.Log.Warn("session rejected",
			"meeting_id", meetingID,
			"user", user.Username,
			"error", err)
	}
	_ = conn.Close()
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(s.metrics.Snapshot())
}

// listMessages serves the chat history visible to the caller: public
// messages plus private ones they sent or received.
func (s *Server) listMessages(c *fiber.Ctx) error {
	meetingID := domain.MeetingID(c.Params("id"))
	user := userFromRequest(c)

	if err := s.authorizeREST(c, meetingID, user); err != nil {
		return err
	}

	messages, err := s.deps.Store.ListVisibleTo(meetingID, user.ID, c.QueryInt("limit", 0))
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, errors.WireCode(err))
	}

	payloads := make([]messagePayload, 0, len(messages))
	for _, msg := range messages {
		payloads = append(payloads, toMessagePayload(msg))
	}
	return c.JSON(fiber.Map{
		"meeting_id": meetingID,
		"messages":   payloads,
		"total":      len(payloads),
	})
}

func (s *Server) markRead(c *fiber.Ctx) error {
	meetingID := domain.MeetingID(c.Params("id"))
	user := userFromRequest(c)

	if err := s.authorizeREST(c, meetingID, user); err != nil {
		return err
	}

	messageID, err := uuid.Parse(c.Params("messageID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid message id")
	}
	if err := s.deps.Store.MarkRead(meetingID, messageID); err != nil {
		if std.Is(err, errors.ErrMessageNotFound) {
			return fiber.NewError(fiber.StatusNotFound, errors.WireCode(err))
		}
		return fiber.NewError(fiber.StatusServiceUnavailable, errors.WireCode(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) searchMessages(c *fiber.Ctx) error {
	meetingID := domain.MeetingID(c.Params("id"))
	user := userFromRequest(c)

	if err := s.authorizeREST(c, meetingID, user); err != nil {
		return err
	}

	terms := c.Query("q")
	if terms == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}
	hits, err := s.index.Search(c.Context(), meetingID, terms, c.QueryInt("limit", 0))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "search failed")
	}
	return c.JSON(fiber.Map{
		"meeting_id": meetingID,
		"hits":       hits,
		"total":      len(hits),
	})
}

func (s *Server) authorizeREST(c *fiber.Ctx, meetingID domain.MeetingID, user domain.User) error {
	allowed, err := s.deps.Directory.IsParticipant(c.Context(), meetingID, user.ID)
	if err != nil {
		if std.Is(err, errors.ErrMeetingNotFound) {
			return fiber.NewError(fiber.StatusNotFound, errors.WireCode(err))
		}
		return fiber.NewError(fiber.StatusInternalServerError, errors.WireCode(err))
	}
	if !allowed {
		return fiber.NewError(fiber.StatusForbidden, errors.WireCode(errors.ErrAuthorizationDenied))
	}
	return nil
}
