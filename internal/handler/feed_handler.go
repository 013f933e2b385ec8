package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/internal/service"
	"github.com/noah-isme/codesnap-api/internal/utils"
)

// FeedHandler upgrades clients to the live graded-attempt feed.
type FeedHandler struct {
	feed   service.AttemptFeed
	logger zerolog.Logger
}

// NewFeedHandler constructs the handler.
func NewFeedHandler(feed service.AttemptFeed, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		feed:   feed,
		logger: logger.With().Str("component", "feed_handler").Logger(),
	}
}

// Register binds the websocket route. It must run before routes with a
// trailing path parameter in the same group.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Use("/live", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return utils.SendError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
		}
		if userIDFromContext(c) == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return c.Next()
	})
	router.Get("/live", websocket.New(h.serve))
}

func (h *FeedHandler) serve(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)

	h.logger.Info().Uint("user_id", userID).Msg("attempt feed connected")
	h.feed.Serve(conn, userID)
	h.logger.Info().Uint("user_id", userID).Msg("attempt feed disconnected")
}
