package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/noah-isme/codesnap-api/internal/config"
	"github.com/noah-isme/codesnap-api/internal/utils"
)

const (
	componentUp        = "up"
	componentDown      = "down"
	componentDisabled  = "disabled"
	healthProbeTimeout = 2 * time.Second
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
	Service       string            `json:"service"`
	Environment   string            `json:"environment"`
	SandboxDriver string            `json:"sandbox_driver"`
	Components    map[string]string `json:"components"`
}

// HealthHandler probes the backing stores. Any of them may be nil when the
// deployment runs without it.
type HealthHandler struct {
	cfg   config.Config
	db    *gorm.DB
	redis *redis.Client
	nats  *nats.Conn
}

// NewHealthHandler builds the health endpoint.
func NewHealthHandler(cfg config.Config, db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, redis: redisClient, nats: natsConn}
}

// Register wires the handler endpoints into the router group.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.health)
}

// health answers 503 only when the database is down. Redis or NATS outages
// report "degraded".
func (h *HealthHandler) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(withRequestContext(c), healthProbeTimeout)
	defer cancel()

	payload := HealthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC(),
		Service:       h.cfg.AppName,
		Environment:   h.cfg.AppEnv,
		SandboxDriver: h.cfg.SandboxDriver,
		Components: map[string]string{
			"database": h.probeDatabase(ctx),
			"redis":    h.probeRedis(ctx),
			"nats":     h.probeNATS(),
		},
	}

	if payload.Components["database"] == componentDown {
		payload.Status = "unavailable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
			Success: false,
			Data:    payload,
			Message: "database unreachable",
		})
	}

	if payload.Components["redis"] == componentDown || payload.Components["nats"] == componentDown {
		payload.Status = "degraded"
	}

	return utils.SendSuccess(c, "service healthy", payload)
}

func (h *HealthHandler) probeDatabase(ctx context.Context) string {
	if h.db == nil {
		return componentDisabled
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return componentDown
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return componentDown
	}
	return componentUp
}

func (h *HealthHandler) probeRedis(ctx context.Context) string {
	if h.redis == nil {
		return componentDisabled
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return componentDown
	}
	return componentUp
}

func (h *HealthHandler) probeNATS() string {
	if h.nats == nil {
		return componentDisabled
	}
	if !h.nats.IsConnected() {
		return componentDown
	}
	return componentUp
}
