package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/internal/dto"
)

const (
	feedSendBufferSize = 16
	feedPingInterval   = 30 * time.Second
)

var (
	feedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codesnap",
		Subsystem: "feed",
		Name:      "connections",
		Help:      "Open live attempt feed connections",
	})
	feedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codesnap",
		Subsystem: "feed",
		Name:      "dropped_events_total",
		Help:      "Graded attempt events dropped for slow feed clients",
	})
)

// FeedConn is the part of a websocket connection the feed writes to.
type FeedConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// AttemptFeed pushes graded attempts to their owner's open websocket
// connections. With NATS configured, events travel through the subject so
// every API instance delivers to the sockets it holds.
type AttemptFeed interface {
	EventPublisher
	Start(ctx context.Context) error
	Serve(conn FeedConn, userID uint)
}

type attemptFeed struct {
	publisher EventPublisher
	nats      *nats.Conn
	subject   string
	hub       *feedHub
	logger    zerolog.Logger
}

type feedHub struct {
	mu      sync.RWMutex
	clients map[uint]map[*feedClient]struct{}
}

type feedClient struct {
	conn   FeedConn
	userID uint
	send   chan dto.AttemptGradedEvent
	closed chan struct{}
	once   sync.Once
	feed   *attemptFeed
}

// NewAttemptFeed builds the live feed. conn may be nil for single-instance deployments.
func NewAttemptFeed(conn *nats.Conn, subject string, logger zerolog.Logger) AttemptFeed {
	return &attemptFeed{
		publisher: NewNATSEventPublisher(conn, subject, logger),
		nats:      conn,
		subject:   subject,
		hub:       &feedHub{clients: make(map[uint]map[*feedClient]struct{})},
		logger:    logger.With().Str("component", "attempt_feed").Logger(),
	}
}

// Start subscribes to the events subject until ctx is cancelled.
func (f *attemptFeed) Start(ctx context.Context) error {
	if f.nats == nil || f.subject == "" {
		return nil
	}

	sub, err := f.nats.Subscribe(f.subject, func(msg *nats.Msg) {
		f.handleEvent(msg.Data)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain attempt feed subscription")
		}
	}()
	return nil
}

func (f *attemptFeed) PublishAttemptGraded(ctx context.Context, event dto.AttemptGradedEvent) error {
	if f.nats == nil {
		f.hub.deliver(event)
		return nil
	}

	if err := f.publisher.PublishAttemptGraded(ctx, event); err != nil {
		f.hub.deliver(event)
		return err
	}
	return nil
}

// Serve blocks until the client disconnects.
func (f *attemptFeed) Serve(conn FeedConn, userID uint) {
	client := &feedClient{
		conn:   conn,
		userID: userID,
		send:   make(chan dto.AttemptGradedEvent, feedSendBufferSize),
		closed: make(chan struct{}),
		feed:   f,
	}

	f.hub.register(client)
	feedConnections.Inc()
	f.logger.Debug().Uint("user_id", userID).Msg("feed client connected")

	go client.writer()
	client.reader()
}

func (f *attemptFeed) handleEvent(data []byte) {
	var envelope attemptEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Warn().Err(err).Msg("invalid attempt event")
		return
	}
	f.hub.deliver(envelope.Event)
}

func (h *feedHub) register(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*feedClient]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *feedHub) unregister(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *feedHub) deliver(event dto.AttemptGradedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[event.UserID] {
		select {
		case client.send <- event:
		default:
			feedDropped.Inc()
		}
	}
}

// reader discards client frames; it only detects disconnects.
func (c *feedClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writer() {
	defer c.close()

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				c.feed.logger.Debug().Err(err).Msg("feed write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.feed.hub.unregister(c)
		feedConnections.Dec()
		_ = c.conn.Close()
	})
}
