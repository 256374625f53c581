package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"askgate/internal/metrics"
)

const forbiddenResponse = "HTTP/1.1 403 Forbidden\r\n\r\n"

type rateLimiter interface {
	Allow(ctx context.Context, client string, now time.Time) (allowed bool, used int64, resetAt time.Time, err error)
}

type Config struct {
	Resolver    *Resolver
	Handler     MessageHandler
	RateLimiter rateLimiter
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics

	// SignalInterval is how often the ready state is polled before the open beacon is sent.
	SignalInterval time.Duration
	ReadLimit      int64
	MaxInFlight    int
	// CloseTimeout bounds the wait for the peer's reply to a server-initiated close.
	CloseTimeout time.Duration
	CheckOrigin  func(r *http.Request) bool
}

// Admission decides per upgrade request whether a chat and embedding model can be
// resolved, and either completes the WebSocket handshake or refuses with a bare 403.
type Admission struct {
	resolver    *Resolver
	handler     MessageHandler
	limiter     rateLimiter
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	upgrader    websocket.Upgrader
	connOptions connOptions
}

func NewAdmission(cfg Config) *Admission {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.SignalInterval <= 0 {
		cfg.SignalInterval = 5 * time.Millisecond
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 8
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Admission{
		resolver: cfg.Resolver,
		handler:  cfg.Handler,
		limiter:  cfg.RateLimiter,
		logger:   cfg.Logger,
		metrics:  m,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		connOptions: connOptions{
			signalInterval: cfg.SignalInterval,
			readLimit:      cfg.ReadLimit,
			maxInFlight:    cfg.MaxInFlight,
			closeTimeout:   cfg.CloseTimeout,
		},
	}
}

func (a *Admission) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remote := clientAddr(r)
	log := a.logger.With().Str("remote", remote).Logger()

	models, err := a.admit(r, remote)
	if err != nil {
		a.metrics.Admissions.WithLabelValues("rejected").Inc()
		reject(w)
		log.Error().Err(err).Msg("websocket upgrade rejected")
		return
	}

	wsConn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		a.metrics.Admissions.WithLabelValues("handshake_failed").Inc()
		log.Error().Err(err).Msg("websocket handshake failed")
		return
	}
	a.metrics.Admissions.WithLabelValues("accepted").Inc()

	id := uuid.NewString()
	log = log.With().Str("conn_id", id).Logger()
	conn := newConn(r.Context(), id, wsConn, log, a.metrics)

	a.metrics.ActiveConnections.Inc()
	defer a.metrics.ActiveConnections.Dec()

	log.Debug().
		Str("chat_provider", models.ChatProvider).
		Str("chat_model", models.Chat.Name()).
		Str("embedding_provider", models.EmbeddingProvider).
		Str("embedding_model", models.Embedding.Name()).
		Msg("connection opened")
	conn.serve(a.handler, models, a.connOptions)
}

func (a *Admission) admit(r *http.Request, remote string) (Models, error) {
	if a.limiter != nil {
		allowed, _, _, err := a.limiter.Allow(r.Context(), remote, time.Now())
		switch {
		case err != nil:
			a.logger.Warn().Err(err).Str("remote", remote).Msg("admission rate limit unavailable")
		case !allowed:
			return Models{}, ErrRateLimited
		}
	}
	if a.resolver == nil {
		return Models{}, errors.New("no model resolver configured")
	}
	return a.resolver.Resolve(r.Context(), ParseSelection(r))
}

// reject answers on the raw connection since no WebSocket framing exists yet.
func reject(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	netConn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = netConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, _ = netConn.Write([]byte(forbiddenResponse))
	_ = netConn.Close()
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
