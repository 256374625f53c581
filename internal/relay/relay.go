package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"askgate/internal/crypto"
	"askgate/internal/queue"
	"askgate/internal/ws"
)

const defaultPublishTimeout = 5 * time.Second

var ErrNoKeyring = errors.New("custom endpoint needs a master keyring to seal its api key")

type publisher interface {
	Publish(ctx context.Context, msg queue.InboundMessage) (string, error)
}

type Config struct {
	Queue publisher
	// Keyring seals the api key of custom_openai sessions. Without it such
	// messages are refused.
	Keyring        *crypto.Keyring
	Logger         zerolog.Logger
	PublishTimeout time.Duration
	Now            func() time.Time
}

// Relay hands every inbound WebSocket message to the stream consumed by the
// conversation workers, one connection's messages in read order.
type Relay struct {
	queue   publisher
	keyring *crypto.Keyring
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func New(cfg Config) *Relay {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Relay{
		queue:   cfg.Queue,
		keyring: cfg.Keyring,
		logger:  cfg.Logger.With().Str("component", "relay").Logger(),
		timeout: cfg.PublishTimeout,
		now:     cfg.Now,
	}
}

var _ ws.OrderedHandler = (*Relay)(nil)

// OrderedMessages makes the connection publish its frames one after another.
func (r *Relay) OrderedMessages() bool { return true }

func (r *Relay) HandleMessage(ctx context.Context, message string, conn *ws.Conn, models ws.Models) error {
	received, ok := ws.ReceivedAt(ctx)
	if !ok {
		received = r.now()
	}
	msg := queue.InboundMessage{
		ConnID:            conn.ID(),
		Payload:           message,
		ChatProvider:      models.ChatProvider,
		EmbeddingProvider: models.EmbeddingProvider,
		ReceivedAt:        received.UTC(),
	}
	if models.Chat != nil {
		msg.ChatModel = models.Chat.Name()
	}
	if models.Embedding != nil {
		msg.EmbeddingModel = models.Embedding.Name()
	}
	if err := r.attachEndpoint(&msg, models.CustomChat); err != nil {
		return err
	}

	// A message already read from the socket is published even if the peer hangs up meanwhile.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	id, err := r.queue.Publish(pubCtx, msg)
	if err != nil {
		return fmt.Errorf("publish inbound message: %w", err)
	}
	r.logger.Debug().Str("conn_id", msg.ConnID).Str("message_id", id).Msg("inbound message relayed")
	return nil
}

func (r *Relay) attachEndpoint(msg *queue.InboundMessage, ep *ws.CustomEndpoint) error {
	if ep == nil {
		return nil
	}
	if r.keyring == nil {
		return ErrNoKeyring
	}
	msg.ChatBaseURL = ep.BaseURL
	if ep.APIKey == "" {
		return nil
	}
	sealed, err := r.keyring.Seal(ep.APIKey)
	if err != nil {
		return fmt.Errorf("seal custom endpoint key: %w", err)
	}
	msg.ChatAPIKey = sealed
	return nil
}
