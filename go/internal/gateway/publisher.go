package gateway

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cardclash/go/internal/game/events"
)

// Publisher is the slice of *nats.Conn the mirror needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Mirror republishes every room broadcast to NATS so other processes can
// follow games without holding a socket.
type Mirror struct {
	pub    Publisher
	prefix string
}

// NATSConfig configures the mirror's NATS connection.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "cardclash.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// ConnectNATS dials NATS with reconnect logging.
func ConnectNATS(cfg NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("cardclash-gateway"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func NewMirror(pub Publisher, prefix string) *Mirror {
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	return &Mirror{pub: pub, prefix: prefix}
}

// Subject is where events of type t for the game are published.
func (m *Mirror) Subject(gameID string, t events.Type) string {
	return fmt.Sprintf("%s.%s.%s", m.prefix, gameID, t)
}

// Publish sends an already encoded envelope. Failures are logged; the
// mirror never holds up delivery to sockets.
func (m *Mirror) Publish(gameID string, t events.Type, data []byte) {
	subject := m.Subject(gameID, t)
	if err := m.pub.Publish(subject, data); err != nil {
		log.Warn().
			Err(err).
			Str("subject", subject).
			Str("game_id", gameID).
			Msg("failed to mirror event")
	}
}
