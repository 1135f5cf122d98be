package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cardclash/go/internal/game/deck"
	"github.com/mcdev12/cardclash/go/internal/game/registry"
	"github.com/mcdev12/cardclash/go/internal/game/session"
	"github.com/mcdev12/cardclash/go/internal/game/timer"
	"github.com/mcdev12/cardclash/go/internal/gateway"
)

type Services struct {
	Games       *session.Service
	Registry    *registry.Registry
	Connections *gateway.ConnectionManager
	WebSocket   *gateway.WebSocketHandler
	CORS        *cors.Cors

	nc *nats.Conn
}

func setupServices(settings *Settings) (*Services, error) {
	// clock → timers/decks → registry → connections → game service → router
	clock := clockwork.NewRealClock()
	cfg := settings.Config
	policy := gateway.NewCORS(settings.ClientURL)

	var mirror *gateway.Mirror
	var nc *nats.Conn
	if settings.NATSURL != "" {
		natsCfg := gateway.DefaultNATSConfig()
		natsCfg.URL = settings.NATSURL
		natsCfg.SubjectPrefix = settings.NATSSubjectPrefix

		var err error
		nc, err = gateway.ConnectNATS(natsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up event mirror: %w", err)
		}
		mirror = gateway.NewMirror(nc, natsCfg.SubjectPrefix)
		log.Info().Str("nats_url", settings.NATSURL).Str("prefix", natsCfg.SubjectPrefix).Msg("event mirror enabled")
	}

	timers := timer.NewManager(clock, cfg.Game.TickInterval)
	decks := deck.NewBuilder()
	reg := registry.New(clock, decks, timers, cfg.registryConfig())

	wsConfig := cfg.connectionConfig()
	wsConfig.CheckOrigin = gateway.OriginChecker(policy)
	connections := gateway.NewConnectionManager(wsConfig, clock, mirror)

	games := session.NewService(reg, timers, decks, connections, clock, cfg.sessionConfig())
	router := gateway.NewRouter(games, connections)

	return &Services{
		Games:       games,
		Registry:    reg,
		Connections: connections,
		WebSocket:   gateway.NewWebSocketHandler(connections, router),
		CORS:        policy,
		nc:          nc,
	}, nil
}

// Close releases the NATS connection, flushing pending mirror messages.
func (s *Services) Close() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("failed to drain NATS connection")
	}
}
