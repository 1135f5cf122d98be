// Package session is the game state machine. Every action and every timer
// tick runs under the owning session's lock, so mutations of one game never
// interleave; different games proceed independently.
package session

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cardclash/go/internal/game/deck"
	"github.com/mcdev12/cardclash/go/internal/game/events"
	"github.com/mcdev12/cardclash/go/internal/game/registry"
	"github.com/mcdev12/cardclash/go/internal/game/timer"
	"github.com/mcdev12/cardclash/go/internal/models"
)

const systemUser = "System"

// Notifier delivers events to the participants of a game. Implementations
// must preserve the order of calls.
type Notifier interface {
	Broadcast(gameID string, ev events.Event)
	Send(participantID string, ev events.Event)
	Subscribe(gameID, participantID string)
	Unsubscribe(gameID, participantID string)
	CloseRoom(gameID string)
}

// Config holds the reveal pacing.
type Config struct {
	RevealHold  time.Duration
	RevealPause time.Duration
}

// DefaultConfig shows each card enlarged for 3s then pauses 1s.
func DefaultConfig() Config {
	return Config{
		RevealHold:  3 * time.Second,
		RevealPause: time.Second,
	}
}

// Service applies participant actions and timer expiries to games.
type Service struct {
	registry *registry.Registry
	timers   *timer.Manager
	decks    *deck.Builder
	notifier Notifier
	clock    clockwork.Clock
	config   Config
}

// NewService wires the state machine to its collaborators.
func NewService(reg *registry.Registry, timers *timer.Manager, decks *deck.Builder, notifier Notifier, clock clockwork.Clock, config Config) *Service {
	return &Service{
		registry: reg,
		timers:   timers,
		decks:    decks,
		notifier: notifier,
		clock:    clock,
		config:   config,
	}
}

// Run drives the retention sweep until ctx is cancelled, then stops every countdown.
func (s *Service) Run(ctx context.Context) {
	s.registry.RunSweeper(ctx, s.expire)
	s.timers.StopAll()
}

// withSession runs fn under the session lock. A session deleted while we
// waited for the lock is reported as missing.
func (s *Service) withSession(gameID string, missing error, fn func(sess *registry.Session, g *models.Game) error) error {
	sess, ok := s.registry.Get(gameID)
	if !ok {
		return missing
	}
	sess.Lock()
	defer sess.Unlock()
	if sess.Deleted() {
		return missing
	}
	return fn(sess, sess.Game)
}

func (s *Service) broadcastState(g *models.Game) {
	s.notifier.Broadcast(g.ID, events.New(events.TypeGameData, events.GameDataPayload{Game: g.Clone()}))
}

func (s *Service) sendState(to string, g *models.Game, role models.Role) {
	s.notifier.Send(to, events.New(events.TypeGameData, events.GameDataPayload{Game: g.Clone(), Role: &role}))
}

func (s *Service) systemChat(gameID, text string) {
	s.notifier.Broadcast(gameID, events.New(events.TypeChatMessage, models.ChatMessage{
		UserID:    systemUser,
		Text:      text,
		Role:      "system",
		Timestamp: s.clock.Now().UTC(),
	}))
}

func logReject(op, gameID, actor string, err error) {
	log.Debug().
		Err(err).
		Str("op", op).
		Str("game_id", gameID).
		Str("participant_id", actor).
		Msg("action rejected")
}
