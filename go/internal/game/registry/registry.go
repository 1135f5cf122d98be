// Package registry is the process-wide table of live games.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/mcdev12/cardclash/go/internal/game/deck"
	"github.com/mcdev12/cardclash/go/internal/models"
)

const (
	DefaultRetention     = 24 * time.Hour
	DefaultSweepInterval = time.Hour
	DefaultMaxPlayersCap = 10

	maxCodeAttempts = 16
	defaultHostName = "Host"
)

// ErrCodeSpaceExhausted is returned when no unused code could be generated.
var ErrCodeSpaceExhausted = errors.New("could not allocate a unique game code")

// TimerReleaser cancels any countdown bound to a game.
type TimerReleaser interface {
	Cancel(gameID string)
}

// Session is a registered game together with the lock that serialises every
// mutation of it. Callers must hold the lock while reading or writing Game.
type Session struct {
	deadlock.Mutex

	Game *models.Game

	// TimerGen is the generation of the countdown currently allowed to mutate Game.
	TimerGen uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled once the session is removed from the registry.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Deleted reports whether the session has been removed.
func (s *Session) Deleted() bool {
	return s.ctx.Err() != nil
}

// CreateParams are the host-supplied settings of a new game.
type CreateParams struct {
	Title          string
	MaxPlayers     int
	HostID         string
	HostName       string
	RoundTimeLimit int
}

// Config tunes retention and limits.
type Config struct {
	Retention     time.Duration
	SweepInterval time.Duration
	MaxPlayersCap int
}

// DefaultConfig returns the standard retention policy.
func DefaultConfig() Config {
	return Config{
		Retention:     DefaultRetention,
		SweepInterval: DefaultSweepInterval,
		MaxPlayersCap: DefaultMaxPlayersCap,
	}
}

// Registry maps game codes to sessions.
type Registry struct {
	mu       deadlock.RWMutex
	sessions map[string]*Session

	clock  clockwork.Clock
	decks  *deck.Builder
	timers TimerReleaser
	codes  CodeGenerator
	config Config
}

// New creates an empty registry.
func New(clock clockwork.Clock, decks *deck.Builder, timers TimerReleaser, config Config) *Registry {
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	if config.MaxPlayersCap <= 0 {
		config.MaxPlayersCap = DefaultMaxPlayersCap
	}
	return &Registry{
		sessions: make(map[string]*Session),
		clock:    clock,
		decks:    decks,
		timers:   timers,
		codes:    GenerateCode,
		config:   config,
	}
}

// WithCodeGenerator swaps the code source, mainly for tests.
func (r *Registry) WithCodeGenerator(gen CodeGenerator) *Registry {
	r.codes = gen
	return r
}

// Create registers a new lobby with a fresh deck under an unused code.
func (r *Registry) Create(params CreateParams) (*Session, error) {
	hostName := strings.TrimSpace(params.HostName)
	if hostName == "" {
		hostName = defaultHostName
	}
	timeLimit := params.RoundTimeLimit
	if timeLimit < 0 {
		timeLimit = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.uniqueCodeLocked()
	if err != nil {
		return nil, err
	}

	game := &models.Game{
		ID:              code,
		Title:           params.Title,
		HostID:          params.HostID,
		HostName:        hostName,
		Players:         []models.Player{},
		Spectators:      []models.Spectator{},
		Cards:           r.decks.Build(),
		Round:           1,
		Phase:           models.RoundPhasePicking,
		TurnOrder:       []models.TurnSlot{},
		Status:          models.GameStatusLobby,
		MaxPlayers:      r.clampMaxPlayers(params.MaxPlayers),
		RoundTimeLimit:  timeLimit,
		ChatMessages:    []models.ChatMessage{},
		Leaderboard:     []models.LeaderboardEntry{},
		AllParticipants: []models.Player{},
		CreatedAt:       r.clock.Now(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{Game: game, ctx: ctx, cancel: cancel}
	r.sessions[code] = s

	log.Info().
		Str("game_id", code).
		Str("host_id", params.HostID).
		Int("max_players", game.MaxPlayers).
		Int("round_time_limit", game.RoundTimeLimit).
		Msg("game created")
	return s, nil
}

func (r *Registry) uniqueCodeLocked() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := r.codes()
		if err != nil {
			return "", fmt.Errorf("generate game code: %w", err)
		}
		if _, taken := r.sessions[code]; !taken {
			return code, nil
		}
		log.Warn().Str("game_id", code).Int("attempt", attempt+1).Msg("game code collision, regenerating")
	}
	return "", ErrCodeSpaceExhausted
}

func (r *Registry) clampMaxPlayers(n int) int {
	switch {
	case n <= 0 || n > r.config.MaxPlayersCap:
		return r.config.MaxPlayersCap
	case n < 2:
		return 2
	default:
		return n
	}
}

// Get looks a session up by code.
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	return s, ok
}

// Delete removes the session, cancels its countdown and its context.
// It reports whether anything was removed.
func (r *Registry) Delete(code string) bool {
	r.mu.Lock()
	s, ok := r.sessions[code]
	if ok {
		delete(r.sessions, code)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.timers.Cancel(code)
	s.cancel()
	log.Info().Str("game_id", code).Msg("game deleted")
	return true
}

// All returns the currently registered sessions in no particular order.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len is the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ExpiryFunc is told about a session just before the sweep deletes it.
type ExpiryFunc func(code string, s *Session)

// Sweep deletes every session older than the retention window and returns
// the expired codes. A panicking notifier does not stop the sweep.
func (r *Registry) Sweep(notify ExpiryFunc) []string {
	now := r.clock.Now()

	type candidate struct {
		code    string
		session *Session
	}
	var expired []candidate

	r.mu.RLock()
	for code, s := range r.sessions {
		// CreatedAt is immutable after Create, so reading it without the session lock is safe.
		if now.Sub(s.Game.CreatedAt) > r.config.Retention {
			expired = append(expired, candidate{code: code, session: s})
		}
	}
	r.mu.RUnlock()

	codes := make([]string, 0, len(expired))
	for _, c := range expired {
		if notify != nil {
			r.safeNotify(notify, c.code, c.session)
		}
		if r.Delete(c.code) {
			codes = append(codes, c.code)
		}
	}

	if len(codes) > 0 {
		log.Info().Int("count", len(codes)).Strs("game_ids", codes).Msg("expired stale games")
	}
	return codes
}

func (r *Registry) safeNotify(notify ExpiryFunc, code string, s *Session) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("game_id", code).Msg("expiry notification failed")
		}
	}()
	notify(code, s)
}

// RunSweeper sweeps once per interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, notify ExpiryFunc) {
	ticker := r.clock.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", r.config.SweepInterval).
		Dur("retention", r.config.Retention).
		Msg("retention sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("retention sweeper shutting down")
			return
		case <-ticker.Chan():
			r.Sweep(notify)
		}
	}
}
