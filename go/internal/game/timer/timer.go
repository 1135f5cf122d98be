// Package timer runs the per-game pick countdown.
//
// A Manager keeps at most one ticking countdown per game. Every arm is stamped
// with a generation number that is handed back on each tick, so a caller can
// discard a tick that was already in flight when its countdown was replaced.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often a running countdown ticks.
const DefaultInterval = time.Second

// TickFunc is invoked on every tick with the generation of the countdown that produced it.
type TickFunc func(gen uint64)

// Manager owns the live countdowns keyed by game id.
type Manager struct {
	clock    clockwork.Clock
	interval time.Duration

	mu     sync.Mutex
	active map[string]*countdown
	gen    uint64
}

type countdown struct {
	gen    uint64
	ticker clockwork.Ticker
	stop   chan struct{}
	once   sync.Once
}

// NewManager creates a Manager ticking every interval on the given clock.
func NewManager(clock clockwork.Clock, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{
		clock:    clock,
		interval: interval,
		active:   make(map[string]*countdown),
	}
}

// Arm starts a countdown for the game, replacing any existing one, and
// returns the generation that its ticks will carry.
func (m *Manager) Arm(gameID string, onTick TickFunc) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	c := &countdown{
		gen:    m.gen,
		ticker: m.clock.NewTicker(m.interval),
		stop:   make(chan struct{}),
	}

	if existing, ok := m.active[gameID]; ok {
		existing.halt()
		log.Debug().Str("game_id", gameID).Uint64("gen", existing.gen).Msg("replaced existing countdown")
	}
	m.active[gameID] = c

	go c.run(onTick)

	log.Debug().
		Str("game_id", gameID).
		Uint64("gen", c.gen).
		Dur("interval", m.interval).
		Msg("armed countdown")
	return c.gen
}

// Cancel stops and forgets the game's countdown. It never blocks on the tick
// goroutine, so it is safe to call from inside a TickFunc.
func (m *Manager) Cancel(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.active[gameID]; ok {
		c.halt()
		delete(m.active, gameID)
		log.Debug().Str("game_id", gameID).Uint64("gen", c.gen).Msg("cancelled countdown")
	}
}

// Active reports whether the game currently has a live countdown.
func (m *Manager) Active(gameID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[gameID]
	return ok
}

// Len is the number of live countdowns.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// StopAll cancels every countdown; used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for gameID, c := range m.active {
		c.halt()
		log.Debug().Str("game_id", gameID).Msg("cancelled countdown on shutdown")
	}
	m.active = make(map[string]*countdown)
}

func (c *countdown) halt() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.stop)
	})
}

func (c *countdown) run(onTick TickFunc) {
	for {
		select {
		case <-c.stop:
			return
		case <-c.ticker.Chan():
			// a halt may have raced the tick
			select {
			case <-c.stop:
				return
			default:
			}
			onTick(c.gen)
		}
	}
}
