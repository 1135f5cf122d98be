package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickLog struct {
	mu   sync.Mutex
	gens []uint64
}

func (l *tickLog) record(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gens = append(l.gens, gen)
}

func (l *tickLog) snapshot() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint64(nil), l.gens...)
}

func waitForTicker(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func TestArmTicksWithGeneration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, time.Second)
	ticks := &tickLog{}

	gen := m.Arm("ABC123", ticks.record)
	assert.True(t, m.Active("ABC123"))
	waitForTicker(t, clock)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return len(ticks.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{gen}, ticks.snapshot())
}

func TestArmReplacesExistingCountdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, time.Second)
	first := &tickLog{}
	second := &tickLog{}

	g1 := m.Arm("ABC123", first.record)
	g2 := m.Arm("ABC123", second.record)
	assert.Greater(t, g2, g1)
	assert.Equal(t, 1, m.Len())

	waitForTicker(t, clock)
	clock.Advance(time.Second)

	assert.Eventually(t, func() bool { return len(second.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, first.snapshot())
	assert.Equal(t, []uint64{g2}, second.snapshot())
}

func TestCancelStopsTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, time.Second)
	ticks := &tickLog{}

	m.Arm("ABC123", ticks.record)
	m.Cancel("ABC123")
	assert.False(t, m.Active("ABC123"))

	clock.Advance(3 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ticks.snapshot())

	// cancelling twice is harmless
	m.Cancel("ABC123")
}

func TestCancelFromInsideTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, time.Second)
	done := make(chan struct{})

	m.Arm("ABC123", func(uint64) {
		m.Cancel("ABC123")
		close(done)
	})
	waitForTicker(t, clock)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick never fired")
	}
	assert.False(t, m.Active("ABC123"))
}

func TestStopAll(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, 0)
	m.Arm("A", func(uint64) {})
	m.Arm("B", func(uint64) {})
	require.Equal(t, 2, m.Len())

	m.StopAll()
	assert.Equal(t, 0, m.Len())
}
