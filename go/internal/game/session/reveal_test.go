package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/cardclash/go/internal/game/events"
	"github.com/mcdev12/cardclash/go/internal/models"
)

func at(sec int) *time.Time {
	t := time.Date(2024, 1, 1, 12, 0, sec, 0, time.UTC)
	return &t
}

func TestRevealOrder(t *testing.T) {
	cards := []models.Card{
		{ID: 1, Value: 1, PickedBy: "b", PickTime: at(20)},
		{ID: 2, Value: 2},
		{ID: 3, Value: 3, PickedBy: "a", PickTime: at(5)},
		{ID: 4, Value: 4, PickedBy: "c", PickTime: at(10)},
	}
	assert.Equal(t, []int{3, 4, 1}, revealOrder(cards))
	assert.Empty(t, revealOrder(cards[1:2]))
}

func TestSelectElimination(t *testing.T) {
	t.Run("latest picker loses a tie", func(t *testing.T) {
		players := []models.Player{{ID: "a", Score: 10}, {ID: "b", Score: 10}, {ID: "c", Score: 20}}
		cards := []models.Card{
			{ID: 1, PickedBy: "a", PickTime: at(1)},
			{ID: 2, PickedBy: "b", PickTime: at(2)},
			{ID: 3, PickedBy: "c", PickTime: at(3)},
		}
		loser, tiebreak := selectElimination(players, cards)
		require.NotNil(t, loser)
		assert.Equal(t, "b", loser.ID)
		assert.True(t, tiebreak)
	})

	t.Run("unique lowest", func(t *testing.T) {
		players := []models.Player{{ID: "a", Score: 10}, {ID: "b", Score: 10}, {ID: "c", Score: 5}}
		loser, tiebreak := selectElimination(players, nil)
		require.NotNil(t, loser)
		assert.Equal(t, "c", loser.ID)
		assert.False(t, tiebreak)
	})

	t.Run("tied player without a pick counts as latest", func(t *testing.T) {
		players := []models.Player{{ID: "a", Score: 3}, {ID: "b", Score: 3}}
		cards := []models.Card{{ID: 1, PickedBy: "b", PickTime: at(50)}}
		loser, tiebreak := selectElimination(players, cards)
		require.NotNil(t, loser)
		assert.Equal(t, "a", loser.ID)
		assert.True(t, tiebreak)
	})

	t.Run("no players", func(t *testing.T) {
		loser, tiebreak := selectElimination(nil, nil)
		assert.Nil(t, loser)
		assert.False(t, tiebreak)
	})
}

func TestRevealRejections(t *testing.T) {
	h := newHarness(t, instant())
	id := h.lobby(t, 2, 0)

	assert.ErrorIs(t, h.svc.Reveal(id, hostID), ErrGameNotPlaying)
	assert.ErrorIs(t, h.svc.Reveal("NOPE00", hostID), ErrGameNotFound)
	require.NoError(t, h.svc.Start(id, hostID))
	assert.ErrorIs(t, h.svc.Reveal(id, "p1"), ErrNotHost)
	assert.Equal(t, "Only the host can reveal cards.", h.svc.Reveal(id, "p1").Error())
}

func waitPhase(t *testing.T, h *harness, id string, phase models.RoundPhase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.game(t, id).Phase == phase
	}, time.Second, 5*time.Millisecond)
}

func TestRevealEliminatesTiebreakLoser(t *testing.T) {
	h := newHarness(t, instant())
	id := h.playing(t, 3, 0)
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)

	// level every score so the last picker goes
	h.mutate(t, id, func(g *models.Game) {
		for i := range g.Cards {
			if g.Cards[i].Picked() {
				g.Cards[i].Value = 10
			}
		}
		for i := range g.Players {
			g.Players[i].Score = 10
			g.AllParticipants[i].Score = 10
		}
	})
	order := revealOrder(h.game(t, id).Cards)
	h.rec.reset()

	require.NoError(t, h.svc.Reveal(id, hostID))
	waitPhase(t, h, id, models.RoundPhaseRevealed)

	reveals := h.rec.ofType(events.TypeRevealCard)
	require.Len(t, reveals, 6)
	for i, cardID := range order {
		enlarged := reveals[2*i].Event.Data.(events.RevealCardPayload)
		settled := reveals[2*i+1].Event.Data.(events.RevealCardPayload)
		assert.Equal(t, cardID, enlarged.CardID)
		assert.True(t, enlarged.Enlarge)
		assert.Equal(t, cardID, settled.CardID)
		assert.False(t, settled.Enlarge)
		assert.Equal(t, 10, settled.Value)
	}

	elim := h.rec.ofType(events.TypePlayerEliminated)
	require.Len(t, elim, 1)
	payload := elim[0].Event.Data.(events.PlayerEliminatedPayload)
	assert.Equal(t, events.PlayerEliminatedPayload{PlayerID: "p3", Name: "P3", Score: 10, Tiebreak: true}, payload)
	assert.Contains(t, h.rec.chatLines(), "P3 was eliminated due to tiebreaker (slowest pick)!")

	g := h.game(t, id)
	assert.Nil(t, g.FindPlayer("p3"))
	assert.Len(t, g.Players, 2)
	assert.Len(t, g.AllParticipants, 3)
	assert.Equal(t, models.GameStatusPlaying, g.Status)
	for _, c := range g.Cards {
		assert.Equal(t, c.Picked(), c.Revealed)
	}

	assert.ErrorIs(t, h.svc.Reveal(id, hostID), ErrAlreadyRevealed)
	assert.ErrorIs(t, h.svc.Pick(PickRequest{GameID: id, ActorID: g.CurrentTurn, CardID: h.unpickedID(t, id)}), ErrRoundComplete)
}

func TestRevealCrownsChampion(t *testing.T) {
	h := newHarness(t, instant())
	id := h.playing(t, 2, 0)
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)
	h.mutate(t, id, func(g *models.Game) {
		for i := range g.Cards {
			switch g.Cards[i].PickedBy {
			case "p1":
				g.Cards[i].Value = 5
			case "p2":
				g.Cards[i].Value = 40
			}
		}
		g.Players[0].Score, g.Players[1].Score = 5, 40
		g.AllParticipants[0].Score, g.AllParticipants[1].Score = 5, 40
	})
	h.rec.reset()

	require.NoError(t, h.svc.Reveal(id, hostID))
	require.Eventually(t, func() bool {
		return h.game(t, id).Status == models.GameStatusEnded
	}, time.Second, 5*time.Millisecond)

	g := h.game(t, id)
	require.NotNil(t, g.Champion)
	assert.Equal(t, "p2", g.Champion.ID)
	assert.Equal(t, []models.LeaderboardEntry{
		{Player: models.Player{ID: "p2", Name: "P2", Score: 40}, Rank: 1, IsChampion: true},
		{Player: models.Player{ID: "p1", Name: "P1", Score: 5}, Rank: 2},
	}, g.Leaderboard)

	types := h.rec.types()
	tail := types[len(types)-5:]
	assert.Equal(t, []events.Type{
		events.TypeFinalLeaderboard,
		events.TypeGameEnded,
		events.TypeWinnerDeclared,
		events.TypeChatMessage,
		events.TypeGameData,
	}, tail)
	winner := h.rec.ofType(events.TypeWinnerDeclared)[0].Event.Data.(events.WinnerDeclaredPayload)
	require.NotNil(t, winner.ChampionName)
	assert.Equal(t, "P2", *winner.ChampionName)
	assert.Contains(t, h.rec.chatLines(), "P2 is the Champion!")

	assert.ErrorIs(t, h.svc.NextRound(id, hostID), ErrGameNotPlaying)
}

func TestPacedRevealBlocksGameplay(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	id := h.playing(t, 3, 0)
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)
	h.rec.reset()

	require.NoError(t, h.svc.Reveal(id, hostID))
	h.waitForSleeper(t)

	assert.Equal(t, models.RoundPhaseRevealing, h.game(t, id).Phase)
	assert.Len(t, h.rec.ofType(events.TypeRevealCard), 1)
	assert.ErrorIs(t, h.svc.Reveal(id, hostID), ErrRevealInProgress)
	assert.ErrorIs(t, h.svc.NextRound(id, hostID), ErrRevealInProgress)
	assert.ErrorIs(t, h.svc.Pick(PickRequest{GameID: id, ActorID: "p3", CardID: h.unpickedID(t, id)}), ErrRevealInProgress)
	assert.ErrorIs(t, h.svc.Start(id, hostID), ErrRevealInProgress)
	assert.ErrorIs(t, h.svc.Join(JoinRequest{GameID: id, ParticipantID: "late", Name: "Late"}), ErrRevealInProgress)

	for step := 0; step < 4; step++ {
		if step%2 == 0 {
			h.clock.Advance(DefaultConfig().RevealHold)
		} else {
			h.clock.Advance(DefaultConfig().RevealPause)
		}
		if step < 3 {
			h.waitForSleeper(t)
		}
	}

	waitPhase(t, h, id, models.RoundPhaseRevealed)
	assert.Len(t, h.rec.ofType(events.TypeRevealCard), 4)
	assert.Len(t, h.rec.ofType(events.TypePlayerEliminated), 1)
}

func TestResetAbortsReveal(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	id := h.playing(t, 2, 0)
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)

	require.NoError(t, h.svc.Reveal(id, hostID))
	h.waitForSleeper(t)
	require.NoError(t, h.svc.Reset(id, hostID))

	shown := len(h.rec.ofType(events.TypeRevealCard))
	h.clock.Advance(time.Minute)
	assert.Never(t, func() bool {
		return len(h.rec.ofType(events.TypeRevealCard)) != shown
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, h.rec.ofType(events.TypePlayerEliminated))

	_, _, ok := h.svc.Query(id, hostID)
	assert.False(t, ok)
}

func TestFinalLeaderboardKeepsEliminatedPlayers(t *testing.T) {
	h := newHarness(t, instant())
	id := h.playing(t, 3, 0)

	// round 1: P3 holds the lowest card
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)
	h.mutate(t, id, func(g *models.Game) {
		values := map[string]int{"p1": 20, "p2": 15, "p3": 5}
		for i := range g.Cards {
			if v, ok := values[g.Cards[i].PickedBy]; ok {
				g.Cards[i].Value = v
			}
		}
		for i := range g.Players {
			g.Players[i].Score = values[g.Players[i].ID]
			g.AllParticipants[i].Score = values[g.AllParticipants[i].ID]
		}
	})
	require.NoError(t, h.svc.Reveal(id, hostID))
	waitPhase(t, h, id, models.RoundPhaseRevealed)
	require.Nil(t, h.game(t, id).FindPlayer("p3"))

	// round 2: P2 falls behind
	require.NoError(t, h.svc.NextRound(id, hostID))
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)
	h.mutate(t, id, func(g *models.Game) {
		totals := map[string]int{"p1": 30, "p2": 16}
		for i := range g.Players {
			g.Players[i].Score = totals[g.Players[i].ID]
		}
		for i := range g.AllParticipants {
			if v, ok := totals[g.AllParticipants[i].ID]; ok {
				g.AllParticipants[i].Score = v
			}
		}
	})
	h.rec.reset()
	require.NoError(t, h.svc.Reveal(id, hostID))
	require.Eventually(t, func() bool {
		return h.game(t, id).Status == models.GameStatusEnded
	}, time.Second, 5*time.Millisecond)

	final := h.rec.ofType(events.TypeFinalLeaderboard)
	require.Len(t, final, 1)
	payload := final[0].Event.Data.(events.FinalLeaderboardPayload)
	assert.Equal(t, []models.LeaderboardEntry{
		{Player: models.Player{ID: "p1", Name: "P1", Score: 30}, Rank: 1, IsChampion: true},
		{Player: models.Player{ID: "p2", Name: "P2", Score: 16}, Rank: 2},
		{Player: models.Player{ID: "p3", Name: "P3", Score: 5}, Rank: 3},
	}, payload.Leaderboard)
	require.NotNil(t, payload.Champion)
	assert.Equal(t, "p1", payload.Champion.ID)
	assert.Equal(t, payload.Leaderboard, h.game(t, id).Leaderboard)
}

func TestRevealFaultReportsToHost(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	id := h.playing(t, 3, 0)
	h.pickCurrent(t, id)
	h.pickCurrent(t, id)
	order := revealOrder(h.game(t, id).Cards)
	require.Len(t, order, 2)
	h.rec.reset()

	require.NoError(t, h.svc.Reveal(id, hostID))
	h.waitForSleeper(t)

	// the second card disappears while the first is on display
	h.mutate(t, id, func(g *models.Game) {
		for i := range g.Cards {
			if g.Cards[i].ID == order[1] {
				g.Cards = append(g.Cards[:i], g.Cards[i+1:]...)
				return
			}
		}
	})
	h.clock.Advance(DefaultConfig().RevealHold)
	h.waitForSleeper(t)
	h.clock.Advance(DefaultConfig().RevealPause)

	waitPhase(t, h, id, models.RoundPhasePicked)

	var hostErrors []string
	for _, d := range h.rec.ofType(events.TypeGameError) {
		if d.To == hostID {
			hostErrors = append(hostErrors, d.Event.Data.(events.ErrorPayload).Message)
		}
	}
	assert.Equal(t, []string{"Failed to reveal cards."}, hostErrors)

	g := h.game(t, id)
	assert.True(t, g.FindCard(order[0]).Revealed)
	assert.Equal(t, models.GameStatusPlaying, g.Status)
	assert.Len(t, g.Players, 3)
	assert.Empty(t, h.rec.ofType(events.TypePlayerEliminated))
}
