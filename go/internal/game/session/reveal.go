package session

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cardclash/go/internal/game/events"
	"github.com/mcdev12/cardclash/go/internal/game/leaderboard"
	"github.com/mcdev12/cardclash/go/internal/game/registry"
	"github.com/mcdev12/cardclash/go/internal/models"
)

// Reveal starts the host's card reveal. Picked cards are shown one at a time
// in pick order, then the lowest scorer is eliminated. The sequence runs in
// the background; while it runs the round is in the revealing phase and
// gameplay actions are rejected. Deleting the game aborts it.
func (s *Service) Reveal(gameID, requester string) error {
	var sess *registry.Session
	var order []int

	err := s.withSession(gameID, ErrGameNotFound, func(found *registry.Session, g *models.Game) error {
		if g.HostID != requester {
			return errNotHost("reveal cards")
		}
		if g.Phase == models.RoundPhaseRevealing {
			return ErrRevealInProgress
		}
		if g.Status != models.GameStatusPlaying {
			return ErrGameNotPlaying
		}
		if g.Phase == models.RoundPhaseRevealed {
			return ErrAlreadyRevealed
		}

		s.stopTimer(found, g.RoundTimer != nil)
		g.Phase = models.RoundPhaseRevealing
		order = revealOrder(g.Cards)
		sess = found

		log.Info().Str("game_id", g.ID).Int("cards", len(order)).Msg("reveal started")
		return nil
	})
	if err != nil {
		logReject("reveal", gameID, requester, err)
		return err
	}

	go s.runReveal(sess, order)
	return nil
}

// revealOrder lists picked card ids, earliest pick first.
func revealOrder(cards []models.Card) []int {
	picked := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if c.Picked() {
			picked = append(picked, c)
		}
	}
	slices.SortStableFunc(picked, func(a, b models.Card) int {
		return a.PickTime.Compare(*b.PickTime)
	})

	ids := make([]int, len(picked))
	for i, c := range picked {
		ids[i] = c.ID
	}
	return ids
}

func (s *Service) runReveal(sess *registry.Session, order []int) {
	ctx := sess.Context()
	defer func() {
		if rec := recover(); rec != nil {
			s.failReveal(sess, rec)
		}
	}()

	for _, cardID := range order {
		if !s.showCard(sess, cardID, true) || !s.wait(ctx, s.config.RevealHold) {
			return
		}
		if !s.showCard(sess, cardID, false) || !s.wait(ctx, s.config.RevealPause) {
			return
		}
	}

	s.finishReveal(sess)
}

// showCard marks the card revealed and broadcasts it enlarged or settled.
// It reports false once the game has been torn down.
func (s *Service) showCard(sess *registry.Session, cardID int, enlarge bool) bool {
	sess.Lock()
	defer sess.Unlock()
	if sess.Deleted() {
		return false
	}

	g := sess.Game
	card := g.FindCard(cardID)
	if card == nil {
		panic(fmt.Sprintf("card %d vanished during reveal", cardID))
	}
	card.Revealed = true
	s.notifier.Broadcast(g.ID, events.New(events.TypeRevealCard, events.RevealCardPayload{
		CardID:   card.ID,
		Value:    card.Value,
		PickedBy: card.PickedBy,
		Enlarge:  enlarge,
	}))
	return true
}

func (s *Service) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-s.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Service) failReveal(sess *registry.Session, rec any) {
	sess.Lock()
	defer sess.Unlock()

	g := sess.Game
	log.Error().Interface("panic", rec).Str("game_id", g.ID).Msg("reveal sequence failed")
	if sess.Deleted() {
		return
	}
	// revealed cards stay revealed; the host may try again
	if g.Phase == models.RoundPhaseRevealing {
		g.Phase = models.RoundPhasePicked
	}
	s.notifier.Send(g.HostID, Reject(ErrRevealFailed))
	s.broadcastState(g)
}

// finishReveal eliminates the lowest scorer and ends the game if at most one
// player is left.
func (s *Service) finishReveal(sess *registry.Session) {
	sess.Lock()
	defer sess.Unlock()
	if sess.Deleted() {
		return
	}

	g := sess.Game
	loser, tiebreak := selectElimination(g.Players, g.Cards)
	if loser != nil {
		eliminate(g, *loser)
		s.reorder(g)

		s.notifier.Broadcast(g.ID, events.New(events.TypePlayerEliminated, events.PlayerEliminatedPayload{
			PlayerID: loser.ID,
			Name:     loser.Name,
			Score:    loser.Score,
			Tiebreak: tiebreak,
		}))
		if tiebreak {
			s.systemChat(g.ID, fmt.Sprintf("%s was eliminated due to tiebreaker (slowest pick)!", loser.Name))
		} else {
			s.systemChat(g.ID, fmt.Sprintf("%s was eliminated!", loser.Name))
		}

		log.Info().
			Str("game_id", g.ID).
			Str("participant_id", loser.ID).
			Int("score", loser.Score).
			Bool("tiebreak", tiebreak).
			Msg("player eliminated")
	} else {
		s.reorder(g)
	}
	g.Phase = models.RoundPhaseRevealed

	if len(g.Players) <= 1 {
		s.endGame(g)
	}
	s.broadcastState(g)
}

// selectElimination picks the player to remove: the unique lowest scorer, or
// among several tied lowest scorers the one who picked last. A tied player
// with no pick this round counts as the latest.
func selectElimination(players []models.Player, cards []models.Card) (*models.Player, bool) {
	board := leaderboard.Calculate(players)
	if len(board) == 0 {
		return nil, false
	}

	lowest := board[len(board)-1].Score
	var tied []models.Player
	for _, e := range board {
		if e.Score == lowest {
			tied = append(tied, e.Player)
		}
	}
	if len(tied) == 1 {
		return &tied[0], false
	}

	latest := int64(math.MinInt64)
	var loser *models.Player
	for i := range tied {
		at := pickTimeOf(tied[i].ID, cards)
		if at >= latest {
			latest = at
			loser = &tied[i]
		}
	}
	return loser, true
}

func pickTimeOf(playerID string, cards []models.Card) int64 {
	for _, c := range cards {
		if c.PickedBy == playerID && c.PickTime != nil {
			return c.PickTime.UnixNano()
		}
	}
	return math.MaxInt64
}

// eliminate freezes the player's score in the ledger and drops them from play.
func eliminate(g *models.Game, loser models.Player) {
	for i := range g.AllParticipants {
		if g.AllParticipants[i].ID == loser.ID {
			g.AllParticipants[i].Score = loser.Score
		}
	}
	g.Players, _ = removePlayer(g.Players, loser.ID)
}

// endGame crowns the sole survivor, if any, and publishes final standings
// over every player who ever joined.
func (s *Service) endGame(g *models.Game) {
	g.Status = models.GameStatusEnded

	var championID string
	var championName *string
	g.Champion = nil
	if len(g.Players) == 1 {
		champ := g.Players[0]
		g.Champion = &champ
		championID = champ.ID
		championName = &champ.Name
	}
	g.Leaderboard = leaderboard.Final(g.AllParticipants, championID)

	var champion *models.Player
	if g.Champion != nil {
		c := *g.Champion
		champion = &c
	}
	s.notifier.Broadcast(g.ID, events.New(events.TypeFinalLeaderboard, events.FinalLeaderboardPayload{
		Leaderboard: slices.Clone(g.Leaderboard),
		Champion:    champion,
	}))
	s.notifier.Broadcast(g.ID, events.New(events.TypeGameEnded, events.GameEndedPayload{}))
	s.notifier.Broadcast(g.ID, events.New(events.TypeWinnerDeclared, events.WinnerDeclaredPayload{ChampionName: championName}))
	if g.Champion != nil {
		s.systemChat(g.ID, fmt.Sprintf("%s is the Champion!", g.Champion.Name))
	} else {
		s.systemChat(g.ID, "Game ended with no winner!")
	}

	log.Info().Str("game_id", g.ID).Str("champion_id", championID).Msg("game ended")
}
