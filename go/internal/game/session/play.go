package session

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cardclash/go/internal/game/events"
	"github.com/mcdev12/cardclash/go/internal/game/registry"
	"github.com/mcdev12/cardclash/go/internal/models"
)

// Pick claims a card for the player whose turn it is.
func (s *Service) Pick(req PickRequest) error {
	playerID := req.PlayerID
	if playerID == "" {
		playerID = req.ActorID
	}

	err := s.withSession(req.GameID, ErrGameNotFound, func(sess *registry.Session, g *models.Game) error {
		if g.Phase == models.RoundPhaseRevealing {
			return ErrRevealInProgress
		}
		if g.Status != models.GameStatusPlaying {
			return ErrGameNotPlaying
		}
		if g.Phase != models.RoundPhasePicking {
			return ErrRoundComplete
		}
		if playerID != req.ActorID || g.CurrentTurn == "" || g.CurrentTurn != playerID {
			return ErrNotYourTurn
		}
		card := g.FindCard(req.CardID)
		if card == nil || card.Picked() {
			return ErrCardUnavailable
		}

		s.stopTimer(sess, false)
		player := s.claim(g, card, playerID)
		advanceTurn(g)

		s.notifier.Broadcast(g.ID, events.New(events.TypeCardPicked, events.CardPickedPayload{CardID: card.ID, PlayerID: playerID}))
		s.systemChat(g.ID, fmt.Sprintf("%s picked a card.", player.Name))
		s.afterPick(sess)
		s.broadcastState(g)

		log.Debug().
			Str("game_id", g.ID).
			Str("participant_id", playerID).
			Int("card_id", card.ID).
			Msg("card picked")
		return nil
	})
	if err != nil {
		logReject("pick", req.GameID, req.ActorID, err)
	}
	return err
}

// NextRound deals a fresh deck and restarts picking with the remaining players.
func (s *Service) NextRound(gameID, requester string) error {
	err := s.withSession(gameID, ErrGameNotFound, func(sess *registry.Session, g *models.Game) error {
		if g.HostID != requester {
			return errNotHost("start the next round")
		}
		if g.Phase == models.RoundPhaseRevealing {
			return ErrRevealInProgress
		}
		if g.Status != models.GameStatusPlaying {
			return ErrGameNotPlaying
		}

		s.stopTimer(sess, false)
		g.Round++
		g.Cards = s.decks.Build()
		g.Phase = models.RoundPhasePicking
		s.reorder(g)
		s.armTimer(sess)

		s.notifier.Broadcast(g.ID, events.New(events.TypeNextRoundComplete, events.NextRoundCompletePayload{Round: g.Round}))
		s.systemChat(g.ID, fmt.Sprintf("Round %d started!", g.Round))
		s.broadcastState(g)

		log.Info().Str("game_id", g.ID).Int("round", g.Round).Msg("round started")
		return nil
	})
	if err != nil {
		logReject("next_round", gameID, requester, err)
	}
	return err
}

// claim stamps the card and credits its value to the player and the ledger.
// Pick times within a round are kept strictly increasing.
func (s *Service) claim(g *models.Game, card *models.Card, playerID string) *models.Player {
	now := s.clock.Now()
	for i := range g.Cards {
		if t := g.Cards[i].PickTime; t != nil && !now.After(*t) {
			now = t.Add(time.Nanosecond)
		}
	}
	card.PickedBy = playerID
	card.PickTime = &now

	player := g.FindPlayer(playerID)
	player.Score += card.Value
	for i := range g.AllParticipants {
		if g.AllParticipants[i].ID == playerID {
			g.AllParticipants[i].Score = player.Score
		}
	}
	return player
}

// advanceTurn moves the current turn to the next slot, wrapping around.
func advanceTurn(g *models.Game) {
	n := len(g.TurnOrder)
	if n == 0 {
		g.CurrentTurn = ""
		return
	}
	idx := -1
	for i, slot := range g.TurnOrder {
		if slot.ID == g.CurrentTurn {
			idx = i
			break
		}
	}
	g.CurrentTurn = g.TurnOrder[(idx+1)%n].ID
}

// afterPick either closes the picking phase, once every active player holds a
// card, or restarts the countdown for the next picker.
func (s *Service) afterPick(sess *registry.Session) {
	g := sess.Game
	active := len(g.Players)

	if g.PickedCount() >= active {
		g.Phase = models.RoundPhasePicked
		s.stopTimer(sess, true)
		s.notifier.Broadcast(g.ID, events.New(events.TypeLastCardPicked, events.NoticePayload{
			Message: fmt.Sprintf("All %d active players picked! Host, please reveal cards.", active),
		}))
		s.notifier.Send(g.HostID, events.New(events.TypeHostNotification, events.NoticePayload{
			Message: fmt.Sprintf("All %d players picked! Reveal cards now?", active),
		}))
		log.Info().Str("game_id", g.ID).Int("round", g.Round).Msg("round fully picked")
		return
	}

	s.armTimer(sess)
}

// armTimer (re)starts the countdown with the full limit. With no unpicked
// cards left it clears the countdown instead.
func (s *Service) armTimer(sess *registry.Session) {
	g := sess.Game
	if !g.Timed() {
		return
	}
	if len(g.UnpickedCards()) == 0 {
		s.stopTimer(sess, true)
		return
	}

	remaining := g.RoundTimeLimit
	g.RoundTimer = &remaining
	gameID := g.ID
	sess.TimerGen = s.timers.Arm(gameID, func(gen uint64) {
		s.tick(sess, gen)
	})
}

// stopTimer cancels the countdown and clears the remaining time.
func (s *Service) stopTimer(sess *registry.Session, announce bool) {
	g := sess.Game
	s.timers.Cancel(g.ID)
	sess.TimerGen = 0
	g.RoundTimer = nil
	if announce {
		s.notifier.Broadcast(g.ID, events.New(events.TypeTimerUpdate, events.TimerUpdatePayload{}))
	}
}

// tick counts the countdown down and expires the turn at zero. Ticks from a
// replaced or cancelled countdown are ignored.
func (s *Service) tick(sess *registry.Session, gen uint64) {
	sess.Lock()
	defer sess.Unlock()

	g := sess.Game
	if sess.Deleted() || gen != sess.TimerGen || g.RoundTimer == nil {
		return
	}

	if *g.RoundTimer > 0 {
		*g.RoundTimer--
		left := *g.RoundTimer
		s.notifier.Broadcast(g.ID, events.New(events.TypeTimerUpdate, events.TimerUpdatePayload{Time: &left}))
	}
	if *g.RoundTimer > 0 {
		return
	}

	s.expireTurn(sess)
}

// expireTurn force-assigns a random unpicked card to the current player and
// moves the turn on.
func (s *Service) expireTurn(sess *registry.Session) {
	g := sess.Game
	s.timers.Cancel(g.ID)
	sess.TimerGen = 0

	unpicked := g.UnpickedCards()
	if len(unpicked) > 0 && g.FindPlayer(g.CurrentTurn) != nil {
		card := unpicked[s.decks.Intn(len(unpicked))]
		playerID := g.CurrentTurn
		player := s.claim(g, card, playerID)

		s.notifier.Broadcast(g.ID, events.New(events.TypeCardPicked, events.CardPickedPayload{CardID: card.ID, PlayerID: playerID}))
		s.systemChat(g.ID, fmt.Sprintf("%s was auto-assigned a card.", player.Name))

		log.Info().
			Str("game_id", g.ID).
			Str("participant_id", playerID).
			Int("card_id", card.ID).
			Msg("turn expired, card auto-assigned")
	}
	advanceTurn(g)
	s.systemChat(g.ID, "Time's up! Card auto-assigned, turn advanced.")

	s.afterPick(sess)
	s.broadcastState(g)
}
