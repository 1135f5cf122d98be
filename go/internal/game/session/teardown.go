package session

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cardclash/go/internal/game/events"
	"github.com/mcdev12/cardclash/go/internal/game/registry"
	"github.com/mcdev12/cardclash/go/internal/models"
)

// Reset is the host's hard teardown: the game is deleted, not rewound.
// It also aborts a reveal in progress.
func (s *Service) Reset(gameID, requester string) error {
	err := s.withSession(gameID, ErrGameNotFound, func(sess *registry.Session, g *models.Game) error {
		if g.HostID != requester {
			return errNotHost("reset the game")
		}

		s.teardown(sess, func() {
			s.notifier.Broadcast(g.ID, events.New(events.TypeGameFullReset, nil))
			s.systemChat(g.ID, "Game has been fully reset by the host.")
		})
		log.Info().Str("game_id", g.ID).Msg("game reset by host")
		return nil
	})
	if err != nil {
		logReject("reset", gameID, requester, err)
	}
	return err
}

// Disconnect handles a dropped connection in every game it belonged to.
// Losing the host deletes the game. Spectators are removed. Players are
// removed while the game is still in the lobby; once playing their slot is kept.
func (s *Service) Disconnect(participantID string) {
	for _, sess := range s.registry.All() {
		s.disconnectFrom(sess, participantID)
	}
}

func (s *Service) disconnectFrom(sess *registry.Session, participantID string) {
	sess.Lock()
	defer sess.Unlock()
	if sess.Deleted() {
		return
	}

	g := sess.Game
	switch {
	case g.HostID == participantID:
		s.teardown(sess, func() {
			s.notifier.Broadcast(g.ID, events.New(events.TypeGameEnded, events.GameEndedPayload{Message: "Host disconnected."}))
			s.systemChat(g.ID, "Host disconnected. Game ended.")
		})
		log.Info().Str("game_id", g.ID).Msg("host disconnected, game deleted")

	case g.FindSpectator(participantID) != nil:
		sp, _ := removeSpectator(g, participantID)
		s.notifier.Unsubscribe(g.ID, participantID)
		s.systemChat(g.ID, fmt.Sprintf("%s left the game.", sp.Name))
		s.broadcastState(g)

	case g.Status == models.GameStatusLobby && g.FindPlayer(participantID) != nil:
		name := g.FindPlayer(participantID).Name
		g.Players, _ = removePlayer(g.Players, participantID)
		g.AllParticipants, _ = removePlayer(g.AllParticipants, participantID)
		s.notifier.Unsubscribe(g.ID, participantID)
		s.systemChat(g.ID, fmt.Sprintf("%s left the game.", name))
		s.broadcastState(g)

	case g.FindPlayer(participantID) != nil:
		log.Info().
			Str("game_id", g.ID).
			Str("participant_id", participantID).
			Msg("player disconnected mid-game, keeping their slot")
	}
}

// expire is the retention sweep's notifier; the registry deletes the game right after.
func (s *Service) expire(code string, sess *registry.Session) {
	sess.Lock()
	defer sess.Unlock()
	if sess.Deleted() {
		return
	}

	s.stopTimer(sess, false)
	s.notifier.Broadcast(code, events.New(events.TypeGameEnded, events.GameEndedPayload{Message: "Game expired."}))
	s.systemChat(code, "Game expired and was removed.")
	s.notifier.CloseRoom(code)
}

// teardown cancels the countdown, deletes the game, emits the farewell
// events and then drops the room. Callers hold the session lock.
func (s *Service) teardown(sess *registry.Session, farewell func()) {
	g := sess.Game
	s.stopTimer(sess, false)
	s.registry.Delete(g.ID)
	farewell()
	s.notifier.CloseRoom(g.ID)
}
