package session

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cardclash/go/internal/game/events"
	"github.com/mcdev12/cardclash/go/internal/game/leaderboard"
	"github.com/mcdev12/cardclash/go/internal/game/registry"
	"github.com/mcdev12/cardclash/go/internal/models"
)

// Create registers a new lobby hosted by the requester and returns its code.
func (s *Service) Create(req CreateRequest) (string, error) {
	sess, err := s.registry.Create(registry.CreateParams{
		Title:          req.Title,
		MaxPlayers:     req.MaxPlayers,
		HostID:         req.HostID,
		HostName:       req.HostName,
		RoundTimeLimit: req.RoundTimeLimit,
	})
	if err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()
	g := sess.Game

	s.notifier.Subscribe(g.ID, req.HostID)
	s.notifier.Send(req.HostID, events.New(events.TypeGameCreated, events.GameCreatedPayload{GameID: g.ID}))
	s.sendState(req.HostID, g, models.RoleHost)
	s.systemChat(g.ID, fmt.Sprintf("Game created. Share code: %s", g.ID))
	return g.ID, nil
}

// Join adds the requester to a lobby as a player or spectator.
func (s *Service) Join(req JoinRequest) error {
	name := strings.TrimSpace(req.Name)

	err := s.withSession(req.GameID, ErrInvalidCode, func(sess *registry.Session, g *models.Game) error {
		if name == "" {
			return ErrNameRequired
		}
		if g.Phase == models.RoundPhaseRevealing {
			return ErrRevealInProgress
		}
		if g.Status != models.GameStatusLobby {
			return ErrGameAlreadyStarted
		}
		if role := g.RoleOf(req.ParticipantID); role == models.RolePlayer || role == models.RoleSpectator {
			return ErrAlreadyJoined
		}

		var role models.Role
		var line string
		if req.AsSpectator {
			for _, sp := range g.Spectators {
				if strings.EqualFold(sp.Name, name) {
					return ErrSpectatorNameTaken
				}
			}
			g.Spectators = append(g.Spectators, models.Spectator{ID: req.ParticipantID, Name: name})
			role = models.RoleSpectator
			line = fmt.Sprintf("%s joined as a spectator.", name)
		} else {
			if len(g.Players) >= g.MaxPlayers {
				return errMaxPlayers(g.MaxPlayers)
			}
			for _, p := range g.Players {
				if strings.EqualFold(p.Name, name) {
					return ErrPlayerNameTaken
				}
			}
			p := models.Player{ID: req.ParticipantID, Name: name}
			g.Players = append(g.Players, p)
			g.AllParticipants = append(g.AllParticipants, p)
			role = models.RolePlayer
			line = fmt.Sprintf("%s joined the game.", name)
		}

		s.notifier.Subscribe(g.ID, req.ParticipantID)
		s.notifier.Send(req.ParticipantID, events.New(events.TypeJoinSuccess, events.JoinSuccessPayload{GameID: g.ID, Role: role}))
		s.sendState(req.ParticipantID, g, role)
		s.systemChat(g.ID, line)
		s.broadcastState(g)

		log.Info().
			Str("game_id", g.ID).
			Str("participant_id", req.ParticipantID).
			Str("role", string(role)).
			Msg("participant joined")
		return nil
	})
	if err != nil {
		logReject("join", req.GameID, req.ParticipantID, err)
	}
	return err
}

// Start moves a lobby with at least two players into play.
func (s *Service) Start(gameID, requester string) error {
	err := s.withSession(gameID, ErrGameNotFound, func(sess *registry.Session, g *models.Game) error {
		if g.HostID != requester {
			return errNotHost("start the game")
		}
		if g.Phase == models.RoundPhaseRevealing {
			return ErrRevealInProgress
		}
		if g.Status != models.GameStatusLobby {
			return ErrGameAlreadyStarted
		}
		if len(g.Players) < 2 {
			return ErrNotEnoughPlayers
		}

		g.Status = models.GameStatusPlaying
		g.Phase = models.RoundPhasePicking
		s.reorder(g)
		s.armTimer(sess)

		s.notifier.Broadcast(g.ID, events.New(events.TypeGameStarted, nil))
		s.broadcastState(g)

		log.Info().Str("game_id", g.ID).Int("players", len(g.Players)).Msg("game started")
		return nil
	})
	if err != nil {
		logReject("start", gameID, requester, err)
	}
	return err
}

// Leave removes a spectator who asked to go.
func (s *Service) Leave(req LeaveRequest) error {
	target := req.ParticipantID
	if target == "" {
		target = req.ActorID
	}

	err := s.withSession(req.GameID, ErrGameNotFound, func(sess *registry.Session, g *models.Game) error {
		if target != req.ActorID {
			return ErrNotSpectator
		}
		sp, ok := removeSpectator(g, target)
		if !ok {
			return ErrNotSpectator
		}

		s.systemChat(g.ID, fmt.Sprintf("%s left the game.", sp.Name))
		s.broadcastState(g)
		s.notifier.Unsubscribe(g.ID, target)
		return nil
	})
	if err != nil {
		logReject("leave", req.GameID, req.ActorID, err)
	}
	return err
}

// Chat appends a participant's message to the log and relays it.
func (s *Service) Chat(req ChatRequest) error {

	err := s.withSession(req.GameID, ErrGameNotFound, func(sess *registry.Session, g *models.Game) error {
		role := g.RoleOf(req.SenderID)
		switch role {
		case models.RoleSpectator:
			return ErrSpectatorChat
		case models.RoleNone:
			return ErrNotInGame
		}
		if strings.TrimSpace(req.Text) == "" {
			return ErrEmptyMessage
		}

		name := g.HostName
		if p := g.FindPlayer(req.SenderID); p != nil && role == models.RolePlayer {
			name = p.Name
		}
		msg := models.ChatMessage{
			UserID:    req.SenderID,
			Name:      name,
			Text:      req.Text,
			Role:      string(role),
			Timestamp: s.clock.Now().UTC(),
		}
		g.ChatMessages = append(g.ChatMessages, msg)
		s.notifier.Broadcast(g.ID, events.New(events.TypeChatMessage, msg))
		return nil
	})
	if err != nil {
		logReject("chat", req.GameID, req.SenderID, err)
	}
	return err
}

// Query returns a snapshot of the game and the caller's role in it.
func (s *Service) Query(gameID, requester string) (*models.Game, models.Role, bool) {
	var snapshot *models.Game
	role := models.RoleNone

	err := s.withSession(gameID, ErrGameNotFound, func(sess *registry.Session, g *models.Game) error {
		snapshot = g.Clone()
		role = g.RoleOf(requester)
		return nil
	})
	if err != nil {
		return nil, models.RoleNone, false
	}
	return snapshot, role, true
}

// reorder recomputes leaderboard, turn order and current turn from the active players.
func (s *Service) reorder(g *models.Game) {
	g.Leaderboard = leaderboard.Calculate(g.Players)
	g.TurnOrder = leaderboard.TurnOrder(g.Leaderboard)
	g.CurrentTurn = ""
	if len(g.TurnOrder) > 0 {
		g.CurrentTurn = g.TurnOrder[0].ID
	}
}

func removeSpectator(g *models.Game, id string) (models.Spectator, bool) {
	for i, sp := range g.Spectators {
		if sp.ID == id {
			g.Spectators = append(g.Spectators[:i], g.Spectators[i+1:]...)
			return sp, true
		}
	}
	return models.Spectator{}, false
}

func removePlayer(players []models.Player, id string) ([]models.Player, bool) {
	for i, p := range players {
		if p.ID == id {
			return append(players[:i], players[i+1:]...), true
		}
	}
	return players, false
}
