package gateway

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cardclash/go/internal/game/events"
	"github.com/mcdev12/cardclash/go/internal/game/session"
	"github.com/mcdev12/cardclash/go/internal/models"
)

// GameService is the part of the game state machine the router drives.
type GameService interface {
	Create(req session.CreateRequest) (string, error)
	Join(req session.JoinRequest) error
	Start(gameID, requester string) error
	Pick(req session.PickRequest) error
	Reveal(gameID, requester string) error
	NextRound(gameID, requester string) error
	Leave(req session.LeaveRequest) error
	Reset(gameID, requester string) error
	Chat(req session.ChatRequest) error
	Query(gameID, requester string) (*models.Game, models.Role, bool)
	Disconnect(participantID string)
}

// Sender delivers an event to one connection.
type Sender interface {
	Send(connID string, ev events.Event)
}

// Router turns client actions into game operations. Rejections go back to
// the sender only.
type Router struct {
	games  GameService
	sender Sender
}

func NewRouter(games GameService, sender Sender) *Router {
	return &Router{games: games, sender: sender}
}

// gameSnapshot is the getGame reply; both fields are null for an unknown game
// and role is null for an outsider.
type gameSnapshot struct {
	Game *models.Game `json:"game"`
	Role *models.Role `json:"role"`
}

// Dispatch decodes and applies one client message.
func (rt *Router) Dispatch(connID string, message []byte) {
	actionType, payload, err := ParseAction(message)
	if err != nil {
		log.Debug().Err(err).Str("connection_id", connID).Msg("rejected client message")
		msg := "Malformed message."
		if errors.Is(err, ErrUnknownAction) {
			msg = "Unknown action."
		}
		rt.sender.Send(connID, events.New(events.TypeGameError, events.ErrorPayload{Message: msg}))
		return
	}

	log.Debug().
		Str("connection_id", connID).
		Str("action", string(actionType)).
		Msg("dispatching action")

	if err := rt.apply(connID, actionType, payload); err != nil {
		rt.sender.Send(connID, session.Reject(err))
	}
}

func (rt *Router) apply(connID string, actionType ActionType, payload any) error {
	switch p := payload.(type) {
	case *CreateGamePayload:
		_, err := rt.games.Create(session.CreateRequest{
			HostID:         connID,
			Title:          p.Title,
			MaxPlayers:     p.PlayerCount,
			HostName:       p.HostName,
			RoundTimeLimit: p.RoundTimeLimit,
		})
		return err

	case *JoinGamePayload:
		return rt.games.Join(session.JoinRequest{
			GameID:        p.GameID,
			ParticipantID: connID,
			Name:          p.Name,
			AsSpectator:   p.IsSpectator,
		})

	case *PickCardPayload:
		return rt.games.Pick(session.PickRequest{
			GameID:   p.GameID,
			ActorID:  connID,
			PlayerID: p.PlayerID,
			CardID:   p.CardID,
		})

	case *LeaveGamePayload:
		return rt.games.Leave(session.LeaveRequest{
			GameID:        p.GameID,
			ActorID:       connID,
			ParticipantID: p.UserID,
		})

	case *ChatMessagePayload:
		return rt.games.Chat(session.ChatRequest{
			GameID:   p.GameID,
			SenderID: connID,
			Text:     p.Text,
		})

	case *GamePayload:
		return rt.applyGame(connID, actionType, p.GameID)
	}
	return nil
}

func (rt *Router) applyGame(connID string, actionType ActionType, gameID string) error {
	switch actionType {
	case ActionStartGame:
		return rt.games.Start(gameID, connID)
	case ActionRevealCards:
		return rt.games.Reveal(gameID, connID)
	case ActionNextRound:
		return rt.games.NextRound(gameID, connID)
	case ActionResetGame:
		return rt.games.Reset(gameID, connID)
	case ActionGetGame:
		var snap gameSnapshot
		if g, role, ok := rt.games.Query(gameID, connID); ok {
			snap.Game = g
			if role != models.RoleNone {
				snap.Role = &role
			}
		}
		rt.sender.Send(connID, events.New(events.TypeGameData, snap))
	}
	return nil
}

// Disconnect forwards a closed connection to the game service.
func (rt *Router) Disconnect(connID string) {
	rt.games.Disconnect(connID)
}
