package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/cardclash/go/internal/game/events"
)

// Envelope is the wire form of every outbound event.
type Envelope struct {
	ID        string      `json:"id"`               // Event UUID
	GameID    string      `json:"gameId,omitempty"` // empty on unicasts
	Type      events.Type `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

func newEnvelope(gameID string, ev events.Event, now time.Time) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Type:      ev.Type,
		Timestamp: now.UTC(),
		Data:      ev.Data,
	}
}

// Action is the wire form of every inbound client message.
type Action struct {
	Type ActionType      `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ActionType names an inbound client action.
type ActionType string

const (
	ActionCreateGame  ActionType = "createGame"
	ActionJoinGame    ActionType = "joinGame"
	ActionStartGame   ActionType = "startGame"
	ActionPickCard    ActionType = "pickCard"
	ActionRevealCards ActionType = "revealCards"
	ActionNextRound   ActionType = "nextRound"
	ActionLeaveGame   ActionType = "leaveGame"
	ActionResetGame   ActionType = "resetGame"
	ActionChatMessage ActionType = "chatMessage"
	ActionGetGame     ActionType = "getGame"
)

// CreateGamePayload opens a new game hosted by the sender.
type CreateGamePayload struct {
	Title          string `json:"title"`
	PlayerCount    int    `json:"playerCount"`
	HostName       string `json:"hostName"`
	RoundTimeLimit int    `json:"roundTimeLimit"`
}

type JoinGamePayload struct {
	GameID      string `json:"gameId"`
	Name        string `json:"name"`
	IsSpectator bool   `json:"isSpectator"`
}

// GamePayload addresses an action that needs nothing but the game code.
type GamePayload struct {
	GameID string `json:"gameId"`
}

type PickCardPayload struct {
	GameID   string `json:"gameId"`
	CardID   int    `json:"cardId"`
	PlayerID string `json:"playerId"`
}

// LeaveGamePayload names the spectator leaving, normally the sender.
type LeaveGamePayload struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

// ChatMessagePayload carries a chat line. UserID and Role are accepted for
// compatibility but the server derives both from the connection.
type ChatMessagePayload struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId,omitempty"`
	Text   string `json:"text"`
	Role   string `json:"role,omitempty"`
}

var (
	ErrMalformedAction = errors.New("malformed action")
	ErrUnknownAction   = errors.New("unknown action")
)

// ParseAction decodes a client message into its typed payload.
func ParseAction(message []byte) (ActionType, any, error) {
	var action Action
	if err := json.Unmarshal(message, &action); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}

	var payload any
	switch action.Type {
	case ActionCreateGame:
		payload = &CreateGamePayload{}
	case ActionJoinGame:
		payload = &JoinGamePayload{}
	case ActionStartGame, ActionRevealCards, ActionNextRound, ActionResetGame, ActionGetGame:
		payload = &GamePayload{}
	case ActionPickCard:
		payload = &PickCardPayload{}
	case ActionLeaveGame:
		payload = &LeaveGamePayload{}
	case ActionChatMessage:
		payload = &ChatMessagePayload{}
	default:
		return action.Type, nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}

	if len(action.Data) > 0 && string(action.Data) != "null" {
		if err := json.Unmarshal(action.Data, payload); err != nil {
			return action.Type, nil, fmt.Errorf("%w: %s: %v", ErrMalformedAction, action.Type, err)
		}
	}
	return action.Type, payload, nil
}
