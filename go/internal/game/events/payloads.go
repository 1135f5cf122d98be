// Package events defines every message the game server sends to clients.
// The set is closed: the gateway only ever serialises these types.
package events

import (
	"github.com/mcdev12/cardclash/go/internal/models"
)

// Type names an outbound event on the wire.
type Type string

const (
	TypeGameCreated       Type = "gameCreated"
	TypeGameData          Type = "gameData"
	TypeJoinSuccess       Type = "joinSuccess"
	TypeJoinError         Type = "joinError"
	TypeGameError         Type = "gameError"
	TypeChatMessage       Type = "chatMessage"
	TypeGameStarted       Type = "gameStarted"
	TypeCardPicked        Type = "cardPicked"
	TypeRevealCard        Type = "revealCard"
	TypePlayerEliminated  Type = "playerEliminated"
	TypeFinalLeaderboard  Type = "finalLeaderboard"
	TypeGameEnded         Type = "gameEnded"
	TypeWinnerDeclared    Type = "winnerDeclared"
	TypeNextRoundComplete Type = "nextRoundComplete"
	TypeTimerUpdate       Type = "timerUpdate"
	TypeLastCardPicked    Type = "lastCardPicked"
	TypeHostNotification  Type = "hostNotification"
	TypeGameFullReset     Type = "gameFullReset"
)

// Event is a typed payload addressed to a game or a participant.
type Event struct {
	Type Type
	Data any
}

// GameCreatedPayload is sent to the creator only.
type GameCreatedPayload struct {
	GameID string `json:"gameId"`
}

// GameDataPayload is a full snapshot. Role is only filled on unicasts.
type GameDataPayload struct {
	Game *models.Game `json:"game"`
	Role *models.Role `json:"role,omitempty"`
}

// JoinSuccessPayload confirms a join to the joiner.
type JoinSuccessPayload struct {
	GameID string      `json:"gameId"`
	Role   models.Role `json:"role"`
}

// ErrorPayload carries a user-facing rejection message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// CardPickedPayload announces a claimed card without its value.
type CardPickedPayload struct {
	CardID   int    `json:"cardId"`
	PlayerID string `json:"playerId"`
}

// RevealCardPayload is emitted twice per card: enlarged, then settled.
type RevealCardPayload struct {
	CardID   int    `json:"cardId"`
	Value    int    `json:"value"`
	PickedBy string `json:"pickedBy"`
	Enlarge  bool   `json:"enlarge"`
}

// PlayerEliminatedPayload names the player removed after a reveal.
type PlayerEliminatedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Tiebreak bool   `json:"tiebreak"`
}

// FinalLeaderboardPayload ranks every player who ever joined.
type FinalLeaderboardPayload struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	Champion    *models.Player            `json:"champion"`
}

// GameEndedPayload optionally explains why the game ended.
type GameEndedPayload struct {
	Message string `json:"message,omitempty"`
}

// WinnerDeclaredPayload names the champion; nil when nobody is left.
type WinnerDeclaredPayload struct {
	ChampionName *string `json:"championName"`
}

// NextRoundCompletePayload announces the new round number.
type NextRoundCompletePayload struct {
	Round int `json:"round"`
}

// TimerUpdatePayload carries remaining seconds; nil means the countdown is cleared.
type TimerUpdatePayload struct {
	Time *int `json:"time"`
}

// NoticePayload is used by the all-picked notices.
type NoticePayload struct {
	Message string `json:"message"`
}

// New pairs an event type with its payload.
func New(t Type, data any) Event {
	return Event{Type: t, Data: data}
}
