package session

import (
	"errors"
	"fmt"

	"github.com/mcdev12/cardclash/go/internal/game/events"
)

// Code identifies a class of rejected action.
type Code string

const (
	CodeGameNotFound       Code = "game_not_found"
	CodeInvalidCode        Code = "invalid_code"
	CodeNameRequired       Code = "name_required"
	CodeGameAlreadyStarted Code = "game_already_started"
	CodeAlreadyJoined      Code = "already_joined"
	CodeMaxPlayers         Code = "max_players"
	CodePlayerNameTaken    Code = "player_name_taken"
	CodeSpectatorNameTaken Code = "spectator_name_taken"
	CodeNotHost            Code = "not_host"
	CodeNotEnoughPlayers   Code = "not_enough_players"
	CodeGameNotPlaying     Code = "game_not_playing"
	CodeRevealInProgress   Code = "reveal_in_progress"
	CodeAlreadyRevealed    Code = "already_revealed"
	CodeRoundComplete      Code = "round_complete"
	CodeNotYourTurn        Code = "not_your_turn"
	CodeCardUnavailable    Code = "card_unavailable"
	CodeNotSpectator       Code = "not_spectator"
	CodeSpectatorChat      Code = "spectator_chat"
	CodeNotInGame          Code = "not_in_game"
	CodeEmptyMessage       Code = "empty_message"
	CodeRevealFailed       Code = "reveal_failed"
)

// Error is a rejection reported back to the actor that caused it. Errors with
// the same Code match under errors.Is regardless of message.
type Error struct {
	Code    Code
	Kind    events.Type // joinError or gameError
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func joinError(code Code, msg string) *Error {
	return &Error{Code: code, Kind: events.TypeJoinError, Message: msg}
}

func gameError(code Code, msg string) *Error {
	return &Error{Code: code, Kind: events.TypeGameError, Message: msg}
}

var (
	ErrGameNotFound       = gameError(CodeGameNotFound, "Game not found.")
	ErrInvalidCode        = joinError(CodeInvalidCode, "Invalid game code.")
	ErrNameRequired       = joinError(CodeNameRequired, "Name is required.")
	ErrGameAlreadyStarted = joinError(CodeGameAlreadyStarted, "Game has already started.")
	ErrAlreadyJoined      = joinError(CodeAlreadyJoined, "You have already joined this game.")
	ErrMaxPlayers         = joinError(CodeMaxPlayers, "Maximum players reached.")
	ErrPlayerNameTaken    = joinError(CodePlayerNameTaken, "Name already taken by another player.")
	ErrSpectatorNameTaken = joinError(CodeSpectatorNameTaken, "Name already taken by another spectator.")
	ErrNotHost            = gameError(CodeNotHost, "Only the host can do that.")
	ErrNotEnoughPlayers   = gameError(CodeNotEnoughPlayers, "At least 2 players are required to start.")
	ErrGameNotPlaying     = gameError(CodeGameNotPlaying, "Game is not in progress.")
	ErrRevealInProgress   = gameError(CodeRevealInProgress, "Cards are being revealed. Please wait.")
	ErrAlreadyRevealed    = gameError(CodeAlreadyRevealed, "Cards have already been revealed this round.")
	ErrRoundComplete      = gameError(CodeRoundComplete, "All players have picked. Waiting for the host to reveal.")
	ErrNotYourTurn        = gameError(CodeNotYourTurn, "Not your turn or invalid player.")
	ErrCardUnavailable    = gameError(CodeCardUnavailable, "Card is invalid or already picked.")
	ErrNotSpectator       = gameError(CodeNotSpectator, "Only spectators can leave the game.")
	ErrSpectatorChat      = gameError(CodeSpectatorChat, "Spectators cannot send messages.")
	ErrNotInGame          = gameError(CodeNotInGame, "You are not part of this game.")
	ErrEmptyMessage       = gameError(CodeEmptyMessage, "Message cannot be empty.")
	ErrRevealFailed       = gameError(CodeRevealFailed, "Failed to reveal cards.")
)

func errNotHost(action string) *Error {
	return gameError(CodeNotHost, fmt.Sprintf("Only the host can %s.", action))
}

func errMaxPlayers(max int) *Error {
	return joinError(CodeMaxPlayers, fmt.Sprintf("Maximum players reached (%d).", max))
}

// Reject converts any error into the event sent back to the actor.
// Errors that are not *Error are reported as a generic game error.
func Reject(err error) events.Event {
	var e *Error
	if errors.As(err, &e) {
		return events.New(e.Kind, events.ErrorPayload{Message: e.Message})
	}
	return events.New(events.TypeGameError, events.ErrorPayload{Message: "Something went wrong."})
}
