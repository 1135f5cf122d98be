package models

import (
	"slices"
	"time"
)

// GameStatus only moves forward: lobby, playing, ended.
type GameStatus string

const (
	GameStatusLobby   GameStatus = "lobby"
	GameStatusPlaying GameStatus = "playing"
	GameStatusEnded   GameStatus = "ended"
)

// RoundPhase tracks progress within a playing round.
type RoundPhase string

const (
	RoundPhasePicking   RoundPhase = "picking"
	RoundPhasePicked    RoundPhase = "picked"
	RoundPhaseRevealing RoundPhase = "revealing"
	RoundPhaseRevealed  RoundPhase = "revealed"
)

// ChatMessage is one line of the game's chat log.
type ChatMessage struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name,omitempty"`
	Text      string    `json:"text"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// Game is the full state of one session.
type Game struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	HostID          string             `json:"hostId"`
	HostName        string             `json:"hostName"`
	Players         []Player           `json:"players"`
	Spectators      []Spectator        `json:"spectators"`
	Cards           []Card             `json:"cards"`
	Round           int                `json:"round"`
	Phase           RoundPhase         `json:"phase"`
	CurrentTurn     string             `json:"currentTurn,omitempty"`
	TurnOrder       []TurnSlot         `json:"turnOrder"`
	Status          GameStatus         `json:"status"`
	MaxPlayers      int                `json:"maxPlayers"`
	RoundTimeLimit  int                `json:"roundTimeLimit"`
	RoundTimer      *int               `json:"roundTimer"` // nil when no countdown is running
	ChatMessages    []ChatMessage      `json:"chatMessages"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
	Champion        *Player            `json:"champion"`
	AllParticipants []Player           `json:"allParticipants"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// Timed reports whether picks are on a countdown.
func (g *Game) Timed() bool {
	return g.RoundTimeLimit > 0
}

// FindPlayer returns the active player with the given id.
func (g *Game) FindPlayer(id string) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// FindSpectator returns the spectator with the given id.
func (g *Game) FindSpectator(id string) *Spectator {
	for i := range g.Spectators {
		if g.Spectators[i].ID == id {
			return &g.Spectators[i]
		}
	}
	return nil
}

// FindCard returns the card with the given id.
func (g *Game) FindCard(id int) *Card {
	for i := range g.Cards {
		if g.Cards[i].ID == id {
			return &g.Cards[i]
		}
	}
	return nil
}

// PickedCount is the number of cards claimed this round.
func (g *Game) PickedCount() int {
	n := 0
	for i := range g.Cards {
		if g.Cards[i].Picked() {
			n++
		}
	}
	return n
}

// UnpickedCards returns pointers to every unclaimed card.
func (g *Game) UnpickedCards() []*Card {
	var out []*Card
	for i := range g.Cards {
		if !g.Cards[i].Picked() {
			out = append(out, &g.Cards[i])
		}
	}
	return out
}

// RoleOf resolves the caller's role. Host wins over player.
func (g *Game) RoleOf(id string) Role {
	switch {
	case g.HostID == id:
		return RoleHost
	case g.FindPlayer(id) != nil:
		return RolePlayer
	case g.FindSpectator(id) != nil:
		return RoleSpectator
	default:
		return RoleNone
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (g *Game) Clone() *Game {
	c := *g
	c.Players = slices.Clone(g.Players)
	c.Spectators = slices.Clone(g.Spectators)
	c.Cards = make([]Card, len(g.Cards))
	for i, card := range g.Cards {
		if card.PickTime != nil {
			t := *card.PickTime
			card.PickTime = &t
		}
		c.Cards[i] = card
	}
	c.TurnOrder = slices.Clone(g.TurnOrder)
	c.ChatMessages = slices.Clone(g.ChatMessages)
	c.Leaderboard = slices.Clone(g.Leaderboard)
	c.AllParticipants = slices.Clone(g.AllParticipants)
	if g.RoundTimer != nil {
		t := *g.RoundTimer
		c.RoundTimer = &t
	}
	if g.Champion != nil {
		p := *g.Champion
		c.Champion = &p
	}
	return &c
}
