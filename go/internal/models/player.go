package models

// Role describes how a connection relates to a game.
type Role string

const (
	RoleHost      Role = "host"
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
	RoleNone      Role = ""
)

// Player is an active (or, in the ledger, formerly active) participant.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Spectator observes a game without a score and cannot act.
type Spectator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LeaderboardEntry is a ranked player. IsChampion is only set on final standings.
type LeaderboardEntry struct {
	Player
	Rank       int  `json:"rank"`
	IsChampion bool `json:"isChampion,omitempty"`
}

// TurnSlot is one position in the pick order.
type TurnSlot struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}
