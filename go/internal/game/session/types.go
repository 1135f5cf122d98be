package session

// CreateRequest carries the host's settings for a new game.
type CreateRequest struct {
	HostID         string
	Title          string
	MaxPlayers     int
	HostName       string
	RoundTimeLimit int // seconds; 0 means untimed
}

// JoinRequest asks to enter a lobby as a player or a spectator.
type JoinRequest struct {
	GameID        string
	ParticipantID string
	Name          string
	AsSpectator   bool
}

// PickRequest claims a card for PlayerID. ActorID is the connection that sent it.
type PickRequest struct {
	GameID   string
	ActorID  string
	PlayerID string
	CardID   int
}

// LeaveRequest removes a spectator from a game.
type LeaveRequest struct {
	GameID        string
	ActorID       string
	ParticipantID string
}

// ChatRequest is a user chat line.
type ChatRequest struct {
	GameID   string
	SenderID string
	Text     string
}
