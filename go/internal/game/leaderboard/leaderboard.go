// Package leaderboard ranks players by score.
package leaderboard

import (
	"slices"

	"github.com/mcdev12/cardclash/go/internal/models"
)

// Calculate returns players ordered by descending score with 1-based ranks.
// Equal scores keep their input order.
func Calculate(players []models.Player) []models.LeaderboardEntry {
	sorted := slices.Clone(players)
	slices.SortStableFunc(sorted, func(a, b models.Player) int {
		return b.Score - a.Score
	})

	entries := make([]models.LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = models.LeaderboardEntry{Player: p, Rank: i + 1}
	}
	return entries
}

// TurnOrder derives pick order from a leaderboard: rank order is turn order.
func TurnOrder(board []models.LeaderboardEntry) []models.TurnSlot {
	order := make([]models.TurnSlot, len(board))
	for i, e := range board {
		order[i] = models.TurnSlot{ID: e.ID, Order: i + 1}
	}
	return order
}

// Final ranks the whole ledger and flags the champion, if any.
func Final(ledger []models.Player, championID string) []models.LeaderboardEntry {
	board := Calculate(ledger)
	if championID == "" {
		return board
	}
	for i := range board {
		if board[i].ID == championID {
			board[i].IsChampion = true
		}
	}
	return board
}
