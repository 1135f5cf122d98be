package models

import "time"

// Card is a single card in a round's deck.
type Card struct {
	ID       int        `json:"id"`
	Value    int        `json:"value"`
	PickedBy string     `json:"pickedBy,omitempty"` // empty until picked
	PickTime *time.Time `json:"pickTime,omitempty"`
	Revealed bool       `json:"revealed"`
}

// Picked reports whether a participant has claimed the card this round.
func (c *Card) Picked() bool {
	return c.PickedBy != ""
}
