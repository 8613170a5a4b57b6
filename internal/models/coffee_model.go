package models

import (
	"errors"
	"time"
)

// CoffeeEvent is a single dispensed-coffee record. The collection is
// append-only; statistics are computed by reading it back.
type CoffeeEvent struct {
	ID        string    `json:"id" firestore:"-"`
	UserID    string    `json:"userId" firestore:"userId"`
	UserName  string    `json:"userName,omitempty" firestore:"-"` // joined in memory, not stored
	Quantity  string    `json:"quantity" firestore:"quantity"`    // cup fraction code, e.g. "2/4"
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// Validate enforces document shape at the read boundary.
func (c *CoffeeEvent) Validate() error {
	if c.UserID == "" {
		return errors.New("coffee document missing userId")
	}
	if c.CreatedAt.IsZero() {
		return errors.New("coffee document missing createdAt")
	}
	if c.Quantity == "" {
		c.Quantity = "0/4"
	}
	return nil
}
