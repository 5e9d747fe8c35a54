package model

import "time"

// Notification is a message addressed to one user. Owned by the record store; the console only reads it.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func NotificationFromRow(r Row) Notification {
	return Notification{
		ID:        r.String("id"),
		UserID:    r.String("user_id"),
		Title:     r.String("title"),
		Message:   r.String("message"),
		Read:      r.Bool("read"),
		CreatedAt: r.Time("created_at"),
	}
}
