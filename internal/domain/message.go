package domain

import "time"

// Message is one chat turn shown in a widget session.
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	Intent      Intent    `json:"intent,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
}
