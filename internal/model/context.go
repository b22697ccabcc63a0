package model

import "time"

// ObjectContext describes one business object and what can be done to it
// right now, for building actionable chat notifications.
type ObjectContext struct {
	ObjectType       ObjectKind     `json:"object_type"`
	ObjectID         string         `json:"object_id"`
	DisplayName      string         `json:"display_name"`
	State            string         `json:"state"`
	Amount           float64        `json:"amount,omitempty"`
	Partner          string         `json:"partner,omitempty"`
	DueDate          *time.Time     `json:"due_date,omitempty"`
	DaysOverdue      int            `json:"days_overdue"`
	AvailableActions []string       `json:"available_actions"`
	RequiresRole     string         `json:"requires_role,omitempty"`
	AdditionalInfo   map[string]any `json:"additional_info"`
}

// PendingItem is one object waiting on somebody.
type PendingItem struct {
	ObjectType   ObjectKind `json:"object_type"`
	ObjectID     string     `json:"object_id"`
	DisplayName  string     `json:"display_name"`
	Amount       float64    `json:"amount,omitempty"`
	WaitingSince time.Time  `json:"waiting_since"`
	DaysPending  int        `json:"days_pending"`
	Priority     Priority   `json:"priority"`
	Assignee     string     `json:"assignee,omitempty"`
}

// PendingItemsResponse lists pending or overdue items for one database.
type PendingItemsResponse struct {
	DB    string        `json:"db"`
	Count int           `json:"count"`
	Items []PendingItem `json:"items"`
}
