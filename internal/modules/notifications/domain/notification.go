package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies the domain event a notification was created from.
type Category string

const (
	CategoryOffer      Category = "OFFER"
	CategoryExperience Category = "EXPERIENCE"
)

// ParseCategory normalises raw into a known category.
func ParseCategory(raw string) (Category, error) {
	switch c := Category(strings.ToUpper(strings.TrimSpace(raw))); c {
	case CategoryOffer, CategoryExperience:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", ErrBadPayload, raw)
	}
}

// Notification is the persisted record. ID is assigned once on creation.
type Notification struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	ObjectID   string    `json:"objectId"`
	ReceiverID string    `json:"receiverId"`
}

// NotificationView is the projection pushed to subscribers.
type NotificationView struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Category Category  `json:"category"`
	Message  string    `json:"message"`
	ObjectID string    `json:"objectId"`
}

// View projects the record into its wire shape.
func (n *Notification) View() NotificationView {
	return NotificationView{
		ID:       n.ID,
		Date:     n.Date,
		Category: n.Category,
		Message:  n.Message,
		ObjectID: n.ObjectID,
	}
}

// OwnedBy reports whether identity is the receiver of the record.
func (n *Notification) OwnedBy(identity string) bool {
	return identity != "" && n.ReceiverID == identity
}

// PushFrame is one item of a push stream: a fresh event id, the fixed event
// name and the view payload.
type PushFrame struct {
	ID    string           `json:"id"`
	Event string           `json:"event"`
	Data  NotificationView `json:"data"`
}

func NewPushFrame(id string, view NotificationView) PushFrame {
	return PushFrame{ID: id, Event: StreamEventName, Data: view}
}
