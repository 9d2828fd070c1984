package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InboundMessage is a raw message as read from the event bus.
type InboundMessage struct {
	Topic      string
	Partition  int
	Offset     int64
	Key        []byte
	Value      []byte
	ReceivedAt time.Time
}

// Event is the normalised shape every topic decoder produces.
// A zero Date means the dispatcher stamps the ingestion time.
type Event struct {
	Date       time.Time
	Category   Category
	Message    string
	ObjectID   string
	ReceiverID string
}

// Validate checks the invariants the dispatcher relies on.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ReceiverID) == "" {
		return ErrMissingReceiver
	}
	return nil
}

// OfferPayload is the full notification payload carried by the offer topic.
type OfferPayload struct {
	Date       *EventTime `json:"date"`
	Category   string     `json:"category"`
	Message    string     `json:"message"`
	ObjectID   string     `json:"objectId"`
	ReceiverID string     `json:"receiverId"`
}

// ExperiencePayload is the experience creation event; only the fields needed
// to address the notification are decoded.
type ExperiencePayload struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
}

// EventTime accepts RFC 3339 style strings or epoch milliseconds.
type EventTime struct {
	time.Time
}

func (t *EventTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: invalid date %s", ErrBadPayload, data)
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: invalid date: %v", ErrBadPayload, err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range eventTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported date format %q", ErrBadPayload, raw)
}

// DeliveryResult reports the outcome of one event of a batch.
type DeliveryResult struct {
	Event        Event
	Notification *Notification
	Err          error
}
