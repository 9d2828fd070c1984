package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

// ExperienceHandler maps experience creation events into EXPERIENCE notifications
// addressed to the experience owner, stamped with the ingestion time.
type ExperienceHandler struct {
	topic string
	now   func() time.Time
}

func NewExperienceHandler(topic string) *ExperienceHandler {
	if strings.TrimSpace(topic) == "" {
		topic = domain.DefaultExperienceTopic
	}
	return &ExperienceHandler{topic: topic, now: func() time.Time { return time.Now().UTC() }}
}

func (h *ExperienceHandler) Topic() string { return h.topic }

func (h *ExperienceHandler) Decode(msg *domain.InboundMessage) (domain.Event, error) {
	var payload domain.ExperiencePayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = h.now()
	}
	event := domain.Event{
		Date:       receivedAt.UTC(),
		Category:   domain.CategoryExperience,
		Message:    domain.ExperienceMessage,
		ObjectID:   payload.ID,
		ReceiverID: payload.UserID,
	}
	if err := event.Validate(); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	return event, nil
}

var _ port.TopicHandler = (*ExperienceHandler)(nil)
