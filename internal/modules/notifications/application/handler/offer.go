package handler

import (
	"encoding/json"
	"fmt"
	"strings"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

// OfferHandler decodes topics that already carry a full notification payload.
type OfferHandler struct {
	topic string
}

func NewOfferHandler(topic string) *OfferHandler {
	if strings.TrimSpace(topic) == "" {
		topic = domain.DefaultOfferTopic
	}
	return &OfferHandler{topic: topic}
}

func (h *OfferHandler) Topic() string { return h.topic }

func (h *OfferHandler) Decode(msg *domain.InboundMessage) (domain.Event, error) {
	var payload domain.OfferPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	category, err := domain.ParseCategory(payload.Category)
	if err != nil {
		return domain.Event{}, err
	}
	event := domain.Event{
		Category:   category,
		Message:    payload.Message,
		ObjectID:   payload.ObjectID,
		ReceiverID: payload.ReceiverID,
	}
	if payload.Date != nil {
		event.Date = payload.Date.Time
	}
	if err := event.Validate(); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	return event, nil
}

var _ port.TopicHandler = (*OfferHandler)(nil)
