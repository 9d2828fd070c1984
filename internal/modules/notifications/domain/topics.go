package domain

const (
	DefaultOfferTopic      = "offer-topic"
	DefaultExperienceTopic = "experience-creation-topic"
	DefaultConsumerGroup   = "notification"

	// StreamEventName tags every pushed item on the stream.
	StreamEventName = "notification-event"

	// ExperienceMessage is the text attached to notifications derived from experience events.
	ExperienceMessage = "You have a new experience"
)
