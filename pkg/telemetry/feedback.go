package telemetry

// UserFeedback is a user's comment attached to a previously sent event
type UserFeedback struct {
	EventID  EventID `json:"event_id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Comments string  `json:"comments"`
}
