package domain

import "time"

type LogStatus string

const (
	LogStatusSending LogStatus = "sending"
	LogStatusSent    LogStatus = "sent"
	LogStatusFailed  LogStatus = "failed"
)

// EmailLog is the audit record of one send attempt to one contact.
type EmailLog struct {
	ID           string     `db:"id"`
	Subject      string     `db:"subject"`
	ContactID    string     `db:"contact_id"`
	Status       LogStatus  `db:"status"`
	SentAt       time.Time  `db:"sent_at"`
	ErrorMessage *string    `db:"error_message"`
	OpenedAt     *time.Time `db:"opened_at"`
	ClickedAt    *time.Time `db:"clicked_at"`
}

// Message is what a mailer hands to the delivery provider.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type EventType string

const (
	EventTypeOpen  EventType = "open"
	EventTypeClick EventType = "click"
)

func (t EventType) Valid() bool {
	return t == EventTypeOpen || t == EventTypeClick
}

// TrackingEvent is an open or click reported by the tracking endpoint.
type TrackingEvent struct {
	ID         int64     `db:"id"`
	LogID      string    `db:"log_id"`
	Type       EventType `db:"event_type"`
	URL        string    `db:"url"`
	UserAgent  string    `db:"user_agent"`
	IP         string    `db:"ip"`
	OccurredAt time.Time `db:"occurred_at"`
}

// DeliveryEvent is published once per send outcome.
type DeliveryEvent struct {
	RunID     string    `json:"run_id"`
	LogID     string    `json:"log_id,omitempty"`
	ContactID string    `json:"contact_id"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Status    LogStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
