package domain

import "time"

type RunOutcome string

const (
	OutcomeDelivered  RunOutcome = "delivered"
	OutcomeNoArticles RunOutcome = "no_articles"
	OutcomeNoContacts RunOutcome = "no_contacts"
)

// SendPlan is the decision to mail one contact in a run.
type SendPlan struct {
	Contact   Contact
	Subject   string
	FirstName string
}

// SendResult is the outcome of executing one SendPlan.
type SendResult struct {
	Contact Contact
	LogID   string
	Status  LogStatus
	Err     error
}

// RunResult summarizes a newsletter run.
type RunResult struct {
	RunID            string
	Outcome          RunOutcome
	Message          string
	Sent             int
	Failed           int
	ArticlesIncluded int
	Results          []SendResult
	Duration         time.Duration
}
