package domain

import (
	"html/template"
	"time"
)

// Display strings shown in place of an answer.
const (
	NoResponseMessage = "No response received."
	FailureMessage    = "Failed to get a response. Try again!"
)

// ExchangeState represents whether a widget is waiting for an answer.
type ExchangeState string

const (
	ExchangeStateIdle    ExchangeState = "IDLE"
	ExchangeStatePending ExchangeState = "PENDING"
)

// IsPending returns true while a question is in flight.
func (s ExchangeState) IsPending() bool {
	return s == ExchangeStatePending
}

// Outcome classifies how a single exchange settled.
type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeEmptyAnswer Outcome = "empty_answer"
	OutcomeFailed      Outcome = "failed"
	OutcomeSuperseded  Outcome = "superseded"
	OutcomeAborted     Outcome = "aborted"
)

// IsValid checks if the outcome is one of the known values.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeAnswered, OutcomeEmptyAnswer, OutcomeFailed,
		OutcomeSuperseded, OutcomeAborted:
		return true
	default:
		return false
	}
}

// Snapshot is a point-in-time copy of a widget's exchange state.
type Snapshot struct {
	Seq        uint64
	State      ExchangeState
	Question   string
	Answer     string
	AnswerHTML template.HTML
	Outcome    Outcome // empty until the first exchange settles
	UpdatedAt  time.Time
}

// ExchangeRecord is a journal entry for one settled exchange.
type ExchangeRecord struct {
	ID         string
	SessionID  string
	Seq        uint64
	Question   string
	Outcome    Outcome
	HTTPStatus *int // nil when no response was received
	Latency    time.Duration
	CreatedAt  time.Time
}
