package domain

import "errors"

// Domain-specific errors for the question/answer exchange.
var (
	// Input errors
	ErrEmptyQuestion = errors.New("question is empty")

	// Backend errors
	ErrTransport           = errors.New("backend unreachable")
	ErrServerStatus        = errors.New("backend returned non-2xx status")
	ErrUndecodableResponse = errors.New("backend response is not valid JSON")
	ErrMalformedResponse   = errors.New("backend response has no answer")

	// Widget errors
	ErrExchangeClosed  = errors.New("exchange is closed")
	ErrFAQNotFound     = errors.New("faq not found")
	ErrJournalDisabled = errors.New("exchange journal is disabled")

	// Validation errors
	ErrInvalidPeriod = errors.New("invalid stats period")
)
