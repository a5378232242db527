package dto

import (
	"time"

	"github.com/mtlprog/askwidget/internal/domain"
	"github.com/mtlprog/askwidget/internal/repository"
)

// ExchangeResponse is the widget state returned by the exchange endpoints.
type ExchangeResponse struct {
	Seq        uint64    `json:"seq"`
	State      string    `json:"state" enums:"IDLE,PENDING"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AnswerHTML string    `json:"answer_html"`
	Outcome    string    `json:"outcome,omitempty" enums:"answered,empty_answer,failed"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToExchangeResponse converts a snapshot to its JSON form.
func ToExchangeResponse(snap domain.Snapshot) ExchangeResponse {
	return ExchangeResponse{
		Seq:        snap.Seq,
		State:      string(snap.State),
		Question:   snap.Question,
		Answer:     snap.Answer,
		AnswerHTML: string(snap.AnswerHTML),
		Outcome:    string(snap.Outcome),
		UpdatedAt:  snap.UpdatedAt,
	}
}

// FAQResponse is one shortcut.
type FAQResponse struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// FAQListResponse represents the response for GET /faqs.
type FAQListResponse struct {
	FAQs []FAQResponse `json:"faqs"`
}

// ToFAQListResponse converts shortcuts to their JSON form.
func ToFAQListResponse(faqs []domain.FAQ) FAQListResponse {
	out := make([]FAQResponse, len(faqs))
	for i, faq := range faqs {
		out[i] = FAQResponse{Index: faq.Index, Text: faq.Text}
	}
	return FAQListResponse{FAQs: out}
}

// FAQSelectResponse represents the response for POST /faqs/{index}.
type FAQSelectResponse struct {
	FAQ      FAQResponse      `json:"faq"`
	Exchange ExchangeResponse `json:"exchange"`
}

// StatsResponse represents the response for GET /stats.
type StatsResponse struct {
	Period          string         `json:"period"`
	PeriodStart     time.Time      `json:"period_start"`
	PeriodEnd       time.Time      `json:"period_end"`
	TotalExchanges  int            `json:"total_exchanges"`
	UniqueSessions  int            `json:"unique_sessions"`
	ByOutcome       map[string]int `json:"by_outcome"`
	AvgLatencyMs    float64        `json:"avg_latency_ms"`
	AnsweredPercent float64        `json:"answered_percent"`
	FailedPercent   float64        `json:"failed_percent"`
}

// ToStatsResponse converts journal statistics to their JSON form.
func ToStatsResponse(period string, start, end time.Time, stats *repository.ExchangeStatsResult) StatsResponse {
	byOutcome := make(map[string]int, len(stats.ByOutcome))
	for outcome, count := range stats.ByOutcome {
		byOutcome[string(outcome)] = count
	}

	return StatsResponse{
		Period:          period,
		PeriodStart:     start,
		PeriodEnd:       end,
		TotalExchanges:  stats.TotalExchanges,
		UniqueSessions:  stats.UniqueSessions,
		ByOutcome:       byOutcome,
		AvgLatencyMs:    stats.AvgLatencyMs,
		AnsweredPercent: stats.AnsweredPercent,
		FailedPercent:   stats.FailedPercent,
	}
}
