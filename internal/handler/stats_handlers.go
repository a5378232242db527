package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mtlprog/askwidget/internal/domain"
	"github.com/mtlprog/askwidget/internal/handler/dto"
	"github.com/mtlprog/askwidget/internal/repository"
)

// handleGetStats returns exchange journal statistics.
// @Summary Get statistics
// @Description Get exchange counts, outcome breakdown and latency for a given period. Requires the journal database.
// @Tags stats
// @Produce json
// @Param period query string false "Period: day, week (default), month, all"
// @Success 200 {object} dto.StatsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /stats [get]
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		respondDomainError(w, domain.ErrJournalDisabled)
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	now := time.Now()
	periodStart, err := PeriodStart(period, now)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	stats, err := h.stats.GetExchangeStats(r.Context(), repository.StatsFilters{
		PeriodStart: periodStart,
		PeriodEnd:   now,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch exchange stats")
		return
	}

	respondJSON(w, http.StatusOK, dto.ToStatsResponse(period, periodStart, now, stats))
}

// PeriodStart calculates the beginning of a named stats period ending at now.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "day":
		return now.AddDate(0, 0, -1), nil
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "month":
		return now.AddDate(0, -1, 0), nil
	case "all":
		return time.Time{}, nil // Beginning of time
	default:
		return time.Time{}, fmt.Errorf("%w: %q, must be: day, week, month, all", domain.ErrInvalidPeriod, period)
	}
}
