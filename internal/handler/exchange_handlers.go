package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mtlprog/askwidget/internal/domain"
	"github.com/mtlprog/askwidget/internal/handler/dto"
)

// handleGetExchange returns the session's exchange state.
// @Summary Get exchange state
// @Description Returns the current question, answer and state of the caller's widget session. With wait=true the call blocks until no exchange is pending (bounded by the server's long-poll limit).
// @Tags exchange
// @Produce json
// @Param wait query bool false "Block until the state is IDLE"
// @Success 200 {object} dto.ExchangeResponse
// @Router /exchange [get]
func (h *Handler) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	ex, found := h.sessions.Lookup(id)
	if !found {
		respondJSON(w, http.StatusOK, dto.ToExchangeResponse(domain.Snapshot{State: domain.ExchangeStateIdle}))
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		respondJSON(w, http.StatusOK, dto.ToExchangeResponse(ex.Snapshot()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.maxWait)
	defer cancel()

	// On timeout the still-pending snapshot is returned; clients poll again.
	snap, err := ex.WaitIdle(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		// Client went away.
		return
	}

	respondJSON(w, http.StatusOK, dto.ToExchangeResponse(snap))
}

// handleSubmitExchange submits a question for the caller's widget session.
// @Summary Ask a question
// @Description Starts an exchange and returns immediately with state PENDING. A pending exchange from the same session is aborted. Blank questions are ignored and the unchanged state is returned with 200.
// @Tags exchange
// @Accept json
// @Produce json
// @Param request body dto.AskRequest true "Question"
// @Success 202 {object} dto.ExchangeResponse
// @Success 200 {object} dto.ExchangeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /exchange [post]
func (h *Handler) handleSubmitExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req dto.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	ex := h.sessions.Exchange(id)
	ex.SetQuestion(req.Question)

	if _, err := ex.Submit(req.Question); err != nil {
		if errors.Is(err, domain.ErrEmptyQuestion) {
			respondJSON(w, http.StatusOK, dto.ToExchangeResponse(ex.Snapshot()))
			return
		}
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, dto.ToExchangeResponse(ex.Snapshot()))
}

// handleListFAQs lists the shortcut questions.
// @Summary List FAQ shortcuts
// @Tags faqs
// @Produce json
// @Success 200 {object} dto.FAQListResponse
// @Router /faqs [get]
func (h *Handler) handleListFAQs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.ToFAQListResponse(h.faqs.List()))
}

// handleSelectFAQ puts a shortcut into the input and submits it.
// @Summary Select an FAQ shortcut
// @Tags faqs
// @Produce json
// @Param index path int true "FAQ index (1-based)"
// @Success 202 {object} dto.FAQSelectResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /faqs/{index} [post]
func (h *Handler) handleSelectFAQ(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	index, ok := extractFAQIndex(w, r)
	if !ok {
		return
	}

	// Validate before touching the session so unknown indexes never create one.
	if _, err := h.faqs.Get(index); err != nil {
		respondDomainError(w, err)
		return
	}

	ex := h.sessions.Exchange(id)
	faq, err := h.faqs.Select(ex, index)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, dto.FAQSelectResponse{
		FAQ:      dto.FAQResponse{Index: faq.Index, Text: faq.Text},
		Exchange: dto.ToExchangeResponse(ex.Snapshot()),
	})
}
