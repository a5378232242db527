package handler

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mtlprog/askwidget/internal/domain"
	"github.com/mtlprog/askwidget/internal/static"
)

// pageData is the view model of the widget page.
type pageData struct {
	Title          string
	Question       string
	AnswerHTML     template.HTML
	Pending        bool
	RefreshSeconds int
	FAQs           []domain.FAQ
}

// handlePage renders the widget with the session's current state.
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	data := pageData{
		Title:          h.title,
		RefreshSeconds: pageRefreshSeconds,
		FAQs:           h.faqs.List(),
	}

	if ex, found := h.sessions.Lookup(id); found {
		snap := ex.Snapshot()
		data.Question = snap.Question
		data.AnswerHTML = snap.AnswerHTML
		data.Pending = snap.State.IsPending()
	}

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		slog.Error("failed to render page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write page", "error", err)
	}
}

// handleStyle serves the embedded stylesheet.
func (h *Handler) handleStyle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(static.StyleCSS)); err != nil {
		slog.Error("failed to write stylesheet", "error", err)
	}
}

// handleAskForm submits the typed question and returns to the page.
// A blank question is dropped silently.
func (h *Handler) handleAskForm(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	question := r.PostForm.Get("question")

	ex := h.sessions.Exchange(id)
	ex.SetQuestion(question)
	if _, err := ex.Submit(question); err != nil && !errors.Is(err, domain.ErrEmptyQuestion) {
		slog.Warn("failed to submit question", "error", err, "session_id", id)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleFAQForm runs a shortcut and returns to the top of the page.
func (h *Handler) handleFAQForm(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "faq index must be a number", http.StatusBadRequest)
		return
	}

	if _, err := h.faqs.Select(h.sessions.Exchange(id), index); err != nil {
		if errors.Is(err, domain.ErrFAQNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Warn("failed to select faq", "error", err, "session_id", id, "index", index)
	}

	http.Redirect(w, r, "/#top", http.StatusSeeOther)
}
