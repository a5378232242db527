package service

import (
	"fmt"

	"github.com/mtlprog/askwidget/internal/domain"
)

// faqTexts are the shortcut questions shown under the input, in display order.
var faqTexts = []string{
	"What is the admission process for B.Tech at GGSIPU?",
	"What are the eligibility criteria for MBA admission?",
	"When does IPU CET counselling start?",
	"Which documents are required at the time of counselling?",
	"What is the fee structure for B.Tech programmes?",
}

// FAQShortcuts is the fixed list of one-click questions.
type FAQShortcuts struct {
	items []domain.FAQ
}

// NewFAQShortcuts returns the built-in shortcuts, numbered from 1.
func NewFAQShortcuts() *FAQShortcuts {
	items := make([]domain.FAQ, len(faqTexts))
	for i, text := range faqTexts {
		items[i] = domain.FAQ{Index: i + 1, Text: text}
	}
	return &FAQShortcuts{items: items}
}

// List returns a copy of the shortcuts.
func (f *FAQShortcuts) List() []domain.FAQ {
	out := make([]domain.FAQ, len(f.items))
	copy(out, f.items)
	return out
}

// Get returns the shortcut with the given 1-based index.
func (f *FAQShortcuts) Get(index int) (domain.FAQ, error) {
	if index < 1 || index > len(f.items) {
		return domain.FAQ{}, fmt.Errorf("%w: index %d, expected 1..%d", domain.ErrFAQNotFound, index, len(f.items))
	}
	return f.items[index-1], nil
}

// Select puts the shortcut's text into the input and submits it once.
func (f *FAQShortcuts) Select(ex *Exchange, index int) (domain.FAQ, error) {
	faq, err := f.Get(index)
	if err != nil {
		return domain.FAQ{}, err
	}

	ex.SetQuestion(faq.Text)
	if _, err := ex.Submit(faq.Text); err != nil {
		return faq, fmt.Errorf("submit faq %d: %w", index, err)
	}

	return faq, nil
}
