package dto

// AskRequest represents the request body for POST /exchange.
type AskRequest struct {
	Question string `json:"question" example:"What is the admission process for B.Tech at GGSIPU?"`
}
