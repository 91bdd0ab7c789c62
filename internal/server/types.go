package server

import "time"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// FundEventRequest is an incoming funding contribution
type FundEventRequest struct {
	ProjectID     string     `json:"project_id"`
	TransactionID string     `json:"transaction_id"`
	TokenSymbol   string     `json:"token_symbol"`
	Amount        float64    `json:"amount"`
	By            string     `json:"by"`
	Timestamp     *time.Time `json:"timestamp"` // Defaults to now when omitted
}

// ProposalEventRequest is an incoming proposal event
type ProposalEventRequest struct {
	ProjectID string     `json:"project_id"`
	Timestamp *time.Time `json:"timestamp"` // Defaults to now when omitted
}

// JobUpdateRequest flips a background job's switch
type JobUpdateRequest struct {
	Enabled bool `json:"enabled"`
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Natural language question about funding data
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`     // Generated SQL query
	Answer string `json:"answer"`  // Natural language answer
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}
