package models

import (
	"encoding/json"

	"github.com/avvvet/defidvisor-core/internal/fault"
)

// NATS requests from the web backend

type ChatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
}

type PortfolioRequest struct {
	SessionID string `json:"session_id"`
}

type SwapRequest struct {
	SessionID    string `json:"session_id"`
	FromNetwork  string `json:"from_network"`
	ToNetwork    string `json:"to_network"`
	TokenAddress string `json:"token_address"`
	Quantity     string `json:"quantity"`
}

type MarketsRequest struct {
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit,omitempty"`
}

type OrderRequest struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
}

// VaultRequest covers the bucket and file operations; which fields matter
// depends on the subject suffix (buckets, files, upload, download).
type VaultRequest struct {
	SessionID string `json:"session_id"`
	Bucket    string `json:"bucket,omitempty"`
	Name      string `json:"name,omitempty"`
	Content   []byte `json:"content,omitempty"` // base64 on the wire
}

// TranscriptSegment is one speech segment published by the meet front end.
type TranscriptSegment struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// NATS response to the backend

type Response struct {
	SessionID    string          `json:"session_id"`
	Status       string          `json:"status"` // "OK" or "ERROR"
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    *string         `json:"error_code,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// ErrorParse flags a request body that could not be decoded at all; the
// remaining codes mirror the fault taxonomy.
const ErrorParse = "PARSE_ERROR"

// ErrorResponse builds the structured error payload for err.
func ErrorResponse(sessionID string, err error) *Response {
	code := string(fault.BackendError)
	if kind := fault.KindOf(err); kind != "" {
		code = string(kind)
	}
	message := fault.Message(err)
	return &Response{
		SessionID:    sessionID,
		Status:       StatusError,
		ErrorCode:    &code,
		ErrorMessage: &message,
	}
}

// OKResponse wraps an already-marshalled payload.
func OKResponse(sessionID string, data json.RawMessage) *Response {
	return &Response{SessionID: sessionID, Status: StatusOK, Data: data}
}
