package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wolfeidau/tradejournal/internal/trade"
)

// APIError is a non-2xx response carrying the server's error message.
type APIError struct {
	Status  int
	Message string
	// Fields holds per-field validation failures from a 422 response.
	Fields trade.ValidationErrors
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match ErrUnauthorized and ErrNotFound with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error  string                 `json:"error"`
		Errors trade.ValidationErrors `json:"errors"`
	}
	// non-JSON bodies fall back to the status text
	_ = json.Unmarshal(data, &body)

	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &APIError{Status: status, Message: msg, Fields: body.Errors}
}

// errorMessage is the text stored in AuthState.Error.
func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
