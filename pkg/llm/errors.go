package llm

import "fmt"

// NetworkError reports that the backend could not be reached or the
// connection failed before a complete reply arrived.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError reports a reply that is not valid JSON or carries no usable
// choice. Body holds a prefix of the raw reply for diagnostics.
type ProtocolError struct {
	Reason string
	Body   string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s. Body: %s", msg, e.Body)
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ProviderError is an error object returned by the backend.
type ProviderError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("LLM Provider Error (%s): %s", e.Code, e.Message)
}

const maxErrorBody = 512

func truncateBody(body []byte) string {
	if len(body) <= maxErrorBody {
		return string(body)
	}
	return string(body[:maxErrorBody]) + "..."
}
