package types

// SuccessEnvelope wraps every 2xx JSON payload under a data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. Details is only populated for codes
// whose metadata allows surfacing it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx JSON payload.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
