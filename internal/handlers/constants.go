package handlers

const (
	RequestIDHeader = "X-Request-ID"

	ErrInvalidJSON         = "Invalid request body"
	ErrInternalServerError = "Internal server error"
	ErrNothingToSpeak      = "Nothing to speak"

	maxRequestBody = 64 * 1024
)
