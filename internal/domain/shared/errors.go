package shared

// DomainError is an error with a stable machine-readable code. The HTTP
// layer maps codes to status responses, so codes must not change once
// clients depend on them.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinel errors raised across the domain. Repositories translate their
// driver-level not-found conditions into ErrNotFound so callers can branch
// on it with errors.Is.
var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input provided")
)
