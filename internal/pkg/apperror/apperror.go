package apperror

// AppError is a custom error type that carries an HTTP status code and a
// machine-readable code alongside the user-facing message.
type AppError struct {
	Status  int    // HTTP status code (e.g., 409, 500)
	Code    string // Machine-readable code (e.g., "SLOT_HELD")
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code, so a wrapped copy still compares equal to its
// sentinel via errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New creates a new AppError with a status, code and message.
func New(status int, code, message string) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// WithErr returns a copy of the AppError wrapping an underlying error.
func (e *AppError) WithErr(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}
