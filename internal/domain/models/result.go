package models

// Warning reports a non-fatal side-effect failure (notification or email)
// that happened while the primary operation succeeded.
type Warning struct {
	Component string `json:"component"`
	Message   string `json:"message"`
}

// Result is the caller-facing shape returned by every mutating operation.
type Result[T any] struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Data     T         `json:"data"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// OK builds a successful Result.
func OK[T any](message string, data T, warnings ...Warning) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data, Warnings: warnings}
}
