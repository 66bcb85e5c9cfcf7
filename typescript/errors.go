package typescript

import "fmt"

// GenerationError reports a model the emitters cannot express.
type GenerationError struct {
	// Location names the offending element, e.g. "users.get.response".
	Location string
	Reason   string
}

func (e *GenerationError) Error() string {
	if e.Location == "" {
		return e.Reason
	}
	return e.Location + ": " + e.Reason
}

func generationErrorf(location, format string, args ...any) error {
	return &GenerationError{Location: location, Reason: fmt.Sprintf(format, args...)}
}

// Warning is a non-fatal issue found while generating.
type Warning struct {
	Location string
	Message  string
}

func (w Warning) String() string {
	if w.Location == "" {
		return w.Message
	}
	return w.Location + ": " + w.Message
}
