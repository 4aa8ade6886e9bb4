package feed

import "fmt"

// DecodeError reports a message that is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClassificationError reports valid JSON of an unrecognized shape.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classify message: %s: %v", e.Reason, e.Err)
	}
	return "classify message: " + e.Reason
}

func (e *ClassificationError) Unwrap() error { return e.Err }
