package chart

import "fmt"

// FormatError indicates generated text that does not contain chart construction code.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	if e.Msg == "" {
		return "unexpected code format"
	}
	return e.Msg
}

// ExecutionError wraps any failure while decoding a configuration or binding a chart.
type ExecutionError struct {
	// Stage is "config" for the isolated literal path and "script" for the fallback path.
	Stage string
	Err   error
}

func (e *ExecutionError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("chart creation failed (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("chart creation failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ResourceError indicates the drawing surface or its 2D context is unavailable.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Resource)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
