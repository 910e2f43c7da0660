package weberr

import "errors"

type fielder interface {
	Fields() map[string]any
}

// Fields extracts the log fields attached anywhere along the error chain.
func Fields(err error) (map[string]any, bool) {
	var fe fielder
	if errors.As(err, &fe) {
		return fe.Fields(), true
	}
	return nil, false
}

type fieldsError struct {
	error
	fields map[string]any
}

func (e *fieldsError) Fields() map[string]any { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
