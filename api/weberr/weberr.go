// Package weberr decorates errors with the pieces the error middleware
// needs: a client-facing response and structured log fields. Decorations
// compose and survive wrapping.
package weberr

// Opt is one decoration applied to an error.
type Opt func(error) error

// Wrap applies the given decorations in order.
func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

// WithResponse attaches the body and status the client receives instead of
// the default 500.
func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches structured fields for the error log line.
func WithFields(fields map[string]any) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}
