package musicmind

import (
	"errors"

	"github.com/ncecere/musicmind/provider"
)

// Package-level error values returned by the musicmind package.
var (
	// ErrMissingModel is returned when a request does not specify an
	// AudioModel.
	ErrMissingModel = errors.New("musicmind: missing AudioModel in request")

	// ErrMissingFile is wrapped by an *InputError when an upload
	// operation is called without a file path.
	ErrMissingFile = provider.ErrMissingFile
)

// InvalidArgumentError indicates that a function argument is invalid.
type InvalidArgumentError struct {
	// Parameter is the name of the invalid parameter.
	Parameter string
	// Value is the offending value.
	Value any
	// Message describes why the value is considered invalid.
	Message string
}

func (e *InvalidArgumentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "musicmind: invalid argument for parameter " + e.Parameter + ": " + e.Message
}
