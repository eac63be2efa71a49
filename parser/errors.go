package parser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidGroupStrategy is returned for an unknown group strategy.
var ErrInvalidGroupStrategy = errors.New("invalid group strategy")

// UnsupportedMediaTypeError reports a parameter whose content offers no
// allowed media type.
type UnsupportedMediaTypeError struct {
	Param      string
	MediaTypes []string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("parameter %s has no supported media type, got [%s]", e.Param, strings.Join(e.MediaTypes, ", "))
}
