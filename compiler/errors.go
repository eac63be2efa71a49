package compiler

import (
	"errors"
	"fmt"

	"github.com/coze-dev/openapi-zod-gen/resolver"
)

var (
	// ErrMissingContext is returned when a $ref is compiled without a session.
	ErrMissingContext = errors.New("a conversion session is required to compile $ref")
	// ErrUnsupportedSchemaType is returned for a type keyword outside the dialect.
	ErrUnsupportedSchemaType = errors.New("unsupported schema type")
)

// SchemaNotFoundError reports a $ref that does not resolve under components.schemas.
type SchemaNotFoundError struct {
	Ref string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema %s not found", e.Ref)
}

func (e *SchemaNotFoundError) Unwrap() error {
	return resolver.ErrSchemaNotFound
}
