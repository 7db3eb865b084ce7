package codec

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/probst/tangle/internal/payload"
)

// SchemaError reports a payload that failed CUE schema validation.
type SchemaError struct {
	Codec   string // inner codec name
	Message string // CUE's rendering of the failure, positions included
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed (%s codec): %s", e.Codec, e.Message)
}

// IsSchemaError reports whether err is a schema validation failure.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// Schema wraps an inner codec with CUE validation on both directions:
// encoded values must conform before serialization, decoded values must
// conform before they are handed to the caller. It keeps malformed
// documents out of the archive and malformed archive rows out of the
// editor.
type Schema struct {
	inner  Codec
	schema cue.Value
}

// NewSchema compiles source as a CUE schema and wraps inner with it. The
// source must compile to a single value; every payload is unified against
// it and required to be concrete.
func NewSchema(inner Codec, source string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(source)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %s", cueerrors.Details(err, nil))
	}
	return &Schema{inner: inner, schema: v}, nil
}

// Name implements Codec, delegating to the inner codec: schema validation
// does not change the wire format, so archive rows record the inner name
// and decode without knowing a schema was ever involved.
func (s *Schema) Name() string { return s.inner.Name() }

// Encode implements Codec. Validation happens before encoding.
func (s *Schema) Encode(v payload.Value) ([]byte, error) {
	if err := s.validate(v); err != nil {
		return nil, err
	}
	return s.inner.Encode(v)
}

// Decode implements Codec. Validation happens after decoding.
func (s *Schema) Decode(data []byte) (payload.Value, error) {
	v, err := s.inner.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := s.validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Schema) validate(v payload.Value) error {
	plain, err := toPlain(v)
	if err != nil {
		return err
	}

	ctx := s.schema.Context()
	unified := s.schema.Unify(ctx.Encode(plain))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{
			Codec:   s.inner.Name(),
			Message: cueerrors.Details(err, nil),
		}
	}
	return nil
}
