package trace

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fhn666/wgpu"
)

// Codec serializes traces.
type Codec interface {
	Encode(w io.Writer, t *Trace) error
	Decode(r io.Reader) (*Trace, error)
}

// YAMLCodec reads and writes traces as YAML documents. Unknown fields are
// rejected when decoding.
type YAMLCodec struct{}

// Encode writes t to w.
func (YAMLCodec) Encode(w io.Writer, t *Trace) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("trace: encode: %w", err)
	}
	return enc.Close()
}

// Decode reads one trace from r and validates it.
func (YAMLCodec) Decode(r io.Reader) (*Trace, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var t Trace
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("trace: decode: empty document")
		}
		return nil, fmt.Errorf("trace: decode: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// WriteFile encodes t into the file at path, replacing it.
func WriteFile(path string, t *Trace, c Codec) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("trace: %w", cerr)
		}
	}()
	if err := c.Encode(f, t); err != nil {
		return err
	}
	wgpu.Logger().Debug("trace: flushed", "path", path, "actions", len(t.Actions))
	return nil
}

// ReadFile decodes the trace stored at path.
func ReadFile(path string, c Codec) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	defer f.Close()
	return c.Decode(f)
}
