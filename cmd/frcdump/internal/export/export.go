// Package export writes decoded records to an output stream in one of the
// supported formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/drsandytoes/saleae-frc-can/frccan"
)

// TextWriter prints one presentation template line per record, prefixed
// with the record's start timestamp.
type TextWriter struct {
	w io.Writer
}

func NewText(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

func (t *TextWriter) Write(rec *frccan.Record) error {
	_, err := fmt.Fprintf(t.w, "[%.6f] %s\n", rec.Start, rec.Summary())
	return err
}

// JSONWriter emits one JSON object per line.
type JSONWriter struct {
	enc *json.Encoder
}

func NewJSON(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

func (j *JSONWriter) Write(rec *frccan.Record) error {
	return j.enc.Encode(rec)
}

// CBORWriter emits a CBOR sequence, one data item per record, using
// deterministic encoding so identical captures produce identical output.
type CBORWriter struct {
	enc *cbor.Encoder
}

func NewCBOR(w io.Writer) (*CBORWriter, error) {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("export: cbor encoder: %w", err)
	}
	return &CBORWriter{enc: mode.NewEncoder(w)}, nil
}

func (c *CBORWriter) Write(rec *frccan.Record) error {
	return c.enc.Encode(rec)
}
