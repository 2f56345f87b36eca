package framecodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/okian/varbox/internal/domain/model"
)

// Decoder reads a JSON Lines stream of records. It satisfies bout.FrameSource.
type Decoder struct {
	dec     *json.Decoder
	baseDir string
	read    int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithBaseDir resolves relative image paths against dir.
func WithBaseDir(dir string) DecoderOption {
	return func(d *Decoder) { d.baseDir = dir }
}

// NewDecoder reads records from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{dec: json.NewDecoder(r)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next frame, or io.EOF at the end of the stream.
func (d *Decoder) Next() (*model.Frame, error) {
	var r Record
	if err := d.dec.Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidRecord, d.read+1, err)
	}
	d.read++
	return r.Frame(d.baseDir)
}

// Read reports how many records have been decoded.
func (d *Decoder) Read() int { return d.read }

// Encoder writes frames as JSON Lines.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder writes records to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Encode writes f as one line.
func (e *Encoder) Encode(f *model.Frame) error {
	r, err := FromFrame(f)
	if err != nil {
		return err
	}
	return e.enc.Encode(r)
}
