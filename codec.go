package rscript

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the deterministic, canonical CBOR encoding every side of
// the wire protocol must agree on. It embeds no schema in the
// payload: both ends must already agree on the Go type being decoded
// into.
var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Errorf("rscript: building cbor encode mode: %w", err))
	}
	return m
}()

var decMode = func() cbor.DecMode {
	m, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Errorf("rscript: building cbor decode mode: %w", err))
	}
	return m
}()

// Encode serializes value using the host's wire codec.
func Encode(value interface{}) ([]byte, error) {
	b, err := encMode.Marshal(value)
	if err != nil {
		return nil, newCodecError("encode", err)
	}
	return b, nil
}

// Decode deserializes data, produced by Encode, into out. out must be
// a pointer to a value of the expected static type; a malformed frame
// or a type mismatch yields a codec-kind Error, never a panic.
func Decode(data []byte, out interface{}) error {
	if err := decMode.Unmarshal(data, out); err != nil {
		return newCodecError("decode", err)
	}
	return nil
}

// EncodeTo writes value to w as one length-prefixed codec frame. Used
// on the process transport, where the stream is a concatenation of
// such frames with no additional framing layer.
func EncodeTo(w io.Writer, value interface{}) error {
	enc := encMode.NewEncoder(w)
	if err := enc.Encode(value); err != nil {
		return newCodecError("encode", err)
	}
	return nil
}

// DecodeFrom reads exactly one codec frame from r into out. It must
// never read past the frame's own length prefix, so that a daemon's
// stdout can be read one value at a time across many calls.
func DecodeFrom(r io.Reader, out interface{}) error {
	dec := decMode.NewDecoder(oneByteReader{r})
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return newIOError("decode", io.ErrUnexpectedEOF)
		}
		return newCodecError("decode", err)
	}
	return nil
}

// oneByteReader hands the decoder at most one byte per Read, so the
// decoder's internal buffer never holds bytes past the frame it is
// decoding.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return o.r.Read(p)
}
