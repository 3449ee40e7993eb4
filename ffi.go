package rscript

import (
	"runtime"
	"unsafe"
)

// FFIBuffer is the C-compatible-layout byte buffer passed across the
// DynamicLib boundary: a data pointer plus a length and capacity.
// Exactly one side owns an FFIBuffer at a time; Free reclaims it and
// is idempotent, so a caller that calls Free more than once (e.g. a
// deferred Free racing an early return that already freed the buffer)
// unpins nothing the second time rather than double-freeing memory.
//
// The DynamicLib transport loads other Go plugins via the stdlib
// "plugin" package, which share the host's garbage collected heap
// rather than crossing into a foreign allocator, so there is no
// allocator to match on Free: Pinner.Unpin (Go 1.21+) supplies the
// single-owner discipline instead of a manual free.
type FFIBuffer struct {
	data   unsafe.Pointer
	Len    uintptr
	Cap    uintptr
	pinner *runtime.Pinner
	bytes  []byte
}

// SerializeFrom encodes value with the host's wire codec and wraps the
// result in a freshly allocated FFIBuffer.
func SerializeFrom(value interface{}) (FFIBuffer, error) {
	b, err := Encode(value)
	if err != nil {
		return FFIBuffer{}, err
	}
	return newFFIBuffer(b), nil
}

func newFFIBuffer(b []byte) FFIBuffer {
	p := &runtime.Pinner{}
	var data unsafe.Pointer
	if len(b) > 0 {
		data = unsafe.Pointer(&b[0])
		p.Pin(data)
	}
	return FFIBuffer{
		data:   data,
		Len:    uintptr(len(b)),
		Cap:    uintptr(cap(b)),
		pinner: p,
		bytes:  b,
	}
}

// Bytes returns the buffer's contents without transferring ownership.
// Callers must not retain the slice past the buffer's Free.
func (b FFIBuffer) Bytes() []byte {
	return b.bytes
}

// DeserializeFFI decodes the buffer's bytes as T using the host's wire
// codec.
func DeserializeFFI[T any](b FFIBuffer) (T, error) {
	var out T
	if err := Decode(b.bytes, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Free reclaims the buffer. It is the receiver's responsibility to
// call Free after taking ownership of a buffer returned across the
// DynamicLib boundary. Free is safe to call more than once.
func (b *FFIBuffer) Free() {
	if b.pinner == nil {
		return
	}
	b.pinner.Unpin()
	b.pinner = nil
	b.bytes = nil
	b.data = nil
}

// FFIString is a borrowed, non-owning, immutable UTF-8 string view: a
// data pointer plus a length. It never allocates and is never freed by
// the receiver; it is typically constructed from a static hook name.
type FFIString struct {
	data unsafe.Pointer
	Len  uintptr
	s    string
}

// NewFFIString constructs a borrowed view over s. s must outlive every
// use of the returned FFIString.
func NewFFIString(s string) FFIString {
	var data unsafe.Pointer
	if len(s) > 0 {
		data = unsafe.Pointer(unsafe.StringData(s))
	}
	return FFIString{data: data, Len: uintptr(len(s)), s: s}
}

// String returns the borrowed string.
func (s FFIString) String() string {
	return s.s
}
