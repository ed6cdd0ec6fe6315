package blob

import (
	"fmt"
)

// Fields consumes a Blob field by field, in declaration order.
type Fields[T any] struct {
	blob  Blob[T]
	pos   int
	index int
}

// take returns the next n bytes, panicking if they run past the blob.
func (f *Fields[T]) take(n int) []byte {
	if f.pos+n > len(f.blob.buf) {
		panic(fmt.Sprintf("blob: field cursor overrun: %d+%d > %d", f.pos, n, len(f.blob.buf)))
	}
	b := f.blob.buf[f.pos : f.pos+n : f.pos+n]
	f.pos += n
	return b
}

// Field validates the next field of f with c.
func Field[F, T any](f *Fields[T], c SizedCodec[F]) (ValidBlob[F], error) {
	off, idx := f.pos, f.index
	f.index++
	fb := Blob[F]{buf: f.take(c.Layout().Size), codec: c}
	v, err := c.ValidateBlob(fb)
	if err != nil {
		return ValidBlob[F]{}, &FieldError{Index: idx, Offset: off, Err: err}
	}
	return v, nil
}

// Padding checks that the next n bytes are zero.
func (f *Fields[T]) Padding(n int) error {
	off := f.pos
	return checkPadding(f.take(n), off)
}

// Remaining returns the number of bytes not yet consumed.
func (f *Fields[T]) Remaining() int {
	return len(f.blob.buf) - f.pos
}

// Done finishes validation. It panics unless every byte was consumed:
// that means the codec's field list disagrees with its length.
func (f *Fields[T]) Done() ValidBlob[T] {
	if f.pos != len(f.blob.buf) {
		panic(fmt.Sprintf("blob: field cursor finished at %d of %d bytes", f.pos, len(f.blob.buf)))
	}
	return ValidBlob[T]{blob: f.blob}
}

// Decoder reads the fields of a ValidBlob back out in declaration order.
type Decoder[T any] struct {
	buf []byte
	pos int
}

// DecodeField decodes the next field of d with c. The parent was
// validated, so the field is too.
func DecodeField[F, T any](d *Decoder[T], c SizedCodec[F]) F {
	n := c.Layout().Size
	if d.pos+n > len(d.buf) {
		panic(fmt.Sprintf("blob: decoder overrun: %d+%d > %d", d.pos, n, len(d.buf)))
	}
	b := Blob[F]{buf: d.buf[d.pos : d.pos+n : d.pos+n], codec: c}
	d.pos += n
	return c.DecodeBlob(b.AssumeValid())
}

// Skip steps over n bytes of padding.
func (d *Decoder[T]) Skip(n int) {
	d.pos += n
}

// Done panics unless every byte was decoded.
func (d *Decoder[T]) Done() {
	if d.pos != len(d.buf) {
		panic(fmt.Sprintf("blob: decoder finished at %d of %d bytes", d.pos, len(d.buf)))
	}
}

// Encoder writes fields into a destination slice in declaration order.
type Encoder struct {
	buf []byte
	pos int
}

// NewEncoder returns an Encoder writing into dst.
func NewEncoder(dst []byte) *Encoder {
	return &Encoder{buf: dst}
}

// EncodeField writes v with c as the next field of e.
func EncodeField[F any](e *Encoder, c SizedCodec[F], v F) {
	n := c.Layout().Size
	if e.pos+n > len(e.buf) {
		panic(fmt.Sprintf("blob: encoder overrun: %d+%d > %d", e.pos, n, len(e.buf)))
	}
	c.EncodeBlob(e.buf[e.pos:e.pos+n:e.pos+n], v)
	e.pos += n
}

// Zero writes n zero bytes.
func (e *Encoder) Zero(n int) {
	clear(e.buf[e.pos : e.pos+n])
	e.pos += n
}

// Done panics unless the destination was filled exactly.
func (e *Encoder) Done() {
	if e.pos != len(e.buf) {
		panic(fmt.Sprintf("blob: encoder finished at %d of %d bytes", e.pos, len(e.buf)))
	}
}
