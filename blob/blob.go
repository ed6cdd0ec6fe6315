package blob

// Blob is a byte range that claims to hold a T. Nothing about its
// contents has been checked.
type Blob[T any] struct {
	buf   []byte
	meta  uint64
	codec Codec[T]
}

// New returns the Blob for a T with metadata meta at the start of buf.
// buf may be longer than required; the excess is ignored.
func New[T any](c Codec[T], buf []byte, meta uint64) (Blob[T], error) {
	n, err := c.BlobLen(meta)
	if err != nil {
		return Blob[T]{}, err
	}
	if len(buf) < n {
		return Blob[T]{}, &TruncatedError{Want: n, Got: len(buf)}
	}
	return Blob[T]{buf: buf[:n:n], meta: meta, codec: c}, nil
}

// Bytes returns the blob's bytes.
func (b Blob[T]) Bytes() []byte { return b.buf }

// Metadata returns the blob's pointer metadata.
func (b Blob[T]) Metadata() uint64 { return b.meta }

// Codec returns the codec the blob was created with.
func (b Blob[T]) Codec() Codec[T] { return b.codec }

// Validate runs T's structural checks.
func (b Blob[T]) Validate() (ValidBlob[T], error) {
	return b.codec.ValidateBlob(b)
}

// Fields returns a cursor that validates b one field at a time.
func (b Blob[T]) Fields() *Fields[T] {
	return &Fields[T]{blob: b}
}

// AssumeValid marks b as structurally valid without checking it.
//
// Only leaf codecs that have inspected every byte themselves may call
// this; anything else breaks the guarantees of ValidBlob and View.
func (b Blob[T]) AssumeValid() ValidBlob[T] {
	return ValidBlob[T]{blob: b}
}

// ValidBlob is a Blob that passed T's structural checks.
type ValidBlob[T any] struct {
	blob Blob[T]
}

// Bytes returns the checked bytes.
func (v ValidBlob[T]) Bytes() []byte { return v.blob.buf }

// Metadata returns the blob's pointer metadata.
func (v ValidBlob[T]) Metadata() uint64 { return v.blob.meta }

// Blob returns the underlying unchecked Blob.
func (v ValidBlob[T]) Blob() Blob[T] { return v.blob }

// Decode builds an owned T.
func (v ValidBlob[T]) Decode() T {
	return v.blob.codec.DecodeBlob(v)
}

// Decoder returns a cursor that decodes v one field at a time.
func (v ValidBlob[T]) Decoder() *Decoder[T] {
	return &Decoder[T]{buf: v.blob.buf}
}

// AssumeFullyValid marks v as fully valid without checking the values it
// points at. Only valid for types that hold no pointers, or after every
// child has been checked.
func (v ValidBlob[T]) AssumeFullyValid() FullyValidBlob[T] {
	return FullyValidBlob[T]{valid: v}
}

// FullyValidBlob is a ValidBlob whose transitively reachable values have
// all been checked.
type FullyValidBlob[T any] struct {
	valid ValidBlob[T]
}

// Valid returns the structural view.
func (f FullyValidBlob[T]) Valid() ValidBlob[T] { return f.valid }

// Bytes returns the checked bytes.
func (f FullyValidBlob[T]) Bytes() []byte { return f.valid.Bytes() }

// Decode builds an owned T.
func (f FullyValidBlob[T]) Decode() T { return f.valid.Decode() }
