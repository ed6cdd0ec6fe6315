package blob

// optionCodec encodes a *T, nil meaning absent.
//
// When the inner layout has a niche, None is all zero bytes and Some is
// the bare inner encoding. Otherwise a one-byte tag (0 or 1) precedes the
// inner bytes, which must be all zero for None.
type optionCodec[T any] struct {
	inner SizedCodec[T]
}

// Option returns the codec for optional values of inner.
func Option[T any](inner SizedCodec[T]) SizedCodec[*T] {
	return optionCodec[T]{inner: inner}
}

func (c optionCodec[T]) tagged() bool { return !c.inner.Layout().HasNiche() }

func (c optionCodec[T]) Layout() Layout {
	l := c.inner.Layout()
	if l.HasNiche() {
		return Fixed(l.Size)
	}
	return Fixed(1 + l.Size)
}

func (c optionCodec[T]) BlobLen(uint64) (int, error) { return c.Layout().Size, nil }

func (optionCodec[T]) Metadata(*T) uint64 { return 0 }

func (c optionCodec[T]) ValidateBlob(b Blob[*T]) (ValidBlob[*T], error) {
	buf := b.Bytes()
	if !c.tagged() {
		n := c.inner.Layout().Niche
		if isZero(buf[n.Start:n.End]) {
			if err := checkPadding(buf, 0); err != nil {
				return ValidBlob[*T]{}, err
			}
			return b.AssumeValid(), nil
		}
		if _, err := c.inner.ValidateBlob(Blob[T]{buf: buf, codec: c.inner}); err != nil {
			return ValidBlob[*T]{}, err
		}
		return b.AssumeValid(), nil
	}

	switch buf[0] {
	case 0:
		if err := checkPadding(buf[1:], 1); err != nil {
			return ValidBlob[*T]{}, err
		}
	case 1:
		if _, err := c.inner.ValidateBlob(Blob[T]{buf: buf[1:], codec: c.inner}); err != nil {
			return ValidBlob[*T]{}, &FieldError{Index: 0, Offset: 1, Err: err}
		}
	default:
		return ValidBlob[*T]{}, &DiscriminantError{Value: buf[0]}
	}
	return b.AssumeValid(), nil
}

func (c optionCodec[T]) DecodeBlob(v ValidBlob[*T]) *T {
	buf := v.Bytes()
	if c.tagged() {
		if buf[0] == 0 {
			return nil
		}
		buf = buf[1:]
	} else if n := c.inner.Layout().Niche; isZero(buf[n.Start:n.End]) {
		return nil
	}
	out := c.inner.DecodeBlob(Blob[T]{buf: buf, codec: c.inner}.AssumeValid())
	return &out
}

func (c optionCodec[T]) EncodeBlob(dst []byte, v *T) {
	if v == nil {
		clear(dst)
		return
	}
	if c.tagged() {
		dst[0] = 1
		dst = dst[1:]
	}
	c.inner.EncodeBlob(dst, *v)
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
