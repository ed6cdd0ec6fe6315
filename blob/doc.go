// Package blob reads typed values directly out of byte slices of unknown
// trust without copying them.
//
// A value moves through three states, each with its own wrapper type:
//
//	Blob[T]            bytes of the right length, nothing checked
//	ValidBlob[T]       T's own structural checks passed
//	FullyValidBlob[T]  every value reachable from T has been checked too
//
// The only way from Blob to ValidBlob is a Codec's ValidateBlob, which is
// usually written with a field cursor:
//
//	func (pairCodec) ValidateBlob(b blob.Blob[Pair]) (blob.ValidBlob[Pair], error) {
//		f := b.Fields()
//		if _, err := blob.Field(f, blob.Uint64); err != nil {
//			return blob.ValidBlob[Pair]{}, err
//		}
//		if _, err := blob.Field(f, blob.Bool); err != nil {
//			return blob.ValidBlob[Pair]{}, err
//		}
//		return f.Done(), nil
//	}
//
// Codecs that also implement Persist describe types whose Go memory is
// bit-for-bit their encoding; View hands out a *T aliasing the checked
// bytes instead of decoding a copy.
package blob
