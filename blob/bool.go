package blob

import (
	"fmt"
)

type boolCodec struct{}

func (boolCodec) Layout() Layout                    { return Fixed(1) }
func (boolCodec) BlobLen(uint64) (int, error)       { return 1, nil }
func (boolCodec) Metadata(bool) uint64              { return 0 }
func (boolCodec) Persist()                          {}
func (boolCodec) DecodeBlob(v ValidBlob[bool]) bool { return v.Bytes()[0] == 1 }

func (boolCodec) ValidateBlob(b Blob[bool]) (ValidBlob[bool], error) {
	buf := b.Bytes()
	if len(buf) != 1 {
		panic(fmt.Sprintf("blob: bool validated over %d bytes", len(buf)))
	}
	switch buf[0] {
	case 0, 1:
		return b.AssumeValid(), nil
	default:
		return ValidBlob[bool]{}, &BoolError{Value: buf[0]}
	}
}

func (boolCodec) EncodeBlob(dst []byte, v bool) {
	if v {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
}

// Bool encodes a bool as one byte, 0 or 1. Go stores bool the same way,
// so it is a Persist codec.
var Bool SizedCodec[bool] = boolCodec{}

type unitCodec struct{}

func (unitCodec) Layout() Layout                          { return Fixed(0) }
func (unitCodec) BlobLen(uint64) (int, error)             { return 0, nil }
func (unitCodec) Metadata(struct{}) uint64                { return 0 }
func (unitCodec) Persist()                                {}
func (unitCodec) DecodeBlob(ValidBlob[struct{}]) struct{} { return struct{}{} }
func (unitCodec) EncodeBlob([]byte, struct{})             {}
func (unitCodec) ValidateBlob(b Blob[struct{}]) (ValidBlob[struct{}], error) {
	return b.AssumeValid(), nil
}

// Unit encodes the empty struct in zero bytes.
var Unit SizedCodec[struct{}] = unitCodec{}

// Never is a type with no valid encoding.
type Never struct{}

type neverCodec struct{}

func (neverCodec) Layout() Layout              { return Uninhabited() }
func (neverCodec) BlobLen(uint64) (int, error) { return 0, nil }
func (neverCodec) Metadata(Never) uint64       { return 0 }

func (neverCodec) ValidateBlob(Blob[Never]) (ValidBlob[Never], error) {
	return ValidBlob[Never]{}, ErrUninhabited
}

func (neverCodec) DecodeBlob(ValidBlob[Never]) Never {
	panic("blob: decoding an uninhabited type")
}

func (neverCodec) EncodeBlob([]byte, Never) {
	panic("blob: encoding an uninhabited type")
}

// NeverCodec rejects every blob.
var NeverCodec SizedCodec[Never] = neverCodec{}
