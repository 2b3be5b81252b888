package vm

import "encoding/binary"

// AppendValue appends a deterministic binary encoding of v to dst.
// It is the encoding fed to ID and nullifier derivation; it is not a
// wire format.
func AppendValue(dst []byte, v Value) []byte {
	switch val := v.(type) {
	case Int:
		dst = append(dst, byte(TypeInt))
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutVarint(tmp[:], int64(val))
		dst = append(dst, tmp[:n]...)
	case Bytes:
		dst = append(dst, byte(TypeBytes))
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(tmp[:], uint64(len(val)))
		dst = append(dst, tmp[:n]...)
		dst = append(dst, val...)
	case ID:
		dst = append(dst, byte(TypeID))
		dst = append(dst, val[:]...)
	}
	return dst
}

// AppendValues appends the encoding of an ordered value sequence,
// length-prefixed.
func AppendValues(dst []byte, vals []Value) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(vals)))
	dst = append(dst, tmp[:n]...)
	for _, v := range vals {
		dst = AppendValue(dst, v)
	}
	return dst
}
