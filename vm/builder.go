package vm

import (
	"encoding/binary"

	"notechain/asset"
)

// Builder assembles bytecode programs. Methods chain:
//
//	prog := new(vm.Builder).PushInt(0).Op(vm.OpStorageGet).Build()
type Builder struct {
	buf []byte
}

// Op appends a bare opcode.
func (b *Builder) Op(op Opcode) *Builder {
	b.buf = append(b.buf, byte(op))
	return b
}

// PushInt appends a pushint instruction.
func (b *Builder) PushInt(n int64) *Builder {
	b.buf = append(b.buf, byte(OpPushInt))
	var tmp [binary.MaxVarintLen64]byte
	l := binary.PutVarint(tmp[:], n)
	b.buf = append(b.buf, tmp[:l]...)
	return b
}

// PushBytes appends a pushbytes instruction.
func (b *Builder) PushBytes(bits []byte) *Builder {
	b.buf = append(b.buf, byte(OpPushBytes))
	var tmp [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(tmp[:], uint64(len(bits)))
	b.buf = append(b.buf, tmp[:l]...)
	b.buf = append(b.buf, bits...)
	return b
}

// PushID appends a pushid instruction.
func (b *Builder) PushID(id ID) *Builder {
	b.buf = append(b.buf, byte(OpPushID))
	b.buf = append(b.buf, id[:]...)
	return b
}

// PushAsset pushes the asset triple (kind, amount, token) expected by
// the vault opcodes.
func (b *Builder) PushAsset(a asset.Asset) *Builder {
	b.PushID(ID(a.Kind))
	b.PushInt(a.Amount)
	b.PushID(ID(a.Token))
	return b
}

// Build returns the assembled program.
func (b *Builder) Build() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}
