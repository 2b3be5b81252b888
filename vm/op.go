package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/chain/txvm/errors"
)

// Opcode is a single instruction code.
type Opcode byte

// Instruction set. Push opcodes carry immediate data; all others take
// their operands from the stack.
const (
	// Data
	OpPushInt   Opcode = 0x01 // imm: zigzag varint
	OpPushBytes Opcode = 0x02 // imm: uvarint length + bytes
	OpPushID    Opcode = 0x03 // imm: 32 bytes

	// Stack
	OpDrop Opcode = 0x10
	OpDup  Opcode = 0x11
	OpSwap Opcode = 0x12

	// Arithmetic and logic (checked)
	OpAdd    Opcode = 0x20
	OpSub    Opcode = 0x21
	OpMul    Opcode = 0x22
	OpEq     Opcode = 0x23
	OpVerify Opcode = 0x24

	// Introspection
	OpAccountID      Opcode = 0x30
	OpNoteInput      Opcode = 0x31 // pops index
	OpNoteInputCount Opcode = 0x32

	// Storage
	OpStorageGet Opcode = 0x40 // pops slot
	OpStorageSet Opcode = 0x41 // pops slot, value

	// Vault and notes. Assets travel on the stack as the triple
	// (kind, amount, token), token topmost; a zero token means
	// fungible.
	OpAddAsset      Opcode = 0x50
	OpRemoveAsset   Opcode = 0x51
	OpReceiveAssets Opcode = 0x52
	OpMoveAsset     Opcode = 0x53 // pops asset triple, then note index
	OpCreateNote    Opcode = 0x54 // pops tag, aux, n, n inputs, script; pushes note index
	OpMint          Opcode = 0x55
	OpBurn          Opcode = 0x56

	OpLog Opcode = 0x60 // pops value
)

var opNames = map[Opcode]string{
	OpPushInt:        "pushint",
	OpPushBytes:      "pushbytes",
	OpPushID:         "pushid",
	OpDrop:           "drop",
	OpDup:            "dup",
	OpSwap:           "swap",
	OpAdd:            "add",
	OpSub:            "sub",
	OpMul:            "mul",
	OpEq:             "eq",
	OpVerify:         "verify",
	OpAccountID:      "accountid",
	OpNoteInput:      "noteinput",
	OpNoteInputCount: "noteinputcount",
	OpStorageGet:     "storageget",
	OpStorageSet:     "storageset",
	OpAddAsset:       "addasset",
	OpRemoveAsset:    "removeasset",
	OpReceiveAssets:  "receiveassets",
	OpMoveAsset:      "moveasset",
	OpCreateNote:     "createnote",
	OpMint:           "mint",
	OpBurn:           "burn",
	OpLog:            "log",
}

// Name returns the mnemonic for an opcode.
func Name(op Opcode) string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("op(%#x)", byte(op))
}

// ErrProg is returned when a program's bytecode cannot be decoded.
var ErrProg = errors.New("malformed program")

// DecodeInst decodes the instruction at the start of prog, returning
// the opcode, its immediate value (nil for most opcodes), and the
// total encoded length.
func DecodeInst(prog []byte) (Opcode, Value, int, error) {
	if len(prog) == 0 {
		return 0, nil, 0, errors.Wrap(ErrProg, "empty instruction")
	}
	op := Opcode(prog[0])
	switch op {
	case OpPushInt:
		v, n := binary.Varint(prog[1:])
		if n <= 0 {
			return 0, nil, 0, errors.Wrap(ErrProg, "bad int immediate")
		}
		return op, Int(v), 1 + n, nil
	case OpPushBytes:
		l, n := binary.Uvarint(prog[1:])
		// check l on its own first; summing first can overflow uint64
		if n <= 0 || l > uint64(len(prog)) || uint64(len(prog))-uint64(n)-1 < l {
			return 0, nil, 0, errors.Wrap(ErrProg, "bad bytes immediate")
		}
		b := make([]byte, l)
		copy(b, prog[1+n:1+n+int(l)])
		return op, Bytes(b), 1 + n + int(l), nil
	case OpPushID:
		if len(prog) < 33 {
			return 0, nil, 0, errors.Wrap(ErrProg, "bad id immediate")
		}
		var id ID
		copy(id[:], prog[1:33])
		return op, id, 33, nil
	default:
		if _, ok := opNames[op]; !ok {
			return 0, nil, 0, errors.Wrapf(ErrProg, "unknown opcode %#x", byte(op))
		}
		return op, nil, 1, nil
	}
}

// CheckProgram verifies that prog decodes cleanly end to end.
func CheckProgram(prog []byte) error {
	for pc := 0; pc < len(prog); {
		_, _, n, err := DecodeInst(prog[pc:])
		if err != nil {
			return errors.Wrapf(err, "at offset %d", pc)
		}
		pc += n
	}
	return nil
}

// Disassemble renders prog as space-separated mnemonics, mainly for
// logs and test failures.
func Disassemble(prog []byte) string {
	var out []byte
	for pc := 0; pc < len(prog); {
		op, imm, n, err := DecodeInst(prog[pc:])
		if err != nil {
			return string(out) + " <bad>"
		}
		if len(out) > 0 {
			out = append(out, ' ')
		}
		out = append(out, Name(op)...)
		if imm != nil {
			out = append(out, fmt.Sprintf("(%v)", imm)...)
		}
		pc += n
	}
	return string(out)
}
