package vm

import (
	"github.com/chain/txvm/errors"
	"github.com/chain/txvm/math/checked"

	"notechain/asset"
)

// DefaultRunlimit bounds the number of instructions a single program
// may execute.
const DefaultRunlimit = 10000

var (
	// ErrExecution is the root of every script-level failure. A
	// transaction containing a script that fails with ErrExecution is
	// aborted and must not be retried unchanged.
	ErrExecution = errors.New("script execution failed")

	// ErrCapability is returned when a script attempts an operation
	// outside the executing account's granted authority.
	ErrCapability = errors.New("operation outside account capability")

	// ErrUnderflow is returned when an op pops from an empty stack.
	ErrUnderflow = errors.New("stack underflow")

	// ErrType is returned when a stack item has a different type than
	// the op expects.
	ErrType = errors.New("invalid item type")

	// ErrRunlimit is returned when a program exceeds its instruction
	// budget.
	ErrRunlimit = errors.New("runlimit exhausted")

	// ErrVerifyFailed is returned by the verify op on a zero value.
	ErrVerifyFailed = errors.New("verify failed")

	// ErrResidue is returned when a program leaves items on the stack.
	ErrResidue = errors.New("residue on stack")
)

// VM executes one program against a Host. A fresh VM is used per
// program; the accumulated effects live in the Host, so a transaction
// can run several programs against one effect buffer.
type VM struct {
	host     Host
	runlimit int64
	stack    []Value
	opcode   Opcode
}

type vmError struct{ err error }

// Exec interprets prog against host with the given runlimit
// (DefaultRunlimit if runlimit is 0). Execution is single-threaded
// and deterministic. Any failure is reported wrapped under
// ErrExecution, except capability violations which surface
// ErrCapability as the root.
func Exec(prog []byte, host Host, runlimit int64) (err error) {
	if runlimit == 0 {
		runlimit = DefaultRunlimit
	}
	vm := &VM{host: host, runlimit: runlimit}

	defer func() {
		if r := recover(); r != nil {
			ve, ok := r.(vmError)
			if !ok {
				panic(r)
			}
			err = ve.err
			if errors.Root(err) != ErrCapability {
				err = errors.Wrap(errors.Wrap(ErrExecution, Name(vm.opcode)), err.Error())
			}
		}
	}()

	for pc := 0; pc < len(prog); {
		op, imm, n, errd := DecodeInst(prog[pc:])
		if errd != nil {
			return errors.Wrap(errors.Wrap(ErrExecution, "decoding"), errd.Error())
		}
		vm.opcode = op
		vm.charge()
		vm.step(op, imm)
		pc += n
	}
	if len(vm.stack) != 0 {
		return errors.Wrapf(errors.Wrap(ErrExecution, "exit"), "%s (%d items)", ErrResidue, len(vm.stack))
	}
	return nil
}

func (vm *VM) fail(err error) {
	panic(vmError{err: err})
}

func (vm *VM) charge() {
	vm.runlimit--
	if vm.runlimit < 0 {
		vm.fail(ErrRunlimit)
	}
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	if len(vm.stack) == 0 {
		vm.fail(ErrUnderflow)
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) popInt() Int {
	v := vm.pop()
	n, ok := v.(Int)
	if !ok {
		vm.fail(errors.Wrapf(ErrType, "got %s, want int", v.Type()))
	}
	return n
}

func (vm *VM) popBytes() Bytes {
	v := vm.pop()
	b, ok := v.(Bytes)
	if !ok {
		vm.fail(errors.Wrapf(ErrType, "got %s, want bytes", v.Type()))
	}
	return b
}

func (vm *VM) popID() ID {
	v := vm.pop()
	id, ok := v.(ID)
	if !ok {
		vm.fail(errors.Wrapf(ErrType, "got %s, want id", v.Type()))
	}
	return id
}

// popAsset pops the (kind, amount, token) triple pushed by
// Builder.PushAsset, token topmost.
func (vm *VM) popAsset() asset.Asset {
	token := vm.popID()
	amount := vm.popInt()
	kind := vm.popID()
	var a asset.Asset
	if token == (ID{}) {
		a = asset.NewFungible(asset.Kind(kind), int64(amount))
	} else {
		if amount != 0 {
			vm.fail(errors.Wrap(asset.ErrAmount, "non-fungible asset with amount"))
		}
		a = asset.NewNonFungible(asset.Kind(kind), asset.TokenID(token))
	}
	if err := a.Check(); err != nil {
		vm.fail(err)
	}
	return a
}

func (vm *VM) hosterr(err error) {
	if err != nil {
		vm.fail(err)
	}
}

func (vm *VM) step(op Opcode, imm Value) {
	switch op {
	case OpPushInt, OpPushBytes, OpPushID:
		vm.push(imm)

	case OpDrop:
		vm.pop()
	case OpDup:
		v := vm.pop()
		vm.push(v)
		vm.push(v)
	case OpSwap:
		a := vm.pop()
		b := vm.pop()
		vm.push(a)
		vm.push(b)

	case OpAdd:
		vm.binOp(checked.AddInt64)
	case OpSub:
		vm.binOp(checked.SubInt64)
	case OpMul:
		vm.binOp(checked.MulInt64)

	case OpEq:
		b := vm.pop()
		a := vm.pop()
		if ValuesEqual(a, b) {
			vm.push(Int(1))
		} else {
			vm.push(Int(0))
		}
	case OpVerify:
		if vm.popInt() == 0 {
			vm.fail(ErrVerifyFailed)
		}

	case OpAccountID:
		vm.push(vm.host.AccountID())
	case OpNoteInput:
		i := vm.popInt()
		v, err := vm.host.NoteInput(int64(i))
		vm.hosterr(err)
		vm.push(v)
	case OpNoteInputCount:
		n, err := vm.host.NoteInputCount()
		vm.hosterr(err)
		vm.push(Int(n))

	case OpStorageGet:
		slot := vm.popInt()
		v, err := vm.host.StorageGet(int64(slot))
		vm.hosterr(err)
		vm.push(v)
	case OpStorageSet:
		slot := vm.popInt()
		v := vm.pop()
		vm.hosterr(vm.host.StorageSet(int64(slot), v))

	case OpAddAsset:
		vm.hosterr(vm.host.AddAsset(vm.popAsset()))
	case OpRemoveAsset:
		vm.hosterr(vm.host.RemoveAsset(vm.popAsset()))
	case OpReceiveAssets:
		vm.hosterr(vm.host.ReceiveNoteAssets())
	case OpMoveAsset:
		a := vm.popAsset()
		noteIdx := vm.popInt()
		vm.hosterr(vm.host.MoveAssetToNote(a, int64(noteIdx)))
	case OpCreateNote:
		tag := vm.popInt()
		aux := vm.popInt()
		n := vm.popInt()
		if n < 0 || int64(len(vm.stack)) < int64(n) {
			vm.fail(ErrUnderflow)
		}
		inputs := make([]Value, n)
		for i := int64(n) - 1; i >= 0; i-- {
			inputs[i] = vm.pop()
		}
		script := vm.popBytes()
		idx, err := vm.host.CreateNote(script, inputs, int64(tag), int64(aux))
		vm.hosterr(err)
		vm.push(Int(idx))
	case OpMint:
		vm.hosterr(vm.host.Mint(vm.popAsset()))
	case OpBurn:
		vm.hosterr(vm.host.Burn(vm.popAsset()))

	case OpLog:
		vm.host.Log(vm.pop())
	}
}

func (vm *VM) binOp(f func(a, b int64) (int64, bool)) {
	b := vm.popInt()
	a := vm.popInt()
	res, ok := f(int64(a), int64(b))
	if !ok {
		vm.fail(errors.Wrap(checked.ErrOverflow, Name(vm.opcode)))
	}
	vm.push(Int(res))
}
