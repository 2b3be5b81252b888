package vm

import (
	"reflect"
	"testing"

	"github.com/chain/txvm/errors"
	"github.com/davecgh/go-spew/spew"

	"notechain/asset"
)

// testHost is a minimal in-memory host for exercising the
// interpreter in isolation.
type testHost struct {
	id      ID
	storage []Value
	vault   *asset.Vault
	inputs  []Value
	escrow  *asset.Vault
	notes   int64
	effects []Effect
}

func newTestHost() *testHost {
	return &testHost{
		id:      ID{1},
		storage: []Value{Int(0)},
		vault:   asset.NewVault(),
		escrow:  asset.NewVault(),
	}
}

func (h *testHost) AccountID() ID { return h.id }

func (h *testHost) NoteInput(i int64) (Value, error) {
	if i < 0 || i >= int64(len(h.inputs)) {
		return nil, errors.New("input out of range")
	}
	return h.inputs[i], nil
}

func (h *testHost) NoteInputCount() (int64, error) { return int64(len(h.inputs)), nil }

func (h *testHost) StorageGet(slot int64) (Value, error) {
	if slot < 0 || slot >= int64(len(h.storage)) {
		return nil, errors.New("slot out of range")
	}
	return h.storage[slot], nil
}

func (h *testHost) StorageSet(slot int64, v Value) error {
	if slot < 0 || slot >= int64(len(h.storage)) {
		return errors.New("slot out of range")
	}
	h.storage[slot] = v
	h.effects = append(h.effects, StorageWrite{Slot: slot, Val: v})
	return nil
}

func (h *testHost) AddAsset(a asset.Asset) error {
	if err := h.vault.Add(a); err != nil {
		return err
	}
	h.effects = append(h.effects, VaultDeposit{Asset: a})
	return nil
}

func (h *testHost) RemoveAsset(a asset.Asset) error {
	if err := h.vault.Remove(a); err != nil {
		return err
	}
	h.effects = append(h.effects, VaultWithdraw{Asset: a})
	return nil
}

func (h *testHost) ReceiveNoteAssets() error {
	for _, a := range h.escrow.Assets() {
		h.escrow.Remove(a)
		if err := h.vault.Add(a); err != nil {
			return err
		}
		h.effects = append(h.effects, VaultDeposit{Asset: a})
	}
	return nil
}

func (h *testHost) MoveAssetToNote(a asset.Asset, noteIdx int64) error {
	if err := h.vault.Remove(a); err != nil {
		return err
	}
	h.effects = append(h.effects, VaultWithdraw{Asset: a}, NoteAssetMove{Note: noteIdx, Asset: a})
	return nil
}

func (h *testHost) CreateNote(script []byte, inputs []Value, tag, aux int64) (int64, error) {
	h.effects = append(h.effects, NoteCreate{Script: script, Inputs: inputs, Tag: tag, Aux: aux})
	h.notes++
	return h.notes - 1, nil
}

func (h *testHost) Mint(a asset.Asset) error {
	return errors.Wrap(ErrCapability, "test host cannot mint")
}

func (h *testHost) Burn(a asset.Asset) error {
	return errors.Wrap(ErrCapability, "test host cannot burn")
}

func (h *testHost) Log(v Value) {
	h.effects = append(h.effects, LogEntry{Val: v})
}

func TestArithmetic(t *testing.T) {
	prog := new(Builder).
		PushInt(20).PushInt(22).Op(OpAdd).
		PushInt(42).Op(OpEq).Op(OpVerify).
		Build()
	if err := Exec(prog, newTestHost(), 0); err != nil {
		t.Fatalf("executing %s: %s", Disassemble(prog), err)
	}
}

func TestVerifyFailure(t *testing.T) {
	prog := new(Builder).
		PushInt(1).PushInt(2).Op(OpEq).Op(OpVerify).
		Build()
	err := Exec(prog, newTestHost(), 0)
	if errors.Root(err) != ErrExecution {
		t.Fatalf("got %v, want %s", err, ErrExecution)
	}
}

func TestOverflow(t *testing.T) {
	prog := new(Builder).
		PushInt(1 << 62).PushInt(1 << 62).Op(OpAdd).Op(OpDrop).
		Build()
	err := Exec(prog, newTestHost(), 0)
	if errors.Root(err) != ErrExecution {
		t.Fatalf("got %v, want %s", err, ErrExecution)
	}
}

func TestUnderflow(t *testing.T) {
	prog := new(Builder).Op(OpAdd).Build()
	err := Exec(prog, newTestHost(), 0)
	if errors.Root(err) != ErrExecution {
		t.Fatalf("got %v, want %s", err, ErrExecution)
	}
}

func TestResidue(t *testing.T) {
	prog := new(Builder).PushInt(7).Build()
	err := Exec(prog, newTestHost(), 0)
	if errors.Root(err) != ErrExecution {
		t.Fatalf("got %v, want %s", err, ErrExecution)
	}
}

func TestRunlimit(t *testing.T) {
	b := new(Builder)
	for i := 0; i < 10; i++ {
		b.PushInt(int64(i)).Op(OpDrop)
	}
	err := Exec(b.Build(), newTestHost(), 5)
	if errors.Root(err) != ErrExecution {
		t.Fatalf("got %v, want %s", err, ErrExecution)
	}
}

func TestCapabilityRoot(t *testing.T) {
	var kind ID
	kind[0] = 9
	prog := new(Builder).
		PushID(kind).PushInt(5).PushID(ID{}).Op(OpMint).
		Build()
	err := Exec(prog, newTestHost(), 0)
	if errors.Root(err) != ErrCapability {
		t.Fatalf("got %v, want %s", err, ErrCapability)
	}
}

func TestMalformedProgram(t *testing.T) {
	err := Exec([]byte{0xff}, newTestHost(), 0)
	if errors.Root(err) != ErrExecution {
		t.Fatalf("got %v, want %s", err, ErrExecution)
	}

	// unknown opcode, truncated immediates, and a pushbytes length
	// near 2^64 that must not wrap the bounds check
	huge := append([]byte{byte(OpPushBytes)}, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01)
	huge = append(huge, make([]byte, 16)...)

	cases := [][]byte{
		{0xff},
		{byte(OpPushBytes)},
		{byte(OpPushBytes), 5},
		{byte(OpPushID), 1, 2},
		{byte(OpPushInt), 0x80},
		huge,
	}
	for _, prog := range cases {
		if err := CheckProgram(prog); errors.Root(err) != ErrProg {
			t.Errorf("CheckProgram(%x): got %v, want %s", prog, err, ErrProg)
		}
	}
}

// Re-executing the same program against the same host state must
// yield the same effect sequence.
func TestDeterministicEffects(t *testing.T) {
	var kind asset.Kind
	kind[0] = 3
	a := asset.NewFungible(kind, 100)

	prog := new(Builder).
		PushInt(0).Op(OpStorageGet).PushInt(1).Op(OpAdd).PushInt(0).Op(OpStorageSet).
		PushAsset(a).Op(OpAddAsset).
		PushInt(77).Op(OpLog).
		Build()

	run := func() []Effect {
		h := newTestHost()
		if err := Exec(prog, h, 0); err != nil {
			t.Fatalf("executing %s: %s", Disassemble(prog), err)
		}
		return h.effects
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("effect sequences differ:\n%s\n%s", spew.Sdump(first), spew.Sdump(second))
	}
	if len(first) != 3 {
		t.Fatalf("got %d effects, want 3", len(first))
	}
}

func TestCreateNoteStackOrder(t *testing.T) {
	inner := new(Builder).Op(OpReceiveAssets).Build()
	prog := new(Builder).
		PushBytes(inner).
		PushID(ID{42}).
		PushInt(1).  // input count
		PushInt(7).  // aux
		PushInt(11). // tag
		Op(OpCreateNote).
		Op(OpDrop). // note index
		Build()

	h := newTestHost()
	if err := Exec(prog, h, 0); err != nil {
		t.Fatalf("executing %s: %s", Disassemble(prog), err)
	}
	nc, ok := h.effects[0].(NoteCreate)
	if !ok {
		t.Fatalf("first effect is %T, want NoteCreate", h.effects[0])
	}
	if nc.Tag != 11 || nc.Aux != 7 {
		t.Errorf("got tag %d aux %d, want 11 and 7", nc.Tag, nc.Aux)
	}
	if len(nc.Inputs) != 1 || !ValuesEqual(nc.Inputs[0], ID{42}) {
		t.Errorf("got inputs %v, want [ID{42}]", nc.Inputs)
	}
	if string(nc.Script) != string(inner) {
		t.Errorf("created note script does not round-trip")
	}
}
