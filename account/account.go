/*
Package account implements the account model: an immutable identity
bound to a code capability set, ordered typed storage slots, an asset
vault, and a replay-preventing nonce. Accounts change only by applying
a Delta produced by the transaction executor.
*/
package account

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/chain/txvm/crypto/ed25519"
	"github.com/chain/txvm/crypto/sha3"
	"github.com/chain/txvm/errors"

	"notechain/asset"
	"notechain/vm"
)

var (
	// ErrNonceMismatch is returned when a delta's expected prior
	// nonce does not equal the account's current nonce.
	ErrNonceMismatch = errors.New("nonce mismatch")

	// ErrType is returned when a delta writes a value whose type
	// differs from the slot's type fixed at creation.
	ErrType = errors.New("storage slot type mismatch")

	// ErrConflict is returned when a delta targets a different
	// account or reshapes storage.
	ErrConflict = errors.New("conflicting delta")

	// ErrSlotRange is returned when reading a storage slot that does
	// not exist.
	ErrSlotRange = errors.New("storage slot out of range")
)

// ID identifies an account. It is derived from the account's initial
// contents at creation and never changes.
type ID [32]byte

func (id ID) String() string { return hex.EncodeToString(id[:]) }

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	bits, err := hex.DecodeString(string(b))
	if err != nil {
		return errors.Wrap(err, "decoding account id")
	}
	if len(bits) != 32 {
		return fmt.Errorf("account id has %d bytes, want 32", len(bits))
	}
	copy(id[:], bits)
	return nil
}

// CodeKind selects an account's capability set.
type CodeKind int

// The code kinds. Dispatch on these is a tagged-union match; there is
// no account subclassing.
const (
	// Wallet accounts hold and move assets: vault add/remove, note
	// creation, receiving escrowed note assets.
	Wallet CodeKind = iota

	// Counter accounts expose storage only; any vault operation is a
	// capability violation.
	Counter

	// Faucet accounts have wallet capabilities plus issuance: they
	// may mint and burn the one asset kind equal to their own ID.
	Faucet

	// Custom accounts run an arbitrary entry program with wallet
	// capabilities plus storage writes.
	Custom
)

func (k CodeKind) String() string {
	switch k {
	case Wallet:
		return "wallet"
	case Counter:
		return "counter"
	case Faucet:
		return "faucet"
	case Custom:
		return "custom"
	}
	return fmt.Sprintf("codekind(%d)", int(k))
}

// Code is an account's executable capability set. Entry is the
// program run at the start of every transaction the account
// initiates; it is empty for the built-in kinds.
type Code struct {
	Kind  CodeKind `json:"kind"`
	Entry []byte   `json:"entry,omitempty"`
}

// Slot is one typed storage slot. The slot's type is fixed when the
// account is created; only the value changes.
type Slot struct {
	Val vm.Value
}

// Type returns the slot's fixed type.
func (s Slot) Type() vm.Type { return s.Val.Type() }

// MarshalJSON implements json.Marshaler.
func (s Slot) MarshalJSON() ([]byte, error) {
	return vm.MarshalValue(s.Val)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Slot) UnmarshalJSON(b []byte) error {
	v, err := vm.UnmarshalValue(b)
	if err != nil {
		return err
	}
	s.Val = v
	return nil
}

// Account is one ledger account. Mutate it only through ApplyDelta.
type Account struct {
	ID      ID                `json:"id"`
	Code    Code              `json:"code"`
	Storage []Slot            `json:"storage"`
	Vault   *asset.Vault      `json:"vault"`
	Nonce   uint64            `json:"nonce"`
	AuthKey ed25519.PublicKey `json:"auth_key,omitempty"`
}

// New creates an account from its code, initial storage, and optional
// auth key. The ID commits to all three, so identical creations
// collide by construction and distinct ones do not.
func New(code Code, storage []Slot, authKey ed25519.PublicKey) (*Account, error) {
	if code.Kind != Custom && len(code.Entry) > 0 {
		return nil, errors.New("entry program on a built-in code kind")
	}
	if len(code.Entry) > 0 {
		if err := vm.CheckProgram(code.Entry); err != nil {
			return nil, errors.Wrap(err, "checking entry program")
		}
	}

	h := sha3.New256()
	h.Write([]byte("notechain.account"))
	h.Write([]byte{byte(code.Kind)})
	h.Write(code.Entry)
	h.Write(authKey)
	var enc []byte
	for _, s := range storage {
		enc = vm.AppendValue(enc[:0], s.Val)
		h.Write(enc)
	}
	var id ID
	h.Sum(id[:0])

	a := &Account{
		ID:      id,
		Code:    code,
		Storage: append([]Slot{}, storage...),
		Vault:   asset.NewVault(),
		AuthKey: authKey,
	}
	return a, nil
}

// ReadStorage returns the value in the given slot.
func (a *Account) ReadStorage(slot int64) (vm.Value, error) {
	if slot < 0 || slot >= int64(len(a.Storage)) {
		return nil, errors.Wrapf(ErrSlotRange, "slot %d of %d", slot, len(a.Storage))
	}
	return a.Storage[slot].Val, nil
}

// Copy returns an independent copy of the account.
func (a *Account) Copy() *Account {
	c := *a
	c.Storage = append([]Slot{}, a.Storage...)
	c.Vault = a.Vault.Copy()
	c.AuthKey = append(ed25519.PublicKey{}, a.AuthKey...)
	if len(c.AuthKey) == 0 {
		c.AuthKey = nil
	}
	return &c
}

var _ json.Marshaler = Slot{}
