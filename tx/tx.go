/*
Package tx implements the transaction builder and executor. Build
loads an account and a set of input notes, runs the account's code
entry, each input note's script, and an optional transaction script
through the execution engine against one effect buffer, and emits a
Transaction: the initiator's new state delta plus the output notes.
Commit applies a transaction to an explicit ledger state
all-or-nothing, with nonce and nullifier checks acting as optimistic
concurrency guards.
*/
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/chain/txvm/crypto/ed25519"
	"github.com/chain/txvm/crypto/sha3"
	"github.com/chain/txvm/errors"

	"notechain/account"
	"notechain/asset"
	"notechain/note"
	"notechain/vm"
)

var (
	// ErrValidation is returned for malformed transactions: unknown
	// initiator, bad scripts, inconsistent IDs, bad signatures.
	ErrValidation = errors.New("transaction validation failed")

	// ErrDoubleSpend is returned when an input note is not
	// committed-unconsumed or its nullifier is already recorded. The
	// caller may rebuild against fresh state and retry.
	ErrDoubleSpend = errors.New("double spend")

	// ErrConservation is returned when a transaction's asset flows do
	// not balance per kind outside the mint/burn paths.
	ErrConservation = errors.New("asset conservation violated")

	// ErrCommit is returned for ledger-layer commit failures, e.g. a
	// conflicting concurrent commit. Retryable by rebuilding.
	ErrCommit = errors.New("commit rejected")
)

// ID identifies a transaction: a hash of its full content.
type ID [32]byte

func (id ID) String() string { return hex.EncodeToString(id[:]) }

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return []byte(hex.EncodeToString(id[:])), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	bits, err := hex.DecodeString(string(b))
	if err != nil {
		return errors.Wrap(err, "decoding tx id")
	}
	if len(bits) != 32 {
		return fmt.Errorf("tx id has %d bytes, want 32", len(bits))
	}
	copy(id[:], bits)
	return nil
}

// Transaction is one fully executed, not-necessarily-committed state
// transition. Exactly one account (the initiator) mutates; every
// other effect travels as an output note.
type Transaction struct {
	Initiator   account.ID    `json:"initiator"`
	InputNotes  []*note.Note  `json:"input_notes,omitempty"`
	Script      []byte        `json:"script,omitempty"`
	OutputNotes []*note.Note  `json:"output_notes,omitempty"`
	Delta       account.Delta `json:"delta"`

	// PriorVault is the initiator's vault as observed at build time.
	// It makes the transaction auditable on its own and lets commit
	// detect that the vault moved underneath the builder.
	PriorVault *asset.Vault `json:"prior_vault"`

	// Minted and Burned record privileged issuance so conservation
	// remains checkable.
	Minted []asset.Asset `json:"minted,omitempty"`
	Burned []asset.Asset `json:"burned,omitempty"`

	ID  ID     `json:"id"`
	Sig []byte `json:"sig,omitempty"`

	// SeqNum is assigned at commit; it is not part of the ID.
	SeqNum uint64 `json:"seqnum,omitempty"`
}

// contentID hashes the transaction's content. SeqNum and Sig are
// excluded: the signature covers the ID, and the sequence number is
// assigned by the ledger after the fact.
func (t *Transaction) contentID() ID {
	h := sha3.New256()
	h.Write([]byte("notechain.tx"))
	h.Write(t.Initiator[:])

	var tmp [binary.MaxVarintLen64]byte
	writeUvarint := func(n uint64) {
		l := binary.PutUvarint(tmp[:], n)
		h.Write(tmp[:l])
	}

	writeUvarint(uint64(len(t.InputNotes)))
	for _, n := range t.InputNotes {
		h.Write(n.ID[:])
	}

	writeUvarint(uint64(len(t.Script)))
	h.Write(t.Script)

	writeUvarint(uint64(len(t.OutputNotes)))
	for _, n := range t.OutputNotes {
		h.Write(n.ID[:])
	}

	writeUvarint(t.Delta.PriorNonce)
	writeUvarint(uint64(len(t.Delta.Storage)))
	var enc []byte
	for _, s := range t.Delta.Storage {
		enc = appendSlot(enc[:0], s)
		h.Write(enc)
	}
	writeVault := func(v *asset.Vault) {
		assets := v.Assets()
		writeUvarint(uint64(len(assets)))
		for _, a := range assets {
			writeAsset(h.Write, tmp[:], a)
		}
	}
	writeVault(t.Delta.Vault)
	writeVault(t.PriorVault)

	writeUvarint(uint64(len(t.Minted)))
	for _, a := range t.Minted {
		writeAsset(h.Write, tmp[:], a)
	}
	writeUvarint(uint64(len(t.Burned)))
	for _, a := range t.Burned {
		writeAsset(h.Write, tmp[:], a)
	}

	var id ID
	h.Sum(id[:0])
	return id
}

func appendSlot(dst []byte, s account.Slot) []byte {
	return vm.AppendValue(dst, s.Val)
}

func writeAsset(w func([]byte) (int, error), tmp []byte, a asset.Asset) {
	if a.Fungible {
		w([]byte{1})
		w(a.Kind[:])
		l := binary.PutVarint(tmp, a.Amount)
		w(tmp[:l])
	} else {
		w([]byte{0})
		w(a.Kind[:])
		w(a.Token[:])
	}
}

// sigMsg is what the initiator signs: a domain tag plus the tx ID.
func sigMsg(id ID) []byte {
	return append([]byte("notechain.txsig"), id[:]...)
}

// Sign attaches the initiator's authorization over the transaction ID.
func (t *Transaction) Sign(prv ed25519.PrivateKey) {
	t.Sig = ed25519.Sign(prv, sigMsg(t.ID))
}

// CheckSig verifies the transaction's signature against the given
// auth key. A nil key means the account requires no authorization.
func (t *Transaction) CheckSig(pub ed25519.PublicKey) error {
	if len(pub) == 0 {
		return nil
	}
	if !ed25519.Verify(pub, sigMsg(t.ID), t.Sig) {
		return errors.Wrapf(ErrValidation, "bad signature on tx %s", t.ID)
	}
	return nil
}

// Check verifies the transaction's internal consistency: note IDs
// match note contents and the transaction ID matches the transaction.
func (t *Transaction) Check() error {
	for _, n := range t.InputNotes {
		if err := n.Check(); err != nil {
			return errors.Wrap(ErrValidation, err.Error())
		}
	}
	for _, n := range t.OutputNotes {
		if err := n.Check(); err != nil {
			return errors.Wrap(ErrValidation, err.Error())
		}
	}
	if t.PriorVault == nil || t.Delta.Vault == nil {
		return errors.Wrap(ErrValidation, "missing vault state")
	}
	if got := t.contentID(); got != t.ID {
		return errors.Wrapf(ErrValidation, "tx id %s does not match content id %s", t.ID, got)
	}
	return nil
}

// Marshal and Unmarshal are the wire codec used by the submission
// layer; the ID is re-derived and checked on the far side via Check.

// Marshal encodes the transaction as JSON.
func (t *Transaction) Marshal() ([]byte, error) {
	b, err := json.Marshal(t)
	return b, errors.Wrap(err, "marshaling tx")
}

// Unmarshal decodes a transaction encoded by Marshal.
func Unmarshal(b []byte) (*Transaction, error) {
	t := new(Transaction)
	if err := json.Unmarshal(b, t); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}
	return t, nil
}
