/*
Package note implements the note model. A note is a self-contained,
immutable state-transition request: a script, ordered typed inputs,
escrowed assets, and a random serial. Consuming a note executes its
script under the consuming account's authority; the note's nullifier,
recorded at consumption, prevents a second consumption.

Notes never reference live accounts, only content; metadata carries a
routing hint but confers no authority.
*/
package note

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/chain/txvm/crypto/sha3"
	"github.com/chain/txvm/errors"

	"notechain/account"
	"notechain/asset"
	"notechain/vm"
)

// ID identifies a note. It is a deterministic hash of the note's full
// content, including the serial.
type ID [32]byte

// Nullifier is the consumption marker derived from a note's ID. Once
// a nullifier is recorded in ledger state it can never be recorded
// again.
type Nullifier [32]byte

// Serial is the per-note randomness that makes nullifiers unique
// across notes with otherwise identical content.
type Serial [32]byte

func (id ID) String() string { return hex.EncodeToString(id[:]) }

func (n Nullifier) String() string { return hex.EncodeToString(n[:]) }

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return []byte(hex.EncodeToString(id[:])), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error { return unhex32((*[32]byte)(id), b) }

// MarshalText implements encoding.TextMarshaler.
func (n Nullifier) MarshalText() ([]byte, error) { return []byte(hex.EncodeToString(n[:])), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Nullifier) UnmarshalText(b []byte) error { return unhex32((*[32]byte)(n), b) }

// MarshalText implements encoding.TextMarshaler.
func (s Serial) MarshalText() ([]byte, error) { return []byte(hex.EncodeToString(s[:])), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Serial) UnmarshalText(b []byte) error { return unhex32((*[32]byte)(s), b) }

func unhex32(dst *[32]byte, b []byte) error {
	bits, err := hex.DecodeString(string(b))
	if err != nil {
		return errors.Wrap(err, "decoding hex")
	}
	if len(bits) != 32 {
		return fmt.Errorf("got %d bytes, want 32", len(bits))
	}
	copy(dst[:], bits)
	return nil
}

// RandomSerial draws a serial from the system randomness source.
// Serials must be unpredictable: a predictable serial lets an
// attacker precompute nullifiers.
func RandomSerial() (Serial, error) {
	var s Serial
	_, err := rand.Read(s[:])
	return s, errors.Wrap(err, "drawing note serial")
}

// Metadata is the note's routing hint: the sender that created it and
// a tag/aux pair consumers may filter on. It is not part of the note
// ID and carries no authority; only the script decides who can
// consume the note's assets.
type Metadata struct {
	Sender account.ID `json:"sender"`
	Tag    int64      `json:"tag"`
	Aux    int64      `json:"aux"`
}

// Note is one immutable note. Build with New so the ID is always
// consistent with the content.
type Note struct {
	ID       ID           `json:"id"`
	Script   []byte       `json:"script"`
	Inputs   []vm.Value   `json:"-"`
	Assets   *asset.Vault `json:"assets"`
	Serial   Serial       `json:"serial"`
	Metadata Metadata     `json:"metadata"`
}

// New builds a note and derives its ID.
func New(script []byte, inputs []vm.Value, assets *asset.Vault, serial Serial, md Metadata) (*Note, error) {
	if err := vm.CheckProgram(script); err != nil {
		return nil, errors.Wrap(err, "checking note script")
	}
	if assets == nil {
		assets = asset.NewVault()
	}
	n := &Note{
		Script:   append([]byte{}, script...),
		Inputs:   append([]vm.Value{}, inputs...),
		Assets:   assets.Copy(),
		Serial:   serial,
		Metadata: md,
	}
	n.ID = contentID(n.Script, n.Inputs, n.Assets, n.Serial)
	return n, nil
}

// contentID hashes a note's content. Metadata is deliberately
// excluded: two notes differing only in routing hints are the same
// note.
func contentID(script []byte, inputs []vm.Value, assets *asset.Vault, serial Serial) ID {
	h := sha3.New256()
	h.Write([]byte("notechain.note"))

	var tmp [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(tmp[:], uint64(len(script)))
	h.Write(tmp[:l])
	h.Write(script)

	h.Write(vm.AppendValues(nil, inputs))

	for _, a := range assets.Assets() {
		if a.Fungible {
			h.Write([]byte{1})
			h.Write(a.Kind[:])
			l = binary.PutVarint(tmp[:], a.Amount)
			h.Write(tmp[:l])
		} else {
			h.Write([]byte{0})
			h.Write(a.Kind[:])
			h.Write(a.Token[:])
		}
	}

	h.Write(serial[:])

	var id ID
	h.Sum(id[:0])
	return id
}

// Nullifier derives the note's nullifier. It is a pure function of
// the note's content: anyone holding the note can compute it, and
// recomputing it never yields a different value.
func (n *Note) Nullifier() Nullifier {
	h := sha3.New256()
	h.Write([]byte("notechain.nullifier"))
	h.Write(n.ID[:])
	var nf Nullifier
	h.Sum(nf[:0])
	return nf
}

// Check verifies that the note's ID matches its content.
func (n *Note) Check() error {
	if err := vm.CheckProgram(n.Script); err != nil {
		return errors.Wrap(err, "checking note script")
	}
	if got := contentID(n.Script, n.Inputs, n.Assets, n.Serial); got != n.ID {
		return fmt.Errorf("note id %s does not match content id %s", n.ID, got)
	}
	return nil
}

// Copy returns an independent copy of the note.
func (n *Note) Copy() *Note {
	c := *n
	c.Script = append([]byte{}, n.Script...)
	c.Inputs = append([]vm.Value{}, n.Inputs...)
	c.Assets = n.Assets.Copy()
	return &c
}

type noteJSON struct {
	ID       ID              `json:"id"`
	Script   []byte          `json:"script"`
	Inputs   json.RawMessage `json:"inputs"`
	Assets   *asset.Vault    `json:"assets"`
	Serial   Serial          `json:"serial"`
	Metadata Metadata        `json:"metadata"`
}

// MarshalJSON implements json.Marshaler.
func (n *Note) MarshalJSON() ([]byte, error) {
	inputs, err := vm.MarshalValues(n.Inputs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(noteJSON{
		ID:       n.ID,
		Script:   n.Script,
		Inputs:   inputs,
		Assets:   n.Assets,
		Serial:   n.Serial,
		Metadata: n.Metadata,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Note) UnmarshalJSON(b []byte) error {
	var nj noteJSON
	if err := json.Unmarshal(b, &nj); err != nil {
		return err
	}
	inputs, err := vm.UnmarshalValues(nj.Inputs)
	if err != nil {
		return errors.Wrap(err, "decoding note inputs")
	}
	if nj.Assets == nil {
		nj.Assets = asset.NewVault()
	}
	*n = Note{
		ID:       nj.ID,
		Script:   nj.Script,
		Inputs:   inputs,
		Assets:   nj.Assets,
		Serial:   nj.Serial,
		Metadata: nj.Metadata,
	}
	return nil
}
