/*
Package vm implements the deterministic script execution engine.
Scripts are compact bytecode programs interpreted by a small stack
machine against a Host, which gives them a read/write view of exactly
one account's storage and vault plus the note currently being
consumed. Every externally visible mutation a script performs is
recorded as an ordered Effect; re-running the same program against the
same host state always yields the same effect sequence.
*/
package vm

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/chain/txvm/errors"
)

// Type identifies the runtime type of a Value and of an account
// storage slot.
type Type int

// Storage slot and stack value types.
const (
	TypeInt Type = iota
	TypeBytes
	TypeID
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBytes:
		return "bytes"
	case TypeID:
		return "id"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Value is a typed stack item: Int, Bytes, or ID.
type Value interface {
	value()
	Type() Type
}

// Int is a signed 64-bit stack value.
type Int int64

// Bytes is a byte-string stack value.
type Bytes []byte

// ID is a 32-byte identifier stack value (account IDs, asset kinds,
// token IDs).
type ID [32]byte

func (Int) value()   {}
func (Bytes) value() {}
func (ID) value()    {}

// Type implements Value.
func (Int) Type() Type { return TypeInt }

// Type implements Value.
func (Bytes) Type() Type { return TypeBytes }

// Type implements Value.
func (ID) Type() Type { return TypeID }

// ValuesEqual reports deep equality of two values, including type.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case ID:
		bv, ok := b.(ID)
		return ok && av == bv
	}
	return false
}

type valueJSON struct {
	Int   *int64 `json:"int,omitempty"`
	Bytes string `json:"bytes,omitempty"`
	ID    string `json:"id,omitempty"`
}

// MarshalValue encodes a value as JSON.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Int:
		n := int64(val)
		return json.Marshal(valueJSON{Int: &n})
	case Bytes:
		return json.Marshal(valueJSON{Bytes: hex.EncodeToString(val)})
	case ID:
		return json.Marshal(valueJSON{ID: hex.EncodeToString(val[:])})
	}
	return nil, fmt.Errorf("unknown value %v", v)
}

// UnmarshalValue decodes a value produced by MarshalValue.
func UnmarshalValue(b []byte) (Value, error) {
	var vj valueJSON
	if err := json.Unmarshal(b, &vj); err != nil {
		return nil, err
	}
	switch {
	case vj.Int != nil:
		return Int(*vj.Int), nil
	case vj.ID != "":
		bits, err := hex.DecodeString(vj.ID)
		if err != nil {
			return nil, errors.Wrap(err, "decoding id value")
		}
		if len(bits) != 32 {
			return nil, fmt.Errorf("id value has %d bytes, want 32", len(bits))
		}
		var id ID
		copy(id[:], bits)
		return id, nil
	default:
		bits, err := hex.DecodeString(vj.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "decoding bytes value")
		}
		return Bytes(bits), nil
	}
}

// MarshalValues encodes an ordered value sequence as a JSON array.
func MarshalValues(vals []Value) ([]byte, error) {
	raws := make([]json.RawMessage, len(vals))
	for i, v := range vals {
		r, err := MarshalValue(v)
		if err != nil {
			return nil, err
		}
		raws[i] = r
	}
	return json.Marshal(raws)
}

// UnmarshalValues decodes a JSON array produced by MarshalValues.
func UnmarshalValues(b []byte) ([]Value, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, err
	}
	vals := make([]Value, len(raws))
	for i, r := range raws {
		v, err := UnmarshalValue(r)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
