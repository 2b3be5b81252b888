/*
Package asset implements the asset model: typed fungible and
non-fungible assets and the Vault multiset that accounts and notes
hold them in. All vault arithmetic is overflow-checked and conserving;
issuance and destruction happen only through the transaction
executor's mint/burn entry points.
*/
package asset

import (
	"encoding/hex"
	"fmt"

	"github.com/chain/txvm/errors"
)

// MaxAmount is the largest representable quantity of a single
// fungible kind.
const MaxAmount = int64(1)<<62 - 1

var (
	// ErrInsufficient is returned when removing more of a fungible
	// kind than a vault holds, or a non-fungible token the vault does
	// not hold.
	ErrInsufficient = errors.New("insufficient asset")

	// ErrDuplicate is returned when adding a non-fungible token that
	// is already present.
	ErrDuplicate = errors.New("duplicate non-fungible asset")

	// ErrAmount is returned for amounts outside [1, MaxAmount] on
	// fungible assets, or nonzero amounts on non-fungible ones.
	ErrAmount = errors.New("invalid asset amount")
)

// Kind identifies an asset class. For fungible assets it is the ID of
// the faucet account entitled to issue the kind.
type Kind [32]byte

// TokenID identifies a single non-fungible token within its kind.
type TokenID [32]byte

func (k Kind) String() string { return hex.EncodeToString(k[:]) }

// MarshalText implements encoding.TextMarshaler, allowing Kind to be
// used as a JSON map key.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(k[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	return decode32((*[32]byte)(k), b)
}

// MarshalText implements encoding.TextMarshaler.
func (t TokenID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(t[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TokenID) UnmarshalText(b []byte) error {
	return decode32((*[32]byte)(t), b)
}

func decode32(dst *[32]byte, b []byte) error {
	bits, err := hex.DecodeString(string(b))
	if err != nil {
		return errors.Wrap(err, "decoding hex id")
	}
	if len(bits) != 32 {
		return fmt.Errorf("got %d bytes, want 32", len(bits))
	}
	copy(dst[:], bits)
	return nil
}

// Asset is a quantity of a fungible kind or a single non-fungible
// token. Exactly one interpretation applies, selected by Fungible.
type Asset struct {
	Fungible bool    `json:"fungible"`
	Kind     Kind    `json:"kind"`
	Amount   int64   `json:"amount,omitempty"`
	Token    TokenID `json:"token,omitempty"`
}

// NewFungible returns a fungible asset of the given kind and amount.
func NewFungible(kind Kind, amount int64) Asset {
	return Asset{Fungible: true, Kind: kind, Amount: amount}
}

// NewNonFungible returns the non-fungible token of the given kind.
func NewNonFungible(kind Kind, token TokenID) Asset {
	return Asset{Kind: kind, Token: token}
}

// Check validates the asset's internal consistency.
func (a Asset) Check() error {
	if a.Fungible {
		if a.Amount < 1 || a.Amount > MaxAmount {
			return errors.Wrapf(ErrAmount, "fungible amount %d", a.Amount)
		}
		if a.Token != (TokenID{}) {
			return errors.Wrap(ErrAmount, "fungible asset carries a token id")
		}
		return nil
	}
	if a.Amount != 0 {
		return errors.Wrapf(ErrAmount, "non-fungible asset with amount %d", a.Amount)
	}
	return nil
}

func (a Asset) String() string {
	if a.Fungible {
		return fmt.Sprintf("%d of %x", a.Amount, a.Kind[:4])
	}
	return fmt.Sprintf("token %x of %x", a.Token[:4], a.Kind[:4])
}
