package asset

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/chain/txvm/errors"
	"github.com/chain/txvm/math/checked"
)

// Vault is the set of assets owned by an account or escrowed in a
// note. Fungible amounts of the same kind are merged; non-fungible
// tokens are tracked individually. The zero Vault is not usable; call
// NewVault.
type Vault struct {
	fungible map[Kind]int64
	tokens   map[TokenID]Kind
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{
		fungible: make(map[Kind]int64),
		tokens:   make(map[TokenID]Kind),
	}
}

// Add deposits a into the vault. Fungible amounts combine by checked
// addition; a non-fungible token already present produces
// ErrDuplicate.
func (v *Vault) Add(a Asset) error {
	if err := a.Check(); err != nil {
		return err
	}
	if a.Fungible {
		sum, ok := checked.AddInt64(v.fungible[a.Kind], a.Amount)
		if !ok || sum > MaxAmount {
			return errors.Wrapf(ErrAmount, "balance of %x overflows", a.Kind[:4])
		}
		v.fungible[a.Kind] = sum
		return nil
	}
	if _, ok := v.tokens[a.Token]; ok {
		return errors.Wrapf(ErrDuplicate, "token %x", a.Token[:4])
	}
	v.tokens[a.Token] = a.Kind
	return nil
}

// Remove withdraws a from the vault. It fails with ErrInsufficient if
// the fungible balance would go negative or the token is absent.
func (v *Vault) Remove(a Asset) error {
	if err := a.Check(); err != nil {
		return err
	}
	if a.Fungible {
		rem, ok := checked.SubInt64(v.fungible[a.Kind], a.Amount)
		if !ok || rem < 0 {
			return errors.Wrapf(ErrInsufficient, "have %d of %x, removing %d", v.fungible[a.Kind], a.Kind[:4], a.Amount)
		}
		if rem == 0 {
			delete(v.fungible, a.Kind)
		} else {
			v.fungible[a.Kind] = rem
		}
		return nil
	}
	kind, ok := v.tokens[a.Token]
	if !ok || kind != a.Kind {
		return errors.Wrapf(ErrInsufficient, "token %x not in vault", a.Token[:4])
	}
	delete(v.tokens, a.Token)
	return nil
}

// Merge returns a new vault holding the combined contents of a and b.
// Neither input is modified.
func Merge(a, b *Vault) (*Vault, error) {
	m := a.Copy()
	for _, as := range b.Assets() {
		if err := m.Add(as); err != nil {
			return nil, errors.Wrap(err, "merging vaults")
		}
	}
	return m, nil
}

// Balance reports the fungible balance of the given kind.
func (v *Vault) Balance(kind Kind) int64 {
	return v.fungible[kind]
}

// Contains reports whether the vault holds the given non-fungible
// token under the given kind.
func (v *Vault) Contains(kind Kind, token TokenID) bool {
	k, ok := v.tokens[token]
	return ok && k == kind
}

// Empty reports whether the vault holds no assets.
func (v *Vault) Empty() bool {
	return len(v.fungible) == 0 && len(v.tokens) == 0
}

// Copy returns an independent copy of the vault.
func (v *Vault) Copy() *Vault {
	c := NewVault()
	for k, amt := range v.fungible {
		c.fungible[k] = amt
	}
	for t, k := range v.tokens {
		c.tokens[t] = k
	}
	return c
}

// Assets lists the vault's contents in a deterministic order:
// fungible balances sorted by kind, then tokens sorted by token ID.
func (v *Vault) Assets() []Asset {
	out := make([]Asset, 0, len(v.fungible)+len(v.tokens))
	for k, amt := range v.fungible {
		out = append(out, NewFungible(k, amt))
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Kind[:], out[j].Kind[:]) < 0
	})
	toks := make([]Asset, 0, len(v.tokens))
	for t, k := range v.tokens {
		toks = append(toks, NewNonFungible(k, t))
	}
	sort.Slice(toks, func(i, j int) bool {
		return bytes.Compare(toks[i].Token[:], toks[j].Token[:]) < 0
	})
	return append(out, toks...)
}

// Equal reports whether two vaults hold exactly the same assets.
func (v *Vault) Equal(o *Vault) bool {
	if len(v.fungible) != len(o.fungible) || len(v.tokens) != len(o.tokens) {
		return false
	}
	for k, amt := range v.fungible {
		if o.fungible[k] != amt {
			return false
		}
	}
	for t, k := range v.tokens {
		if o.tokens[t] != k {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the vault as its deterministic asset list.
func (v *Vault) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Assets())
}

// UnmarshalJSON decodes an asset list into the vault.
func (v *Vault) UnmarshalJSON(b []byte) error {
	var assets []Asset
	if err := json.Unmarshal(b, &assets); err != nil {
		return err
	}
	*v = *NewVault()
	for _, a := range assets {
		if err := v.Add(a); err != nil {
			return errors.Wrap(err, "rebuilding vault")
		}
	}
	return nil
}
