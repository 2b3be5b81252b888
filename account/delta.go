package account

import (
	"github.com/chain/txvm/errors"

	"notechain/asset"
)

// Delta is the complete replacement state a committed transaction
// applies to its initiator account. PriorNonce is the nonce the delta
// was computed against; applying a delta built on stale state fails
// rather than clobbering a concurrent update.
type Delta struct {
	AccountID  ID           `json:"account_id"`
	PriorNonce uint64       `json:"prior_nonce"`
	Storage    []Slot       `json:"storage"`
	Vault      *asset.Vault `json:"vault"`
}

// ApplyDelta replaces the account's storage and vault with the
// delta's and increments the nonce by exactly one. It fails, leaving
// the account unchanged, on a wrong account, a stale nonce, a storage
// reshape, or a type-mismatched slot value.
func (a *Account) ApplyDelta(d Delta) error {
	if d.AccountID != a.ID {
		return errors.Wrapf(ErrConflict, "delta for account %s applied to %s", d.AccountID, a.ID)
	}
	if d.PriorNonce != a.Nonce {
		return errors.Wrapf(ErrNonceMismatch, "delta expects nonce %d, account at %d", d.PriorNonce, a.Nonce)
	}
	if len(d.Storage) != len(a.Storage) {
		return errors.Wrapf(ErrConflict, "delta has %d slots, account has %d", len(d.Storage), len(a.Storage))
	}
	for i, s := range d.Storage {
		if s.Type() != a.Storage[i].Type() {
			return errors.Wrapf(ErrType, "slot %d is %s, delta writes %s", i, a.Storage[i].Type(), s.Type())
		}
	}

	a.Storage = append([]Slot{}, d.Storage...)
	a.Vault = d.Vault.Copy()
	a.Nonce++
	return nil
}
