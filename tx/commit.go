package tx

import (
	"github.com/chain/txvm/errors"
	"github.com/chain/txvm/math/checked"

	"notechain/account"
	"notechain/asset"
	"notechain/ledger"
)

// Commit applies a transaction to the given ledger state and returns
// the successor state. The input state is never modified: commit
// works on a copy and either returns it whole or returns an error and
// nothing else. The nonce check and the nullifier uniqueness check
// are the optimistic-concurrency guards; a transaction that lost a
// race fails here with ErrNonceMismatch or ErrDoubleSpend rather than
// blocking.
//
// On success the returned transaction fields are untouched except
// SeqNum, which records the commit position.
func Commit(state *ledger.State, t *Transaction) (*ledger.State, error) {
	if err := t.Check(); err != nil {
		return nil, err
	}

	acct, err := state.Account(t.Initiator)
	if err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}
	if err := t.CheckSig(acct.AuthKey); err != nil {
		return nil, err
	}
	if t.Delta.PriorNonce != acct.Nonce {
		return nil, errors.Wrapf(account.ErrNonceMismatch, "tx built at nonce %d, account at %d", t.Delta.PriorNonce, acct.Nonce)
	}
	if !t.PriorVault.Equal(acct.Vault) {
		return nil, errors.Wrapf(ErrCommit, "vault of %s changed since tx %s was built", t.Initiator, t.ID)
	}
	for _, n := range t.InputNotes {
		if err := state.Consumable(n); err != nil {
			return nil, errors.Wrap(ErrDoubleSpend, err.Error())
		}
	}
	if err := VerifyConservation(t); err != nil {
		return nil, err
	}

	// All checks passed; mutate a copy so failure above never leaves
	// partial state.
	next := state.Copy()
	seq := next.SeqNum + 1

	nextAcct, err := next.Account(t.Initiator)
	if err != nil {
		return nil, errors.Wrap(ErrCommit, err.Error())
	}
	if err := nextAcct.ApplyDelta(t.Delta); err != nil {
		return nil, errors.Wrap(ErrCommit, err.Error())
	}
	for _, n := range t.InputNotes {
		if err := next.MarkConsumed(n, seq); err != nil {
			return nil, errors.Wrap(ErrDoubleSpend, err.Error())
		}
	}
	for _, n := range t.OutputNotes {
		if err := next.RegisterNote(n); err != nil {
			return nil, errors.Wrap(ErrCommit, err.Error())
		}
	}
	next.SeqNum = seq
	t.SeqNum = seq
	return next, nil
}

// flows accumulates per-kind fungible sums and non-fungible token
// sets for one side of the conservation equation.
type flows struct {
	fungible map[asset.Kind]int64
	tokens   map[asset.TokenID]asset.Kind
}

func newFlows() *flows {
	return &flows{
		fungible: make(map[asset.Kind]int64),
		tokens:   make(map[asset.TokenID]asset.Kind),
	}
}

func (f *flows) add(a asset.Asset) error {
	if err := a.Check(); err != nil {
		return err
	}
	if a.Fungible {
		sum, ok := checked.AddInt64(f.fungible[a.Kind], a.Amount)
		if !ok {
			return errors.Wrapf(ErrConservation, "flow of %s overflows", a.Kind)
		}
		f.fungible[a.Kind] = sum
		return nil
	}
	if _, ok := f.tokens[a.Token]; ok {
		return errors.Wrapf(ErrConservation, "token %x flows twice on one side", a.Token[:4])
	}
	f.tokens[a.Token] = a.Kind
	return nil
}

func (f *flows) addVault(v *asset.Vault) error {
	for _, a := range v.Assets() {
		if err := f.add(a); err != nil {
			return err
		}
	}
	return nil
}

// VerifyConservation checks the asset conservation invariant of a
// transaction in isolation: per kind, everything consumed (initiator
// vault before, input note escrow, mints) equals everything produced
// (initiator vault after, output note escrow, burns). It is the audit
// entry point for external verification.
func VerifyConservation(t *Transaction) error {
	in := newFlows()
	out := newFlows()

	if t.PriorVault == nil || t.Delta.Vault == nil {
		return errors.Wrap(ErrValidation, "missing vault state")
	}
	if err := in.addVault(t.PriorVault); err != nil {
		return err
	}
	for _, n := range t.InputNotes {
		if err := in.addVault(n.Assets); err != nil {
			return err
		}
	}
	for _, a := range t.Minted {
		if err := in.add(a); err != nil {
			return err
		}
	}

	if err := out.addVault(t.Delta.Vault); err != nil {
		return err
	}
	for _, n := range t.OutputNotes {
		if err := out.addVault(n.Assets); err != nil {
			return err
		}
	}
	for _, a := range t.Burned {
		if err := out.add(a); err != nil {
			return err
		}
	}

	for kind, amt := range in.fungible {
		if out.fungible[kind] != amt {
			return errors.Wrapf(ErrConservation, "kind %s: %d in, %d out", kind, amt, out.fungible[kind])
		}
	}
	for kind, amt := range out.fungible {
		if _, ok := in.fungible[kind]; !ok && amt != 0 {
			return errors.Wrapf(ErrConservation, "kind %s: 0 in, %d out", kind, amt)
		}
	}
	if len(in.tokens) != len(out.tokens) {
		return errors.Wrapf(ErrConservation, "%d tokens in, %d out", len(in.tokens), len(out.tokens))
	}
	for tok, kind := range in.tokens {
		if k, ok := out.tokens[tok]; !ok || k != kind {
			return errors.Wrapf(ErrConservation, "token %x not conserved", tok[:4])
		}
	}
	return nil
}
