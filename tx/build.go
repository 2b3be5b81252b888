package tx

import (
	"github.com/chain/txvm/crypto/ed25519"
	"github.com/chain/txvm/errors"

	"notechain/account"
	"notechain/ledger"
	"notechain/note"
	"notechain/vm"
)

// Option adjusts how Build assembles a transaction.
type Option func(*builder)

// WithSigner signs the finished transaction with the initiator's
// private key.
func WithSigner(prv ed25519.PrivateKey) Option {
	return func(b *builder) { b.signer = prv }
}

// WithSerialSource overrides the randomness source used for output
// note serials. Production use keeps the default (crypto/rand);
// serials must stay unpredictable to prevent nullifier collision
// attacks.
func WithSerialSource(f func() (note.Serial, error)) Option {
	return func(b *builder) { b.serials = f }
}

// WithRunlimit overrides the per-program instruction budget.
func WithRunlimit(n int64) Option {
	return func(b *builder) { b.runlimit = n }
}

type builder struct {
	signer   ed25519.PrivateKey
	serials  func() (note.Serial, error)
	runlimit int64
}

// Build executes a transaction against the given ledger state and
// returns the resulting Transaction, ready for submission and commit.
// The state is read, never written; a transaction that is never
// committed has no effects anywhere.
//
// Execution order is part of the contract: the account's code entry,
// then each input note's script in listed order, then the optional
// transaction script, all against one effect buffer.
func Build(state *ledger.State, initiator account.ID, inputNotes []*note.Note, script []byte, opts ...Option) (*Transaction, error) {
	b := &builder{
		serials:  note.RandomSerial,
		runlimit: vm.DefaultRunlimit,
	}
	for _, o := range opts {
		o(b)
	}

	acct, err := state.Account(initiator)
	if err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	// Step 1: every input note must be committed-unconsumed with an
	// unrecorded nullifier, and no note may appear twice.
	seen := make(map[note.Nullifier]bool)
	for _, n := range inputNotes {
		if err := n.Check(); err != nil {
			return nil, errors.Wrap(ErrValidation, err.Error())
		}
		nf := n.Nullifier()
		if seen[nf] {
			return nil, errors.Wrapf(ErrDoubleSpend, "note %s listed twice", n.ID)
		}
		seen[nf] = true
		if err := state.Consumable(n); err != nil {
			return nil, errors.Wrap(ErrDoubleSpend, err.Error())
		}
	}
	if len(script) > 0 {
		if err := vm.CheckProgram(script); err != nil {
			return nil, errors.Wrap(ErrValidation, err.Error())
		}
	}

	priorVault := acct.Vault.Copy()
	host := newExecHost(acct.Copy())

	// Step 2: run the script sequence. Any failure drops the effect
	// buffer; no partial effects survive.
	if len(acct.Code.Entry) > 0 {
		if err := vm.Exec(acct.Code.Entry, host, b.runlimit); err != nil {
			return nil, errors.Wrap(err, "account entry")
		}
	}
	for i, n := range inputNotes {
		host.beginNote(n.Inputs, n.Assets)
		if err := vm.Exec(n.Script, host, b.runlimit); err != nil {
			return nil, errors.Wrapf(err, "input note %d (%s)", i, n.ID)
		}
		host.endNote()
	}
	if len(script) > 0 {
		if err := vm.Exec(script, host, b.runlimit); err != nil {
			return nil, errors.Wrap(err, "transaction script")
		}
	}

	// Step 3/4: materialize output notes and the account delta.
	t := &Transaction{
		Initiator:  initiator,
		InputNotes: copyNotes(inputNotes),
		Script:     append([]byte{}, script...),
		PriorVault: priorVault,
		Minted:     host.minted,
		Burned:     host.burned,
		Delta: account.Delta{
			AccountID:  initiator,
			PriorNonce: acct.Nonce,
			Storage:    host.acct.Storage,
			Vault:      host.acct.Vault,
		},
	}
	for i, d := range host.drafts {
		serial, err := b.serials()
		if err != nil {
			return nil, errors.Wrapf(err, "drawing serial for output note %d", i)
		}
		out, err := note.New(d.script, d.inputs, d.assets, serial, note.Metadata{
			Sender: initiator,
			Tag:    d.tag,
			Aux:    d.aux,
		})
		if err != nil {
			return nil, errors.Wrapf(ErrValidation, "output note %d: %s", i, err)
		}
		t.OutputNotes = append(t.OutputNotes, out)
	}

	if err := VerifyConservation(t); err != nil {
		return nil, err
	}

	t.ID = t.contentID()
	if b.signer != nil {
		t.Sign(b.signer)
	}
	return t, nil
}

func copyNotes(notes []*note.Note) []*note.Note {
	out := make([]*note.Note, len(notes))
	for i, n := range notes {
		out[i] = n.Copy()
	}
	return out
}
