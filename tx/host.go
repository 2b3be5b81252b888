package tx

import (
	"github.com/chain/txvm/errors"

	"notechain/account"
	"notechain/asset"
	"notechain/vm"
)

// caps is the capability set granted by an account's code kind.
// Dispatch is a tagged-union match over the kind; there is no
// polymorphic account code.
type caps struct {
	storageWrite bool
	vault        bool
	createNote   bool
	mint         bool
}

func capsFor(kind account.CodeKind) caps {
	switch kind {
	case account.Wallet:
		return caps{vault: true, createNote: true}
	case account.Counter:
		return caps{storageWrite: true}
	case account.Faucet:
		return caps{storageWrite: true, vault: true, createNote: true, mint: true}
	default: // account.Custom
		return caps{storageWrite: true, vault: true, createNote: true}
	}
}

// noteDraft is a pending output note: everything but its serial,
// which the builder draws when the transaction is materialized.
type noteDraft struct {
	script []byte
	inputs []vm.Value
	tag    int64
	aux    int64
	assets *asset.Vault
}

// execHost implements vm.Host over a working copy of the initiator
// account and the transaction's accumulating effect buffer. Scripts
// mutate only this working copy; nothing here touches ledger state.
type execHost struct {
	acct *account.Account
	caps caps

	// note currently being consumed; both are nil during the account
	// entry and the transaction script
	curInputs []vm.Value
	curEscrow *asset.Vault

	drafts  []*noteDraft
	effects []vm.Effect
	minted  []asset.Asset
	burned  []asset.Asset
}

func newExecHost(acct *account.Account) *execHost {
	return &execHost{
		acct: acct,
		caps: capsFor(acct.Code.Kind),
	}
}

// beginNote scopes the host to one input note for the duration of its
// script.
func (h *execHost) beginNote(inputs []vm.Value, escrow *asset.Vault) {
	h.curInputs = inputs
	h.curEscrow = escrow.Copy()
}

// endNote leaves note scope and reports the escrow left unclaimed by
// the note's script.
func (h *execHost) endNote() *asset.Vault {
	left := h.curEscrow
	h.curInputs = nil
	h.curEscrow = nil
	return left
}

func (h *execHost) inNote() bool { return h.curEscrow != nil }

func (h *execHost) AccountID() vm.ID {
	return vm.ID(h.acct.ID)
}

func (h *execHost) NoteInput(i int64) (vm.Value, error) {
	if !h.inNote() {
		return nil, errors.New("no note in scope")
	}
	if i < 0 || i >= int64(len(h.curInputs)) {
		return nil, errors.Wrapf(errors.New("note input out of range"), "input %d of %d", i, len(h.curInputs))
	}
	return h.curInputs[i], nil
}

func (h *execHost) NoteInputCount() (int64, error) {
	if !h.inNote() {
		return 0, errors.New("no note in scope")
	}
	return int64(len(h.curInputs)), nil
}

func (h *execHost) StorageGet(slot int64) (vm.Value, error) {
	return h.acct.ReadStorage(slot)
}

func (h *execHost) StorageSet(slot int64, v vm.Value) error {
	if !h.caps.storageWrite {
		return errors.Wrapf(vm.ErrCapability, "%s account writing storage", h.acct.Code.Kind)
	}
	if slot < 0 || slot >= int64(len(h.acct.Storage)) {
		return errors.Wrapf(account.ErrSlotRange, "slot %d of %d", slot, len(h.acct.Storage))
	}
	if v.Type() != h.acct.Storage[slot].Type() {
		return errors.Wrapf(account.ErrType, "slot %d is %s, writing %s", slot, h.acct.Storage[slot].Type(), v.Type())
	}
	h.acct.Storage[slot] = account.Slot{Val: v}
	h.effects = append(h.effects, vm.StorageWrite{Slot: slot, Val: v})
	return nil
}

func (h *execHost) AddAsset(a asset.Asset) error {
	if !h.caps.vault {
		return errors.Wrapf(vm.ErrCapability, "%s account adding to vault", h.acct.Code.Kind)
	}
	if err := h.acct.Vault.Add(a); err != nil {
		return err
	}
	h.effects = append(h.effects, vm.VaultDeposit{Asset: a})
	return nil
}

func (h *execHost) RemoveAsset(a asset.Asset) error {
	if !h.caps.vault {
		return errors.Wrapf(vm.ErrCapability, "%s account removing from vault", h.acct.Code.Kind)
	}
	if err := h.acct.Vault.Remove(a); err != nil {
		return err
	}
	h.effects = append(h.effects, vm.VaultWithdraw{Asset: a})
	return nil
}

func (h *execHost) ReceiveNoteAssets() error {
	if !h.caps.vault {
		return errors.Wrapf(vm.ErrCapability, "%s account receiving assets", h.acct.Code.Kind)
	}
	if !h.inNote() {
		return errors.New("no note in scope")
	}
	for _, a := range h.curEscrow.Assets() {
		if err := h.curEscrow.Remove(a); err != nil {
			return err
		}
		if err := h.acct.Vault.Add(a); err != nil {
			return err
		}
		h.effects = append(h.effects, vm.VaultDeposit{Asset: a})
	}
	return nil
}

func (h *execHost) MoveAssetToNote(a asset.Asset, noteIdx int64) error {
	if !h.caps.vault || !h.caps.createNote {
		return errors.Wrapf(vm.ErrCapability, "%s account moving assets to a note", h.acct.Code.Kind)
	}
	if noteIdx < 0 || noteIdx >= int64(len(h.drafts)) {
		return errors.Wrapf(errors.New("no such output note"), "note %d of %d", noteIdx, len(h.drafts))
	}
	if err := h.acct.Vault.Remove(a); err != nil {
		return err
	}
	if err := h.drafts[noteIdx].assets.Add(a); err != nil {
		return err
	}
	h.effects = append(h.effects,
		vm.VaultWithdraw{Asset: a},
		vm.NoteAssetMove{Note: noteIdx, Asset: a},
	)
	return nil
}

func (h *execHost) CreateNote(script []byte, inputs []vm.Value, tag, aux int64) (int64, error) {
	if !h.caps.createNote {
		return 0, errors.Wrapf(vm.ErrCapability, "%s account creating a note", h.acct.Code.Kind)
	}
	if err := vm.CheckProgram(script); err != nil {
		return 0, errors.Wrap(err, "checking created note script")
	}
	h.drafts = append(h.drafts, &noteDraft{
		script: script,
		inputs: inputs,
		tag:    tag,
		aux:    aux,
		assets: asset.NewVault(),
	})
	h.effects = append(h.effects, vm.NoteCreate{Script: script, Inputs: inputs, Tag: tag, Aux: aux})
	return int64(len(h.drafts) - 1), nil
}

func (h *execHost) Mint(a asset.Asset) error {
	if !h.caps.mint {
		return errors.Wrapf(vm.ErrCapability, "%s account minting", h.acct.Code.Kind)
	}
	if a.Kind != asset.Kind(h.acct.ID) {
		return errors.Wrapf(vm.ErrCapability, "minting foreign kind %s", a.Kind)
	}
	if err := h.acct.Vault.Add(a); err != nil {
		return err
	}
	h.minted = append(h.minted, a)
	h.effects = append(h.effects, vm.Mint{Asset: a})
	return nil
}

func (h *execHost) Burn(a asset.Asset) error {
	if !h.caps.mint {
		return errors.Wrapf(vm.ErrCapability, "%s account burning", h.acct.Code.Kind)
	}
	if a.Kind != asset.Kind(h.acct.ID) {
		return errors.Wrapf(vm.ErrCapability, "burning foreign kind %s", a.Kind)
	}
	if err := h.acct.Vault.Remove(a); err != nil {
		return err
	}
	h.burned = append(h.burned, a)
	h.effects = append(h.effects, vm.Burn{Asset: a})
	return nil
}

func (h *execHost) Log(v vm.Value) {
	h.effects = append(h.effects, vm.LogEntry{Val: v})
}
