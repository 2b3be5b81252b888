package vm

import "notechain/asset"

// Effect is one externally visible mutation requested by a script.
// The executor accumulates effects in program order; the sequence is
// replayable and is what downstream conservation checks audit.
type Effect interface {
	effect()
}

// StorageWrite records a write to one of the executing account's
// storage slots.
type StorageWrite struct {
	Slot int64
	Val  Value
}

// VaultDeposit records an asset added to the executing account's vault.
type VaultDeposit struct {
	Asset asset.Asset
}

// VaultWithdraw records an asset removed from the executing account's
// vault.
type VaultWithdraw struct {
	Asset asset.Asset
}

// NoteAssetMove records an asset attached to a pending output note.
// The asset has already been withdrawn from the vault.
type NoteAssetMove struct {
	Note  int64
	Asset asset.Asset
}

// NoteCreate records a request for a new output note.
type NoteCreate struct {
	Script []byte
	Inputs []Value
	Tag    int64
	Aux    int64
}

// Mint records privileged issuance of an asset into the vault.
type Mint struct {
	Asset asset.Asset
}

// Burn records privileged destruction of an asset from the vault.
type Burn struct {
	Asset asset.Asset
}

// LogEntry records a value a script chose to log.
type LogEntry struct {
	Val Value
}

func (StorageWrite) effect()  {}
func (VaultDeposit) effect()  {}
func (VaultWithdraw) effect() {}
func (NoteAssetMove) effect() {}
func (NoteCreate) effect()    {}
func (Mint) effect()          {}
func (Burn) effect()          {}
func (LogEntry) effect()      {}
