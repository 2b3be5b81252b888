package vm

import "notechain/asset"

// Host is the engine's view of the world during one script run: the
// initiating account's storage and vault, the note currently being
// consumed (if any), and the transaction's pending output notes. The
// transaction executor implements Host with an effect buffer; no
// mutation reaches ledger state until the whole transaction commits.
//
// Host methods return ErrCapability when the executing account's code
// kind does not grant the operation, and may return any other error
// to abort execution.
type Host interface {
	// AccountID is the ID of the account whose authority the script
	// runs under.
	AccountID() ID

	// NoteInput returns input i of the note being consumed. It fails
	// when no note is being consumed or i is out of range.
	NoteInput(i int64) (Value, error)

	// NoteInputCount returns the number of inputs of the note being
	// consumed, or an error when no note is being consumed.
	NoteInputCount() (int64, error)

	// StorageGet reads a storage slot of the executing account.
	StorageGet(slot int64) (Value, error)

	// StorageSet writes a storage slot of the executing account. The
	// slot's type is fixed; writing a mismatched type fails.
	StorageSet(slot int64, v Value) error

	// AddAsset deposits an asset into the executing account's vault.
	AddAsset(a asset.Asset) error

	// RemoveAsset withdraws an asset from the executing account's
	// vault.
	RemoveAsset(a asset.Asset) error

	// ReceiveNoteAssets moves every asset escrowed in the note being
	// consumed into the executing account's vault.
	ReceiveNoteAssets() error

	// MoveAssetToNote withdraws an asset from the vault and attaches
	// it to pending output note noteIdx.
	MoveAssetToNote(a asset.Asset, noteIdx int64) error

	// CreateNote requests a new output note and returns its index.
	CreateNote(script []byte, inputs []Value, tag, aux int64) (int64, error)

	// Mint issues new units of an asset kind into the vault. Only a
	// faucet account may mint, and only its own kind.
	Mint(a asset.Asset) error

	// Burn destroys units of an asset kind held in the vault, under
	// the same authority rules as Mint.
	Burn(a asset.Asset) error

	// Log records a script-chosen value in the effect sequence.
	Log(v Value)
}
