package tx

import (
	"notechain/account"
	"notechain/asset"
	"notechain/note"
	"notechain/vm"
)

// Stock transaction scripts for the common wallet and faucet flows.
// These run under the initiator's authority, independent of any note.

// SendScript builds the basic-wallet send flow: create a pay-to-ID
// note for the target and move a from the initiator's vault into it.
func SendScript(target account.ID, a asset.Asset, tag, aux int64) []byte {
	return new(vm.Builder).
		PushBytes(note.P2IDScript()).
		PushID(vm.ID(target)).
		PushInt(1). // input count
		PushInt(aux).
		PushInt(tag).
		Op(vm.OpCreateNote).
		PushAsset(a).
		Op(vm.OpMoveAsset).
		Build()
}

// MintScript issues a into the initiating faucet's own vault.
func MintScript(a asset.Asset) []byte {
	return new(vm.Builder).
		PushAsset(a).
		Op(vm.OpMint).
		Build()
}

// BurnScript destroys a out of the initiating faucet's vault.
func BurnScript(a asset.Asset) []byte {
	return new(vm.Builder).
		PushAsset(a).
		Op(vm.OpBurn).
		Build()
}

// DistributeScript is the faucet issuance flow: mint a, then escrow
// it in a pay-to-ID note for the target.
func DistributeScript(target account.ID, a asset.Asset, tag, aux int64) []byte {
	return new(vm.Builder).
		PushAsset(a).
		Op(vm.OpMint).
		PushBytes(note.P2IDScript()).
		PushID(vm.ID(target)).
		PushInt(1).
		PushInt(aux).
		PushInt(tag).
		Op(vm.OpCreateNote).
		PushAsset(a).
		Op(vm.OpMoveAsset).
		Build()
}
