package note

import (
	"notechain/account"
	"notechain/asset"
	"notechain/vm"
)

// Well-known note scripts. Scripts arrive at the engine already in
// runnable form; these are the stock ones the repo's own flows use.

// p2idProg pays the note's escrowed assets to the one account named
// in the note's first input: assert the executing account is the
// target, then receive everything.
var p2idProg = new(vm.Builder).
	PushInt(0).Op(vm.OpNoteInput).
	Op(vm.OpAccountID).
	Op(vm.OpEq).Op(vm.OpVerify).
	Op(vm.OpReceiveAssets).
	Build()

// P2IDScript returns the pay-to-ID script.
func P2IDScript() []byte {
	return append([]byte{}, p2idProg...)
}

// P2IDInputs returns the inputs a pay-to-ID note must carry for the
// given target account.
func P2IDInputs(target account.ID) []vm.Value {
	return []vm.Value{vm.ID(target)}
}

// P2ID builds a complete pay-to-ID note escrowing the given assets
// for the target account.
func P2ID(target account.ID, assets []asset.Asset, serial Serial, md Metadata) (*Note, error) {
	v := asset.NewVault()
	for _, a := range assets {
		if err := v.Add(a); err != nil {
			return nil, err
		}
	}
	return New(P2IDScript(), P2IDInputs(target), v, serial, md)
}

// incrementProg bumps storage slot 0 by one and verifies the write
// landed.
var incrementProg = new(vm.Builder).
	PushInt(0).Op(vm.OpStorageGet).
	Op(vm.OpDup).
	PushInt(1).Op(vm.OpAdd).
	PushInt(0).Op(vm.OpStorageSet).
	PushInt(0).Op(vm.OpStorageGet).
	Op(vm.OpSwap).
	PushInt(1).Op(vm.OpAdd).
	Op(vm.OpEq).Op(vm.OpVerify).
	Build()

// IncrementScript returns the counter-increment script.
func IncrementScript() []byte {
	return append([]byte{}, incrementProg...)
}

// Increment builds a note that increments the consuming account's
// counter slot. It carries no assets.
func Increment(serial Serial, md Metadata) (*Note, error) {
	return New(IncrementScript(), nil, nil, serial, md)
}
