package note

import (
	"encoding/json"
	"reflect"
	"testing"

	"notechain/account"
	"notechain/asset"
	"notechain/vm"
)

func serialN(n byte) Serial {
	var s Serial
	s[0] = n
	return s
}

func TestNullifierDeterminism(t *testing.T) {
	var target account.ID
	target[0] = 7

	a, err := P2ID(target, nil, serialN(1), Metadata{Tag: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := P2ID(target, nil, serialN(1), Metadata{Tag: 9})
	if err != nil {
		t.Fatal(err)
	}

	// identical content including serial: same ID and nullifier, even
	// though routing metadata differs
	if a.ID != b.ID {
		t.Errorf("same content produced IDs %s and %s", a.ID, b.ID)
	}
	if a.Nullifier() != b.Nullifier() {
		t.Errorf("same content produced distinct nullifiers")
	}
	if a.Nullifier() != a.Nullifier() {
		t.Errorf("nullifier is not stable")
	}

	c, err := P2ID(target, nil, serialN(2), Metadata{Tag: 3})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == c.ID {
		t.Errorf("distinct serials produced the same ID %s", a.ID)
	}
	if a.Nullifier() == c.Nullifier() {
		t.Errorf("distinct serials produced the same nullifier")
	}
}

func TestIDCoversContent(t *testing.T) {
	var target account.ID
	target[0] = 7
	var kind asset.Kind
	kind[1] = 2

	base, err := P2ID(target, []asset.Asset{asset.NewFungible(kind, 5)}, serialN(1), Metadata{})
	if err != nil {
		t.Fatal(err)
	}

	amount, err := P2ID(target, []asset.Asset{asset.NewFungible(kind, 6)}, serialN(1), Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if base.ID == amount.ID {
		t.Errorf("asset payload not covered by note ID")
	}

	inputs, err := New(P2IDScript(), []vm.Value{vm.ID{9}}, nil, serialN(1), Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if base.ID == inputs.ID {
		t.Errorf("inputs not covered by note ID")
	}

	script, err := Increment(serialN(1), Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if base.ID == script.ID {
		t.Errorf("script not covered by note ID")
	}
}

func TestCheckDetectsTamper(t *testing.T) {
	n, err := Increment(serialN(1), Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if err = n.Check(); err != nil {
		t.Fatalf("fresh note fails check: %s", err)
	}

	tampered := n.Copy()
	tampered.Inputs = append(tampered.Inputs, vm.Int(1))
	if err = tampered.Check(); err == nil {
		t.Fatal("tampered note passed check")
	}
}

func TestRandomSerialUnique(t *testing.T) {
	a, err := RandomSerial()
	if err != nil {
		t.Fatal(err)
	}
	b, err := RandomSerial()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two random serials are equal")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var target account.ID
	target[0] = 4
	var kind asset.Kind
	kind[0] = 1

	n, err := P2ID(target, []asset.Asset{asset.NewFungible(kind, 12)}, serialN(3), Metadata{Sender: target, Tag: 5, Aux: 6})
	if err != nil {
		t.Fatal(err)
	}

	bits, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	got := new(Note)
	if err = json.Unmarshal(bits, got); err != nil {
		t.Fatal(err)
	}
	if err = got.Check(); err != nil {
		t.Fatalf("decoded note fails check: %s", err)
	}
	if !reflect.DeepEqual(n.Inputs, got.Inputs) {
		t.Errorf("inputs do not round-trip: %v vs %v", n.Inputs, got.Inputs)
	}
	if !n.Assets.Equal(got.Assets) {
		t.Errorf("assets do not round-trip")
	}
	if got.Metadata != n.Metadata {
		t.Errorf("metadata does not round-trip: %+v vs %+v", got.Metadata, n.Metadata)
	}
}
