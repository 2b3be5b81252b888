package asset

import (
	"testing"

	"github.com/chain/txvm/errors"
	"github.com/stretchr/testify/require"
)

func kindN(n byte) Kind {
	var k Kind
	k[0] = n
	return k
}

func tokenN(n byte) TokenID {
	var t TokenID
	t[0] = n
	return t
}

func TestFungibleAddRemove(t *testing.T) {
	v := NewVault()
	require.NoError(t, v.Add(NewFungible(kindN(1), 100)))
	require.NoError(t, v.Add(NewFungible(kindN(1), 50)))
	require.Equal(t, int64(150), v.Balance(kindN(1)))

	require.NoError(t, v.Remove(NewFungible(kindN(1), 150)))
	require.Equal(t, int64(0), v.Balance(kindN(1)))
	require.True(t, v.Empty())

	err := v.Remove(NewFungible(kindN(1), 1))
	require.Equal(t, ErrInsufficient, errors.Root(err))
}

func TestRemoveMoreThanHeld(t *testing.T) {
	v := NewVault()
	require.NoError(t, v.Add(NewFungible(kindN(2), 10)))
	err := v.Remove(NewFungible(kindN(2), 11))
	require.Equal(t, ErrInsufficient, errors.Root(err))
	// failed removal leaves the balance unchanged
	require.Equal(t, int64(10), v.Balance(kindN(2)))
}

func TestNonFungible(t *testing.T) {
	v := NewVault()
	a := NewNonFungible(kindN(1), tokenN(7))
	require.NoError(t, v.Add(a))
	require.True(t, v.Contains(kindN(1), tokenN(7)))

	err := v.Add(a)
	require.Equal(t, ErrDuplicate, errors.Root(err))

	// removing under the wrong kind fails
	err = v.Remove(NewNonFungible(kindN(2), tokenN(7)))
	require.Equal(t, ErrInsufficient, errors.Root(err))

	require.NoError(t, v.Remove(a))
	require.False(t, v.Contains(kindN(1), tokenN(7)))
}

func TestAmountBounds(t *testing.T) {
	v := NewVault()
	require.Error(t, v.Add(NewFungible(kindN(1), 0)))
	require.Error(t, v.Add(NewFungible(kindN(1), -5)))
	require.Error(t, v.Add(NewFungible(kindN(1), MaxAmount+1)))

	require.NoError(t, v.Add(NewFungible(kindN(1), MaxAmount)))
	err := v.Add(NewFungible(kindN(1), 1))
	require.Equal(t, ErrAmount, errors.Root(err))
}

func TestMerge(t *testing.T) {
	a := NewVault()
	require.NoError(t, a.Add(NewFungible(kindN(1), 10)))
	require.NoError(t, a.Add(NewNonFungible(kindN(2), tokenN(1))))

	b := NewVault()
	require.NoError(t, b.Add(NewFungible(kindN(1), 5)))
	require.NoError(t, b.Add(NewNonFungible(kindN(2), tokenN(2))))

	m, err := Merge(a, b)
	require.NoError(t, err)
	require.Equal(t, int64(15), m.Balance(kindN(1)))
	require.True(t, m.Contains(kindN(2), tokenN(1)))
	require.True(t, m.Contains(kindN(2), tokenN(2)))

	// merge conserves: inputs unchanged
	require.Equal(t, int64(10), a.Balance(kindN(1)))
	require.Equal(t, int64(5), b.Balance(kindN(1)))

	// merging vaults sharing a token fails
	_, err = Merge(a, a)
	require.Equal(t, ErrDuplicate, errors.Root(err))
}

func TestAssetsDeterministicOrder(t *testing.T) {
	v := NewVault()
	require.NoError(t, v.Add(NewFungible(kindN(9), 1)))
	require.NoError(t, v.Add(NewFungible(kindN(1), 2)))
	require.NoError(t, v.Add(NewNonFungible(kindN(3), tokenN(8))))
	require.NoError(t, v.Add(NewNonFungible(kindN(3), tokenN(2))))

	got := v.Assets()
	require.Len(t, got, 4)
	require.Equal(t, kindN(1), got[0].Kind)
	require.Equal(t, kindN(9), got[1].Kind)
	require.Equal(t, tokenN(2), got[2].Token)
	require.Equal(t, tokenN(8), got[3].Token)
}

func TestCopyIndependence(t *testing.T) {
	v := NewVault()
	require.NoError(t, v.Add(NewFungible(kindN(1), 10)))
	c := v.Copy()
	require.NoError(t, c.Remove(NewFungible(kindN(1), 10)))
	require.Equal(t, int64(10), v.Balance(kindN(1)))
	require.False(t, v.Equal(c))
}
