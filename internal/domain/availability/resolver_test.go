package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

func TestResolveCombinedNeedsBothUnits(t *testing.T) {
	catalog := units.DefaultCatalog()
	hackerberg := NewLedger(units.Hackerberg)
	neubau := NewLedger(units.Neubau)
	require.NoError(t, neubau.Insert(entry("b1", march(8, 14)), now))
	require.NoError(t, hackerberg.Insert(entry("h1", march(16, 18)), now))

	ledgers := LedgerSet{units.Hackerberg: hackerberg, units.Neubau: neubau}
	res, err := Resolve(catalog, ledgers, units.Kombi, march(10, 12), 8)
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, units.Kombi, c.Unit)
	assert.False(t, c.Available)
	require.NotNil(t, c.NextFreeDate)
	// hackerberg: 13, neubau: 15; the later one wins
	assert.Equal(t, daterange.On(2026, 3, 15), *c.NextFreeDate)
	assert.False(t, res.Available())
}

func TestResolveRoutesByPartySize(t *testing.T) {
	catalog := units.DefaultCatalog()
	neubau := NewLedger(units.Neubau)
	require.NoError(t, neubau.Insert(entry("b1", march(1, 5)), now))
	ledgers := LedgerSet{units.Neubau: neubau}

	res, err := Resolve(catalog, ledgers, "", march(3, 6), 3)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, Candidate{Unit: units.Hackerberg, Available: true}, res.Candidates[0])
	assert.Equal(t, units.Neubau, res.Candidates[1].Unit)
	assert.False(t, res.Candidates[1].Available)
	assert.True(t, res.Available())

	res, err = Resolve(catalog, ledgers, "", march(10, 12), 6)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, units.Neubau, res.Candidates[0].Unit)

	res, err = Resolve(catalog, ledgers, "", march(10, 12), 7)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, units.Kombi, res.Candidates[0].Unit)
}

func TestResolveValidatesBeforeLookingAtLedgers(t *testing.T) {
	catalog := units.DefaultCatalog()

	_, err := Resolve(catalog, nil, "", march(10, 10), 2)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = Resolve(catalog, nil, "", march(10, 12), 12)
	assert.ErrorIs(t, err, units.ErrCapacityExceeded)

	_, err = Resolve(catalog, nil, units.Hackerberg, march(10, 12), 6)
	assert.ErrorIs(t, err, units.ErrCapacityExceeded)
}
