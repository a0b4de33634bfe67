package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monteur/internal/domain/shared/money"
)

func TestRouteBoundaries(t *testing.T) {
	catalog := DefaultCatalog()

	testCases := []struct {
		party    int
		expected []ID
	}{
		{party: 1, expected: []ID{Hackerberg, Neubau}},
		{party: 4, expected: []ID{Hackerberg, Neubau}},
		{party: 5, expected: []ID{Hackerberg, Neubau}},
		{party: 6, expected: []ID{Neubau}},
		{party: 7, expected: []ID{Kombi}},
		{party: 11, expected: []ID{Kombi}},
	}
	for _, tc := range testCases {
		got, err := catalog.Route(tc.party)
		require.NoError(t, err, "party %d", tc.party)
		assert.Equal(t, tc.expected, got, "party %d", tc.party)
	}
}

func TestRouteRejectsInvalidParties(t *testing.T) {
	catalog := DefaultCatalog()

	_, err := catalog.Route(0)
	assert.ErrorIs(t, err, ErrInvalidParty)

	_, err = catalog.Route(12)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestImplicated(t *testing.T) {
	catalog := DefaultCatalog()

	parts, err := catalog.Implicated(Kombi)
	require.NoError(t, err)
	assert.Equal(t, []ID{Hackerberg, Neubau}, parts)

	parts, err = catalog.Implicated(Neubau)
	require.NoError(t, err)
	assert.Equal(t, []ID{Neubau}, parts)

	_, err = catalog.Implicated("penthouse")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestContaining(t *testing.T) {
	catalog := DefaultCatalog()
	assert.Equal(t, []ID{Hackerberg, Kombi}, catalog.Containing(Hackerberg))
	assert.Equal(t, []ID{Neubau, Kombi}, catalog.Containing(Neubau))
}

func TestCombinedCleaningFeeIsSumOfParts(t *testing.T) {
	list := DefaultUnits()
	list[0].CleaningFee = money.Euros(70)
	catalog, err := NewCatalog(list)
	require.NoError(t, err)

	fee, err := catalog.CleaningFee(Kombi)
	require.NoError(t, err)
	assert.Equal(t, money.Euros(160), fee)

	fee, err = catalog.CleaningFee(Neubau)
	require.NoError(t, err)
	assert.Equal(t, money.Euros(90), fee)
}

func TestAdmit(t *testing.T) {
	catalog := DefaultCatalog()

	assert.NoError(t, catalog.Admit(Hackerberg, 5))
	assert.ErrorIs(t, catalog.Admit(Hackerberg, 6), ErrCapacityExceeded)
	assert.ErrorIs(t, catalog.Admit(Kombi, 0), ErrInvalidParty)
	assert.ErrorIs(t, catalog.Admit("attic", 2), ErrUnknownUnit)
}

func TestNewCatalogRejectsDanglingParts(t *testing.T) {
	_, err := NewCatalog([]Unit{
		{ID: Hackerberg, MaxGuests: 5},
		{ID: Kombi, MaxGuests: 11, Parts: []ID{Hackerberg, Neubau}},
	})
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}
