package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainunits "monteur/internal/domain/units"
)

func TestListUnits(t *testing.T) {
	h := &ListUnitsHandler{Catalog: domainunits.DefaultCatalog()}
	out, err := h.Handle(context.Background(), ListUnitsQuery{})
	require.NoError(t, err)
	require.Len(t, out.Items, 3)
	assert.Equal(t, "kombi", out.Items[2].ID)
}
