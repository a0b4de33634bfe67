package units

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"monteur/internal/domain/shared/money"
)

var (
	ErrUnknownUnit      = errors.New("units: unknown unit")
	ErrInvalidParty     = errors.New("units: party size must be at least one guest")
	ErrCapacityExceeded = errors.New("units: party size exceeds unit capacity")
	ErrInvalidCatalog   = errors.New("units: invalid catalog")
)

// ID identifies a bookable unit, physical or combined.
type ID string

const (
	Hackerberg ID = "hackerberg"
	Neubau     ID = "neubau"
	Kombi      ID = "kombi"
)

func (id ID) String() string { return string(id) }

// ParseID normalizes user input into a unit identifier.
func ParseID(raw string) ID {
	return ID(strings.ToLower(strings.TrimSpace(raw)))
}

// Unit describes a single bookable identifier. Combined units list their
// physical parts and carry no cleaning fee of their own.
type Unit struct {
	ID          ID
	Label       string
	MaxGuests   int
	CleaningFee money.Money
	Parts       []ID
}

// Physical reports whether the unit owns a ledger of its own.
func (u Unit) Physical() bool {
	return len(u.Parts) == 0
}

// Catalog is the closed set of units the business rents out.
type Catalog struct {
	units map[ID]Unit
	order []ID
}

// DefaultUnits mirrors the two apartments and the bundle they form.
func DefaultUnits() []Unit {
	return []Unit{
		{ID: Hackerberg, Label: "Hackerberg", MaxGuests: 5, CleaningFee: money.Euros(90)},
		{ID: Neubau, Label: "Frühlingstraße", MaxGuests: 6, CleaningFee: money.Euros(90)},
		{ID: Kombi, Label: "Kombi-Paket", MaxGuests: 11, Parts: []ID{Hackerberg, Neubau}},
	}
}

// DefaultCatalog returns the catalog built from DefaultUnits.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultUnits())
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates the unit list. Combined units must reference
// physical units declared in the same list.
func NewCatalog(list []Unit) (*Catalog, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no units", ErrInvalidCatalog)
	}
	c := &Catalog{units: make(map[ID]Unit, len(list))}
	for _, u := range list {
		if u.ID == "" {
			return nil, fmt.Errorf("%w: empty unit id", ErrInvalidCatalog)
		}
		if _, dup := c.units[u.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate unit %s", ErrInvalidCatalog, u.ID)
		}
		if u.MaxGuests < 1 {
			return nil, fmt.Errorf("%w: unit %s must host at least one guest", ErrInvalidCatalog, u.ID)
		}
		c.units[u.ID] = u
		c.order = append(c.order, u.ID)
	}
	for _, u := range c.units {
		for _, part := range u.Parts {
			p, ok := c.units[part]
			if !ok || !p.Physical() {
				return nil, fmt.Errorf("%w: unit %s references unknown physical unit %s", ErrInvalidCatalog, u.ID, part)
			}
		}
	}
	return c, nil
}

// Get looks up a unit.
func (c *Catalog) Get(id ID) (Unit, error) {
	u, ok := c.units[id]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, id)
	}
	return u, nil
}

// All lists units in declaration order.
func (c *Catalog) All() []Unit {
	out := make([]Unit, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.units[id])
	}
	return out
}

// Physical lists units that own a ledger.
func (c *Catalog) Physical() []ID {
	var out []ID
	for _, id := range c.order {
		if c.units[id].Physical() {
			out = append(out, id)
		}
	}
	return out
}

// Implicated maps a unit to the physical units whose ledgers it touches.
// A physical unit implicates itself only.
func (c *Catalog) Implicated(id ID) ([]ID, error) {
	u, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if u.Physical() {
		return []ID{u.ID}, nil
	}
	out := make([]ID, len(u.Parts))
	copy(out, u.Parts)
	return out, nil
}

// Containing returns every unit, physical or combined, that implicates the
// given physical unit.
func (c *Catalog) Containing(physical ID) []ID {
	var out []ID
	for _, id := range c.order {
		u := c.units[id]
		if u.ID == physical {
			out = append(out, id)
			continue
		}
		for _, part := range u.Parts {
			if part == physical {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// CleaningFee is the fee of a physical unit or the sum over a combined unit's parts.
func (c *Catalog) CleaningFee(id ID) (money.Money, error) {
	parts, err := c.Implicated(id)
	if err != nil {
		return money.Money{}, err
	}
	total := money.Money{Amount: 0, Currency: money.EUR}
	for _, part := range parts {
		fee := c.units[part].CleaningFee
		if fee.Currency == "" {
			fee.Currency = money.EUR
		}
		if total, err = total.Add(fee); err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

// Admit checks that a party fits into an explicitly requested unit.
func (c *Catalog) Admit(id ID, party int) error {
	if party < 1 {
		return ErrInvalidParty
	}
	u, err := c.Get(id)
	if err != nil {
		return err
	}
	if party > u.MaxGuests {
		return fmt.Errorf("%w: %s hosts at most %d guests", ErrCapacityExceeded, u.Label, u.MaxGuests)
	}
	return nil
}

// Route decides which units are offered for a party size. Every physical
// unit large enough is offered; if none is, the smallest combined unit that
// fits is offered instead.
func (c *Catalog) Route(party int) ([]ID, error) {
	if party < 1 {
		return nil, ErrInvalidParty
	}
	var physical []ID
	for _, id := range c.order {
		u := c.units[id]
		if u.Physical() && u.MaxGuests >= party {
			physical = append(physical, id)
		}
	}
	if len(physical) > 0 {
		return physical, nil
	}

	var combined []Unit
	for _, id := range c.order {
		u := c.units[id]
		if !u.Physical() && u.MaxGuests >= party {
			combined = append(combined, u)
		}
	}
	if len(combined) == 0 {
		return nil, fmt.Errorf("%w: no unit hosts %d guests", ErrCapacityExceeded, party)
	}
	sort.SliceStable(combined, func(i, j int) bool { return combined[i].MaxGuests < combined[j].MaxGuests })
	return []ID{combined[0].ID}, nil
}
