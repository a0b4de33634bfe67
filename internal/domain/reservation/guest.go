package reservation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var ErrInvalidGuest = errors.New("reservation: invalid guest details")

// Guest holds the billing contact printed on the invoice.
type Guest struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Street  string
	Zip     string
	City    string
}

func (g Guest) Normalize() Guest {
	return Guest{
		Name:    strings.TrimSpace(g.Name),
		Email:   strings.ToLower(strings.TrimSpace(g.Email)),
		Phone:   strings.TrimSpace(g.Phone),
		Company: strings.TrimSpace(g.Company),
		Street:  strings.TrimSpace(g.Street),
		Zip:     strings.TrimSpace(g.Zip),
		City:    strings.TrimSpace(g.City),
	}
}

func (g Guest) Validate() error {
	g = g.Normalize()
	required := []struct {
		field string
		value string
	}{
		{"name", g.Name},
		{"email", g.Email},
		{"phone", g.Phone},
		{"company", g.Company},
		{"street", g.Street},
		{"zip", g.Zip},
		{"city", g.City},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidGuest, r.field)
		}
	}
	if _, err := mail.ParseAddress(g.Email); err != nil {
		return fmt.Errorf("%w: email %q", ErrInvalidGuest, g.Email)
	}
	return nil
}
