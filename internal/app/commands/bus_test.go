package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type holdCommand struct{ Nights int }

func (holdCommand) Key() string { return "test.hold" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestDispatchTyped(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, holdCommand{}.Key(), HandlerFunc[holdCommand, int](func(_ context.Context, cmd holdCommand) (int, error) {
		return cmd.Nights * 2, nil
	}))

	got, err := Dispatch[holdCommand, int](context.Background(), bus, holdCommand{Nights: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, got)

	_, err = Dispatch[holdCommand, string](context.Background(), bus, holdCommand{Nights: 1})
	assert.ErrorIs(t, err, ErrResultType)
}

func TestDispatchUnknownKey(t *testing.T) {
	_, err := Dispatch[otherCommand, any](context.Background(), NewInMemoryBus(), otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Contains(t, err.Error(), "test.other")

	_, err = Dispatch[otherCommand, any](context.Background(), nil, otherCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterHandlerRejectsDuplicates(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[holdCommand, int](func(context.Context, holdCommand) (int, error) { return 0, nil })
	RegisterHandler(bus, "test.hold", h)
	assert.Panics(t, func() { RegisterHandler(bus, "test.hold", h) })
	assert.Panics(t, func() { RegisterHandler(bus, "", h) })
	assert.Equal(t, []string{"test.hold"}, bus.Keys())
}
