package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/l1jgo/entitycore/internal/core/event"
)

type pinged struct{ N int }

type ponged struct{ Msg string }

func TestBusDeliversNextTick(t *testing.T) {
	bus := event.NewBus()
	var pings []int
	var pongs []string
	event.Subscribe(bus, func(p pinged) { pings = append(pings, p.N) })
	event.Subscribe(bus, func(p ponged) { pongs = append(pongs, p.Msg) })

	event.Emit(bus, pinged{N: 1})
	event.Emit(bus, pinged{N: 2})
	event.Emit(bus, ponged{Msg: "x"})
	assert.Equal(t, 3, bus.Pending())

	assert.Equal(t, 0, bus.DispatchAll(), "nothing is readable before the swap")
	assert.Empty(t, pings)

	bus.SwapBuffers()
	assert.Equal(t, 0, bus.Pending())
	assert.Equal(t, 3, bus.DispatchAll())
	assert.Equal(t, []int{1, 2}, pings)
	assert.Equal(t, []string{"x"}, pongs)

	bus.SwapBuffers()
	assert.Equal(t, 0, bus.DispatchAll())
}

func TestBusEventWithoutHandlersIsCounted(t *testing.T) {
	bus := event.NewBus()
	event.Emit(bus, pinged{N: 7})
	bus.SwapBuffers()
	assert.Equal(t, 1, bus.DispatchAll())
}
