package avrcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIODispatchFallsThroughWhenNoHandlerRegistered(t *testing.T) {
	d := NewIODispatch()
	_, ok := d.Read(0x40)
	require.False(t, ok, "an unclaimed address has no read hook")
	require.False(t, d.Write(0x40, 1), "an unclaimed address has no write hook")
}

func TestIODispatchReadWriteRouteToRegisteredHandler(t *testing.T) {
	d := NewIODispatch()
	var written byte
	d.RegisterWrite(0x40, func(addr uint16, v byte) { written = v })
	d.RegisterRead(0x40, func(addr uint16) byte { return 0xAB })

	require.True(t, d.Write(0x40, 0x55))
	require.Equal(t, byte(0x55), written)

	v, ok := d.Read(0x40)
	require.True(t, ok)
	require.Equal(t, byte(0xAB), v)
}

func TestIODispatchSharedWriteAddressMultiplexesInOrder(t *testing.T) {
	d := NewIODispatch()
	var order []string
	d.RegisterWrite(0x40, func(addr uint16, v byte) { order = append(order, "first") })
	d.RegisterWrite(0x40, func(addr uint16, v byte) { order = append(order, "second") })
	d.Write(0x40, 1)
	require.Equal(t, []string{"first", "second"}, order, "shared addresses call every registrant in registration order")
}

func TestIODispatchWriteRegistrantsBounded(t *testing.T) {
	d := NewIODispatch()
	for i := 0; i < maxWriteRegistrants; i++ {
		d.RegisterWrite(0x40, func(uint16, byte) {})
	}
	require.Panics(t, func() { d.RegisterWrite(0x40, func(uint16, byte) {}) })
}

func TestIODispatchDuplicateReadRegistrationPanics(t *testing.T) {
	d := NewIODispatch()
	d.RegisterRead(0x40, func(uint16) byte { return 0 })
	require.Panics(t, func() { d.RegisterRead(0x40, func(uint16) byte { return 1 }) },
		"a register has one read-side owner; a second claim is a wiring bug")
}

func TestIODispatchHasReadWrite(t *testing.T) {
	d := NewIODispatch()
	require.False(t, d.HasRead(0x40))
	require.False(t, d.HasWrite(0x40))
	d.RegisterRead(0x40, func(uint16) byte { return 0 })
	require.True(t, d.HasRead(0x40))
	require.False(t, d.HasWrite(0x40))
}

func TestIODispatchReadAndWriteHandlersAreIndependent(t *testing.T) {
	d := NewIODispatch()
	d.RegisterWrite(0x40, func(addr uint16, v byte) {})
	_, ok := d.Read(0x40)
	require.False(t, ok, "registering a write hook must not synthesize a read hook")
}
