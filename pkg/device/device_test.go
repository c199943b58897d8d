package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByIDKnownDevices(t *testing.T) {
	auto, err := ByID(Auto)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), auto.ProtocolVersion)

	same54, err := ByID(1)
	require.NoError(t, err)
	assert.Equal(t, "ATSAME54_DEVB", same54.Name)
	assert.Equal(t, uint8(1), same54.ProtocolVersion)

	num487, err := ByID(2)
	require.NoError(t, err)
	assert.Equal(t, "NUM487KM_DEVB", num487.Name)
}

func TestByIDUnknown(t *testing.T) {
	_, err := ByID(99)
	require.Error(t, err)
	var typeErr *TypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestResolveByNumber(t *testing.T) {
	id, ok := Resolve("1")
	require.True(t, ok)
	assert.Equal(t, uint8(1), id)
}

func TestResolveByName(t *testing.T) {
	id, ok := Resolve("NUM487KM_DEVB")
	require.True(t, ok)
	assert.Equal(t, uint8(2), id)
}

func TestResolveUnknown(t *testing.T) {
	_, ok := Resolve("NOT_A_DEVICE")
	assert.False(t, ok)

	_, ok = Resolve("255")
	assert.False(t, ok)
}

func TestEstimateSecondsMatchesPerDeviceConstants(t *testing.T) {
	same54, err := ByID(1)
	require.NoError(t, err)
	got := same54.EstimateSeconds(10, 4, 2)
	want := 0.23*10 + 0.05*4 + 0.30*2 + 4.5
	assert.InDelta(t, want, got, 1e-9)

	num487, err := ByID(2)
	require.NoError(t, err)
	got = num487.EstimateSeconds(10, 4, 2)
	want = 0.14*10 + 0.05*4 + 0.20*2 + 3.3
	assert.InDelta(t, want, got, 1e-9)
}

func TestAllReturnsIndependentCopy(t *testing.T) {
	all := All()
	all[0].Name = "mutated"

	again := All()
	assert.Equal(t, "auto", again[0].Name)
}
