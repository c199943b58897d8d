package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serprog/serprog/internal/transporttest"
	"github.com/serprog/serprog/pkg/device"
	"github.com/serprog/serprog/pkg/protocol"
)

func writeOnePageHex(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.hex")
	// 16 bytes of data at 0x0000, padded by the Session to a 512-byte page.
	contents := ":10000000214601360121470136007EFE09D2190141\n:00000001FF\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func feedOK(t *testing.T, tr *transporttest.Transport, command byte, extra []byte) {
	t.Helper()
	payload := append([]byte{0x00}, extra...)
	frame, err := protocol.Encode(command, payload)
	require.NoError(t, err)
	tr.Feed(frame)
}

func TestHandshakeMismatchFailsConstructionWithNoWrites(t *testing.T) {
	tr := transporttest.New()
	clock := transporttest.NewClock()

	feedOK(t, tr, protocol.CmdChkProtocol, []byte{1})
	feedOK(t, tr, protocol.CmdChkDevice, []byte{2}) // detected id 2, requested 1

	_, err := New(tr, clock, nil, Options{DeviceID: 1})
	require.Error(t, err)

	var mismatch *CheckDeviceError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint8(1), mismatch.Requested)
	assert.Equal(t, uint8(2), mismatch.Detected)

	// Only the handshake's two requests were ever written.
	assert.Len(t, tr.Written(), 2)
}

func TestEndToEndFlashOnePage(t *testing.T) {
	path := writeOnePageHex(t)

	tr := transporttest.New()
	clock := transporttest.NewClock()

	feedOK(t, tr, protocol.CmdChkProtocol, []byte{1})
	feedOK(t, tr, protocol.CmdChkDevice, []byte{1})
	feedOK(t, tr, protocol.CmdFlashEraseAll, nil)
	feedOK(t, tr, protocol.CmdFlashWrite, nil)
	feedOK(t, tr, protocol.CmdProgEnd, nil)

	s, err := New(tr, clock, nil, Options{DeviceID: 1, FlashPath: path})
	require.NoError(t, err)

	assert.Equal(t, 2, s.TotalSteps())

	for !s.Done() {
		require.NoError(t, s.Step())
	}
	assert.Equal(t, 2, s.CurStep())

	written := tr.Written()
	require.Len(t, written, 5)
	assert.Equal(t, byte(protocol.CmdChkProtocol), written[0][3])
	assert.Equal(t, byte(protocol.CmdChkDevice), written[1][3])
	assert.Equal(t, byte(protocol.CmdFlashEraseAll), written[2][3])
	assert.Equal(t, byte(protocol.CmdFlashWrite), written[3][3])
	assert.Equal(t, byte(protocol.CmdProgEnd), written[4][3])

	// FLASH_WRITE payload is addr(4 LE) ++ 512 bytes of page data.
	writePayload := written[3][6 : len(written[3])-1]
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, writePayload[:4])
	assert.Len(t, writePayload[4:], 512)
}

func TestStepConservationMatchesTotalSteps(t *testing.T) {
	path := writeOnePageHex(t)

	tr := transporttest.New()
	clock := transporttest.NewClock()

	feedOK(t, tr, protocol.CmdChkProtocol, []byte{1})
	feedOK(t, tr, protocol.CmdChkDevice, []byte{1})
	feedOK(t, tr, protocol.CmdFlashEraseAll, nil)
	feedOK(t, tr, protocol.CmdFlashWrite, nil)
	feedOK(t, tr, protocol.CmdProgEnd, nil)

	s, err := New(tr, clock, nil, Options{DeviceID: 1, FlashPath: path})
	require.NoError(t, err)

	steps := 0
	for !s.Done() {
		require.NoError(t, s.Step())
		steps++
	}
	assert.Equal(t, s.TotalSteps(), steps)
}

func TestMissingFlashFileFailsConstruction(t *testing.T) {
	tr := transporttest.New()
	clock := transporttest.NewClock()

	_, err := New(tr, clock, nil, Options{DeviceID: 1, FlashPath: "/no/such/file.hex"})
	require.Error(t, err)
	var fnf *FileNotFoundError
	assert.ErrorAs(t, err, &fnf)
}

func TestAutoDeviceAdoptsDetectedID(t *testing.T) {
	path := writeOnePageHex(t)

	tr := transporttest.New()
	clock := transporttest.NewClock()

	feedOK(t, tr, protocol.CmdChkProtocol, []byte{1})
	feedOK(t, tr, protocol.CmdChkDevice, []byte{2})
	feedOK(t, tr, protocol.CmdFlashEraseAll, nil)
	feedOK(t, tr, protocol.CmdFlashWrite, nil)
	feedOK(t, tr, protocol.CmdProgEnd, nil)

	s, err := New(tr, clock, nil, Options{DeviceID: device.Auto, FlashPath: path})
	require.NoError(t, err)
	assert.Equal(t, "NUM487KM_DEVB", s.Device().Name)
}
