package wave

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadBootSector(t *testing.T) {
	img, err := PadBootSector([]byte{0xB8, 0x13, 0x00})
	require.NoError(t, err)
	require.Len(t, img, 512)
	assert.Equal(t, byte(0xB8), img[0])
	assert.Equal(t, byte(0x55), img[510])
	assert.Equal(t, byte(0xAA), img[511])
	// Padding between code and signature is zero.
	assert.True(t, bytes.Equal(img[3:510], make([]byte, 507)))
}

func TestPadBootSectorExactFit(t *testing.T) {
	img, err := PadBootSector(make([]byte, 510))
	require.NoError(t, err)
	assert.Equal(t, byte(0x55), img[510])
	assert.Equal(t, byte(0xAA), img[511])
}

func TestPadBootSectorTooLarge(t *testing.T) {
	_, err := PadBootSector(make([]byte, 511))
	require.Error(t, err)
	assert.Contains(t, err.(*CompilerError).Message, "boot sector")
}
