package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferUpdateRejectsOutOfRange(t *testing.T) {
	// Frame regions start at frameIndex*frameStride; writes past the
	// buffer end are refused before any memory is touched, so a region
	// for one frame slot can never spill into the next.
	b := &Buffer{Size: 256}

	err := b.Update(nil, 1, 192, make([]byte, 128))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	err = b.Update(nil, 2, 128, make([]byte, 1))
	require.Error(t, err)

	assert.NoError(t, b.Update(nil, 0, 128, nil), "empty update is a no-op")
}
