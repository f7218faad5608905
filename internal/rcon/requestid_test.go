package rcon_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexmorten/rconsole/internal/rcon"
)

func TestRequestIDProvider_StartsAtMinInt32(t *testing.T) {
	p := rcon.NewRequestIDProvider()
	assert.Equal(t, int32(math.MinInt32), p.Next())
	assert.Equal(t, int32(math.MinInt32+1), p.Next())
}

func TestRequestIDProvider_UniquenessAcrossManyCommands(t *testing.T) {
	p := rcon.NewRequestIDProvider()
	seen := make(map[int32]bool)
	const n = 1000
	for i := 0; i < n; i++ {
		cmdID := p.Next()
		endID := p.Next()
		assert.False(t, seen[cmdID])
		assert.False(t, seen[endID])
		seen[cmdID] = true
		seen[endID] = true
		assert.NotEqual(t, int32(-1), cmdID)
		assert.NotEqual(t, int32(-1), endID)
	}
	assert.Len(t, seen, 2*n)
}

