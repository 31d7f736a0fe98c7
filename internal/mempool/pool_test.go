package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, 1024},
		{1, 1024},
		{1024, 1024},
		{1025, 2048},
		{1500, 2048},
		{10000, 10240},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sizeClass(tt.input), "n=%d", tt.input)
	}
}

func TestGetBool_Zeroed(t *testing.T) {
	buf := GetBool(500)
	require.Len(t, buf, 500)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	again := GetBool(500)
	for i, v := range again {
		require.False(t, v, "index %d not cleared", i)
	}
	PutBool(again)
}

func TestGetInt_Zeroed(t *testing.T) {
	buf := GetInt(3000)
	assert.Len(t, buf, 3000)
	assert.GreaterOrEqual(t, cap(buf), 3072)
	buf[0] = 7
	PutInt(buf)

	again := GetInt(3000)
	assert.Zero(t, again[0])
	PutInt(again)
}

func TestGetFloat32_Length(t *testing.T) {
	buf := GetFloat32(10)
	assert.Len(t, buf, 10)
	assert.Equal(t, 1024, cap(buf))
	PutFloat32(buf)
	PutFloat32(nil)
}

func TestSlicePool_Concurrent(t *testing.T) {
	p := NewSlicePool[uint8](true)
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := range 200 {
				n := 100 + (seed*37+i)%5000
				buf := p.Get(n)
				if len(buf) != n {
					t.Errorf("len %d, want %d", len(buf), n)
					return
				}
				for j := range buf {
					if buf[j] != 0 {
						t.Errorf("dirty buffer at %d", j)
						return
					}
					buf[j] = 1
				}
				p.Put(buf)
			}
		}(w)
	}
	wg.Wait()
}
