package mempool

import (
	"sync"
)

// Sized pools for the scratch buffers used by edge detection and contour
// extraction. Buffers are bucketed by size class so a 1000x800 frame and a
// 1000x801 frame share storage.

const classStep = 1024

// sizeClass rounds n up to the next multiple of 1024, with 1024 as the floor.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	r := (n + classStep - 1) / classStep
	return r * classStep
}

// SlicePool hands out []T buffers of at least the requested length.
type SlicePool[T any] struct {
	pools sync.Map // key: size class (int), value: *sync.Pool
	zero  bool
}

// NewSlicePool returns a pool. When zero is set Get clears the returned
// prefix so callers can rely on a clean buffer.
func NewSlicePool[T any](zero bool) *SlicePool[T] {
	return &SlicePool[T]{zero: zero}
}

func (p *SlicePool[T]) bucket(cls int) *sync.Pool {
	pAny, _ := p.pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	sp, _ := pAny.(*sync.Pool)
	return sp
}

// Get returns a slice of length n. The caller must hand it back via Put.
func (p *SlicePool[T]) Get(n int) []T {
	cls := sizeClass(n)
	sp := p.bucket(cls)
	if sp == nil {
		return make([]T, n, cls)
	}
	buf, ok := sp.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	if p.zero {
		clear(buf)
	}
	return buf
}

// Put returns buf to the pool. A nil slice is ignored.
func (p *SlicePool[T]) Put(buf []T) {
	if buf == nil {
		return
	}
	sp := p.bucket(sizeClass(cap(buf)))
	if sp == nil {
		return
	}
	sp.Put(buf[:cap(buf)]) //nolint:staticcheck
}

var (
	float32Pool = NewSlicePool[float32](false)
	boolPool    = NewSlicePool[bool](true)
	intPool     = NewSlicePool[int](true)
)

// GetFloat32 retrieves a []float32 of length n. Contents are not cleared.
func GetFloat32(n int) []float32 { return float32Pool.Get(n) }

// PutFloat32 returns a buffer obtained from GetFloat32.
func PutFloat32(buf []float32) { float32Pool.Put(buf) }

// GetBool retrieves a zeroed []bool of length n.
func GetBool(n int) []bool { return boolPool.Get(n) }

// PutBool returns a buffer obtained from GetBool.
func PutBool(buf []bool) { boolPool.Put(buf) }

// GetInt retrieves a zeroed []int of length n, used for component labels.
func GetInt(n int) []int { return intPool.Get(n) }

// PutInt returns a buffer obtained from GetInt.
func PutInt(buf []int) { intPool.Put(buf) }
