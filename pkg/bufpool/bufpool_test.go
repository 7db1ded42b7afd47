package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	t.Run("PooledBuffer", func(t *testing.T) {
		buf := Get(100)
		defer Put(buf)

		assert.Equal(t, 100, len(buf))
		assert.Equal(t, DefaultBufSize, cap(buf))
	})

	t.Run("FullClassBuffer", func(t *testing.T) {
		buf := Get(DefaultBufSize)
		defer Put(buf)

		assert.Equal(t, DefaultBufSize, len(buf))
		assert.Equal(t, DefaultBufSize, cap(buf))
	})

	t.Run("OversizedAllocatesDirectly", func(t *testing.T) {
		buf := Get(DefaultBufSize + 1)
		defer Put(buf)

		assert.Equal(t, DefaultBufSize+1, len(buf))
		assert.Equal(t, len(buf), cap(buf))
	})

	t.Run("ZeroSize", func(t *testing.T) {
		buf := Get(0)
		defer Put(buf)

		assert.NotNil(t, buf)
		assert.Equal(t, 0, len(buf))
		assert.Equal(t, DefaultBufSize, cap(buf))
	})
}

func TestPut(t *testing.T) {
	t.Run("ReusesReturnedBuffer", func(t *testing.T) {
		buf1 := Get(512)
		Put(buf1)

		buf2 := Get(512)
		Put(buf2)

		assert.Equal(t, cap(buf1), cap(buf2))
	})

	t.Run("NilIsIgnored", func(t *testing.T) {
		require.NotPanics(t, func() {
			Put(nil)
		})
	})

	t.Run("ForeignCapacityIsIgnored", func(t *testing.T) {
		require.NotPanics(t, func() {
			Put(make([]byte, 37))
		})
	})
}

func TestGetUint16(t *testing.T) {
	buf := GetUint16(1024)
	defer Put(buf)

	assert.Equal(t, 1024, len(buf))
	assert.Equal(t, DefaultBufSize, cap(buf))
}

func TestCustomPool(t *testing.T) {
	t.Run("CustomClass", func(t *testing.T) {
		pool := NewPool(8192)
		assert.Equal(t, 8192, pool.BufSize())

		buf := pool.Get(3000)
		assert.Equal(t, 8192, cap(buf))
		pool.Put(buf)
	})

	t.Run("ZeroSelectsDefault", func(t *testing.T) {
		pool := NewPool(0)
		assert.Equal(t, DefaultBufSize, pool.BufSize())
	})
}

func TestConcurrentGetPut(t *testing.T) {
	const goroutines = 16
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				buf := Get((id*31 + j) % (DefaultBufSize * 2))
				if len(buf) > 0 {
					buf[0] = byte(id)
				}
				Put(buf)
			}
		}(i)
	}

	wg.Wait()
}

func BenchmarkGetPut(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := Get(1024)
		Put(buf)
	}
}

func BenchmarkGetPutParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := Get(1024)
			Put(buf)
		}
	})
}
