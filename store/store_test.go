package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrisk/risk"
)

func TestPutGet(t *testing.T) {
	s, err := New(4)
	require.NoError(t, err)

	a := &risk.Assessment{ID: "a", RiskPercentage: 3.2, Category: risk.Low}
	s.Put(a)
	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutIgnoresEmpty(t *testing.T) {
	s, err := New(4)
	require.NoError(t, err)
	s.Put(nil)
	s.Put(&risk.Assessment{})
	assert.Equal(t, 0, s.Len())
}

func TestEviction(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)

	s.Put(&risk.Assessment{ID: "1"})
	s.Put(&risk.Assessment{ID: "2"})
	_, err = s.Get("1")
	require.NoError(t, err)
	s.Put(&risk.Assessment{ID: "3"})

	assert.Equal(t, 2, s.Len())
	_, err = s.Get("2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get("1")
	assert.NoError(t, err)
}

func TestDefaultSize(t *testing.T) {
	s, err := New(0)
	require.NoError(t, err)
	for i := 0; i < DefaultSize+10; i++ {
		s.Put(&risk.Assessment{ID: fmt.Sprint(i)})
	}
	assert.Equal(t, DefaultSize, s.Len())
}

func TestConcurrentAccess(t *testing.T) {
	s, err := New(64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			s.Put(&risk.Assessment{ID: id})
			_, _ = s.Get(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, s.Len())
}
