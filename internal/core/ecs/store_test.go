package ecs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entitycore/internal/core/ecs"
)

func TestStoreAddRemove(t *testing.T) {
	s := ecs.NewStore[string](0)
	var added, removed []string
	changes := 0
	s.Added().Connect(func(v string) { added = append(added, v) })
	s.Removed().Connect(func(v string) { removed = append(removed, v) })
	s.StateChanged().Connect(func(struct{}) { changes++ })

	assert.True(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.False(t, s.Add("a"), "duplicate add is rejected")
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.False(t, s.Remove("zzz"))

	assert.Equal(t, []string{"a", "b"}, added)
	assert.Equal(t, []string{"a"}, removed)
	assert.Equal(t, 3, changes, "only real insertions and removals notify")
	assert.Equal(t, 1, s.Count())
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains("a"))
}

func TestStoreSwapRemoveKeepsMembership(t *testing.T) {
	s := ecs.NewStore[int](4)
	for i := 0; i < 10; i++ {
		s.Add(i)
	}
	for _, v := range []int{0, 9, 4, 5} {
		require.True(t, s.Remove(v))
	}

	got := map[int]bool{}
	s.Each(func(v int) { got[v] = true })
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 6: true, 7: true, 8: true}, got)
	for v := range got {
		assert.True(t, s.Contains(v))
	}
}

func TestStoreCopyToAndRestartableIteration(t *testing.T) {
	s := ecs.NewStore[int](0)
	for i := 1; i <= 5; i++ {
		s.Add(i)
	}

	short := make([]int, 3)
	assert.Equal(t, 3, s.CopyTo(short))
	long := make([]int, 8)
	assert.Equal(t, 5, s.CopyTo(long))
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, long[:5])

	seq := s.All()
	sum := func() int {
		total := 0
		for v := range seq {
			total += v
		}
		return total
	}
	assert.Equal(t, 15, sum())
	assert.Equal(t, 15, sum(), "the same sequence can be ranged over again")
}

func TestStoreClear(t *testing.T) {
	s := ecs.NewStore[int](0)
	for i := 0; i < 4; i++ {
		s.Add(i)
	}
	var removed []int
	changes := 0
	s.Removed().Connect(func(v int) {
		removed = append(removed, v)
		assert.False(t, s.Contains(v), "member is gone before Removed fires")
	})
	s.StateChanged().Connect(func(struct{}) { changes++ })

	assert.Equal(t, 4, s.Clear())
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, removed)
	assert.Equal(t, 1, changes)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 0, s.Clear())
	assert.Equal(t, 1, changes)
}

func TestStoreRejectsMutationFromOwnListener(t *testing.T) {
	s := ecs.NewStore[int](0)
	s.Added().Connect(func(v int) {
		if v == 1 {
			s.Add(2)
		}
	})

	defer func() {
		v := recover()
		require.NotNil(t, v)
		err, ok := v.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ecs.ErrReentrantMutation))
	}()
	s.Add(1)
}

func TestStoreListenerMayMutateAnotherStore(t *testing.T) {
	src := ecs.NewStore[int](0)
	dst := ecs.NewStore[int](0)
	src.Added().Connect(func(v int) { dst.Add(v * 10) })
	src.Removed().Connect(func(v int) { dst.Remove(v * 10) })

	src.Add(1)
	src.Add(2)
	src.Remove(1)
	assert.True(t, dst.Contains(20))
	assert.False(t, dst.Contains(10))
	assert.Equal(t, 1, dst.Count())
}
