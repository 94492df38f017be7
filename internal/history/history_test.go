package history

import (
	"fmt"
	"testing"

	"github.com/emrgen/canvas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(n int) *Entry {
	return &Entry{
		Blocks:      []*model.Block{{ID: fmt.Sprintf("b%d", n), Title: fmt.Sprintf("step %d", n)}},
		Description: fmt.Sprintf("step %d", n),
	}
}

func TestManager_UndoRedoRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 5, DefaultLimit} {
		t.Run(fmt.Sprintf("%d pushes", n), func(t *testing.T) {
			m := NewManager(DefaultLimit)
			for i := 1; i <= n; i++ {
				m.Push(entry(i))
			}
			final := m.Current()

			for i := 0; i < n; i++ {
				require.True(t, m.CanUndo())
				m.Undo()
			}
			assert.False(t, m.CanUndo())
			assert.True(t, m.CanRedo())

			var got *Entry
			for i := 0; i < n; i++ {
				got = m.Redo()
			}
			assert.False(t, m.CanRedo())
			assert.Same(t, final, got)
			assert.Same(t, final, m.Current())
		})
	}
}

func TestManager_UndoReturnsPreviousEntry(t *testing.T) {
	m := NewManager(10)
	first, second := entry(1), entry(2)
	m.Push(first)
	m.Push(second)

	assert.Same(t, first, m.Undo())
	assert.Nil(t, m.Undo())
	assert.Nil(t, m.Undo())

	past, future := m.Depth()
	assert.Equal(t, 0, past)
	assert.Equal(t, 2, future)
	assert.Same(t, first, m.Redo())
	assert.Same(t, second, m.Redo())
	assert.Nil(t, m.Redo())
}

func TestManager_PushClearsFuture(t *testing.T) {
	m := NewManager(10)
	m.Push(entry(1))
	m.Push(entry(2))
	m.Undo()
	require.True(t, m.CanRedo())

	m.Push(entry(3))
	assert.False(t, m.CanRedo())
	assert.Equal(t, []string{"step 1", "step 3"}, m.Descriptions())
}

func TestManager_Bounded(t *testing.T) {
	m := NewManager(3)
	for i := 1; i <= 5; i++ {
		m.Push(entry(i))
	}
	assert.Equal(t, []string{"step 3", "step 4", "step 5"}, m.Descriptions())

	m.Clear()
	assert.False(t, m.CanUndo())
	assert.Nil(t, m.Current())
}

func TestNewManager_DefaultLimit(t *testing.T) {
	m := NewManager(0)
	for i := 0; i < DefaultLimit+10; i++ {
		m.Push(entry(i))
	}
	past, _ := m.Depth()
	assert.Equal(t, DefaultLimit, past)
}
