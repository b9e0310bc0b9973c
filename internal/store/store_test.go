package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotatio-backend/internal/model"
)

func note(id string, page int, x float64) model.TextNote {
	return model.TextNote{Base: model.Base{ID: id, PageIndex: page}, X: x, Y: 0.5, Text: "t"}
}

func TestAddRemoveUpdate(t *testing.T) {
	s := New()

	s.Add(note("a", 0, 0.1))
	s.Add(note("b", 0, 0.2))
	require.Len(t, s.PageAnnotations(0), 2)

	s.Remove("a")
	list := s.PageAnnotations(0)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].AnnotationID())

	s.Update(note("b", 0, 0.9))
	list = s.PageAnnotations(0)
	assert.InDelta(t, 0.9, list[0].(model.TextNote).X, 1e-9)
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	s := New()
	s.Add(note("a", 0, 0.1))

	s.Remove("missing")
	assert.Len(t, s.PageAnnotations(0), 1)
	// no-op은 로그에도 쌓이지 않는다
	s.Undo()
	assert.Empty(t, s.PageAnnotations(0))
	assert.False(t, s.CanUndo())
}

func TestUpdateUnknownIsNoop(t *testing.T) {
	s := New()
	s.Update(note("ghost", 0, 0.5))
	assert.Empty(t, s.PageAnnotations(0))
	assert.False(t, s.CanUndo())
}

func TestUndoIsStructuralInverse(t *testing.T) {
	s := New()

	s.Add(note("a", 0, 0.1))
	assert.True(t, s.CanUndo())
	s.Undo()
	assert.Empty(t, s.PageAnnotations(0))
	assert.False(t, s.CanUndo())
	assert.True(t, s.CanRedo())

	s.Redo()
	require.Len(t, s.PageAnnotations(0), 1)

	// remove의 undo는 복원
	s.Remove("a")
	s.Undo()
	require.Len(t, s.PageAnnotations(0), 1)

	// update의 undo는 이전 버전 복원
	s.Update(note("a", 0, 0.7))
	s.Undo()
	assert.InDelta(t, 0.1, s.PageAnnotations(0)[0].(model.TextNote).X, 1e-9)
	s.Redo()
	assert.InDelta(t, 0.7, s.PageAnnotations(0)[0].(model.TextNote).X, 1e-9)
}

func TestNewMutationClearsRedo(t *testing.T) {
	s := New()

	s.Add(note("a", 0, 0.1))
	s.Add(note("b", 0, 0.2))
	s.Undo()
	assert.True(t, s.CanRedo())

	// 모든 변경 종류가 redo를 비운다 — add만이 아니라
	s.Add(note("c", 0, 0.3))
	assert.False(t, s.CanRedo())

	s.Undo()
	assert.True(t, s.CanRedo())
	s.Remove("a")
	assert.False(t, s.CanRedo())
}

func TestUpdatePreservesZOrder(t *testing.T) {
	s := New()
	s.Add(note("a", 0, 0.1))
	s.Add(note("b", 0, 0.2))
	s.Add(note("c", 0, 0.3))

	s.Update(note("b", 0, 0.9))
	list := s.PageAnnotations(0)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].AnnotationID())
	assert.Equal(t, "b", list[1].AnnotationID())
	assert.Equal(t, "c", list[2].AnnotationID())
}

func TestUpdateCannotCrossPages(t *testing.T) {
	s := New()
	s.Add(note("a", 0, 0.1))

	// 새 값의 pageIndex로만 조회하므로 페이지를 바꾼 업데이트는 조용히 실패
	s.Update(note("a", 3, 0.9))
	assert.InDelta(t, 0.1, s.PageAnnotations(0)[0].(model.TextNote).X, 1e-9)
	assert.Empty(t, s.PageAnnotations(3))
}

func TestUndoRedoEmptyStacksNoop(t *testing.T) {
	s := New()
	s.Undo()
	s.Redo()
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestObserverNotifiedSynchronously(t *testing.T) {
	s := New()
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	s.Add(note("a", 2, 0.1))
	s.Undo()
	s.Redo()

	require.Len(t, events, 3)
	assert.Equal(t, EventAdd, events[0].Type)
	assert.Equal(t, 2, events[0].PageIndex)
	assert.Equal(t, EventUndo, events[1].Type)
	assert.Equal(t, EventRedo, events[2].Type)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := New()
	s.Add(note("a", 0, 0.1))

	snap := s.Snapshot()
	s.Add(note("b", 0, 0.2))

	assert.Len(t, snap[0], 1)
	assert.Len(t, s.PageAnnotations(0), 2)
}

func TestLoadResetsLogAndNotifies(t *testing.T) {
	s := New()
	s.Add(note("old", 0, 0.1))

	var resets int
	s.Subscribe(func(ev Event) {
		if ev.Type == EventReset {
			resets++
		}
	})

	s.Load(map[int][]model.Annotation{
		1: {note("x", 1, 0.3), note("y", 1, 0.4)},
	})

	assert.Empty(t, s.PageAnnotations(0))
	assert.Len(t, s.PageAnnotations(1), 2)
	assert.False(t, s.CanUndo())
	assert.Equal(t, 1, resets)
}

func TestFindAcrossPages(t *testing.T) {
	s := New()
	s.Add(note("a", 0, 0.1))
	s.Add(note("b", 5, 0.2))

	found, ok := s.Find("b")
	require.True(t, ok)
	assert.Equal(t, 5, found.Page())

	_, ok = s.Find("missing")
	assert.False(t, ok)
}

func TestCommandLogStacks(t *testing.T) {
	l := NewCommandLog()
	assert.False(t, l.CanUndo())

	l.Push(UndoAction{Type: ActionAdd, Annotation: note("a", 0, 0.1)})
	l.Push(UndoAction{Type: ActionAdd, Annotation: note("b", 0, 0.2)})

	a, ok := l.PopUndo()
	require.True(t, ok)
	assert.Equal(t, "b", a.Annotation.AnnotationID())
	assert.True(t, l.CanRedo())

	// Push는 redo를 비운다
	l.Push(UndoAction{Type: ActionAdd, Annotation: note("c", 0, 0.3)})
	assert.False(t, l.CanRedo())
	_, ok = l.PopRedo()
	assert.False(t, ok)
}
