package tools

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotatio-backend/internal/geom"
	"annotatio-backend/internal/model"
)

func TestDeleteSelected(t *testing.T) {
	m, st := newMachine()
	st.Add(model.TextNote{Base: model.Base{ID: "a", PageIndex: 0}, X: 0.5, Y: 0.5})
	st.Add(model.TextNote{Base: model.Base{ID: "b", PageIndex: 0}, X: 0.9, Y: 0.9})

	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 500, Y: 500})
	m.DeleteSelected()

	list := st.PageAnnotations(0)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].AnnotationID())
	assert.Empty(t, m.SelectedIDs())
}

func TestDuplicateSelectedGetsFreshIDs(t *testing.T) {
	m, st := newMachine()
	st.Add(model.TextNote{Base: model.Base{ID: "a", PageIndex: 0}, X: 0.5, Y: 0.5, Text: "원본"})

	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 500, Y: 500})
	m.DuplicateSelected()

	list := st.PageAnnotations(0)
	require.Len(t, list, 2)
	dup := list[1].(model.TextNote)
	assert.NotEqual(t, "a", dup.AnnotationID())
	assert.NotEmpty(t, dup.AnnotationID())
	assert.Equal(t, "원본", dup.Text)
	// 살짝 어긋난 위치
	assert.InDelta(t, 0.52, dup.X, 1e-9)

	// 복제본이 새 선택이 된다
	assert.Equal(t, []string{dup.AnnotationID()}, m.SelectedIDs())
}

func strokeFixture(id string) model.Stroke {
	return model.Stroke{
		Base:        model.Base{ID: id, PageIndex: 0},
		Points:      []model.PathPoint{{X: 0.4, Y: 0.5}, {X: 0.6, Y: 0.5}},
		StrokeWidth: 4,
	}
}

func TestNudgeStrokeMovesTenPixels(t *testing.T) {
	m, st := newMachine()
	st.Add(strokeFixture("s"))

	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 400, Y: 500})
	require.Equal(t, []string{"s"}, m.SelectedIDs())

	m.NudgeStroke(1, -2)

	moved := st.PageAnnotations(0)[0].(model.Stroke)
	// 1000px 페이지에서 10px = 0.01
	assert.InDelta(t, 0.41, moved.Points[0].X, 1e-9)
	assert.InDelta(t, 0.48, moved.Points[0].Y, 1e-9)
	assert.True(t, st.CanUndo())
}

func TestRotateStrokeAboutBoundsCenter(t *testing.T) {
	m, st := newMachine()
	st.Add(strokeFixture("s"))

	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 400, Y: 500})

	// 6 × 15° = 90° — (0.4,0.5)이 중심 (0.5,0.5) 기준으로 (0.5,0.4)로
	m.RotateStroke(6)

	rotated := st.PageAnnotations(0)[0].(model.Stroke)
	assert.InDelta(t, 0.5, rotated.Points[0].X, 1e-9)
	assert.InDelta(t, 0.4, rotated.Points[0].Y, 1e-9)
	assert.InDelta(t, 0.5, rotated.Points[1].X, 1e-9)
	assert.InDelta(t, 0.6, rotated.Points[1].Y, 1e-9)
}

func TestRotatePreservesCentroid(t *testing.T) {
	m, st := newMachine()
	st.Add(strokeFixture("s"))
	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 400, Y: 500})

	m.RotateStroke(1)
	rotated := st.PageAnnotations(0)[0].(model.Stroke)
	var cx, cy float64
	for _, p := range rotated.Points {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(rotated.Points))
	cy /= float64(len(rotated.Points))
	assert.True(t, math.Abs(cx-0.5) < 1e-9)
	assert.True(t, math.Abs(cy-0.5) < 1e-9)
}

func TestStrokeOpsRequireSingleStrokeSelection(t *testing.T) {
	m, st := newMachine()
	st.Add(model.TextNote{Base: model.Base{ID: "n", PageIndex: 0}, X: 0.5, Y: 0.5})

	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 500, Y: 500})

	// 획이 아닌 선택에는 no-op
	m.NudgeStroke(1, 0)
	m.RotateStroke(1)
	assert.InDelta(t, 0.5, st.PageAnnotations(0)[0].(model.TextNote).X, 1e-9)
	assert.False(t, st.CanUndo())
}
