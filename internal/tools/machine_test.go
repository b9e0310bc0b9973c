package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotatio-backend/internal/geom"
	"annotatio-backend/internal/model"
	"annotatio-backend/internal/store"
)

func newMachine() (*Machine, *store.Store) {
	st := store.New()
	m := New(st, nil)
	// 1000x1000 오프셋 0 — 화면 좌표 == 정규화 좌표 × 1000
	m.SetViewport(geom.Viewport{PageWidthPx: 1000, PageHeightPx: 1000, Zoom: 1})
	return m, st
}

func TestPenStrokeLifecycle(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolPen)

	m.DragStart(geom.ScreenPoint{X: 100, Y: 100})
	m.DragMove(geom.ScreenPoint{X: 150, Y: 150})
	m.DragMove(geom.ScreenPoint{X: 200, Y: 200})
	m.DragEnd()

	list := st.PageAnnotations(0)
	require.Len(t, list, 1)
	stroke := list[0].(model.Stroke)
	assert.Len(t, stroke.Points, 3)
	assert.False(t, stroke.IsHighlighter)
	assert.InDelta(t, 0.1, stroke.Points[0].X, 1e-9)
	assert.True(t, st.CanUndo())

	st.Undo()
	assert.Empty(t, st.PageAnnotations(0))
	assert.False(t, st.CanUndo())
}

func TestSinglePointStrokeDiscarded(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolPen)

	m.DragStart(geom.ScreenPoint{X: 100, Y: 100})
	m.DragEnd()

	assert.Empty(t, st.PageAnnotations(0))
	assert.False(t, st.CanUndo())
}

func TestHighlighterStoresFlagNotWidth(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolHighlighter)
	m.SetStrokeWidth(4)

	m.DragStart(geom.ScreenPoint{X: 100, Y: 100})
	m.DragMove(geom.ScreenPoint{X: 300, Y: 100})
	m.DragEnd()

	stroke := st.PageAnnotations(0)[0].(model.Stroke)
	assert.True(t, stroke.IsHighlighter)
	// 3배 폭은 렌더 시점에 적용 — 저장은 원폭
	assert.InDelta(t, 4.0, stroke.StrokeWidth, 1e-9)
}

func TestShapeBelowThresholdDiscarded(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolRectangle)

	// (0.50,0.50) → (0.505,0.503): 폭/높이 < 0.01
	m.DragStart(geom.ScreenPoint{X: 500, Y: 500})
	m.DragMove(geom.ScreenPoint{X: 505, Y: 503})
	m.DragEnd()

	assert.Empty(t, st.PageAnnotations(0))
	assert.False(t, st.CanUndo())
}

func TestShapeFromMinMaxCorners(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolCircle)

	// 오른쪽 아래에서 왼쪽 위로 드래그해도 min/max로 정규화
	m.DragStart(geom.ScreenPoint{X: 400, Y: 300})
	m.DragMove(geom.ScreenPoint{X: 200, Y: 100})
	m.DragEnd()

	shape := st.PageAnnotations(0)[0].(model.Shape)
	assert.Equal(t, model.ShapeCircle, shape.ShapeKind)
	assert.InDelta(t, 0.2, shape.X, 1e-9)
	assert.InDelta(t, 0.1, shape.Y, 1e-9)
	assert.InDelta(t, 0.2, shape.Width, 1e-9)
	assert.InDelta(t, 0.2, shape.Height, 1e-9)
}

func TestUnderlineIsAlwaysHorizontal(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolUnderline)

	// 대각선 드래그 — y는 두 끝의 중점
	m.DragStart(geom.ScreenPoint{X: 200, Y: 400})
	m.DragMove(geom.ScreenPoint{X: 600, Y: 600})
	m.DragEnd()

	ul := st.PageAnnotations(0)[0].(model.Underline)
	assert.InDelta(t, 0.2, ul.X, 1e-9)
	assert.InDelta(t, 0.4, ul.Width, 1e-9)
	assert.InDelta(t, 0.5, ul.Y, 1e-9)
}

func TestSmartGraphicHigherThreshold(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolSmartGraphic)
	m.SetSmartGraphicKind(model.SmartGraphicOrgChart)

	// 0.03 × 0.03 — 도형 임계값(0.01)은 넘지만 스마트 임계값(0.05) 미달
	m.DragStart(geom.ScreenPoint{X: 100, Y: 100})
	m.DragMove(geom.ScreenPoint{X: 130, Y: 130})
	m.DragEnd()
	assert.Empty(t, st.PageAnnotations(0))

	m.DragStart(geom.ScreenPoint{X: 100, Y: 100})
	m.DragMove(geom.ScreenPoint{X: 200, Y: 200})
	m.DragEnd()
	sg := st.PageAnnotations(0)[0].(model.SmartGraphic)
	assert.Equal(t, model.SmartGraphicOrgChart, sg.GraphicKind)
}

func TestCancelDiscardsGesture(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolPen)

	m.DragStart(geom.ScreenPoint{X: 100, Y: 100})
	m.DragMove(geom.ScreenPoint{X: 200, Y: 200})
	m.Cancel()
	m.DragEnd()

	assert.Empty(t, st.PageAnnotations(0))
}

func TestEraserRemovesTopmostOnly(t *testing.T) {
	m, st := newMachine()

	// 같은 위치에 두 개 — 나중 것이 최상단
	st.Add(model.TextNote{Base: model.Base{ID: "bottom", PageIndex: 0}, X: 0.5, Y: 0.5})
	st.Add(model.TextNote{Base: model.Base{ID: "top", PageIndex: 0}, X: 0.5, Y: 0.5})

	m.SelectTool(model.ToolEraser)
	m.Tap(geom.ScreenPoint{X: 500, Y: 500})

	list := st.PageAnnotations(0)
	require.Len(t, list, 1)
	assert.Equal(t, "bottom", list[0].AnnotationID())
}

func TestSelectTapPicksTopmostOrClears(t *testing.T) {
	m, st := newMachine()
	st.Add(model.TextNote{Base: model.Base{ID: "a", PageIndex: 0}, X: 0.5, Y: 0.5})
	st.Add(model.TextNote{Base: model.Base{ID: "b", PageIndex: 0}, X: 0.5, Y: 0.5})

	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 500, Y: 500})
	assert.Equal(t, []string{"b"}, m.SelectedIDs())

	// 빈 곳 탭은 선택 해제
	m.Tap(geom.ScreenPoint{X: 900, Y: 100})
	assert.Empty(t, m.SelectedIDs())
}

func TestSelectDragCommitsOnceOnEnd(t *testing.T) {
	m, st := newMachine()
	st.Add(model.TextNote{Base: model.Base{ID: "a", PageIndex: 0}, X: 0.5, Y: 0.5})

	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 500, Y: 500})
	require.Equal(t, []string{"a"}, m.SelectedIDs())

	m.DragStart(geom.ScreenPoint{X: 500, Y: 500})
	m.DragMove(geom.ScreenPoint{X: 550, Y: 500})
	m.DragMove(geom.ScreenPoint{X: 600, Y: 520})
	m.DragEnd()

	moved := st.PageAnnotations(0)[0].(model.TextNote)
	assert.InDelta(t, 0.6, moved.X, 1e-9)
	assert.InDelta(t, 0.52, moved.Y, 1e-9)

	// 드래그 전체가 undo 한 번
	st.Undo()
	back := st.PageAnnotations(0)[0].(model.TextNote)
	assert.InDelta(t, 0.5, back.X, 1e-9)
	assert.False(t, st.CanUndo())
}

func TestSelectDragOnUnselectedDoesNothing(t *testing.T) {
	m, st := newMachine()
	st.Add(model.TextNote{Base: model.Base{ID: "a", PageIndex: 0}, X: 0.5, Y: 0.5})

	m.SelectTool(model.ToolSelect)
	// 선택하지 않은 채 드래그
	m.DragStart(geom.ScreenPoint{X: 500, Y: 500})
	m.DragMove(geom.ScreenPoint{X: 600, Y: 500})
	m.DragEnd()

	assert.InDelta(t, 0.5, st.PageAnnotations(0)[0].(model.TextNote).X, 1e-9)
	assert.False(t, st.CanUndo())
}

func TestLassoSelectsByCenterOnly(t *testing.T) {
	m, st := newMachine()
	// 중심 (300,300) — 폴리곤 안
	st.Add(model.Shape{Base: model.Base{ID: "in", PageIndex: 0}, ShapeKind: model.ShapeRectangle, X: 0.25, Y: 0.25, Width: 0.1, Height: 0.1})
	// 중심 (700,700) — 폴리곤 밖 (가장자리가 걸쳐도 선택 안 됨)
	st.Add(model.Shape{Base: model.Base{ID: "out", PageIndex: 0}, ShapeKind: model.ShapeRectangle, X: 0.38, Y: 0.38, Width: 0.6, Height: 0.6})

	m.SelectTool(model.ToolLasso)
	m.DragStart(geom.ScreenPoint{X: 200, Y: 200})
	m.DragMove(geom.ScreenPoint{X: 450, Y: 200})
	m.DragMove(geom.ScreenPoint{X: 450, Y: 450})
	m.DragMove(geom.ScreenPoint{X: 200, Y: 450})
	m.DragEnd()

	assert.Equal(t, []string{"in"}, m.SelectedIDs())
}

func TestTapOnlyToolsRequestModal(t *testing.T) {
	st := store.New()
	rec := &recordingRequests{}
	m := New(st, rec)
	m.SetViewport(geom.Viewport{PageWidthPx: 1000, PageHeightPx: 1000, Zoom: 1})

	m.SelectTool(model.ToolTextNote)
	m.Tap(geom.ScreenPoint{X: 250, Y: 750})

	// 탭은 스토어를 건드리지 않는다
	assert.Empty(t, st.PageAnnotations(0))
	require.NotNil(t, rec.textNotePos)
	assert.InDelta(t, 0.25, rec.textNotePos.X, 1e-9)

	// 확정이 캡처된 위치로 추가
	m.CompleteTextNote("hello")
	list := st.PageAnnotations(0)
	require.Len(t, list, 1)
	note := list[0].(model.TextNote)
	assert.Equal(t, "hello", note.Text)
	assert.InDelta(t, 0.25, note.X, 1e-9)
	assert.InDelta(t, 0.75, note.Y, 1e-9)
}

func TestCompleteWithoutTapIsNoop(t *testing.T) {
	m, st := newMachine()
	m.CompleteTextNote("orphan")
	assert.Empty(t, st.PageAnnotations(0))
}

func TestCancelPendingDropsPosition(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolComment)
	m.Tap(geom.ScreenPoint{X: 500, Y: 500})
	m.CancelPending()
	m.CompleteComment("late")
	assert.Empty(t, st.PageAnnotations(0))
}

func TestCompleteTableValidatesShape(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolTable)

	m.Tap(geom.ScreenPoint{X: 100, Y: 100})
	// rows=2 인데 cell row가 1개 — 버린다
	m.CompleteTable(2, 2, [][]string{{"a", "b"}}, 0.3, 0.2)
	assert.Empty(t, st.PageAnnotations(0))

	m.Tap(geom.ScreenPoint{X: 100, Y: 100})
	m.CompleteTable(2, 2, [][]string{{"a", "b"}, {"c", "d"}}, 0.3, 0.2)
	assert.Len(t, st.PageAnnotations(0), 1)
}

func TestCompleteLinkDefaultsDisplayText(t *testing.T) {
	m, st := newMachine()
	m.SelectTool(model.ToolLink)
	m.Tap(geom.ScreenPoint{X: 100, Y: 100})
	m.CompleteLink("", "https://example.com")

	link := st.PageAnnotations(0)[0].(model.Link)
	assert.Equal(t, "https://example.com", link.DisplayText)
}

func TestHighlightRectFromTextSelection(t *testing.T) {
	m, st := newMachine()

	m.AddHighlightRect(0.1, 0.2, 0.3, 0.05)
	require.Len(t, st.PageAnnotations(0), 1)
	hr := st.PageAnnotations(0)[0].(model.HighlightRect)
	assert.Equal(t, model.ColorHighlightYellow, hr.Color)

	// 퇴화 영역은 버린다
	m.AddHighlightRect(0.1, 0.2, 0, 0.05)
	assert.Len(t, st.PageAnnotations(0), 1)
}

func TestPageSwitchClearsGestureAndSelection(t *testing.T) {
	m, st := newMachine()
	st.Add(model.TextNote{Base: model.Base{ID: "a", PageIndex: 0}, X: 0.5, Y: 0.5})

	m.SelectTool(model.ToolSelect)
	m.Tap(geom.ScreenPoint{X: 500, Y: 500})
	require.NotEmpty(t, m.SelectedIDs())

	m.SetPage(1)
	assert.Empty(t, m.SelectedIDs())
	assert.Equal(t, 1, m.Page())
}

// recordingRequests 모달 요청 캡처용
type recordingRequests struct {
	textNotePos *model.PathPoint
}

func (r *recordingRequests) RequestTextNote(pos model.PathPoint)  { r.textNotePos = &pos }
func (r *recordingRequests) RequestComment(model.PathPoint)       {}
func (r *recordingRequests) RequestTable(model.PathPoint)         {}
func (r *recordingRequests) RequestSignature(model.PathPoint)     {}
func (r *recordingRequests) RequestImage(model.PathPoint)         {}
func (r *recordingRequests) RequestLink(model.PathPoint)          {}
