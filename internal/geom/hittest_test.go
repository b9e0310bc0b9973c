package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"annotatio-backend/internal/model"
)

func TestContainsStroke(t *testing.T) {
	stroke := model.Stroke{
		Base:   model.Base{ID: "s1"},
		Points: []model.PathPoint{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}, {X: 0.3, Y: 0.3}},
	}

	// 샘플 포인트 근처
	assert.True(t, Contains(stroke, model.PathPoint{X: 0.21, Y: 0.19}))
	// 멀리
	assert.False(t, Contains(stroke, model.PathPoint{X: 0.8, Y: 0.8}))
	// 점 사이 중간이라도 샘플에서 멀면 빠진다 (샘플 근접 판정의 한계)
	assert.False(t, Contains(stroke, model.PathPoint{X: 0.15, Y: 0.25}))
}

func TestContainsBoxVariants(t *testing.T) {
	rect := model.HighlightRect{Base: model.Base{ID: "h1"}, X: 0.2, Y: 0.2, Width: 0.3, Height: 0.1}
	assert.True(t, Contains(rect, model.PathPoint{X: 0.35, Y: 0.25}))
	assert.False(t, Contains(rect, model.PathPoint{X: 0.35, Y: 0.35}))

	shape := model.Shape{Base: model.Base{ID: "sh1"}, ShapeKind: model.ShapeCircle, X: 0.5, Y: 0.5, Width: 0.2, Height: 0.2}
	assert.True(t, Contains(shape, model.PathPoint{X: 0.6, Y: 0.6}))
	assert.False(t, Contains(shape, model.PathPoint{X: 0.4, Y: 0.4}))
}

func TestContainsPointMarkers(t *testing.T) {
	note := model.TextNote{Base: model.Base{ID: "n1"}, X: 0.5, Y: 0.5}
	assert.True(t, Contains(note, model.PathPoint{X: 0.52, Y: 0.48}))
	assert.False(t, Contains(note, model.PathPoint{X: 0.56, Y: 0.5}))

	// 링크는 수평으로 3배 넓게 잡힌다
	link := model.Link{Base: model.Base{ID: "l1"}, X: 0.5, Y: 0.5}
	assert.True(t, Contains(link, model.PathPoint{X: 0.6, Y: 0.5}))
	assert.False(t, Contains(link, model.PathPoint{X: 0.63, Y: 0.5}))
}

func TestContainsLines(t *testing.T) {
	ul := model.Underline{Base: model.Base{ID: "u1"}, X: 0.2, Y: 0.5, Width: 0.4}
	assert.True(t, Contains(ul, model.PathPoint{X: 0.4, Y: 0.55}))
	assert.False(t, Contains(ul, model.PathPoint{X: 0.4, Y: 0.6}))
	assert.False(t, Contains(ul, model.PathPoint{X: 0.1, Y: 0.5}))
}

func TestContainsLooseErasesWider(t *testing.T) {
	note := model.TextNote{Base: model.Base{ID: "n1"}, X: 0.5, Y: 0.5}
	pt := model.PathPoint{X: 0.56, Y: 0.5} // 기본 임계값 밖, 2배 안

	assert.False(t, Contains(note, pt))
	assert.True(t, ContainsLoose(note, pt))
}

func TestBoundsNormalizedStroke(t *testing.T) {
	stroke := model.Stroke{
		Base:   model.Base{ID: "s1"},
		Points: []model.PathPoint{{X: 0.3, Y: 0.7}, {X: 0.1, Y: 0.2}, {X: 0.5, Y: 0.4}},
	}
	b := BoundsNormalized(stroke)
	assert.InDelta(t, 0.1, b.Left, 1e-9)
	assert.InDelta(t, 0.2, b.Top, 1e-9)
	assert.InDelta(t, 0.5, b.Right, 1e-9)
	assert.InDelta(t, 0.7, b.Bottom, 1e-9)

	// 빈 스트로크는 zero rect
	assert.True(t, BoundsNormalized(model.Stroke{Base: model.Base{ID: "s2"}}).IsZero())
}

func TestBoundsScreenPadding(t *testing.T) {
	vp := testViewport()
	shape := model.Shape{Base: model.Base{ID: "sh1"}, ShapeKind: model.ShapeRectangle, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}

	b := BoundsScreen(shape, vp)
	tl := NormalizedToScreen(model.PathPoint{X: 0.1, Y: 0.1}, vp)
	assert.InDelta(t, tl.X-SelectionPadPx, b.Left, 1e-9)
	assert.InDelta(t, tl.Y-SelectionPadPx, b.Top, 1e-9)
}

func TestBoundsScreenMarkerBox(t *testing.T) {
	vp := testViewport()
	note := model.TextNote{Base: model.Base{ID: "n1"}, X: 0.5, Y: 0.5}
	c := NormalizedToScreen(model.PathPoint{X: 0.5, Y: 0.5}, vp)

	b := BoundsScreen(note, vp)
	assert.InDelta(t, c.X-14-SelectionPadPx, b.Left, 1e-9)
	assert.InDelta(t, c.Y+14+SelectionPadPx, b.Bottom, 1e-9)
}

func TestCenterScreen(t *testing.T) {
	vp := testViewport()

	stroke := model.Stroke{
		Base:   model.Base{ID: "s1"},
		Points: []model.PathPoint{{X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.4}},
	}
	c, ok := CenterScreen(stroke, vp)
	assert.True(t, ok)
	want := NormalizedToScreen(model.PathPoint{X: 0.3, Y: 0.3}, vp)
	assert.InDelta(t, want.X, c.X, 1e-9)
	assert.InDelta(t, want.Y, c.Y, 1e-9)

	// 빈 스트로크는 대표 점이 없다
	_, ok = CenterScreen(model.Stroke{Base: model.Base{ID: "s2"}}, vp)
	assert.False(t, ok)
}

func TestPointInPolygon(t *testing.T) {
	square := []ScreenPoint{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

	assert.True(t, PointInPolygon(ScreenPoint{X: 5, Y: 5}, square))
	assert.False(t, PointInPolygon(ScreenPoint{X: 15, Y: 5}, square))

	// 닫히지 않은 경로도 암묵적으로 닫힌다
	open := []ScreenPoint{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	assert.True(t, PointInPolygon(ScreenPoint{X: 7, Y: 3}, open))
	assert.False(t, PointInPolygon(ScreenPoint{X: 2, Y: 8}, open))

	// 꼭짓점이 3개 미만이면 항상 false
	assert.False(t, PointInPolygon(ScreenPoint{X: 0, Y: 0}, []ScreenPoint{{X: 0, Y: 0}, {X: 1, Y: 1}}))
}

func TestPointInPolygonConcave(t *testing.T) {
	// U자 모양 — 짝홀 규칙이 오목 폴리곤에서도 맞는지
	u := []ScreenPoint{
		{X: 0, Y: 0}, {X: 12, Y: 0}, {X: 12, Y: 12}, {X: 8, Y: 12},
		{X: 8, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 12}, {X: 0, Y: 12},
	}
	assert.True(t, PointInPolygon(ScreenPoint{X: 2, Y: 8}, u))
	assert.False(t, PointInPolygon(ScreenPoint{X: 6, Y: 8}, u)) // 홈 안쪽
}
