package geom

import (
	"math"

	"annotatio-backend/internal/model"
)

// 히트테스트 임계값 (정규화 공간)
const (
	// HitThreshold 포인트 마커 기본 임계값
	HitThreshold = 0.04
	// SelectionPadPx 선택 박스 화면 패딩
	SelectionPadPx = 6.0
)

// Contains 주석이 정규화 좌표를 포함하는지 (마커 스타일의 느슨한 판정)
//
// Stroke는 샘플 포인트 근접 검사 — 진짜 폴리라인 거리 아님. 점이 성긴
// 구간은 빠질 수 있지만 인터랙티브 용도로는 충분하다 (원본과 동일한 근사).
func Contains(a model.Annotation, pt model.PathPoint) bool {
	switch v := a.(type) {
	case model.Stroke:
		for _, p := range v.Points {
			if math.Abs(p.X-pt.X) < HitThreshold && math.Abs(p.Y-pt.Y) < HitThreshold {
				return true
			}
		}
		return false
	case model.HighlightRect:
		return inBox(pt, v.X, v.Y, v.Width, v.Height)
	case model.TextNote:
		return math.Abs(v.X-pt.X) < HitThreshold && math.Abs(v.Y-pt.Y) < HitThreshold
	case model.Shape:
		return inBox(pt, v.X, v.Y, v.Width, v.Height)
	case model.Underline:
		return pt.X >= v.X && pt.X <= v.X+v.Width && math.Abs(v.Y-pt.Y) < HitThreshold*2
	case model.Strikethrough:
		return pt.X >= v.X && pt.X <= v.X+v.Width && math.Abs(v.Y-pt.Y) < HitThreshold*2
	case model.Table:
		return inBox(pt, v.X, v.Y, v.Width, v.Height)
	case model.Image:
		return inBox(pt, v.X, v.Y, v.Width, v.Height)
	case model.Link:
		// 텍스트 런으로 그려지므로 수평으로 더 넓게 잡는다
		return math.Abs(v.X-pt.X) < HitThreshold*3 && math.Abs(v.Y-pt.Y) < HitThreshold*2
	case model.Comment:
		return math.Abs(v.X-pt.X) < HitThreshold && math.Abs(v.Y-pt.Y) < HitThreshold
	case model.Signature:
		return inBox(pt, v.X, v.Y, v.Width, v.Height)
	case model.SmartGraphic:
		return inBox(pt, v.X, v.Y, v.Width, v.Height)
	case model.TextBox:
		return inBox(pt, v.X, v.Y, v.Width, v.Height)
	default:
		return false
	}
}

// ContainsLoose 지우개 탭 판정 (마커류 임계값 2배)
func ContainsLoose(a model.Annotation, pt model.PathPoint) bool {
	threshold := HitThreshold
	switch v := a.(type) {
	case model.TextNote:
		return math.Abs(v.X-pt.X) < threshold*2 && math.Abs(v.Y-pt.Y) < threshold*2
	case model.Comment:
		return math.Abs(v.X-pt.X) < threshold*2 && math.Abs(v.Y-pt.Y) < threshold*2
	default:
		return Contains(a, pt)
	}
}

// BoundsNormalized 정규화 공간 축 정렬 바운딩 박스
//
// 빈 Stroke는 zero rect — 호출자는 선택 불가로 다뤄야 한다.
func BoundsNormalized(a model.Annotation) Rect {
	switch v := a.(type) {
	case model.Stroke:
		if len(v.Points) == 0 {
			return Rect{}
		}
		r := Rect{Left: v.Points[0].X, Top: v.Points[0].Y, Right: v.Points[0].X, Bottom: v.Points[0].Y}
		for _, p := range v.Points {
			if p.X < r.Left {
				r.Left = p.X
			}
			if p.X > r.Right {
				r.Right = p.X
			}
			if p.Y < r.Top {
				r.Top = p.Y
			}
			if p.Y > r.Bottom {
				r.Bottom = p.Y
			}
		}
		return r
	case model.HighlightRect:
		return boxRect(v.X, v.Y, v.Width, v.Height)
	case model.TextNote:
		return Rect{Left: v.X, Top: v.Y, Right: v.X, Bottom: v.Y}
	case model.Shape:
		return boxRect(v.X, v.Y, v.Width, v.Height)
	case model.Underline:
		return Rect{Left: v.X, Top: v.Y, Right: v.X + v.Width, Bottom: v.Y}
	case model.Strikethrough:
		return Rect{Left: v.X, Top: v.Y, Right: v.X + v.Width, Bottom: v.Y}
	case model.Table:
		return boxRect(v.X, v.Y, v.Width, v.Height)
	case model.Image:
		return boxRect(v.X, v.Y, v.Width, v.Height)
	case model.Link:
		return Rect{Left: v.X, Top: v.Y, Right: v.X, Bottom: v.Y}
	case model.Comment:
		return Rect{Left: v.X, Top: v.Y, Right: v.X, Bottom: v.Y}
	case model.Signature:
		return boxRect(v.X, v.Y, v.Width, v.Height)
	case model.SmartGraphic:
		return boxRect(v.X, v.Y, v.Width, v.Height)
	case model.TextBox:
		return boxRect(v.X, v.Y, v.Width, v.Height)
	default:
		return Rect{}
	}
}

// BoundsScreen 선택 핸들용 화면 바운딩 박스 (고정 픽셀 패딩 포함)
//
// 포인트 마커와 링크는 화면상 글리프 크기만큼 상수 박스를 씌운다.
func BoundsScreen(a model.Annotation, vp Viewport) Rect {
	switch v := a.(type) {
	case model.TextNote:
		c := NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp)
		return padRect(Rect{Left: c.X - 14, Top: c.Y - 14, Right: c.X + 14, Bottom: c.Y + 14}, SelectionPadPx)
	case model.Comment:
		c := NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp)
		return padRect(Rect{Left: c.X - 14, Top: c.Y - 14, Right: c.X + 14, Bottom: c.Y + 14}, SelectionPadPx)
	case model.Link:
		c := NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp)
		return padRect(Rect{Left: c.X, Top: c.Y - 16, Right: c.X + 80, Bottom: c.Y}, SelectionPadPx)
	default:
		nb := BoundsNormalized(a)
		tl := NormalizedToScreen(model.PathPoint{X: nb.Left, Y: nb.Top}, vp)
		br := NormalizedToScreen(model.PathPoint{X: nb.Right, Y: nb.Bottom}, vp)
		return padRect(Rect{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}, SelectionPadPx)
	}
}

// CenterScreen 올가미 판정용 대표 점 (주석당 정확히 하나)
//
// 올가미 선택은 중심 포함으로만 판정한다. 중심이 폴리곤 밖이면 가장자리가
// 안에 있어도 선택되지 않는다 — 의도된 단순화.
func CenterScreen(a model.Annotation, vp Viewport) (ScreenPoint, bool) {
	switch v := a.(type) {
	case model.Stroke:
		if len(v.Points) == 0 {
			return ScreenPoint{}, false
		}
		var sx, sy float64
		for _, p := range v.Points {
			sx += p.X
			sy += p.Y
		}
		n := float64(len(v.Points))
		return NormalizedToScreen(model.PathPoint{X: sx / n, Y: sy / n}, vp), true
	case model.TextNote:
		return NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp), true
	case model.Comment:
		return NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp), true
	case model.Link:
		return NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp), true
	case model.Underline:
		return NormalizedToScreen(model.PathPoint{X: v.X + v.Width/2, Y: v.Y}, vp), true
	case model.Strikethrough:
		return NormalizedToScreen(model.PathPoint{X: v.X + v.Width/2, Y: v.Y}, vp), true
	default:
		nb := BoundsNormalized(a)
		if nb.IsZero() {
			return ScreenPoint{}, false
		}
		return NormalizedToScreen(model.PathPoint{X: nb.CenterX(), Y: nb.CenterY()}, vp), true
	}
}

func inBox(pt model.PathPoint, x, y, w, h float64) bool {
	return pt.X >= x && pt.X <= x+w && pt.Y >= y && pt.Y <= y+h
}

func boxRect(x, y, w, h float64) Rect {
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

func padRect(r Rect, pad float64) Rect {
	return Rect{Left: r.Left - pad, Top: r.Top - pad, Right: r.Right + pad, Bottom: r.Bottom + pad}
}
