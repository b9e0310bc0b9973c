// Package geom 화면 좌표 ↔ 정규화 좌표 변환과 주석 히트테스트.
//
// 정규화 좌표는 페이지 기준 0..1 (좌상단 원점, y 아래 방향). 뷰포트가
// 바뀌어도 (줌/스크롤/페이지 리사이즈) 주석 기하는 그대로 유효하다.
package geom

import (
	"annotatio-backend/internal/model"
)

// Viewport 현재 페이지의 화면 픽셀 기하
type Viewport struct {
	PageWidthPx  float64 `json:"page_width_px"`
	PageHeightPx float64 `json:"page_height_px"`
	OffsetXPx    float64 `json:"offset_x_px"`
	OffsetYPx    float64 `json:"offset_y_px"`
	Zoom         float64 `json:"zoom"`
}

// Valid 퇴화 뷰포트 여부 (0 이하 치수)
func (v Viewport) Valid() bool {
	return v.PageWidthPx > 0 && v.PageHeightPx > 0
}

// ScreenPoint 화면 픽셀 좌표
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect 축 정렬 사각형 (정규화 또는 화면 좌표)
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

func (r Rect) CenterX() float64 { return (r.Left + r.Right) / 2 }
func (r Rect) CenterY() float64 { return (r.Top + r.Bottom) / 2 }

// IsZero 퇴화(0 크기) 사각형 여부 — 선택 불가로 취급
func (r Rect) IsZero() bool {
	return r.Left == 0 && r.Top == 0 && r.Right == 0 && r.Bottom == 0
}

// ScreenToNormalized 화면 좌표 → 정규화 좌표 ([0,1]로 클램프)
//
// 퇴화 뷰포트면 (0,0) 반환. 0으로 나누지 않는다.
func ScreenToNormalized(p ScreenPoint, vp Viewport) model.PathPoint {
	if !vp.Valid() {
		return model.PathPoint{}
	}
	nx := (p.X - vp.OffsetXPx) / vp.PageWidthPx
	ny := (p.Y - vp.OffsetYPx) / vp.PageHeightPx
	return model.PathPoint{X: clamp01(nx), Y: clamp01(ny)}
}

// NormalizedToScreen 정규화 좌표 → 화면 좌표 (클램프 없음)
//
// 드래그 프리뷰는 페이지 밖으로 살짝 나갈 수 있으므로 클램프하지 않는다.
func NormalizedToScreen(pt model.PathPoint, vp Viewport) ScreenPoint {
	return ScreenPoint{
		X: pt.X*vp.PageWidthPx + vp.OffsetXPx,
		Y: pt.Y*vp.PageHeightPx + vp.OffsetYPx,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
