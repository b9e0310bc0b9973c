package render

import (
	"math"

	"annotatio-backend/internal/geom"
	"annotatio-backend/internal/model"
)

// 스마트 다이어그램 레이아웃 비율 (바운딩 박스 짧은 변 기준)
const (
	mindMapCenterRadiusFactor = 0.12
	mindMapArmFactor          = 0.30
	mindMapBranchRadiusFactor = 0.7
	mindMapBranchCount        = 5
	orgChartBoxWidthFactor    = 0.22
	orgChartBoxHeightFactor   = 0.16
)

// smartGraphicPrimitives 종류별 절차적 레이아웃
func smartGraphicPrimitives(v model.SmartGraphic, vp geom.Viewport) []Primitive {
	box := screenBox(v.X, v.Y, v.Width, v.Height, vp)
	switch v.GraphicKind {
	case model.SmartGraphicMindMap:
		return mindMapPrimitives(v, box)
	case model.SmartGraphicOrgChart:
		return orgChartPrimitives(v, box)
	default:
		// 알 수 없는 종류 — 외곽 박스만
		return []Primitive{{Type: PrimRect, AnnotationID: v.ID, Box: box, Color: v.Color, Alpha: 1, StrokeWidth: 1.5}}
	}
}

// mindMapPrimitives 중심 원 + 72° 간격 가지 5개
func mindMapPrimitives(v model.SmartGraphic, box geom.Rect) []Primitive {
	minSide := math.Min(box.Width(), box.Height())
	cx, cy := box.CenterX(), box.CenterY()
	centerR := minSide * mindMapCenterRadiusFactor
	arm := minSide * mindMapArmFactor
	branchR := centerR * mindMapBranchRadiusFactor

	prims := make([]Primitive, 0, 1+mindMapBranchCount*3)
	prims = append(prims, circlePrim(v.ID, cx, cy, centerR, v.Color, 2))
	for i := 0; i < mindMapBranchCount; i++ {
		// 위쪽(-90°)에서 시작해 시계 방향 72° 간격
		angle := (-90 + float64(i)*360/mindMapBranchCount) * math.Pi / 180
		bx := cx + arm*math.Cos(angle)
		by := cy + arm*math.Sin(angle)
		// 중심 원 가장자리에서 가지 원 가장자리까지 연결선
		prims = append(prims, Primitive{
			Type:         PrimLine,
			AnnotationID: v.ID,
			Points: []geom.ScreenPoint{
				{X: cx + centerR*math.Cos(angle), Y: cy + centerR*math.Sin(angle)},
				{X: bx - branchR*math.Cos(angle), Y: by - branchR*math.Sin(angle)},
			},
			Color: v.Color, Alpha: 1, StrokeWidth: 1.5,
		})
		prims = append(prims, circlePrim(v.ID, bx, by, branchR, v.Color, 1.5))
	}
	return prims
}

// orgChartPrimitives 1-3-1 박스 트리
func orgChartPrimitives(v model.SmartGraphic, box geom.Rect) []Primitive {
	boxW := box.Width() * orgChartBoxWidthFactor
	boxH := box.Height() * orgChartBoxHeightFactor
	cx := box.CenterX()

	rootTop := box.Top
	midTop := box.Top + box.Height()*0.42 - boxH/2
	leafTop := box.Bottom - boxH

	root := centeredBox(cx, rootTop, boxW, boxH)
	mids := []geom.Rect{
		centeredBox(box.Left+box.Width()*0.17, midTop, boxW, boxH),
		centeredBox(cx, midTop, boxW, boxH),
		centeredBox(box.Right-box.Width()*0.17, midTop, boxW, boxH),
	}
	leaf := centeredBox(cx, leafTop, boxW, boxH)

	prims := []Primitive{rectPrim(v.ID, root, v.Color)}
	for _, m := range mids {
		prims = append(prims, rectPrim(v.ID, m, v.Color))
		prims = append(prims, Primitive{
			Type:         PrimLine,
			AnnotationID: v.ID,
			Points: []geom.ScreenPoint{
				{X: root.CenterX(), Y: root.Bottom},
				{X: m.CenterX(), Y: m.Top},
			},
			Color: v.Color, Alpha: 1, StrokeWidth: 1.5,
		})
	}
	prims = append(prims, rectPrim(v.ID, leaf, v.Color))
	prims = append(prims, Primitive{
		Type:         PrimLine,
		AnnotationID: v.ID,
		Points: []geom.ScreenPoint{
			{X: mids[1].CenterX(), Y: mids[1].Bottom},
			{X: leaf.CenterX(), Y: leaf.Top},
		},
		Color: v.Color, Alpha: 1, StrokeWidth: 1.5,
	})
	return prims
}

func circlePrim(id string, cx, cy, r float64, color model.Color, width float64) Primitive {
	return Primitive{
		Type:         PrimEllipse,
		AnnotationID: id,
		Box:          geom.Rect{Left: cx - r, Top: cy - r, Right: cx + r, Bottom: cy + r},
		Color:        color,
		Alpha:        1,
		StrokeWidth:  width,
	}
}

func rectPrim(id string, box geom.Rect, color model.Color) Primitive {
	return Primitive{Type: PrimRect, AnnotationID: id, Box: box, Color: color, Alpha: 1, StrokeWidth: 1.5}
}

func centeredBox(cx, top, w, h float64) geom.Rect {
	return geom.Rect{Left: cx - w/2, Top: top, Right: cx + w/2, Bottom: top + h}
}
