// Package render 주석 리스트 + 진행 중 제스처 → 화면 좌표 디스플레이 리스트.
//
// 렌더러 자체는 외부 협력자 (Canvas, GPU, 무엇이든). 여기서는 그리기 순서와
// 좌표 변환만 결정하고, 실제 래스터화는 하지 않는다. 프리미티브 순서가 곧
// z-order — 저장 순서대로, 프리뷰는 맨 뒤에.
package render

import (
	"annotatio-backend/internal/geom"
	"annotatio-backend/internal/model"
	"annotatio-backend/internal/tools"
)

// 렌더 상수
const (
	// HighlighterWidthFactor 형광펜 획 폭 배율
	HighlighterWidthFactor = 3.0
	// HighlighterAlpha 형광펜 투명도 (0..1)
	HighlighterAlpha = 0.35
	// PreviewAlpha 드래그 프리뷰 고스트 투명도
	PreviewAlpha = 0.5
	// MarkerRadiusPx 노트/코멘트 마커 반지름
	MarkerRadiusPx = 14.0
	// LinkBoxWidthPx 링크 텍스트 런 폭
	LinkBoxWidthPx = 80.0
	// LinkBoxHeightPx 링크 텍스트 런 높이
	LinkBoxHeightPx = 16.0
)

// PrimitiveType 디스플레이 리스트 프리미티브 종류
type PrimitiveType string

const (
	PrimPolyline      PrimitiveType = "POLYLINE"
	PrimRect          PrimitiveType = "RECT"
	PrimFilledRect    PrimitiveType = "FILLED_RECT"
	PrimEllipse       PrimitiveType = "ELLIPSE"
	PrimFilledEllipse PrimitiveType = "FILLED_ELLIPSE"
	PrimPolygon       PrimitiveType = "POLYGON"
	PrimLine          PrimitiveType = "LINE"
	PrimText          PrimitiveType = "TEXT"
	PrimImage         PrimitiveType = "IMAGE"
	PrimPlaceholder   PrimitiveType = "PLACEHOLDER"
	PrimSelectionBox  PrimitiveType = "SELECTION_BOX"
)

// Primitive 화면 좌표 그리기 명령 하나
type Primitive struct {
	Type PrimitiveType `json:"type"`
	// AnnotationID 출처 주석 (프리뷰/선택 박스는 빈 문자열)
	AnnotationID string            `json:"annotation_id,omitempty"`
	Points       []geom.ScreenPoint `json:"points,omitempty"`
	Box          geom.Rect          `json:"box,omitempty"`
	Color        model.Color        `json:"color"`
	// Alpha 0..1 곱 투명도 (Color.A와 별개)
	Alpha       float64 `json:"alpha"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	// Dashed 점선 외곽 (올가미 고스트, 선택 박스)
	Dashed bool   `json:"dashed,omitempty"`
	Text   string `json:"text,omitempty"`
	FontSize    float64 `json:"font_size,omitempty"`
	FontFamily  string  `json:"font_family,omitempty"`
	Bold        bool    `json:"bold,omitempty"`
	Italic      bool    `json:"italic,omitempty"`
	// ImageRef Image 주석의 참조 키 (캐시 조회용)
	ImageRef string `json:"image_ref,omitempty"`
	// ImageData Signature의 원본 비트맵 바이트
	ImageData []byte `json:"image_data,omitempty"`
}

// Frame 한 페이지 리드로우에 필요한 전체 디스플레이 리스트
type Frame struct {
	PageIndex  int         `json:"page_index"`
	Primitives []Primitive `json:"primitives"`
}

// ImageLookup 이미지 캐시 경계 — ref로 디코딩 성공 여부만 묻는다
type ImageLookup interface {
	// Ready ref의 비트맵이 디코딩돼 있으면 true
	Ready(ref string) bool
}

// BuildFrame 페이지 주석 + 제스처 상태로 디스플레이 리스트 구성
//
// 순서 불변식: 저장 순서대로 먼저 (마지막 = 최상단), 그 뒤 프리뷰 고스트,
// 마지막에 선택 박스. 이미지가 아직 준비 안 됐으면 플레이스홀더.
func BuildFrame(pageIndex int, list []model.Annotation, gesture tools.GestureState, vp geom.Viewport, images ImageLookup) Frame {
	frame := Frame{PageIndex: pageIndex}
	selected := make(map[string]struct{}, len(gesture.SelectedIDs))
	for _, id := range gesture.SelectedIDs {
		selected[id] = struct{}{}
	}
	for _, a := range list {
		prims := annotationPrimitives(a, vp, images)
		// 선택 드래그 중에는 선택된 주석을 델타만큼 미리 옮겨 그린다
		if _, sel := selected[a.AnnotationID()]; sel && (gesture.MoveDelta.X != 0 || gesture.MoveDelta.Y != 0) {
			prims = annotationPrimitives(a.Translate(gesture.MoveDelta.X, gesture.MoveDelta.Y), vp, images)
		}
		frame.Primitives = append(frame.Primitives, prims...)
	}
	frame.Primitives = append(frame.Primitives, previewPrimitives(gesture, vp)...)
	for _, a := range list {
		if _, sel := selected[a.AnnotationID()]; sel {
			frame.Primitives = append(frame.Primitives, Primitive{
				Type:         PrimSelectionBox,
				AnnotationID: a.AnnotationID(),
				Box:          geom.BoundsScreen(a, vp),
				Color:        model.ColorLinkBlue,
				Alpha:        1,
				Dashed:       true,
			})
		}
	}
	return frame
}

// annotationPrimitives 주석 하나 → 프리미티브들 (모든 변형 커버)
func annotationPrimitives(a model.Annotation, vp geom.Viewport, images ImageLookup) []Primitive {
	switch v := a.(type) {
	case model.Stroke:
		return []Primitive{strokePrimitive(v, vp)}
	case model.HighlightRect:
		return []Primitive{{
			Type:         PrimFilledRect,
			AnnotationID: v.ID,
			Box:          screenBox(v.X, v.Y, v.Width, v.Height, vp),
			Color:        v.Color,
			Alpha:        1,
		}}
	case model.TextNote:
		c := geom.NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp)
		return []Primitive{
			markerPrimitive(v.ID, c, v.Color),
			{Type: PrimText, AnnotationID: v.ID, Points: []geom.ScreenPoint{{X: c.X + MarkerRadiusPx + 4, Y: c.Y}}, Text: v.Text, Color: model.ColorBlack, Alpha: 1, FontSize: 12},
		}
	case model.Shape:
		return []Primitive{shapePrimitive(v, vp)}
	case model.Underline:
		return []Primitive{linePrimitive(v.ID, v.X, v.Y, v.Width, v.Color, vp)}
	case model.Strikethrough:
		return []Primitive{linePrimitive(v.ID, v.X, v.Y, v.Width, v.Color, vp)}
	case model.Table:
		return tablePrimitives(v, vp)
	case model.Image:
		box := screenBox(v.X, v.Y, v.Width, v.Height, vp)
		if images == nil || !images.Ready(v.ImageRef) {
			// 디코딩 대기/실패 — 플레이스홀더 박스
			return []Primitive{{Type: PrimPlaceholder, AnnotationID: v.ID, Box: box, Color: model.ColorBlack, Alpha: 0.3}}
		}
		return []Primitive{{Type: PrimImage, AnnotationID: v.ID, Box: box, Alpha: 1, ImageRef: v.ImageRef}}
	case model.Link:
		c := geom.NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp)
		return []Primitive{
			{Type: PrimText, AnnotationID: v.ID, Points: []geom.ScreenPoint{{X: c.X, Y: c.Y}}, Text: v.DisplayText, Color: v.Color, Alpha: 1, FontSize: 12},
			{Type: PrimLine, AnnotationID: v.ID, Points: []geom.ScreenPoint{{X: c.X, Y: c.Y + 2}, {X: c.X + LinkBoxWidthPx, Y: c.Y + 2}}, Color: v.Color, Alpha: 1, StrokeWidth: 1},
		}
	case model.Comment:
		c := geom.NormalizedToScreen(model.PathPoint{X: v.X, Y: v.Y}, vp)
		return []Primitive{markerPrimitive(v.ID, c, v.Color)}
	case model.Signature:
		return []Primitive{{
			Type:         PrimImage,
			AnnotationID: v.ID,
			Box:          screenBox(v.X, v.Y, v.Width, v.Height, vp),
			Alpha:        1,
			ImageData:    v.ImageData,
		}}
	case model.SmartGraphic:
		return smartGraphicPrimitives(v, vp)
	case model.TextBox:
		return []Primitive{{
			Type:         PrimText,
			AnnotationID: v.ID,
			Box:          screenBox(v.X, v.Y, v.Width, v.Height, vp),
			Text:         v.Text,
			Color:        v.Color,
			Alpha:        1,
			FontSize:     v.FontSize,
			FontFamily:   v.FontFamily,
			Bold:         v.Bold,
			Italic:       v.Italic,
		}}
	default:
		return nil
	}
}

func strokePrimitive(v model.Stroke, vp geom.Viewport) Primitive {
	pts := make([]geom.ScreenPoint, len(v.Points))
	for i, p := range v.Points {
		pts[i] = geom.NormalizedToScreen(p, vp)
	}
	width := v.StrokeWidth
	alpha := 1.0
	if v.IsHighlighter {
		width *= HighlighterWidthFactor
		alpha = HighlighterAlpha
	}
	return Primitive{
		Type:         PrimPolyline,
		AnnotationID: v.ID,
		Points:       pts,
		Color:        v.Color,
		Alpha:        alpha,
		StrokeWidth:  width,
	}
}

func shapePrimitive(v model.Shape, vp geom.Viewport) Primitive {
	box := screenBox(v.X, v.Y, v.Width, v.Height, vp)
	switch v.ShapeKind {
	case model.ShapeCircle:
		return Primitive{Type: PrimEllipse, AnnotationID: v.ID, Box: box, Color: v.Color, Alpha: 1, StrokeWidth: v.StrokeWidth}
	case model.ShapeTriangle:
		pts := []geom.ScreenPoint{
			{X: box.CenterX(), Y: box.Top},
			{X: box.Right, Y: box.Bottom},
			{X: box.Left, Y: box.Bottom},
		}
		return Primitive{Type: PrimPolygon, AnnotationID: v.ID, Points: pts, Color: v.Color, Alpha: 1, StrokeWidth: v.StrokeWidth}
	default:
		// square / rectangle
		return Primitive{Type: PrimRect, AnnotationID: v.ID, Box: box, Color: v.Color, Alpha: 1, StrokeWidth: v.StrokeWidth}
	}
}

func linePrimitive(id string, x, y, width float64, color model.Color, vp geom.Viewport) Primitive {
	a := geom.NormalizedToScreen(model.PathPoint{X: x, Y: y}, vp)
	b := geom.NormalizedToScreen(model.PathPoint{X: x + width, Y: y}, vp)
	return Primitive{Type: PrimLine, AnnotationID: id, Points: []geom.ScreenPoint{a, b}, Color: color, Alpha: 1, StrokeWidth: 2}
}

func markerPrimitive(id string, c geom.ScreenPoint, color model.Color) Primitive {
	return Primitive{
		Type:         PrimFilledEllipse,
		AnnotationID: id,
		Box:          geom.Rect{Left: c.X - MarkerRadiusPx, Top: c.Y - MarkerRadiusPx, Right: c.X + MarkerRadiusPx, Bottom: c.Y + MarkerRadiusPx},
		Color:        color,
		Alpha:        1,
	}
}

// tablePrimitives 외곽 + 격자선 + 셀 텍스트
func tablePrimitives(v model.Table, vp geom.Viewport) []Primitive {
	box := screenBox(v.X, v.Y, v.Width, v.Height, vp)
	prims := []Primitive{{Type: PrimRect, AnnotationID: v.ID, Box: box, Color: v.Color, Alpha: 1, StrokeWidth: 1.5}}
	rowH := box.Height() / float64(v.Rows)
	colW := box.Width() / float64(v.Cols)
	for r := 1; r < v.Rows; r++ {
		y := box.Top + rowH*float64(r)
		prims = append(prims, Primitive{
			Type: PrimLine, AnnotationID: v.ID,
			Points: []geom.ScreenPoint{{X: box.Left, Y: y}, {X: box.Right, Y: y}},
			Color:  v.Color, Alpha: 1, StrokeWidth: 1,
		})
	}
	for c := 1; c < v.Cols; c++ {
		x := box.Left + colW*float64(c)
		prims = append(prims, Primitive{
			Type: PrimLine, AnnotationID: v.ID,
			Points: []geom.ScreenPoint{{X: x, Y: box.Top}, {X: x, Y: box.Bottom}},
			Color:  v.Color, Alpha: 1, StrokeWidth: 1,
		})
	}
	for r, row := range v.Cells {
		for c, text := range row {
			if text == "" {
				continue
			}
			prims = append(prims, Primitive{
				Type: PrimText, AnnotationID: v.ID,
				Points:   []geom.ScreenPoint{{X: box.Left + colW*float64(c) + 4, Y: box.Top + rowH*float64(r) + rowH/2}},
				Text:     text,
				Color:    model.ColorBlack,
				Alpha:    1,
				FontSize: 11,
			})
		}
	}
	return prims
}

// previewPrimitives 진행 중 제스처의 고스트
func previewPrimitives(g tools.GestureState, vp geom.Viewport) []Primitive {
	switch g.Tool {
	case model.ToolPen, model.ToolHighlighter:
		if len(g.StrokePoints) < 2 {
			return nil
		}
		// 펜 프리뷰는 확정된 획과 같은 농도로 그린다
		prim := strokePrimitive(model.Stroke{
			Points:        g.StrokePoints,
			Color:         g.Color,
			StrokeWidth:   g.StrokeWidth,
			IsHighlighter: g.Tool == model.ToolHighlighter,
		}, vp)
		return []Primitive{prim}
	case model.ToolCircle, model.ToolSquare, model.ToolRectangle, model.ToolTriangle:
		box, ok := dragBox(g)
		if !ok {
			return nil
		}
		kind, _ := model.ShapeKindForTool(g.Tool)
		prim := shapePrimitive(model.Shape{ShapeKind: kind, Color: g.Color, StrokeWidth: g.StrokeWidth}, vp)
		prim.Box = box
		if kind == model.ShapeTriangle {
			prim.Points = []geom.ScreenPoint{
				{X: box.CenterX(), Y: box.Top},
				{X: box.Right, Y: box.Bottom},
				{X: box.Left, Y: box.Bottom},
			}
		}
		prim.Alpha = PreviewAlpha
		return []Primitive{prim}
	case model.ToolUnderline, model.ToolStrikethrough:
		if g.DragStart == nil || g.DragCurrent == nil {
			return nil
		}
		y := (g.DragStart.Y + g.DragCurrent.Y) / 2
		return []Primitive{{
			Type:        PrimLine,
			Points:      []geom.ScreenPoint{{X: g.DragStart.X, Y: y}, {X: g.DragCurrent.X, Y: y}},
			Color:       g.Color,
			Alpha:       PreviewAlpha,
			StrokeWidth: 2,
		}}
	case model.ToolSmartGraphic:
		box, ok := dragBox(g)
		if !ok {
			return nil
		}
		return []Primitive{{Type: PrimRect, Box: box, Color: g.Color, Alpha: PreviewAlpha, StrokeWidth: 1.5}}
	case model.ToolLasso:
		if len(g.LassoPoints) < 2 {
			return nil
		}
		return []Primitive{{
			Type:        PrimPolyline,
			Points:      append([]geom.ScreenPoint(nil), g.LassoPoints...),
			Color:       model.ColorLinkBlue,
			Alpha:       PreviewAlpha,
			StrokeWidth: 1.5,
			Dashed:      true,
		}}
	default:
		return nil
	}
}

func dragBox(g tools.GestureState) (geom.Rect, bool) {
	if g.DragStart == nil || g.DragCurrent == nil {
		return geom.Rect{}, false
	}
	r := geom.Rect{
		Left: g.DragStart.X, Top: g.DragStart.Y,
		Right: g.DragCurrent.X, Bottom: g.DragCurrent.Y,
	}
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Top > r.Bottom {
		r.Top, r.Bottom = r.Bottom, r.Top
	}
	return r, true
}

func screenBox(x, y, w, h float64, vp geom.Viewport) geom.Rect {
	tl := geom.NormalizedToScreen(model.PathPoint{X: x, Y: y}, vp)
	br := geom.NormalizedToScreen(model.PathPoint{X: x + w, Y: y + h}, vp)
	return geom.Rect{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}
}
