// Package tools 활성 도구와 포인터 제스처 스트림을 스토어 변경으로 매핑.
//
// 탭/드래그 이벤트는 화면 좌표로 들어오고, geom을 거쳐 정규화된 뒤에만
// 스토어에 닿는다. 임계값 미달 드래그는 조용히 버린다 — 주석도, 로그
// 엔트리도, 에러도 없다.
package tools

import (
	"math"

	"annotatio-backend/internal/geom"
	"annotatio-backend/internal/model"
	"annotatio-backend/internal/store"
)

// 생성 임계값 (정규화 공간)
const (
	// MinShapeSize 도형/라인 최소 크기
	MinShapeSize = 0.01
	// MinSmartGraphicSize 스마트 다이어그램 최소 크기
	MinSmartGraphicSize = 0.05
	// NudgeStepPx 획 이동 버튼 한 번의 픽셀 스텝
	NudgeStepPx = 10.0
	// RotateStepDegrees 획 회전 한 번의 각도
	RotateStepDegrees = 15.0
)

// Requests 모달 다이얼로그 경계 (외부 협력자)
//
// 탭 전용 도구는 스토어를 직접 건드리지 않고 여기로 캡처한 정규화 위치를
// 넘긴다. 다이얼로그가 확정되면 Complete* 메서드가 실제 Add를 수행한다.
type Requests interface {
	RequestTextNote(pos model.PathPoint)
	RequestComment(pos model.PathPoint)
	RequestTable(pos model.PathPoint)
	RequestSignature(pos model.PathPoint)
	RequestImage(pos model.PathPoint)
	RequestLink(pos model.PathPoint)
}

// NopRequests 모달 협력자가 없는 환경(테스트)용
type NopRequests struct{}

func (NopRequests) RequestTextNote(model.PathPoint)  {}
func (NopRequests) RequestComment(model.PathPoint)   {}
func (NopRequests) RequestTable(model.PathPoint)     {}
func (NopRequests) RequestSignature(model.PathPoint) {}
func (NopRequests) RequestImage(model.PathPoint)     {}
func (NopRequests) RequestLink(model.PathPoint)      {}

// Machine 도구 상태 머신
//
// 단일 논리 스레드에서 제스처 콜백 단위로 구동된다. 진행 중 드래그 버퍼는
// cancel 전이에서 스토어 변경 없이 버려진다.
type Machine struct {
	store    *store.Store
	requests Requests

	vp   geom.Viewport
	page int

	tool        model.ToolKind
	color       model.Color
	strokeWidth float64
	// pendingSmartKind 드래그 시작 전에 선택된 스마트 다이어그램 종류
	pendingSmartKind model.SmartGraphicKind

	// 드래그 전이 상태
	strokePoints []model.PathPoint
	dragStart    *geom.ScreenPoint
	dragCurrent  *geom.ScreenPoint
	lassoPoints  []geom.ScreenPoint

	// 선택 상태
	selected map[string]struct{}
	// moveDelta 선택 드래그 중 누적 정규화 델타 (drag-end에 한 번만 커밋)
	moveActive bool
	moveDelta  model.PathPoint
	// pendingPos 모달 요청 시 캡처한 정규화 위치
	pendingPos *model.PathPoint
}

// New 머신 생성
func New(st *store.Store, requests Requests) *Machine {
	if requests == nil {
		requests = NopRequests{}
	}
	return &Machine{
		store:            st,
		requests:         requests,
		color:            model.ColorBlack,
		strokeWidth:      4,
		pendingSmartKind: model.SmartGraphicMindMap,
		selected:         make(map[string]struct{}),
	}
}

// SetViewport 뷰포트 피드의 최신 값 반영
func (m *Machine) SetViewport(vp geom.Viewport) { m.vp = vp }

// Viewport 현재 뷰포트
func (m *Machine) Viewport() geom.Viewport { return m.vp }

// SetPage 활성 페이지 전환 (진행 중 제스처와 선택은 버린다)
func (m *Machine) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	if page != m.page {
		m.Cancel()
		m.ClearSelection()
	}
	m.page = page
}

// Page 활성 페이지
func (m *Machine) Page() int { return m.page }

// SelectTool 도구 전환 (선택/버퍼 초기화)
func (m *Machine) SelectTool(tool model.ToolKind) {
	m.Cancel()
	if tool != m.tool {
		m.ClearSelection()
	}
	m.tool = tool
}

// Tool 활성 도구
func (m *Machine) Tool() model.ToolKind { return m.tool }

func (m *Machine) SetColor(c model.Color)            { m.color = c }
func (m *Machine) Color() model.Color                { return m.color }
func (m *Machine) SetStrokeWidth(w float64)          { m.strokeWidth = w }
func (m *Machine) StrokeWidth() float64              { return m.strokeWidth }
func (m *Machine) SetSmartGraphicKind(k model.SmartGraphicKind) { m.pendingSmartKind = k }

// Tap 탭 제스처 처리
func (m *Machine) Tap(p geom.ScreenPoint) {
	pos := geom.ScreenToNormalized(p, m.vp)
	switch m.tool {
	case model.ToolTextNote:
		m.pendingPos = &pos
		m.requests.RequestTextNote(pos)
	case model.ToolComment:
		m.pendingPos = &pos
		m.requests.RequestComment(pos)
	case model.ToolTable:
		m.pendingPos = &pos
		m.requests.RequestTable(pos)
	case model.ToolSignature:
		m.pendingPos = &pos
		m.requests.RequestSignature(pos)
	case model.ToolImage:
		m.pendingPos = &pos
		m.requests.RequestImage(pos)
	case model.ToolLink:
		m.pendingPos = &pos
		m.requests.RequestLink(pos)
	case model.ToolEraser:
		m.eraseAt(pos)
	case model.ToolSelect:
		m.selectAt(pos)
	}
}

// DragStart 드래그 시작
func (m *Machine) DragStart(p geom.ScreenPoint) {
	switch m.tool {
	case model.ToolPen, model.ToolHighlighter:
		m.strokePoints = []model.PathPoint{geom.ScreenToNormalized(p, m.vp)}
	case model.ToolCircle, model.ToolSquare, model.ToolRectangle, model.ToolTriangle,
		model.ToolUnderline, model.ToolStrikethrough, model.ToolSmartGraphic:
		start := p
		m.dragStart = &start
		cur := p
		m.dragCurrent = &cur
	case model.ToolLasso:
		m.lassoPoints = []geom.ScreenPoint{p}
		m.ClearSelection()
	case model.ToolSelect:
		// 이미 선택된 주석 위에서 시작한 드래그만 이동을 연다
		pos := geom.ScreenToNormalized(p, m.vp)
		if hit, ok := m.topmostHit(pos); ok {
			if _, sel := m.selected[hit.AnnotationID()]; sel {
				m.moveActive = true
				m.moveDelta = model.PathPoint{}
				start := p
				m.dragStart = &start
			}
		}
	}
}

// DragMove 드래그 이동
func (m *Machine) DragMove(p geom.ScreenPoint) {
	switch m.tool {
	case model.ToolPen, model.ToolHighlighter:
		if m.strokePoints == nil {
			return
		}
		m.strokePoints = append(m.strokePoints, geom.ScreenToNormalized(p, m.vp))
	case model.ToolCircle, model.ToolSquare, model.ToolRectangle, model.ToolTriangle,
		model.ToolUnderline, model.ToolStrikethrough, model.ToolSmartGraphic:
		if m.dragStart == nil {
			return
		}
		cur := p
		m.dragCurrent = &cur
	case model.ToolLasso:
		if m.lassoPoints == nil {
			return
		}
		m.lassoPoints = append(m.lassoPoints, p)
	case model.ToolSelect:
		if !m.moveActive || m.dragStart == nil || !m.vp.Valid() {
			return
		}
		// 커밋은 drag-end에 한 번 — 프레임마다 update하면 undo가 프레임
		// 단위로 쪼개진다 (원본의 알려진 결함, 여기서는 고침)
		m.moveDelta = model.PathPoint{
			X: (p.X - m.dragStart.X) / m.vp.PageWidthPx,
			Y: (p.Y - m.dragStart.Y) / m.vp.PageHeightPx,
		}
	}
}

// DragEnd 드래그 종료 — 유효하면 정확히 하나의 주석 생성 또는 선택 갱신
func (m *Machine) DragEnd() {
	switch m.tool {
	case model.ToolPen, model.ToolHighlighter:
		m.finishStroke()
	case model.ToolCircle, model.ToolSquare, model.ToolRectangle, model.ToolTriangle:
		m.finishShape()
	case model.ToolUnderline, model.ToolStrikethrough:
		m.finishLine()
	case model.ToolSmartGraphic:
		m.finishSmartGraphic()
	case model.ToolLasso:
		m.finishLasso()
	case model.ToolSelect:
		m.finishMove()
	}
	m.clearGesture()
}

// Cancel 진행 중 제스처 폐기 (스토어 변경 없음)
func (m *Machine) Cancel() {
	m.clearGesture()
}

func (m *Machine) clearGesture() {
	m.strokePoints = nil
	m.dragStart = nil
	m.dragCurrent = nil
	m.lassoPoints = nil
	m.moveActive = false
	m.moveDelta = model.PathPoint{}
}

func (m *Machine) finishStroke() {
	// 단일 포인트 드래그는 버린다
	if len(m.strokePoints) < 2 {
		return
	}
	// 형광펜의 3배 폭과 감쇠 투명도는 렌더 시점에 적용 — 저장은 원폭 + 플래그
	m.store.Add(model.Stroke{
		Base:          model.Base{ID: model.NewID(), PageIndex: m.page},
		Points:        append([]model.PathPoint(nil), m.strokePoints...),
		Color:         m.color,
		StrokeWidth:   m.strokeWidth,
		IsHighlighter: m.tool == model.ToolHighlighter,
	})
}

func (m *Machine) finishShape() {
	x, y, w, h, ok := m.dragBoxNormalized()
	if !ok || w <= MinShapeSize || h <= MinShapeSize {
		return
	}
	kind, ok := model.ShapeKindForTool(m.tool)
	if !ok {
		return
	}
	m.store.Add(model.Shape{
		Base:        model.Base{ID: model.NewID(), PageIndex: m.page},
		ShapeKind:   kind,
		X:           x,
		Y:           y,
		Width:       w,
		Height:      h,
		Color:       m.color,
		StrokeWidth: m.strokeWidth,
	})
}

func (m *Machine) finishLine() {
	if m.dragStart == nil || m.dragCurrent == nil {
		return
	}
	start := geom.ScreenToNormalized(*m.dragStart, m.vp)
	end := geom.ScreenToNormalized(*m.dragCurrent, m.vp)
	x := math.Min(start.X, end.X)
	width := math.Abs(end.X - start.X)
	// 대각선으로 끌어도 선은 항상 수평 — y는 두 끝의 중점
	y := (start.Y + end.Y) / 2
	if width <= MinShapeSize {
		return
	}
	if m.tool == model.ToolUnderline {
		m.store.Add(model.Underline{
			Base:  model.Base{ID: model.NewID(), PageIndex: m.page},
			X:     x,
			Y:     y,
			Width: width,
			Color: m.color,
		})
		return
	}
	m.store.Add(model.Strikethrough{
		Base:  model.Base{ID: model.NewID(), PageIndex: m.page},
		X:     x,
		Y:     y,
		Width: width,
		Color: m.color,
	})
}

func (m *Machine) finishSmartGraphic() {
	x, y, w, h, ok := m.dragBoxNormalized()
	if !ok || w <= MinSmartGraphicSize || h <= MinSmartGraphicSize {
		return
	}
	m.store.Add(model.SmartGraphic{
		Base:        model.Base{ID: model.NewID(), PageIndex: m.page},
		GraphicKind: m.pendingSmartKind,
		X:           x,
		Y:           y,
		Width:       w,
		Height:      h,
		Color:       m.color,
	})
}

func (m *Machine) finishLasso() {
	if len(m.lassoPoints) < 3 {
		return
	}
	selected := make(map[string]struct{})
	for _, a := range m.store.PageAnnotations(m.page) {
		center, ok := geom.CenterScreen(a, m.vp)
		if ok && geom.PointInPolygon(center, m.lassoPoints) {
			selected[a.AnnotationID()] = struct{}{}
		}
	}
	m.selected = selected
}

func (m *Machine) finishMove() {
	if !m.moveActive || (m.moveDelta.X == 0 && m.moveDelta.Y == 0) {
		return
	}
	dx, dy := m.moveDelta.X, m.moveDelta.Y
	for _, a := range m.store.PageAnnotations(m.page) {
		if _, ok := m.selected[a.AnnotationID()]; ok {
			m.store.Update(a.Translate(dx, dy))
		}
	}
}

func (m *Machine) dragBoxNormalized() (x, y, w, h float64, ok bool) {
	if m.dragStart == nil || m.dragCurrent == nil {
		return 0, 0, 0, 0, false
	}
	start := geom.ScreenToNormalized(*m.dragStart, m.vp)
	end := geom.ScreenToNormalized(*m.dragCurrent, m.vp)
	x = math.Min(start.X, end.X)
	y = math.Min(start.Y, end.Y)
	w = math.Abs(end.X - start.X)
	h = math.Abs(end.Y - start.Y)
	return x, y, w, h, true
}

// eraseAt 최상단(리스트 마지막) 매치 하나만 제거 — 탭당 하나
func (m *Machine) eraseAt(pos model.PathPoint) {
	list := m.store.PageAnnotations(m.page)
	for i := len(list) - 1; i >= 0; i-- {
		if geom.ContainsLoose(list[i], pos) {
			m.store.Remove(list[i].AnnotationID())
			return
		}
	}
}

// selectAt 최상단 매치 선택, 없으면 선택 해제
func (m *Machine) selectAt(pos model.PathPoint) {
	if hit, ok := m.topmostHit(pos); ok {
		m.selected = map[string]struct{}{hit.AnnotationID(): {}}
		return
	}
	m.ClearSelection()
}

func (m *Machine) topmostHit(pos model.PathPoint) (model.Annotation, bool) {
	list := m.store.PageAnnotations(m.page)
	for i := len(list) - 1; i >= 0; i-- {
		if geom.Contains(list[i], pos) {
			return list[i], true
		}
	}
	return nil, false
}

// CompleteTextNote 모달 확정: 텍스트 노트 생성
func (m *Machine) CompleteTextNote(text string) {
	pos := m.takePending()
	if pos == nil || text == "" {
		return
	}
	m.store.Add(model.TextNote{
		Base:  model.Base{ID: model.NewID(), PageIndex: m.page},
		X:     pos.X,
		Y:     pos.Y,
		Text:  text,
		Color: model.ColorNoteAmber,
	})
}

// CompleteComment 모달 확정: 코멘트 생성
func (m *Machine) CompleteComment(text string) {
	pos := m.takePending()
	if pos == nil || text == "" {
		return
	}
	m.store.Add(model.Comment{
		Base:  model.Base{ID: model.NewID(), PageIndex: m.page},
		X:     pos.X,
		Y:     pos.Y,
		Text:  text,
		Color: model.ColorNoteAmber,
	})
}

// CompleteTable 모달 확정: 테이블 생성 (셀 형태가 안 맞으면 버린다)
func (m *Machine) CompleteTable(rows, cols int, cells [][]string, width, height float64) {
	pos := m.takePending()
	if pos == nil {
		return
	}
	t := model.Table{
		Base:   model.Base{ID: model.NewID(), PageIndex: m.page},
		X:      pos.X,
		Y:      pos.Y,
		Width:  width,
		Height: height,
		Rows:   rows,
		Cols:   cols,
		Cells:  cells,
		Color:  m.color,
	}
	if t.Validate() != nil {
		return
	}
	m.store.Add(t)
}

// CompleteSignature 모달 확정: 서명 비트맵 배치
func (m *Machine) CompleteSignature(imageData []byte, width, height float64) {
	pos := m.takePending()
	if pos == nil || len(imageData) == 0 {
		return
	}
	m.store.Add(model.Signature{
		Base:      model.Base{ID: model.NewID(), PageIndex: m.page},
		X:         pos.X,
		Y:         pos.Y,
		Width:     width,
		Height:    height,
		ImageData: imageData,
	})
}

// CompleteImage 모달 확정: 이미지 참조 배치
func (m *Machine) CompleteImage(imageRef string, width, height float64) {
	pos := m.takePending()
	if pos == nil || imageRef == "" {
		return
	}
	m.store.Add(model.Image{
		Base:     model.Base{ID: model.NewID(), PageIndex: m.page},
		X:        pos.X,
		Y:        pos.Y,
		Width:    width,
		Height:   height,
		ImageRef: imageRef,
	})
}

// CompleteLink 모달 확정: 링크 생성
func (m *Machine) CompleteLink(displayText, url string) {
	pos := m.takePending()
	if pos == nil || url == "" {
		return
	}
	if displayText == "" {
		displayText = url
	}
	m.store.Add(model.Link{
		Base:        model.Base{ID: model.NewID(), PageIndex: m.page},
		X:           pos.X,
		Y:           pos.Y,
		DisplayText: displayText,
		URL:         url,
		Color:       model.ColorLinkBlue,
	})
}

// AddHighlightRect 텍스트 선택 영역을 강조 사각형으로 추가
//
// 호스트의 텍스트 선택 흐름에서 호출된다 (도구 제스처 아님). 영역이
// 퇴화하면 버린다.
func (m *Machine) AddHighlightRect(x, y, width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	m.store.Add(model.HighlightRect{
		Base:   model.Base{ID: model.NewID(), PageIndex: m.page},
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
		Color:  model.ColorHighlightYellow,
	})
}

// AddTextBox 서식 있는 텍스트 블록 추가 (호스트의 텍스트 박스 편집기 흐름)
func (m *Machine) AddTextBox(box model.TextBox) {
	if box.Text == "" || box.Width <= 0 || box.Height <= 0 {
		return
	}
	box.ID = model.NewID()
	box.PageIndex = m.page
	m.store.Add(box)
}

// CancelPending 모달 취소 — 캡처한 위치만 버린다
func (m *Machine) CancelPending() {
	m.pendingPos = nil
}

func (m *Machine) takePending() *model.PathPoint {
	pos := m.pendingPos
	m.pendingPos = nil
	return pos
}

// GestureState 진행 중 제스처의 프리뷰 스냅샷
type GestureState struct {
	Tool         model.ToolKind
	Color        model.Color
	StrokeWidth  float64
	StrokePoints []model.PathPoint
	DragStart    *geom.ScreenPoint
	DragCurrent  *geom.ScreenPoint
	LassoPoints  []geom.ScreenPoint
	SmartKind    model.SmartGraphicKind
	SelectedIDs  []string
	MoveDelta    model.PathPoint
}

// Gesture 현재 제스처 상태 (렌더러 프리뷰용 복사본)
func (m *Machine) Gesture() GestureState {
	st := GestureState{
		Tool:        m.tool,
		Color:       m.color,
		StrokeWidth: m.strokeWidth,
		SmartKind:   m.pendingSmartKind,
		MoveDelta:   m.moveDelta,
	}
	if len(m.strokePoints) > 0 {
		st.StrokePoints = append([]model.PathPoint(nil), m.strokePoints...)
	}
	if m.dragStart != nil {
		p := *m.dragStart
		st.DragStart = &p
	}
	if m.dragCurrent != nil {
		p := *m.dragCurrent
		st.DragCurrent = &p
	}
	if len(m.lassoPoints) > 0 {
		st.LassoPoints = append([]geom.ScreenPoint(nil), m.lassoPoints...)
	}
	st.SelectedIDs = m.SelectedIDs()
	return st
}

// SelectedIDs 현재 선택된 주석 id (페이지 리스트 순서)
func (m *Machine) SelectedIDs() []string {
	if len(m.selected) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m.selected))
	for _, a := range m.store.PageAnnotations(m.page) {
		if _, ok := m.selected[a.AnnotationID()]; ok {
			ids = append(ids, a.AnnotationID())
		}
	}
	return ids
}

// ClearSelection 선택 해제
func (m *Machine) ClearSelection() {
	m.selected = make(map[string]struct{})
}
