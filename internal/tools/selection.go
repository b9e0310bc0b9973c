package tools

import (
	"math"

	"annotatio-backend/internal/geom"
	"annotatio-backend/internal/model"
)

// DeleteSelected 선택된 주석 전부 제거 (각 제거가 개별 undo 엔트리)
func (m *Machine) DeleteSelected() {
	for _, id := range m.SelectedIDs() {
		m.store.Remove(id)
	}
	m.ClearSelection()
}

// DuplicateSelected 선택된 주석을 새 id로 복제해 살짝 어긋난 위치에 추가
//
// 복제본이 새 선택이 된다.
func (m *Machine) DuplicateSelected() {
	const offset = 0.02
	next := make(map[string]struct{})
	for _, a := range m.store.PageAnnotations(m.page) {
		if _, ok := m.selected[a.AnnotationID()]; !ok {
			continue
		}
		dup := a.WithID(model.NewID()).Translate(offset, offset)
		m.store.Add(dup)
		next[dup.AnnotationID()] = struct{}{}
	}
	if len(next) > 0 {
		m.selected = next
	}
}

// NudgeStroke 단일 선택된 획을 화면 기준 10px 스텝으로 이동
//
// dx/dy는 스텝 수 (예: dx=1 → 오른쪽 10px). 선택이 획 하나가 아니면 no-op.
func (m *Machine) NudgeStroke(dx, dy int) {
	stroke, ok := m.singleSelectedStroke()
	if !ok || !m.vp.Valid() {
		return
	}
	ndx := float64(dx) * NudgeStepPx / m.vp.PageWidthPx
	ndy := float64(dy) * NudgeStepPx / m.vp.PageHeightPx
	m.store.Update(stroke.Translate(ndx, ndy))
}

// RotateStroke 단일 선택된 획을 정규화 바운즈 중심 기준 15° 회전
//
// steps는 회전 횟수 (양수 = 시계 방향). 선택이 획 하나가 아니면 no-op.
func (m *Machine) RotateStroke(steps int) {
	stroke, ok := m.singleSelectedStroke()
	if !ok || len(stroke.Points) == 0 {
		return
	}
	bounds := geom.BoundsNormalized(stroke)
	cx, cy := bounds.CenterX(), bounds.CenterY()
	angle := float64(steps) * RotateStepDegrees * math.Pi / 180
	sin, cos := math.Sin(angle), math.Cos(angle)
	rotated := make([]model.PathPoint, len(stroke.Points))
	for i, p := range stroke.Points {
		rx, ry := p.X-cx, p.Y-cy
		rotated[i] = model.PathPoint{
			X: cx + rx*cos - ry*sin,
			Y: cy + rx*sin + ry*cos,
		}
	}
	stroke.Points = rotated
	m.store.Update(stroke)
}

func (m *Machine) singleSelectedStroke() (model.Stroke, bool) {
	if len(m.selected) != 1 {
		return model.Stroke{}, false
	}
	var id string
	for k := range m.selected {
		id = k
	}
	a, ok := m.store.Find(id)
	if !ok {
		return model.Stroke{}, false
	}
	stroke, ok := a.(model.Stroke)
	return stroke, ok
}
