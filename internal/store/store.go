// Package store 페이지별 주석 컬렉션과 undo/redo 커맨드 로그.
//
// 유일한 변경 게이트웨이. 모든 변경은 Add/Remove/Update를 거치고, 성공한
// 변경마다 로그 엔트리 하나를 쌓고 redo 스택을 비운 뒤 옵저버에게 동기
// 통지한다. 제스처 끝 하나 ⇒ 변경 하나 ⇒ 리드로우 하나.
package store

import (
	"sync"

	"annotatio-backend/internal/model"
)

// EventType 옵저버 통지 종류
type EventType string

const (
	EventAdd    EventType = "ADD"
	EventRemove EventType = "REMOVE"
	EventUpdate EventType = "UPDATE"
	EventUndo   EventType = "UNDO"
	EventRedo   EventType = "REDO"
	EventReset  EventType = "RESET"
)

// Event 변경 통지
type Event struct {
	Type       EventType
	PageIndex  int
	Annotation model.Annotation // Add/Remove/Update 대상 (Update는 new)
	Old        model.Annotation // Update의 이전 버전
}

// Observer 변경 통지 콜백 (변경 호출이 리턴하기 전에 동기 호출)
type Observer func(Event)

// Store 페이지 인덱스 → 주석 리스트 (삽입 순서 = z-order, 마지막 = 최상단)
//
// 문서를 열 때 비어 있는 상태로 생성되고, 새 문서를 열면 통째로 버려진다.
// 영속화는 export 어댑터와 옵저버 미러링으로만 일어난다.
type Store struct {
	mu        sync.RWMutex
	pages     map[int][]model.Annotation
	log       *CommandLog
	observers []Observer
}

// New 빈 스토어 생성
func New() *Store {
	return &Store{
		pages: make(map[int][]model.Annotation),
		log:   NewCommandLog(),
	}
}

// Subscribe 옵저버 등록 (해제는 지원하지 않음 — 세션과 수명이 같다)
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	obs := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, fn := range obs {
		fn(ev)
	}
}

// Add 주석을 해당 페이지 끝에 추가하고 Add 엔트리를 로그에 쌓는다
//
// 기하 검증은 호출자 책임 — 스토어는 재검증하지 않는다.
func (s *Store) Add(a model.Annotation) {
	s.mu.Lock()
	s.addInternal(a)
	s.log.Push(UndoAction{Type: ActionAdd, Annotation: a})
	obs := Event{Type: EventAdd, PageIndex: a.Page(), Annotation: a}
	s.mu.Unlock()
	s.notify(obs)
}

// Remove id로 제거. 전 페이지를 뒤져 첫 매치를 지운다 (id는 전역 유일).
// 못 찾으면 no-op — 에러 아님.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	removed, ok := s.removeInternal(id)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.log.Push(UndoAction{Type: ActionRemove, Annotation: removed})
	obs := Event{Type: EventRemove, PageIndex: removed.Page(), Annotation: removed}
	s.mu.Unlock()
	s.notify(obs)
}

// Update 같은 id의 주석을 제자리 교체 (z-order 보존). 못 찾으면 no-op.
//
// 조회는 새 값의 pageIndex로만 한다. 페이지를 바꾼 업데이트는 이전 항목을
// 못 찾아 조용히 실패한다 — 페이지 간 이동은 호출자가 명시적 Remove+Add로
// 표현할 것.
func (s *Store) Update(updated model.Annotation) {
	s.mu.Lock()
	old, ok := s.updateInternal(updated)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.log.Push(UndoAction{Type: ActionUpdate, Old: old, New: updated})
	obs := Event{Type: EventUpdate, PageIndex: updated.Page(), Annotation: updated, Old: old}
	s.mu.Unlock()
	s.notify(obs)
}

// Undo 마지막 변경의 구조적 역을 적용. 스택이 비면 no-op.
func (s *Store) Undo() {
	s.mu.Lock()
	action, ok := s.log.PopUndo()
	if !ok {
		s.mu.Unlock()
		return
	}
	var obs Event
	switch action.Type {
	case ActionAdd:
		s.removeInternal(action.Annotation.AnnotationID())
		obs = Event{Type: EventUndo, PageIndex: action.Annotation.Page(), Annotation: action.Annotation}
	case ActionRemove:
		s.addInternal(action.Annotation)
		obs = Event{Type: EventUndo, PageIndex: action.Annotation.Page(), Annotation: action.Annotation}
	case ActionUpdate:
		s.updateInternal(action.Old)
		obs = Event{Type: EventUndo, PageIndex: action.Old.Page(), Annotation: action.Old, Old: action.New}
	}
	s.mu.Unlock()
	s.notify(obs)
}

// Redo undo의 미러. 스택이 비면 no-op.
func (s *Store) Redo() {
	s.mu.Lock()
	action, ok := s.log.PopRedo()
	if !ok {
		s.mu.Unlock()
		return
	}
	var obs Event
	switch action.Type {
	case ActionAdd:
		s.addInternal(action.Annotation)
		obs = Event{Type: EventRedo, PageIndex: action.Annotation.Page(), Annotation: action.Annotation}
	case ActionRemove:
		s.removeInternal(action.Annotation.AnnotationID())
		obs = Event{Type: EventRedo, PageIndex: action.Annotation.Page(), Annotation: action.Annotation}
	case ActionUpdate:
		s.updateInternal(action.New)
		obs = Event{Type: EventRedo, PageIndex: action.New.Page(), Annotation: action.New, Old: action.Old}
	}
	s.mu.Unlock()
	s.notify(obs)
}

func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.CanUndo()
}

func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.CanRedo()
}

// PageAnnotations 페이지의 주석 리스트 복사본 (없으면 빈 리스트)
func (s *Store) PageAnnotations(pageIndex int) []model.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.pages[pageIndex]
	out := make([]model.Annotation, len(list))
	copy(out, list)
	return out
}

// Find id로 주석 조회 (전 페이지)
func (s *Store) Find(id string) (model.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.pages {
		for _, a := range list {
			if a.AnnotationID() == id {
				return a, true
			}
		}
	}
	return nil, false
}

// Snapshot 페이지 맵의 시점 복사본 (비동기 export용 — 스토어를 잠그지 않는다)
func (s *Store) Snapshot() map[int][]model.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[int][]model.Annotation, len(s.pages))
	for page, list := range s.pages {
		cp := make([]model.Annotation, len(list))
		copy(cp, list)
		snap[page] = cp
	}
	return snap
}

// Load 영속화된 주석을 로그 없이 일괄 적재 (세션 복원용)
//
// 기존 상태와 로그를 버리고 새로 채운 뒤 RESET 하나만 통지한다.
func (s *Store) Load(pages map[int][]model.Annotation) {
	s.mu.Lock()
	s.pages = make(map[int][]model.Annotation, len(pages))
	for page, list := range pages {
		cp := make([]model.Annotation, len(list))
		copy(cp, list)
		s.pages[page] = cp
	}
	s.log.Clear()
	s.mu.Unlock()
	s.notify(Event{Type: EventReset})
}

// 비로깅 내부 변형 — undo/redo가 재로깅 없이 사용

func (s *Store) addInternal(a model.Annotation) {
	page := a.Page()
	s.pages[page] = append(s.pages[page], a)
}

func (s *Store) removeInternal(id string) (model.Annotation, bool) {
	for page, list := range s.pages {
		for i, a := range list {
			if a.AnnotationID() == id {
				s.pages[page] = append(list[:i:i], list[i+1:]...)
				return a, true
			}
		}
	}
	return nil, false
}

func (s *Store) updateInternal(updated model.Annotation) (model.Annotation, bool) {
	list, ok := s.pages[updated.Page()]
	if !ok {
		return nil, false
	}
	for i, a := range list {
		if a.AnnotationID() == updated.AnnotationID() {
			old := a
			list[i] = updated
			return old, true
		}
	}
	return nil, false
}
