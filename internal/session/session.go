// Package session 열린 문서 하나당 코어 스택 (스토어 + 도구 머신 + 이미지 캐시).
//
// 세션은 문서를 열 때 만들어지고 닫을 때 버려진다. undo/redo 로그는 세션
// 수명과 같다 — 재시작하면 주석은 복원되지만 로그는 빈 상태로 시작한다.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"annotatio-backend/internal/imagecache"
	"annotatio-backend/internal/store"
	"annotatio-backend/internal/tools"
)

// State 세션 상태
type State int

const (
	StateActive State = iota // 편집 중
	StateClosed              // 종료
)

// String 상태를 문자열로 반환
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session 문서 편집 세션 (Thread-Safe)
type Session struct {
	ID         string
	DocumentID string
	State      State
	OpenedAt   time.Time

	Store   *store.Store
	Machine *tools.Machine
	Images  *imagecache.Cache

	// 동시성 제어
	mu sync.RWMutex
	// editMu 머신/스토어 변경 직렬화 (머신은 단일 논리 스레드 가정)
	editMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New 새 세션 생성 (스토어는 비어 있음 — 복원은 호출자가 Load로)
func New(documentID string, requests tools.Requests) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	st := store.New()
	return &Session{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		State:      StateActive,
		OpenedAt:   time.Now(),
		Store:      st,
		Machine:    tools.New(st, requests),
		Images:     imagecache.New(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Context 세션 컨텍스트 반환
func (s *Session) Context() context.Context {
	return s.ctx
}

// Edit 머신/스토어 접근을 세션 단위로 직렬화
//
// 도구 머신은 제스처 콜백이 한 번에 하나씩 들어온다고 가정한다. HTTP
// 핸들러는 고루틴마다 도니까 머신을 건드리는 모든 경로가 여기를 거친다.
func (s *Session) Edit(fn func()) {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	fn()
}

// GetState 현재 상태 조회
func (s *Session) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.State
}

// Duration 세션 유지 시간
func (s *Session) Duration() time.Duration {
	return time.Since(s.OpenedAt)
}

// Close 세션 정리
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State == StateClosed {
		return
	}

	s.State = StateClosed
	s.cancel()
}

// IsClosed 세션 종료 여부 확인
func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.State == StateClosed
}

// Manager 문서 id → 활성 세션 매핑
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 빈 매니저 생성
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Open 문서 세션 조회/생성 (이미 열려 있으면 기존 세션 반환)
func (m *Manager) Open(documentID string, requests tools.Requests) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[documentID]; ok && !s.IsClosed() {
		return s
	}
	s := New(documentID, requests)
	m.sessions[documentID] = s
	return s
}

// Get 활성 세션 조회
func (m *Manager) Get(documentID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[documentID]
	if !ok || s.IsClosed() {
		return nil, false
	}
	return s, true
}

// Close 문서 세션 종료 및 제거
func (m *Manager) Close(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[documentID]; ok {
		s.Close()
		delete(m.sessions, documentID)
	}
}

// Count 활성 세션 수
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
