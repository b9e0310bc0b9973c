package store

import (
	"annotatio-backend/internal/model"
)

// ActionType 커맨드 로그 엔트리 종류
type ActionType string

const (
	ActionAdd    ActionType = "ADD"
	ActionRemove ActionType = "REMOVE"
	ActionUpdate ActionType = "UPDATE"
)

// UndoAction 구조적 변경 기록
//
// Add/Remove는 Annotation만, Update는 old/new 쌍을 갖는다.
type UndoAction struct {
	Type       ActionType
	Annotation model.Annotation // Add/Remove 대상
	Old        model.Annotation // Update 이전 버전
	New        model.Annotation // Update 이후 버전
}

// CommandLog undo/redo 스택 (Store가 소유, 문서/테스트별 독립 인스턴스)
//
// 깊이 제한 없음 — 원본과 동일하게 eviction하지 않는다.
type CommandLog struct {
	undo []UndoAction
	redo []UndoAction
}

// NewCommandLog 빈 커맨드 로그 생성
func NewCommandLog() *CommandLog {
	return &CommandLog{}
}

// Push 새 변경 기록 추가, redo 스택은 비운다
func (l *CommandLog) Push(a UndoAction) {
	l.undo = append(l.undo, a)
	l.redo = l.redo[:0]
}

// PopUndo undo 스택에서 꺼내 redo 스택에 쌓는다
func (l *CommandLog) PopUndo() (UndoAction, bool) {
	if len(l.undo) == 0 {
		return UndoAction{}, false
	}
	a := l.undo[len(l.undo)-1]
	l.undo = l.undo[:len(l.undo)-1]
	l.redo = append(l.redo, a)
	return a, true
}

// PopRedo redo 스택에서 꺼내 undo 스택에 쌓는다
func (l *CommandLog) PopRedo() (UndoAction, bool) {
	if len(l.redo) == 0 {
		return UndoAction{}, false
	}
	a := l.redo[len(l.redo)-1]
	l.redo = l.redo[:len(l.redo)-1]
	l.undo = append(l.undo, a)
	return a, true
}

func (l *CommandLog) CanUndo() bool { return len(l.undo) > 0 }
func (l *CommandLog) CanRedo() bool { return len(l.redo) > 0 }

// Clear 양쪽 스택 초기화 (문서 교체 시)
func (l *CommandLog) Clear() {
	l.undo = l.undo[:0]
	l.redo = l.redo[:0]
}
