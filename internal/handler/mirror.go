package handler

import (
	"encoding/json"
	"log"

	"gorm.io/gorm"

	"annotatio-backend/internal/model"
	"annotatio-backend/internal/session"
	"annotatio-backend/internal/store"
)

// Mirror 스토어 변경을 annotation_records로 미러링
//
// 옵저버는 변경 호출 안에서 동기 실행되므로 DB 쓰기는 페이지 번호만 채널에
// 넣고 워커가 비동기로 처리한다. 워커는 이벤트 단위 diff 대신 해당 페이지
// 전체를 다시 쓴다 — undo/redo/이동이 전부 같은 경로로 수렴하고 z_index가
// 항상 리스트 위치와 일치한다.
type Mirror struct {
	db         *gorm.DB
	documentID string
	sess       *session.Session
	dirty      chan int
}

// NewMirror Mirror 생성
func NewMirror(db *gorm.DB, documentID string, sess *session.Session) *Mirror {
	return &Mirror{
		db:         db,
		documentID: documentID,
		sess:       sess,
		dirty:      make(chan int, 256),
	}
}

// Attach 옵저버 등록 및 워커 시작 (세션 컨텍스트로 종료)
func (m *Mirror) Attach() {
	m.sess.Store.Subscribe(func(ev store.Event) {
		if ev.Type == store.EventReset {
			return
		}
		select {
		case m.dirty <- ev.PageIndex:
		default:
			// 채널이 가득 차면 버린다 — 같은 페이지가 이미 큐에 있다
			log.Printf("⚠️ 미러 큐 포화: doc=%s page=%d", m.documentID, ev.PageIndex)
		}
	})
	go m.run()
}

func (m *Mirror) run() {
	for {
		select {
		case <-m.sess.Context().Done():
			return
		case page := <-m.dirty:
			// 연속으로 쌓인 같은 페이지 이벤트를 한 번에 털어낸다
			pages := map[int]struct{}{page: {}}
			for drained := false; !drained; {
				select {
				case p := <-m.dirty:
					pages[p] = struct{}{}
				default:
					drained = true
				}
			}
			for p := range pages {
				if err := m.rewritePage(p); err != nil {
					log.Printf("⚠️ 주석 미러링 실패: doc=%s page=%d err=%v", m.documentID, p, err)
				}
			}
		}
	}
}

// rewritePage 페이지의 행을 현재 스토어 상태로 교체
func (m *Mirror) rewritePage(pageIndex int) error {
	list := m.sess.Store.PageAnnotations(pageIndex)

	tx := m.db.Begin()
	if err := tx.Where("document_id = ? AND page_index = ?", m.documentID, pageIndex).
		Delete(&model.AnnotationRecord{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	for z, a := range list {
		payload, err := json.Marshal(a)
		if err != nil {
			tx.Rollback()
			return err
		}
		rec := model.AnnotationRecord{
			ID:         a.AnnotationID(),
			DocumentID: m.documentID,
			PageIndex:  pageIndex,
			Kind:       string(a.Kind()),
			Payload:    string(payload),
			ZIndex:     z,
		}
		if err := tx.Create(&rec).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit().Error
}
