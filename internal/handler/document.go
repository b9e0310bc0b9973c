package handler

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"annotatio-backend/internal/export"
	"annotatio-backend/internal/model"
	"annotatio-backend/internal/session"
	"annotatio-backend/internal/tools"
)

// DocumentHandler 문서 등록/열기/닫기 핸들러
type DocumentHandler struct {
	db       *gorm.DB
	sessions *session.Manager
}

// NewDocumentHandler DocumentHandler 생성
func NewDocumentHandler(db *gorm.DB, sessions *session.Manager) *DocumentHandler {
	return &DocumentHandler{db: db, sessions: sessions}
}

// CreateDocumentRequest 문서 등록 요청
//
// page_count/page_sizes를 생략하면 원본 PDF에서 직접 조회한다.
type CreateDocumentRequest struct {
	Name       string `json:"name"`
	SourcePath string `json:"source_path"`
	PageCount  int    `json:"page_count,omitempty"`
	PageSizes  string `json:"page_sizes,omitempty"`
}

// CreateDocument 문서 등록
func (h *DocumentHandler) CreateDocument(c *fiber.Ctx) error {
	var req CreateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.SourcePath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and source_path are required"})
	}
	if req.PageCount < 1 {
		count, sizes, err := export.Probe(req.SourcePath)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read source PDF: " + err.Error()})
		}
		req.PageCount = count
		raw, merr := json.Marshal(sizes)
		if merr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to encode page sizes"})
		}
		req.PageSizes = string(raw)
	}
	if req.PageSizes == "" {
		req.PageSizes = "[]"
	}

	doc := model.Document{
		ID:         model.NewID(),
		Name:       req.Name,
		SourcePath: req.SourcePath,
		PageCount:  req.PageCount,
		PageSizes:  req.PageSizes,
	}
	if err := h.db.Create(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create document"})
	}

	log.Printf("📄 문서 등록: %s (%s, %d페이지)", doc.Name, doc.ID, doc.PageCount)
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// ListDocuments 문서 목록
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	var docs []model.Document
	if err := h.db.Order("created_at DESC").Find(&docs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list documents"})
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// GetDocument 문서 조회
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	var doc model.Document
	if err := h.db.First(&doc, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Document not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch document"})
	}
	return c.JSON(doc)
}

// OpenDocument 문서 세션 열기 (영속화된 주석 복원 + DB 미러 연결)
//
// undo/redo 로그는 세션 수명과 같다 — 다시 열면 주석은 복원되지만
// 로그는 빈 상태로 시작한다.
func (h *DocumentHandler) OpenDocument(c *fiber.Ctx) error {
	docID := c.Params("id")
	var doc model.Document
	if err := h.db.First(&doc, "id = ?", docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Document not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch document"})
	}

	// 이미 열려 있으면 기존 세션 반환
	if sess, ok := h.sessions.Get(docID); ok {
		return c.JSON(fiber.Map{"session_id": sess.ID, "document": doc, "restored": false})
	}

	sess := h.sessions.Open(docID, tools.NopRequests{})

	// 영속화된 주석 복원 (z_index 순서가 곧 그리기 순서)
	var records []model.AnnotationRecord
	if err := h.db.Where("document_id = ?", docID).
		Order("page_index ASC, z_index ASC").
		Find(&records).Error; err != nil {
		h.sessions.Close(docID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load annotations"})
	}

	pages := make(map[int][]model.Annotation)
	for _, rec := range records {
		a, err := model.UnmarshalPayload(model.Kind(rec.Kind), json.RawMessage(rec.Payload))
		if err != nil {
			// 손상/미지원 행은 건너뛰되 기록은 남긴다
			log.Printf("⚠️ 주석 복원 실패: id=%s kind=%s err=%v", rec.ID, rec.Kind, err)
			continue
		}
		pages[rec.PageIndex] = append(pages[rec.PageIndex], a)
	}
	sess.Store.Load(pages)

	// 복원된 이미지 주석의 비트맵 적재 시작 (없으면 플레이스홀더로 남는다)
	for _, list := range pages {
		requestImages(sess, list...)
	}

	// 변경 미러 연결 — 복원 이후에 붙여야 RESET 이벤트로 전체 재기록하지 않는다
	NewMirror(h.db, docID, sess).Attach()

	log.Printf("📂 문서 세션 열림: %s (주석 %d개 복원)", docID, len(records))
	return c.JSON(fiber.Map{"session_id": sess.ID, "document": doc, "restored": true})
}

// CloseDocument 문서 세션 닫기
func (h *DocumentHandler) CloseDocument(c *fiber.Ctx) error {
	docID := c.Params("id")
	if _, ok := h.sessions.Get(docID); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No open session for document"})
	}
	h.sessions.Close(docID)
	log.Printf("📁 문서 세션 닫힘: %s", docID)
	return c.JSON(fiber.Map{"success": true})
}

// DeleteDocument 문서와 주석/작업 행 삭제
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	docID := c.Params("id")
	h.sessions.Close(docID)

	tx := h.db.Begin()
	if err := tx.Where("document_id = ?", docID).Delete(&model.AnnotationRecord{}).Error; err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete annotations"})
	}
	if err := tx.Where("document_id = ?", docID).Delete(&model.ExportJob{}).Error; err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete export jobs"})
	}
	if err := tx.Delete(&model.Document{}, "id = ?", docID).Error; err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete document"})
	}
	tx.Commit()
	return c.JSON(fiber.Map{"success": true})
}
