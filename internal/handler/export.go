package handler

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"annotatio-backend/internal/config"
	"annotatio-backend/internal/export"
	"annotatio-backend/internal/model"
	"annotatio-backend/internal/session"
)

// ExportHandler PDF 합성 작업 핸들러
type ExportHandler struct {
	db       *gorm.DB
	sessions *session.Manager
	cfg      config.ExportConfig
}

// NewExportHandler ExportHandler 생성
func NewExportHandler(db *gorm.DB, sessions *session.Manager, cfg config.ExportConfig) *ExportHandler {
	return &ExportHandler{db: db, sessions: sessions, cfg: cfg}
}

// StartExport 백그라운드 합성 작업 시작
//
// 스토어 스냅샷을 먼저 뜨고 작업은 goroutine에서 돈다 — 합성 중에도
// 편집은 계속된다.
func (h *ExportHandler) StartExport(c *fiber.Ctx) error {
	docID := c.Params("id")

	var doc model.Document
	if err := h.db.First(&doc, "id = ?", docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Document not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch document"})
	}

	sess, ok := h.sessions.Get(docID)
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Document session is not open"})
	}

	if err := os.MkdirAll(h.cfg.OutputDir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to prepare output directory"})
	}

	job := model.ExportJob{
		ID:         model.NewID(),
		DocumentID: docID,
		Status:     model.ExportStatusPending,
	}
	job.OutputPath = filepath.Join(h.cfg.OutputDir, docID+"-"+job.ID+".pdf")
	if err := h.db.Create(&job).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create export job"})
	}

	snapshot := sess.Store.Snapshot()
	exporter := export.New(sess.Images)

	go h.runJob(job, doc.SourcePath, snapshot, exporter)

	log.Printf("🚀 내보내기 작업 시작: doc=%s job=%s", docID, job.ID)
	return c.Status(fiber.StatusAccepted).JSON(job)
}

func (h *ExportHandler) runJob(job model.ExportJob, sourcePath string, snapshot map[int][]model.Annotation, exporter *export.Exporter) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.JobTimeout)
	defer cancel()

	err := exporter.Export(ctx, sourcePath, job.OutputPath, snapshot)
	now := time.Now()
	if err != nil {
		msg := err.Error()
		h.db.Model(&model.ExportJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"status":      model.ExportStatusFailed,
			"error":       msg,
			"finished_at": now,
		})
		log.Printf("❌ 내보내기 실패: job=%s err=%v", job.ID, err)
		return
	}
	h.db.Model(&model.ExportJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":      model.ExportStatusDone,
		"finished_at": now,
	})
	log.Printf("✅ 내보내기 완료: job=%s → %s", job.ID, job.OutputPath)
}

// GetJob 작업 상태 조회
func (h *ExportHandler) GetJob(c *fiber.Ctx) error {
	var job model.ExportJob
	if err := h.db.First(&job, "id = ?", c.Params("jobId")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Export job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch export job"})
	}
	return c.JSON(job)
}

// Download 완료된 결과 PDF 다운로드
func (h *ExportHandler) Download(c *fiber.Ctx) error {
	var job model.ExportJob
	if err := h.db.First(&job, "id = ?", c.Params("jobId")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Export job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch export job"})
	}
	if job.Status != model.ExportStatusDone {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Export job is not finished", "status": job.Status})
	}
	return c.Download(job.OutputPath)
}

// ListJobs 문서의 작업 목록
func (h *ExportHandler) ListJobs(c *fiber.Ctx) error {
	var jobs []model.ExportJob
	if err := h.db.Where("document_id = ?", c.Params("id")).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list export jobs"})
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}
