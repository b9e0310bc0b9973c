package handler

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"annotatio-backend/internal/session"
)

// HealthHandler 헬스체크 핸들러
type HealthHandler struct {
	db        *gorm.DB
	sessions  *session.Manager
	exportDir string
}

// NewHealthHandler HealthHandler 생성
func NewHealthHandler(db *gorm.DB, sessions *session.Manager, exportDir string) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions, exportDir: exportDir}
}

// ComponentCheck 컴포넌트 상태
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse 헬스체크 응답
type HealthResponse struct {
	Status         string                    `json:"status"`
	Timestamp      string                    `json:"timestamp"`
	ActiveSessions int                       `json:"active_sessions"`
	Checks         map[string]ComponentCheck `json:"checks"`
}

// Check 전체 상태 확인 (DB + 세션 수)
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:         "healthy",
		Timestamp:      time.Now().Format(time.RFC3339),
		ActiveSessions: h.sessions.Count(),
		Checks:         make(map[string]ComponentCheck),
	}

	// Database 체크
	dbStart := time.Now()
	sqlDB, err := h.db.DB()
	if err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "failed to get database connection",
		}
	} else if err := sqlDB.Ping(); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "database ping failed",
		}
	} else {
		response.Checks["database"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	// 내보내기 디렉토리 체크 (없으면 만들어질 수 있어야 한다)
	if err := os.MkdirAll(h.exportDir, 0o755); err != nil {
		response.Status = "unhealthy"
		response.Checks["export_dir"] = ComponentCheck{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		response.Checks["export_dir"] = ComponentCheck{Status: "healthy"}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness K8s liveness probe용 (단순 체크)
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness K8s readiness probe용 (DB 연결 체크)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	if err := sqlDB.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}
