package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"annotatio-backend/internal/auth"
	"annotatio-backend/internal/config"
	"annotatio-backend/internal/handler"
	"annotatio-backend/internal/session"
)

// Server Fiber 서버 래퍼
type Server struct {
	app               *fiber.App
	cfg               *config.Config
	db                *gorm.DB
	sessions          *session.Manager
	healthHandler     *handler.HealthHandler
	documentHandler   *handler.DocumentHandler
	annotationHandler *handler.AnnotationHandler
	annotationWS      *handler.AnnotationWSHandler
	exportHandler     *handler.ExportHandler
	authHandler       *handler.AuthHandler
	jwtManager        *auth.JWTManager
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, db *gorm.DB) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Annotatio PDF Annotation Engine",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384, // 16KB - 큰 헤더 허용
		WriteBufferSize:       16384,
		BodyLimit:             cfg.Server.BodyLimit, // 서명 비트맵 업로드 허용
		DisableStartupMessage: false,
	})

	// Auth 초기화 (AUTH_ENABLED=false면 nil — 미들웨어가 익명 통과)
	var jwtManager *auth.JWTManager
	if cfg.Auth.Enabled {
		jwtManager = auth.NewJWTManager(
			cfg.Auth.JWTSecret,
			cfg.Auth.AccessTokenExpiry,
			cfg.Auth.RefreshTokenExpiry,
		)
	} else {
		log.Println("ℹ️ Auth disabled — all requests run anonymous")
	}

	sessions := session.NewManager()

	return &Server{
		app:               app,
		cfg:               cfg,
		db:                db,
		sessions:          sessions,
		healthHandler:     handler.NewHealthHandler(db, sessions, cfg.Export.OutputDir),
		documentHandler:   handler.NewDocumentHandler(db, sessions),
		annotationHandler: handler.NewAnnotationHandler(db, sessions),
		annotationWS:      handler.NewAnnotationWSHandler(sessions, cfg.WebSocket.WriteTimeout),
		authHandler:       handler.NewAuthHandler(jwtManager, cfg.Auth),
		exportHandler:     handler.NewExportHandler(db, sessions, cfg.Export),
		jwtManager:        jwtManager,
	}
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Seoul",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// 합성 결과 정적 제공
	s.app.Static("/exports", s.cfg.Export.OutputDir)
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Auth 라우트 (토큰 발급/갱신 — 미들웨어 밖)
	authGroup := s.app.Group("/api/auth")
	authGroup.Post("/login", s.authHandler.Login)
	authGroup.Post("/refresh", s.authHandler.RefreshToken)
	authGroup.Post("/logout", s.authHandler.Logout)

	// Rate Limiter (내보내기는 무거운 작업이라 남용 방지)
	exportLimiter := limiter.New(limiter.Config{
		Max:        10,              // 최대 10회
		Expiration: 1 * time.Minute, // 1분당
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	// Document 라우트 그룹 (인증 필요)
	docGroup := s.app.Group("/api/documents", auth.AuthMiddleware(s.jwtManager))
	docGroup.Post("/", s.documentHandler.CreateDocument)
	docGroup.Get("/", s.documentHandler.ListDocuments)
	docGroup.Get("/:id", s.documentHandler.GetDocument)
	docGroup.Delete("/:id", s.documentHandler.DeleteDocument)
	docGroup.Post("/:id/open", s.documentHandler.OpenDocument)
	docGroup.Post("/:id/close", s.documentHandler.CloseDocument)

	// Annotation 라우트 (문서 하위)
	docGroup.Get("/:id/pages/:page/annotations", s.annotationHandler.ListPage)
	docGroup.Get("/:id/pages/:page/frame", s.annotationHandler.Frame)
	docGroup.Post("/:id/annotations", s.annotationHandler.Add)
	docGroup.Put("/:id/annotations/:aid", s.annotationHandler.Update)
	docGroup.Delete("/:id/annotations/:aid", s.annotationHandler.Remove)
	docGroup.Post("/:id/undo", s.annotationHandler.Undo)
	docGroup.Post("/:id/redo", s.annotationHandler.Redo)

	// 도구/제스처 라우트 (문서 하위)
	docGroup.Post("/:id/tool", s.annotationHandler.SetTool)
	docGroup.Post("/:id/viewport", s.annotationHandler.SetViewport)
	docGroup.Post("/:id/gesture", s.annotationHandler.Gesture)
	docGroup.Post("/:id/selection", s.annotationHandler.SelectionOp)
	docGroup.Post("/:id/complete", s.annotationHandler.Complete)

	// Export 라우트
	docGroup.Post("/:id/export", exportLimiter, s.exportHandler.StartExport)
	docGroup.Get("/:id/exports", s.exportHandler.ListJobs)
	s.app.Get("/api/exports/:jobId", auth.AuthMiddleware(s.jwtManager), s.exportHandler.GetJob)
	s.app.Get("/api/exports/:jobId/download", auth.AuthMiddleware(s.jwtManager), s.exportHandler.Download)

	// WebSocket 업그레이드 체크 미들웨어
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket 주석 변경 피드 엔드포인트
	s.app.Get("/ws/documents/:id", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		if s.jwtManager != nil {
			// 쿠키에서 JWT 토큰 추출
			accessToken := c.Cookies("access_token")
			if accessToken == "" {
				accessToken = c.Query("token")
			}
			if accessToken == "" {
				return c.SendStatus(fiber.StatusUnauthorized)
			}
			if _, err := s.jwtManager.ValidateAccessToken(accessToken); err != nil {
				return c.SendStatus(fiber.StatusUnauthorized)
			}
		}

		c.Locals("documentId", c.Params("id"))
		return c.Next()
	}, websocket.New(s.annotationWS.HandleWebSocket, websocket.Config{
		HandshakeTimeout: s.cfg.WebSocket.HandshakeTimeout,
		ReadBufferSize:   s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Annotatio PDF Annotation Engine starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/documents/:id", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
