package handler

import (
	"github.com/gofiber/fiber/v2"

	"annotatio-backend/internal/auth"
	"annotatio-backend/internal/config"
)

// AuthHandler 토큰 발급/갱신 핸들러
//
// 사용자 디렉터리가 없는 단독 배포용 발급기다 — 로그인 요청의 신원을
// 그대로 서명한다. 외부 IdP 앞에 세울 때는 이 라우트를 빼고 같은 시크릿으로
// 서명된 토큰을 쓰면 된다.
type AuthHandler struct {
	jwtManager    *auth.JWTManager
	secureCookie  bool
	accessExpiry  int64 // 초 단위 (expires_in 응답)
	refreshMaxAge int
}

// NewAuthHandler AuthHandler 생성
func NewAuthHandler(jwtManager *auth.JWTManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		jwtManager:    jwtManager,
		secureCookie:  cfg.SecureCookie,
		accessExpiry:  int64(cfg.AccessTokenExpiry.Seconds()),
		refreshMaxAge: int(cfg.RefreshTokenExpiry.Seconds()),
	}
}

// LoginRequest 로그인 요청
type LoginRequest struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// AuthResponse 인증 응답
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login 토큰 발급
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if h.jwtManager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "auth is disabled",
		})
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email is required",
		})
	}
	if req.Nickname == "" {
		req.Nickname = req.Email
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(req.UserID, req.Email, req.Nickname)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate refresh token",
		})
	}

	// HTTP-Only 쿠키 — access_token은 WebSocket 업그레이드가, refresh_token은
	// 갱신 엔드포인트가 읽는다
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.accessExpiry),
		Secure:   h.secureCookie,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   h.refreshMaxAge,
		Secure:   h.secureCookie,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    h.accessExpiry,
	})
}

// RefreshToken 토큰 갱신
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	if h.jwtManager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "auth is disabled",
		})
	}

	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "refresh token not found",
		})
	}

	userID, err := h.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		// 쿠키 삭제
		c.Cookie(&fiber.Cookie{
			Name:     "refresh_token",
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   h.secureCookie,
			HTTPOnly: true,
		})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid or expired refresh token",
		})
	}

	// 리프레시 토큰에는 이메일/닉네임이 없다 — 발급 시 채운 subject만 유지
	accessToken, err := h.jwtManager.GenerateAccessToken(userID, "", "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.accessExpiry),
		Secure:   h.secureCookie,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"access_token": accessToken,
		"expires_in":   h.accessExpiry,
	})
}

// Logout 로그아웃 (토큰 쿠키 삭제)
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   h.secureCookie,
			HTTPOnly: true,
		})
	}

	return c.JSON(fiber.Map{
		"message": "logged out successfully",
	})
}
