package handler

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"annotatio-backend/internal/geom"
	"annotatio-backend/internal/model"
	"annotatio-backend/internal/render"
	"annotatio-backend/internal/session"
)

// AnnotationHandler 주석 CRUD + 제스처/도구/선택 핸들러
type AnnotationHandler struct {
	db       *gorm.DB
	sessions *session.Manager
}

// NewAnnotationHandler AnnotationHandler 생성
func NewAnnotationHandler(db *gorm.DB, sessions *session.Manager) *AnnotationHandler {
	return &AnnotationHandler{db: db, sessions: sessions}
}

// requestImages 이미지 주석의 비트맵 적재 시작
//
// 캐시는 지연 적재다 — 제스처 경로만이 아니라 주석이 세션에 들어오는 모든
// 경로(복원, 봉투 추가, 프레임 빌드)에서 걸어줘야 복원된 이미지가
// 플레이스홀더로 남지 않는다. 이미 적재된 ref는 no-op.
func requestImages(sess *session.Session, list ...model.Annotation) {
	for _, a := range list {
		if img, ok := a.(model.Image); ok {
			sess.Images.Request(img.ImageRef)
		}
	}
}

// requireSession 문서의 활성 세션 조회 (없으면 409)
func (h *AnnotationHandler) requireSession(c *fiber.Ctx) (*session.Session, error) {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return nil, c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Document session is not open"})
	}
	return sess, nil
}

// ListPage 페이지 주석 목록 (z-order 순서, 봉투 JSON)
func (h *AnnotationHandler) ListPage(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	page, perr := strconv.Atoi(c.Params("page"))
	if perr != nil || page < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page index"})
	}

	list := sess.Store.PageAnnotations(page)
	envelopes := make([]model.Envelope, 0, len(list))
	for _, a := range list {
		raw, merr := model.Marshal(a)
		if merr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to serialize annotation"})
		}
		var env model.Envelope
		if uerr := json.Unmarshal(raw, &env); uerr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to serialize annotation"})
		}
		envelopes = append(envelopes, env)
	}
	return c.JSON(fiber.Map{
		"page_index":  page,
		"annotations": envelopes,
		"canUndo":     sess.Store.CanUndo(),
		"canRedo":     sess.Store.CanRedo(),
	})
}

// Add 봉투 JSON으로 주석 추가 (id가 비어 있으면 생성)
func (h *AnnotationHandler) Add(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	a, aerr := model.Unmarshal(c.Body())
	if aerr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": aerr.Error()})
	}
	if a.AnnotationID() == "" {
		a = a.WithID(model.NewID())
	}
	// 테이블 형태 불변식은 경계에서 검증
	if t, ok := a.(model.Table); ok {
		if verr := t.Validate(); verr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
		}
	}
	sess.Store.Add(a)
	requestImages(sess, a)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": a.AnnotationID(), "canUndo": sess.Store.CanUndo()})
}

// Update 봉투 JSON으로 주석 교체 (미존재 id는 no-op)
func (h *AnnotationHandler) Update(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	a, aerr := model.Unmarshal(c.Body())
	if aerr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": aerr.Error()})
	}
	if a.AnnotationID() != c.Params("aid") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Annotation id mismatch"})
	}
	sess.Store.Update(a)
	requestImages(sess, a)
	return c.JSON(fiber.Map{"success": true})
}

// Remove id로 주석 제거 (미존재 id는 no-op)
func (h *AnnotationHandler) Remove(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	sess.Store.Remove(c.Params("aid"))
	return c.JSON(fiber.Map{"success": true})
}

// Undo 마지막 변경 되돌리기
func (h *AnnotationHandler) Undo(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	sess.Store.Undo()
	return c.JSON(fiber.Map{"canUndo": sess.Store.CanUndo(), "canRedo": sess.Store.CanRedo()})
}

// Redo 되돌린 변경 재적용
func (h *AnnotationHandler) Redo(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	sess.Store.Redo()
	return c.JSON(fiber.Map{"canUndo": sess.Store.CanUndo(), "canRedo": sess.Store.CanRedo()})
}

// ToolRequest 도구 설정 요청
type ToolRequest struct {
	Tool        model.ToolKind          `json:"tool"`
	Color       *model.Color            `json:"color,omitempty"`
	StrokeWidth *float64                `json:"stroke_width,omitempty"`
	SmartKind   *model.SmartGraphicKind `json:"smart_kind,omitempty"`
	Page        *int                    `json:"page,omitempty"`
}

// SetTool 활성 도구/색/굵기/페이지 설정
func (h *AnnotationHandler) SetTool(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	var req ToolRequest
	if perr := c.BodyParser(&req); perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	var tool model.ToolKind
	var page int
	sess.Edit(func() {
		if req.Page != nil {
			sess.Machine.SetPage(*req.Page)
		}
		if req.Tool != "" {
			sess.Machine.SelectTool(req.Tool)
		}
		if req.Color != nil {
			sess.Machine.SetColor(*req.Color)
		}
		if req.StrokeWidth != nil {
			sess.Machine.SetStrokeWidth(*req.StrokeWidth)
		}
		if req.SmartKind != nil {
			sess.Machine.SetSmartGraphicKind(*req.SmartKind)
		}
		tool = sess.Machine.Tool()
		page = sess.Machine.Page()
	})
	return c.JSON(fiber.Map{"tool": tool, "page": page})
}

// SetViewport 뷰포트 피드 갱신
func (h *AnnotationHandler) SetViewport(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	var vp geom.Viewport
	if perr := c.BodyParser(&vp); perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid viewport"})
	}
	sess.Edit(func() { sess.Machine.SetViewport(vp) })
	return c.JSON(fiber.Map{"success": true})
}

// GestureRequest 포인터 제스처 이벤트
type GestureRequest struct {
	Type string  `json:"type"` // TAP, DRAG_START, DRAG_MOVE, DRAG_END, CANCEL
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Gesture 제스처 이벤트를 도구 머신에 전달
func (h *AnnotationHandler) Gesture(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	var req GestureRequest
	if perr := c.BodyParser(&req); perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	pt := geom.ScreenPoint{X: req.X, Y: req.Y}
	var selected []string
	known := true
	sess.Edit(func() {
		switch req.Type {
		case "TAP":
			sess.Machine.Tap(pt)
		case "DRAG_START":
			sess.Machine.DragStart(pt)
		case "DRAG_MOVE":
			sess.Machine.DragMove(pt)
		case "DRAG_END":
			sess.Machine.DragEnd()
		case "CANCEL":
			sess.Machine.Cancel()
		default:
			known = false
			return
		}
		selected = sess.Machine.SelectedIDs()
	})
	if !known {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown gesture type"})
	}
	return c.JSON(fiber.Map{
		"canUndo":  sess.Store.CanUndo(),
		"canRedo":  sess.Store.CanRedo(),
		"selected": selected,
	})
}

// Frame 페이지 디스플레이 리스트 (주석 + 프리뷰 + 선택 박스)
func (h *AnnotationHandler) Frame(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	page, perr := strconv.Atoi(c.Params("page"))
	if perr != nil || page < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page index"})
	}
	var frame render.Frame
	sess.Edit(func() {
		list := sess.Store.PageAnnotations(page)
		requestImages(sess, list...)
		frame = render.BuildFrame(page, list, sess.Machine.Gesture(), sess.Machine.Viewport(), sess.Images)
	})
	return c.JSON(frame)
}

// SelectionOpRequest 선택 조작 요청
type SelectionOpRequest struct {
	Op string `json:"op"` // DELETE, DUPLICATE, NUDGE, ROTATE
	// Dx/Dy NUDGE 스텝 수, Steps ROTATE 횟수
	Dx    int `json:"dx,omitempty"`
	Dy    int `json:"dy,omitempty"`
	Steps int `json:"steps,omitempty"`
}

// SelectionOp 선택된 주석 조작
func (h *AnnotationHandler) SelectionOp(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	var req SelectionOpRequest
	if perr := c.BodyParser(&req); perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	var selected []string
	known := true
	sess.Edit(func() {
		switch req.Op {
		case "DELETE":
			sess.Machine.DeleteSelected()
		case "DUPLICATE":
			sess.Machine.DuplicateSelected()
		case "NUDGE":
			sess.Machine.NudgeStroke(req.Dx, req.Dy)
		case "ROTATE":
			sess.Machine.RotateStroke(req.Steps)
		default:
			known = false
			return
		}
		selected = sess.Machine.SelectedIDs()
	})
	if !known {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown selection op"})
	}
	return c.JSON(fiber.Map{"selected": selected, "canUndo": sess.Store.CanUndo()})
}

// CompleteRequest 모달 확정 요청 (탭 전용 도구의 후속)
type CompleteRequest struct {
	Kind      model.Kind    `json:"kind"`
	Text      string        `json:"text,omitempty"`
	URL       string        `json:"url,omitempty"`
	Rows      int           `json:"rows,omitempty"`
	Cols      int           `json:"cols,omitempty"`
	Cells     [][]string    `json:"cells,omitempty"`
	Width     float64       `json:"width,omitempty"`
	Height    float64       `json:"height,omitempty"`
	ImageData []byte        `json:"image_data,omitempty"`
	ImageRef  string        `json:"image_ref,omitempty"`
	TextBox   model.TextBox `json:"text_box,omitempty"`
}

// Complete 캡처된 탭 위치로 모달 내용 확정
func (h *AnnotationHandler) Complete(c *fiber.Ctx) error {
	sess, err := h.requireSession(c)
	if sess == nil {
		return err
	}
	var req CompleteRequest
	if perr := c.BodyParser(&req); perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	known := true
	sess.Edit(func() {
		switch req.Kind {
		case model.KindTextNote:
			sess.Machine.CompleteTextNote(req.Text)
		case model.KindComment:
			sess.Machine.CompleteComment(req.Text)
		case model.KindTable:
			sess.Machine.CompleteTable(req.Rows, req.Cols, req.Cells, req.Width, req.Height)
		case model.KindSignature:
			sess.Machine.CompleteSignature(req.ImageData, req.Width, req.Height)
		case model.KindImage:
			sess.Machine.CompleteImage(req.ImageRef, req.Width, req.Height)
			sess.Images.Request(req.ImageRef)
		case model.KindLink:
			sess.Machine.CompleteLink(req.Text, req.URL)
		case model.KindTextBox:
			sess.Machine.AddTextBox(req.TextBox)
		default:
			known = false
		}
	})
	if !known {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown completion kind"})
	}
	return c.JSON(fiber.Map{"canUndo": sess.Store.CanUndo()})
}
