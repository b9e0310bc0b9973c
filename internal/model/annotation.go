package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind 주석 변형 타입
type Kind string

const (
	KindStroke        Kind = "STROKE"
	KindHighlightRect Kind = "HIGHLIGHT_RECT"
	KindTextNote      Kind = "TEXT_NOTE"
	KindShape         Kind = "SHAPE"
	KindUnderline     Kind = "UNDERLINE"
	KindStrikethrough Kind = "STRIKETHROUGH"
	KindTable         Kind = "TABLE"
	KindImage         Kind = "IMAGE"
	KindLink          Kind = "LINK"
	KindComment       Kind = "COMMENT"
	KindSignature     Kind = "SIGNATURE"
	KindSmartGraphic  Kind = "SMART_GRAPHIC"
	KindTextBox       Kind = "TEXT_BOX"
)

func (k Kind) String() string {
	return string(k)
}

// PathPoint 정규화 좌표 (0..1, 페이지 기준, 좌상단 원점)
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Color RGBA 색상
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// 기본 색상 (원본 앱의 Material 팔레트)
var (
	ColorBlack           = Color{0, 0, 0, 255}
	ColorHighlightYellow = Color{255, 235, 59, 128}
	ColorNoteAmber       = Color{255, 193, 7, 255}
	ColorLinkBlue        = Color{21, 101, 192, 255}
)

// Annotation 주석 공통 인터페이스 (closed union)
//
// 모든 변형은 id / pageIndex를 가지며, 기하 필드는 전부 정규화 좌표.
// id는 문서 전체에서 유일, pageIndex는 생성 후 불변 (페이지 이동은 remove+add).
type Annotation interface {
	AnnotationID() string
	Page() int
	Kind() Kind
	// Translate 정규화 델타만큼 이동한 복사본 반환
	Translate(dx, dy float64) Annotation
	// WithID id만 교체한 복사본 반환 (duplicate용)
	WithID(id string) Annotation
}

// Base id / pageIndex 공통 필드
type Base struct {
	ID        string `json:"id"`
	PageIndex int    `json:"page_index"`
}

func (b Base) AnnotationID() string { return b.ID }
func (b Base) Page() int            { return b.PageIndex }

// NewID 주석 식별자 생성
func NewID() string {
	return uuid.New().String()
}

// Stroke 자유곡선 (펜/형광펜)
type Stroke struct {
	Base
	Points        []PathPoint `json:"points"`
	Color         Color       `json:"color"`
	StrokeWidth   float64     `json:"stroke_width"`
	IsHighlighter bool        `json:"is_highlighter"`
}

func (s Stroke) Kind() Kind { return KindStroke }

func (s Stroke) Translate(dx, dy float64) Annotation {
	moved := make([]PathPoint, len(s.Points))
	for i, pt := range s.Points {
		moved[i] = PathPoint{X: pt.X + dx, Y: pt.Y + dy}
	}
	s.Points = moved
	return s
}

func (s Stroke) WithID(id string) Annotation {
	s.Points = append([]PathPoint(nil), s.Points...)
	s.ID = id
	return s
}

// HighlightRect 반투명 강조 사각형
type HighlightRect struct {
	Base
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  Color   `json:"color"`
}

func (h HighlightRect) Kind() Kind { return KindHighlightRect }

func (h HighlightRect) Translate(dx, dy float64) Annotation {
	h.X += dx
	h.Y += dy
	return h
}

func (h HighlightRect) WithID(id string) Annotation { h.ID = id; return h }

// TextNote 포인트 마커 + 라벨
type TextNote struct {
	Base
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Text  string  `json:"text"`
	Color Color   `json:"color"`
}

func (t TextNote) Kind() Kind { return KindTextNote }

func (t TextNote) Translate(dx, dy float64) Annotation {
	t.X += dx
	t.Y += dy
	return t
}

func (t TextNote) WithID(id string) Annotation { t.ID = id; return t }

// Shape 외곽선 도형
type Shape struct {
	Base
	ShapeKind   ShapeKind `json:"shape_kind"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Color       Color     `json:"color"`
	StrokeWidth float64   `json:"stroke_width"`
}

func (s Shape) Kind() Kind { return KindShape }

func (s Shape) Translate(dx, dy float64) Annotation {
	s.X += dx
	s.Y += dy
	return s
}

func (s Shape) WithID(id string) Annotation { s.ID = id; return s }

// Underline 수평 밑줄
type Underline struct {
	Base
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
	Color Color   `json:"color"`
}

func (u Underline) Kind() Kind { return KindUnderline }

func (u Underline) Translate(dx, dy float64) Annotation {
	u.X += dx
	u.Y += dy
	return u
}

func (u Underline) WithID(id string) Annotation { u.ID = id; return u }

// Strikethrough 수평 취소선
type Strikethrough struct {
	Base
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
	Color Color   `json:"color"`
}

func (s Strikethrough) Kind() Kind { return KindStrikethrough }

func (s Strikethrough) Translate(dx, dy float64) Annotation {
	s.X += dx
	s.Y += dy
	return s
}

func (s Strikethrough) WithID(id string) Annotation { s.ID = id; return s }

// Table 격자 테이블 (셀 텍스트는 선택)
type Table struct {
	Base
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Rows   int        `json:"rows"`
	Cols   int        `json:"cols"`
	Cells  [][]string `json:"cells"`
	Color  Color      `json:"color"`
}

func (t Table) Kind() Kind { return KindTable }

func (t Table) Translate(dx, dy float64) Annotation {
	t.X += dx
	t.Y += dy
	return t
}

func (t Table) WithID(id string) Annotation {
	cells := make([][]string, len(t.Cells))
	for i, row := range t.Cells {
		cells[i] = append([]string(nil), row...)
	}
	t.Cells = cells
	t.ID = id
	return t
}

// Validate rows/cols와 cells 형태 검증
func (t Table) Validate() error {
	if t.Rows < 1 || t.Cols < 1 {
		return fmt.Errorf("table must have at least 1 row and 1 column, got %dx%d", t.Rows, t.Cols)
	}
	if len(t.Cells) != t.Rows {
		return fmt.Errorf("table has %d rows but %d cell rows", t.Rows, len(t.Cells))
	}
	for i, row := range t.Cells {
		if len(row) != t.Cols {
			return fmt.Errorf("table row %d has %d cells, want %d", i, len(row), t.Cols)
		}
	}
	return nil
}

// Image 외부에서 해석되는 비트맵 참조
type Image struct {
	Base
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ImageRef string  `json:"image_ref"`
}

func (i Image) Kind() Kind { return KindImage }

func (i Image) Translate(dx, dy float64) Annotation {
	i.X += dx
	i.Y += dy
	return i
}

func (i Image) WithID(id string) Annotation { i.ID = id; return i }

// Link 밑줄 텍스트로 렌더링되는 하이퍼링크
type Link struct {
	Base
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	DisplayText string  `json:"display_text"`
	URL         string  `json:"url"`
	Color       Color   `json:"color"`
}

func (l Link) Kind() Kind { return KindLink }

func (l Link) Translate(dx, dy float64) Annotation {
	l.X += dx
	l.Y += dy
	return l
}

func (l Link) WithID(id string) Annotation { l.ID = id; return l }

// Comment 탭으로 편집 가능한 코멘트 마커
type Comment struct {
	Base
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Text  string  `json:"text"`
	Color Color   `json:"color"`
}

func (c Comment) Kind() Kind { return KindComment }

func (c Comment) Translate(dx, dy float64) Annotation {
	c.X += dx
	c.Y += dy
	return c
}

func (c Comment) WithID(id string) Annotation { c.ID = id; return c }

// Signature 자유곡선으로 캡처된 서명 비트맵
type Signature struct {
	Base
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	ImageData []byte  `json:"image_data"`
}

func (s Signature) Kind() Kind { return KindSignature }

func (s Signature) Translate(dx, dy float64) Annotation {
	s.X += dx
	s.Y += dy
	return s
}

func (s Signature) WithID(id string) Annotation {
	s.ImageData = append([]byte(nil), s.ImageData...)
	s.ID = id
	return s
}

// SmartGraphic 절차적으로 그려지는 다이어그램 (스트로크로 저장하지 않음)
type SmartGraphic struct {
	Base
	GraphicKind SmartGraphicKind `json:"graphic_kind"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Width       float64          `json:"width"`
	Height      float64          `json:"height"`
	Color       Color            `json:"color"`
}

func (s SmartGraphic) Kind() Kind { return KindSmartGraphic }

func (s SmartGraphic) Translate(dx, dy float64) Annotation {
	s.X += dx
	s.Y += dy
	return s
}

func (s SmartGraphic) WithID(id string) Annotation { s.ID = id; return s }

// TextBox 서식 있는 텍스트 블록
type TextBox struct {
	Base
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Text          string  `json:"text"`
	FontSize      float64 `json:"font_size"`
	FontFamily    string  `json:"font_family"`
	Color         Color   `json:"color"`
	Bold          bool    `json:"bold"`
	Italic        bool    `json:"italic"`
	Underline     bool    `json:"underline"`
	Strikethrough bool    `json:"strikethrough"`
}

func (t TextBox) Kind() Kind { return KindTextBox }

func (t TextBox) Translate(dx, dy float64) Annotation {
	t.X += dx
	t.Y += dy
	return t
}

func (t TextBox) WithID(id string) Annotation { t.ID = id; return t }

// registry 변형별 디코딩 팩토리
//
// 새 변형 추가 시 여기에 등록해야 한다. 소비자 스위치(히트테스트, 바운즈,
// 렌더, 내보내기)의 누락은 registry 기반 테스트가 잡는다.
var registry = map[Kind]func() Annotation{
	KindStroke:        func() Annotation { return Stroke{} },
	KindHighlightRect: func() Annotation { return HighlightRect{} },
	KindTextNote:      func() Annotation { return TextNote{} },
	KindShape:         func() Annotation { return Shape{} },
	KindUnderline:     func() Annotation { return Underline{} },
	KindStrikethrough: func() Annotation { return Strikethrough{} },
	KindTable:         func() Annotation { return Table{} },
	KindImage:         func() Annotation { return Image{} },
	KindLink:          func() Annotation { return Link{} },
	KindComment:       func() Annotation { return Comment{} },
	KindSignature:     func() Annotation { return Signature{} },
	KindSmartGraphic:  func() Annotation { return SmartGraphic{} },
	KindTextBox:       func() Annotation { return TextBox{} },
}

// Kinds 등록된 모든 변형 타입
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}

// Envelope 직렬화 봉투 {kind, data}
type Envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Marshal 주석을 봉투 JSON으로 직렬화
func Marshal(a Annotation) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Kind: a.Kind(), Data: data})
}

// Unmarshal 봉투 JSON에서 주석 복원
func Unmarshal(raw []byte) (Annotation, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return UnmarshalPayload(env.Kind, env.Data)
}

// UnmarshalPayload kind가 이미 분리된 페이로드 복원
func UnmarshalPayload(kind Kind, data []byte) (Annotation, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown annotation kind %q", kind)
	}
	zero := factory()
	switch zero.(type) {
	case Stroke:
		var v Stroke
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case HighlightRect:
		var v HighlightRect
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TextNote:
		var v TextNote
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case Shape:
		var v Shape
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case Underline:
		var v Underline
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case Strikethrough:
		var v Strikethrough
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case Table:
		var v Table
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case Image:
		var v Image
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case Link:
		var v Link
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case Comment:
		var v Comment
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case Signature:
		var v Signature
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case SmartGraphic:
		var v SmartGraphic
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TextBox:
		var v TextBox
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unhandled annotation kind %q", kind)
	}
}
