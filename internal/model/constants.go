package model

// ShapeKind 도형 종류
type ShapeKind string

const (
	ShapeCircle    ShapeKind = "CIRCLE"
	ShapeSquare    ShapeKind = "SQUARE"
	ShapeRectangle ShapeKind = "RECTANGLE"
	ShapeTriangle  ShapeKind = "TRIANGLE"
)

func (s ShapeKind) String() string {
	return string(s)
}

// SmartGraphicKind 스마트 다이어그램 종류
type SmartGraphicKind string

const (
	SmartGraphicMindMap  SmartGraphicKind = "MIND_MAP"
	SmartGraphicOrgChart SmartGraphicKind = "ORG_CHART"
)

func (s SmartGraphicKind) String() string {
	return string(s)
}

// ToolKind 활성 도구
type ToolKind string

const (
	ToolPen           ToolKind = "PEN"
	ToolHighlighter   ToolKind = "HIGHLIGHTER"
	ToolCircle        ToolKind = "CIRCLE"
	ToolSquare        ToolKind = "SQUARE"
	ToolRectangle     ToolKind = "RECTANGLE"
	ToolTriangle      ToolKind = "TRIANGLE"
	ToolUnderline     ToolKind = "UNDERLINE"
	ToolStrikethrough ToolKind = "STRIKETHROUGH"
	ToolTextNote      ToolKind = "TEXT_NOTE"
	ToolComment       ToolKind = "COMMENT"
	ToolTable         ToolKind = "TABLE"
	ToolSignature     ToolKind = "SIGNATURE"
	ToolImage         ToolKind = "IMAGE"
	ToolLink          ToolKind = "LINK"
	ToolSmartGraphic  ToolKind = "SMART_GRAPHIC"
	ToolSelect        ToolKind = "SELECT"
	ToolLasso         ToolKind = "LASSO"
	ToolEraser        ToolKind = "ERASER"
)

func (t ToolKind) String() string {
	return string(t)
}

// ShapeKindForTool 도형 도구 → 도형 종류 매핑 (도형 도구가 아니면 false)
func ShapeKindForTool(t ToolKind) (ShapeKind, bool) {
	switch t {
	case ToolCircle:
		return ShapeCircle, true
	case ToolSquare:
		return ShapeSquare, true
	case ToolRectangle:
		return ShapeRectangle, true
	case ToolTriangle:
		return ShapeTriangle, true
	default:
		return "", false
	}
}
