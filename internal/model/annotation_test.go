package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample 변형별 대표 인스턴스 — registry와 같은 범위를 커버해야 한다
func sample(kind Kind) Annotation {
	base := Base{ID: "id-" + string(kind), PageIndex: 2}
	switch kind {
	case KindStroke:
		return Stroke{Base: base, Points: []PathPoint{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}}, Color: ColorBlack, StrokeWidth: 4}
	case KindHighlightRect:
		return HighlightRect{Base: base, X: 0.1, Y: 0.2, Width: 0.3, Height: 0.05, Color: ColorHighlightYellow}
	case KindTextNote:
		return TextNote{Base: base, X: 0.5, Y: 0.5, Text: "메모", Color: ColorNoteAmber}
	case KindShape:
		return Shape{Base: base, ShapeKind: ShapeTriangle, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2, Color: ColorBlack, StrokeWidth: 2}
	case KindUnderline:
		return Underline{Base: base, X: 0.2, Y: 0.6, Width: 0.3, Color: ColorBlack}
	case KindStrikethrough:
		return Strikethrough{Base: base, X: 0.2, Y: 0.6, Width: 0.3, Color: ColorBlack}
	case KindTable:
		return Table{Base: base, X: 0.1, Y: 0.1, Width: 0.4, Height: 0.3, Rows: 2, Cols: 2, Cells: [][]string{{"a", "b"}, {"c", "d"}}, Color: ColorBlack}
	case KindImage:
		return Image{Base: base, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2, ImageRef: "https://example.com/x.png"}
	case KindLink:
		return Link{Base: base, X: 0.3, Y: 0.3, DisplayText: "문서", URL: "https://example.com", Color: ColorLinkBlue}
	case KindComment:
		return Comment{Base: base, X: 0.7, Y: 0.7, Text: "검토 필요", Color: ColorNoteAmber}
	case KindSignature:
		return Signature{Base: base, X: 0.5, Y: 0.8, Width: 0.2, Height: 0.1, ImageData: []byte{0x89, 0x50}}
	case KindSmartGraphic:
		return SmartGraphic{Base: base, GraphicKind: SmartGraphicOrgChart, X: 0.1, Y: 0.1, Width: 0.5, Height: 0.4, Color: ColorBlack}
	case KindTextBox:
		return TextBox{Base: base, X: 0.1, Y: 0.1, Width: 0.3, Height: 0.1, Text: "본문", FontSize: 14, FontFamily: "Helvetica", Color: ColorBlack, Bold: true}
	}
	return nil
}

func TestKindsCoversAllVariants(t *testing.T) {
	kinds := Kinds()
	assert.Len(t, kinds, 13)
	for _, k := range kinds {
		require.NotNil(t, sample(k), "sample fixture missing for %s", k)
	}
}

func TestMarshalRoundTripEveryKind(t *testing.T) {
	for _, k := range Kinds() {
		orig := sample(k)

		raw, err := Marshal(orig)
		require.NoError(t, err, "%s", k)

		back, err := Unmarshal(raw)
		require.NoError(t, err, "%s", k)
		assert.Equal(t, orig, back, "%s", k)
		assert.Equal(t, k, back.Kind())
		assert.Equal(t, 2, back.Page())
	}
}

func TestUnmarshalUnknownKind(t *testing.T) {
	_, err := Unmarshal([]byte(`{"kind":"DOODLE","data":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown annotation kind")

	_, err = UnmarshalPayload("", []byte(`{}`))
	require.Error(t, err)
}

func TestUnmarshalMalformedEnvelope(t *testing.T) {
	_, err := Unmarshal([]byte(`not json`))
	assert.Error(t, err)

	_, err = UnmarshalPayload(KindStroke, []byte(`{"points": "nope"}`))
	assert.Error(t, err)
}

func TestTranslateReturnsIndependentCopy(t *testing.T) {
	orig := sample(KindStroke).(Stroke)
	moved := orig.Translate(0.1, -0.1).(Stroke)

	assert.InDelta(t, 0.2, moved.Points[0].X, 1e-9)
	assert.InDelta(t, 0.1, moved.Points[0].Y, 1e-9)
	// 원본 슬라이스는 그대로
	assert.InDelta(t, 0.1, orig.Points[0].X, 1e-9)

	// 이동해도 id/page는 유지
	assert.Equal(t, orig.AnnotationID(), moved.AnnotationID())
	assert.Equal(t, orig.Page(), moved.Page())
}

func TestWithIDDeepCopiesSlices(t *testing.T) {
	stroke := sample(KindStroke).(Stroke)
	dup := stroke.WithID("dup").(Stroke)
	dup.Points[0].X = 0.99
	assert.InDelta(t, 0.1, stroke.Points[0].X, 1e-9)
	assert.Equal(t, "dup", dup.AnnotationID())

	table := sample(KindTable).(Table)
	dupT := table.WithID("dup-t").(Table)
	dupT.Cells[0][0] = "변경"
	assert.Equal(t, "a", table.Cells[0][0])

	sig := sample(KindSignature).(Signature)
	dupS := sig.WithID("dup-s").(Signature)
	dupS.ImageData[0] = 0
	assert.Equal(t, byte(0x89), sig.ImageData[0])
}

func TestTableValidate(t *testing.T) {
	ok := sample(KindTable).(Table)
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Rows = 0
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Cells = [][]string{{"a", "b"}}
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Cells = [][]string{{"a"}, {"c", "d"}}
	assert.Error(t, bad.Validate())
}
