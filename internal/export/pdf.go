// Package export 주석 맵을 원본 PDF 위에 합성해 새 PDF를 생성.
//
// 원본 페이지를 템플릿으로 임포트한 뒤 주석을 콘텐츠 스트림 드로잉으로
// 덧그린다 — 네이티브 PDF 주석 객체가 아니라 일반 그리기 연산. 원본
// 문서는 절대 변경하지 않는다.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"

	"github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/gofpdi"

	"annotatio-backend/internal/model"
)

// 합성 상수
const (
	// highlighterWidthFactor 형광펜 획 폭 배율 (렌더와 동일)
	highlighterWidthFactor = 3.0
	// highlighterAlpha 형광펜/강조 투명도
	highlighterAlpha = 0.35
	// labelFontSize 노트/링크 라벨 폰트 크기 (pt)
	labelFontSize = 8.0
	// markerRadiusPt 노트/코멘트 마커 반지름 (pt)
	markerRadiusPt = 6.0
)

// ImageSource 이미지 주석의 원본 바이트 조회 경계 (imagecache.Cache가 구현)
type ImageSource interface {
	Raw(ref string) ([]byte, bool)
}

// Exporter PDF 합성 어댑터
type Exporter struct {
	images ImageSource
}

// New Exporter 생성 (images는 nil 가능 — 이미지 주석은 플레이스홀더로)
func New(images ImageSource) *Exporter {
	return &Exporter{images: images}
}

// PageInfo 원본 페이지 크기 (pt)
type PageInfo struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Probe 원본 PDF의 페이지 수와 페이지별 크기 조회
//
// gofpdi는 파싱 실패를 panic으로 알리므로 여기서 에러로 바꾼다.
func Probe(sourcePath string) (count int, sizes []PageInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF 파싱 실패: %v", r)
		}
	}()
	pdf := gofpdf.New("P", "pt", "A4", "")
	imp := gofpdi.NewImporter()
	imp.ImportPage(pdf, sourcePath, 1, "/MediaBox")
	boxes := imp.GetPageSizes()
	count = len(boxes)
	sizes = make([]PageInfo, 0, count)
	for pageNo := 1; pageNo <= count; pageNo++ {
		box, ok := boxes[pageNo]["/MediaBox"]
		if !ok {
			return 0, nil, fmt.Errorf("page %d has no MediaBox", pageNo)
		}
		sizes = append(sizes, PageInfo{Width: box["w"], Height: box["h"]})
	}
	return count, sizes, nil
}

// Export sourcePath의 모든 페이지를 복사하고 페이지별 주석을 덧그려
// outPath에 저장.
//
// pages에 없는 페이지는 그대로 복사된다. 주석의 pageIndex가 원본 페이지
// 범위를 벗어나면 해당 주석은 건너뛴다 (손상된 세션 데이터 방어).
func (e *Exporter) Export(ctx context.Context, sourcePath, outPath string, pages map[int][]model.Annotation) (err error) {
	// gofpdi는 파싱 실패를 panic으로 알린다
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF 파싱 실패: %v", r)
		}
	}()
	pdf := gofpdf.New("P", "pt", "A4", "")
	imp := gofpdi.NewImporter()

	// 첫 ImportPage가 소스를 파싱해야 GetNumPages/GetPageSizes가 유효해진다
	firstTpl := imp.ImportPage(pdf, sourcePath, 1, "/MediaBox")
	sizes := imp.GetPageSizes()
	pageCount := len(sizes)

	log.Printf("📄 PDF 합성 시작: %s (%d페이지)", sourcePath, pageCount)

	for pageNo := 1; pageNo <= pageCount; pageNo++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		box, ok := sizes[pageNo]["/MediaBox"]
		if !ok {
			return fmt.Errorf("page %d has no MediaBox", pageNo)
		}
		w, h := box["w"], box["h"]

		tpl := firstTpl
		if pageNo > 1 {
			tpl = imp.ImportPage(pdf, sourcePath, pageNo, "/MediaBox")
		}
		orientation := "P"
		if w > h {
			orientation = "L"
		}
		pdf.AddPageFormat(orientation, gofpdf.SizeType{Wd: w, Ht: h})
		imp.UseImportedTemplate(pdf, tpl, 0, 0, w, h)

		// pageIndex는 0 기반, gofpdi 페이지 번호는 1 기반
		for _, a := range pages[pageNo-1] {
			if err := e.drawAnnotation(pdf, a, w, h); err != nil {
				return fmt.Errorf("page %d annotation %s: %w", pageNo, a.AnnotationID(), err)
			}
		}
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("PDF 저장 실패: %w", err)
	}
	log.Printf("✅ PDF 합성 완료: %s", outPath)
	return nil
}

// drawAnnotation 변형 하나 합성 (gofpdf는 좌상단 원점 y-아래 — 정규화
// 좌표와 방향이 같아 x·W, y·H로 바로 매핑된다)
//
// 모르는 변형은 조용히 버리지 않고 에러 — 내보내기 결과에서 내용이
// 소리 없이 사라지면 안 된다.
func (e *Exporter) drawAnnotation(pdf *gofpdf.Fpdf, a model.Annotation, w, h float64) error {
	switch v := a.(type) {
	case model.Stroke:
		drawStroke(pdf, v, w, h)
	case model.HighlightRect:
		setFill(pdf, v.Color)
		pdf.SetAlpha(highlighterAlpha, "Normal")
		pdf.Rect(v.X*w, v.Y*h, v.Width*w, v.Height*h, "F")
		pdf.SetAlpha(1, "Normal")
	case model.TextNote:
		drawMarker(pdf, v.X*w, v.Y*h, v.Color)
		drawLabel(pdf, v.X*w+markerRadiusPt+2, v.Y*h, v.Text, model.ColorBlack)
	case model.Shape:
		drawShape(pdf, v, w, h)
	case model.Underline:
		setDraw(pdf, v.Color)
		pdf.SetLineWidth(1.5)
		pdf.Line(v.X*w, v.Y*h, (v.X+v.Width)*w, v.Y*h)
	case model.Strikethrough:
		setDraw(pdf, v.Color)
		pdf.SetLineWidth(1.5)
		pdf.Line(v.X*w, v.Y*h, (v.X+v.Width)*w, v.Y*h)
	case model.Table:
		drawTable(pdf, v, w, h)
	case model.Image:
		e.drawImage(pdf, v, w, h)
	case model.Link:
		drawLabel(pdf, v.X*w, v.Y*h, v.DisplayText, v.Color)
		setDraw(pdf, v.Color)
		pdf.SetLineWidth(0.75)
		pdf.Line(v.X*w, v.Y*h+2, v.X*w+60, v.Y*h+2)
		// 클릭 가능한 링크 영역
		pdf.LinkString(v.X*w, v.Y*h-labelFontSize, 60, labelFontSize+4, v.URL)
	case model.Comment:
		drawMarker(pdf, v.X*w, v.Y*h, v.Color)
	case model.Signature:
		drawSignature(pdf, v, w, h)
	case model.SmartGraphic:
		drawSmartGraphic(pdf, v, w, h)
	case model.TextBox:
		drawTextBox(pdf, v, w, h)
	default:
		return fmt.Errorf("unsupported annotation kind %q", a.Kind())
	}
	if pdf.Err() {
		return pdf.Error()
	}
	return nil
}

func drawStroke(pdf *gofpdf.Fpdf, v model.Stroke, w, h float64) {
	if len(v.Points) < 2 {
		return
	}
	setDraw(pdf, v.Color)
	width := v.StrokeWidth * 0.5 // 화면 px → pt 근사
	alpha := 1.0
	if v.IsHighlighter {
		width *= highlighterWidthFactor
		alpha = highlighterAlpha
	}
	pdf.SetLineWidth(width)
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	pdf.SetAlpha(alpha, "Normal")
	pdf.MoveTo(v.Points[0].X*w, v.Points[0].Y*h)
	for _, p := range v.Points[1:] {
		pdf.LineTo(p.X*w, p.Y*h)
	}
	pdf.DrawPath("D")
	pdf.SetAlpha(1, "Normal")
}

func drawShape(pdf *gofpdf.Fpdf, v model.Shape, w, h float64) {
	setDraw(pdf, v.Color)
	pdf.SetLineWidth(v.StrokeWidth * 0.5)
	x, y := v.X*w, v.Y*h
	bw, bh := v.Width*w, v.Height*h
	switch v.ShapeKind {
	case model.ShapeCircle:
		pdf.Ellipse(x+bw/2, y+bh/2, bw/2, bh/2, 0, "D")
	case model.ShapeTriangle:
		pdf.Polygon([]gofpdf.PointType{
			{X: x + bw/2, Y: y},
			{X: x + bw, Y: y + bh},
			{X: x, Y: y + bh},
		}, "D")
	default:
		pdf.Rect(x, y, bw, bh, "D")
	}
}

func drawTable(pdf *gofpdf.Fpdf, v model.Table, w, h float64) {
	setDraw(pdf, v.Color)
	pdf.SetLineWidth(1)
	x, y := v.X*w, v.Y*h
	bw, bh := v.Width*w, v.Height*h
	pdf.Rect(x, y, bw, bh, "D")
	rowH := bh / float64(v.Rows)
	colW := bw / float64(v.Cols)
	for r := 1; r < v.Rows; r++ {
		pdf.Line(x, y+rowH*float64(r), x+bw, y+rowH*float64(r))
	}
	for c := 1; c < v.Cols; c++ {
		pdf.Line(x+colW*float64(c), y, x+colW*float64(c), y+bh)
	}
	for r, row := range v.Cells {
		for c, text := range row {
			if text == "" {
				continue
			}
			drawLabel(pdf, x+colW*float64(c)+2, y+rowH*float64(r)+rowH/2+labelFontSize/2, text, model.ColorBlack)
		}
	}
}

func (e *Exporter) drawImage(pdf *gofpdf.Fpdf, v model.Image, w, h float64) {
	x, y := v.X*w, v.Y*h
	bw, bh := v.Width*w, v.Height*h
	var raw []byte
	ok := false
	if e.images != nil {
		raw, ok = e.images.Raw(v.ImageRef)
	}
	if !ok {
		// 비트맵이 준비 안 됐으면 플레이스홀더 — 내보내기는 멈추지 않는다
		log.Printf("⚠️ 이미지 비트맵 없음, 플레이스홀더로 대체: ref=%s", v.ImageRef)
		setDraw(pdf, model.ColorBlack)
		pdf.SetLineWidth(0.75)
		pdf.Rect(x, y, bw, bh, "D")
		pdf.Line(x, y, x+bw, y+bh)
		pdf.Line(x+bw, y, x, y+bh)
		return
	}
	embedImage(pdf, "img-"+v.ID, raw, x, y, bw, bh)
}

func drawSignature(pdf *gofpdf.Fpdf, v model.Signature, w, h float64) {
	if len(v.ImageData) == 0 {
		return
	}
	embedImage(pdf, "sig-"+v.ID, v.ImageData, v.X*w, v.Y*h, v.Width*w, v.Height*h)
}

// embedImage 인코딩된 바이트를 그대로 임베드 (매직 바이트로 포맷 판별)
func embedImage(pdf *gofpdf.Fpdf, name string, raw []byte, x, y, w, h float64) {
	opts := gofpdf.ImageOptions{ImageType: sniffImageType(raw)}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

func sniffImageType(raw []byte) string {
	switch {
	case len(raw) >= 8 && bytes.Equal(raw[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}):
		return "PNG"
	case len(raw) >= 3 && bytes.Equal(raw[:3], []byte{0xff, 0xd8, 0xff}):
		return "JPG"
	case len(raw) >= 6 && (bytes.Equal(raw[:6], []byte("GIF87a")) || bytes.Equal(raw[:6], []byte("GIF89a"))):
		return "GIF"
	default:
		return "PNG"
	}
}

func drawSmartGraphic(pdf *gofpdf.Fpdf, v model.SmartGraphic, w, h float64) {
	setDraw(pdf, v.Color)
	pdf.SetLineWidth(1.5)
	x, y := v.X*w, v.Y*h
	bw, bh := v.Width*w, v.Height*h
	minSide := math.Min(bw, bh)
	switch v.GraphicKind {
	case model.SmartGraphicMindMap:
		cx, cy := x+bw/2, y+bh/2
		centerR := minSide * 0.12
		arm := minSide * 0.30
		branchR := centerR * 0.7
		pdf.Ellipse(cx, cy, centerR, centerR, 0, "D")
		for i := 0; i < 5; i++ {
			angle := (-90 + float64(i)*72) * math.Pi / 180
			bx := cx + arm*math.Cos(angle)
			by := cy + arm*math.Sin(angle)
			pdf.Line(cx+centerR*math.Cos(angle), cy+centerR*math.Sin(angle),
				bx-branchR*math.Cos(angle), by-branchR*math.Sin(angle))
			pdf.Ellipse(bx, by, branchR, branchR, 0, "D")
		}
	case model.SmartGraphicOrgChart:
		boxW := bw * 0.22
		boxH := bh * 0.16
		cx := x + bw/2
		rootY := y
		midY := y + bh*0.42 - boxH/2
		leafY := y + bh - boxH
		pdf.Rect(cx-boxW/2, rootY, boxW, boxH, "D")
		midXs := []float64{x + bw*0.17, cx, x + bw*0.83}
		for _, mx := range midXs {
			pdf.Rect(mx-boxW/2, midY, boxW, boxH, "D")
			pdf.Line(cx, rootY+boxH, mx, midY)
		}
		pdf.Rect(cx-boxW/2, leafY, boxW, boxH, "D")
		pdf.Line(cx, midY+boxH, cx, leafY)
	}
}

func drawTextBox(pdf *gofpdf.Fpdf, v model.TextBox, w, h float64) {
	style := ""
	if v.Bold {
		style += "B"
	}
	if v.Italic {
		style += "I"
	}
	size := v.FontSize
	if size <= 0 {
		size = 12
	}
	pdf.SetFont("Helvetica", style, size)
	setText(pdf, v.Color)
	// 단일 런 — 줄바꿈/리플로우는 하지 않는다
	pdf.Text(v.X*w, v.Y*h+size, v.Text)
	if v.Underline {
		setDraw(pdf, v.Color)
		pdf.SetLineWidth(0.75)
		width := pdf.GetStringWidth(v.Text)
		pdf.Line(v.X*w, v.Y*h+size+2, v.X*w+width, v.Y*h+size+2)
	}
	if v.Strikethrough {
		setDraw(pdf, v.Color)
		pdf.SetLineWidth(0.75)
		width := pdf.GetStringWidth(v.Text)
		pdf.Line(v.X*w, v.Y*h+size*0.65, v.X*w+width, v.Y*h+size*0.65)
	}
}

func drawMarker(pdf *gofpdf.Fpdf, x, y float64, c model.Color) {
	setFill(pdf, c)
	pdf.Ellipse(x, y, markerRadiusPt, markerRadiusPt, 0, "F")
}

func drawLabel(pdf *gofpdf.Fpdf, x, y float64, text string, c model.Color) {
	pdf.SetFont("Helvetica", "", labelFontSize)
	setText(pdf, c)
	pdf.Text(x, y, text)
}

func setDraw(pdf *gofpdf.Fpdf, c model.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFill(pdf *gofpdf.Fpdf, c model.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setText(pdf *gofpdf.Fpdf, c model.Color) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
