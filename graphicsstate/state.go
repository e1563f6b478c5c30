package graphicsstate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/tsawler/pdfthumb/model"
)

// maxStackDepth bounds q nesting; deeper saves are ignored along with their
// matching restores.
const maxStackDepth = 256

// GraphicsState represents the PDF graphics state
type GraphicsState struct {
	// Current Transformation Matrix
	CTM model.Matrix

	// Text state
	Text TextState

	// Graphics state stack (for q/Q operators)
	stack   []*GraphicsState
	dropped int

	// Line attributes
	LineWidth  float64
	LineCap    int
	LineJoin   int
	MiterLimit float64
	Dash       []float64
	DashPhase  float64

	// Colour
	StrokeSpace ColorSpace
	StrokeComps []float64
	FillSpace   ColorSpace
	FillComps   []float64
	StrokeAlpha float64
	FillAlpha   float64

	// Clip is the device-space clipping mask; nil means unclipped. Masks
	// are never modified once installed, so saved states share them.
	Clip *image.Alpha
}

// TextState represents text-specific state
type TextState struct {
	// Font and size
	FontName string
	FontSize float64

	// Character and word spacing
	CharSpacing float64
	WordSpacing float64

	// Horizontal scaling (percentage)
	HorizontalScaling float64

	// Leading (line spacing)
	Leading float64

	// Text rendering mode
	RenderingMode int

	// Text rise
	Rise float64

	// Text matrices
	TextMatrix     model.Matrix
	TextLineMatrix model.Matrix
}

// NewGraphicsState creates a new graphics state with default values
func NewGraphicsState() *GraphicsState {
	return &GraphicsState{
		CTM:         model.Identity(),
		LineWidth:   1.0,
		MiterLimit:  10,
		StrokeSpace: DeviceGray{},
		StrokeComps: []float64{0},
		FillSpace:   DeviceGray{},
		FillComps:   []float64{0},
		StrokeAlpha: 1,
		FillAlpha:   1,
		Text: TextState{
			FontSize:          12.0,
			HorizontalScaling: 100.0,
			TextMatrix:        model.Identity(),
			TextLineMatrix:    model.Identity(),
		},
	}
}

// Clone creates a copy of the graphics state without its stack.
func (gs *GraphicsState) Clone() *GraphicsState {
	clone := *gs
	clone.stack = nil
	clone.dropped = 0
	clone.Dash = append([]float64(nil), gs.Dash...)
	clone.StrokeComps = append([]float64(nil), gs.StrokeComps...)
	clone.FillComps = append([]float64(nil), gs.FillComps...)
	return &clone
}

// Save pushes the current graphics state onto the stack (q operator)
func (gs *GraphicsState) Save() {
	if len(gs.stack) >= maxStackDepth {
		gs.dropped++
		return
	}
	gs.stack = append(gs.stack, gs.Clone())
}

// Restore pops a graphics state from the stack (Q operator)
func (gs *GraphicsState) Restore() error {
	if gs.dropped > 0 {
		gs.dropped--
		return nil
	}
	if len(gs.stack) == 0 {
		return fmt.Errorf("graphics state stack underflow")
	}

	saved := gs.stack[len(gs.stack)-1]
	stack := gs.stack[:len(gs.stack)-1]
	*gs = *saved
	gs.stack = stack
	return nil
}

// Depth returns the number of saved states.
func (gs *GraphicsState) Depth() int {
	return len(gs.stack) + gs.dropped
}

// Transform concatenates m onto the CTM (cm operator)
func (gs *GraphicsState) Transform(m model.Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// SetLineWidth sets the line width (w operator)
func (gs *GraphicsState) SetLineWidth(width float64) {
	gs.LineWidth = width
}

// SetStrokeColor selects the stroking colour space and components.
func (gs *GraphicsState) SetStrokeColor(cs ColorSpace, comps []float64) {
	gs.StrokeSpace = cs
	gs.StrokeComps = comps
}

// SetFillColor selects the non-stroking colour space and components.
func (gs *GraphicsState) SetFillColor(cs ColorSpace, comps []float64) {
	gs.FillSpace = cs
	gs.FillComps = comps
}

// StrokeRGBA returns the stroking colour with the stroking alpha applied.
func (gs *GraphicsState) StrokeRGBA() color.NRGBA {
	return Color(gs.StrokeSpace, gs.StrokeComps, gs.StrokeAlpha)
}

// FillRGBA returns the non-stroking colour with the fill alpha applied.
func (gs *GraphicsState) FillRGBA() color.NRGBA {
	return Color(gs.FillSpace, gs.FillComps, gs.FillAlpha)
}

// SetFont sets the current font (Tf operator)
func (gs *GraphicsState) SetFont(name string, size float64) {
	gs.Text.FontName = name
	gs.Text.FontSize = size
}

// SetCharSpacing sets character spacing (Tc operator)
func (gs *GraphicsState) SetCharSpacing(spacing float64) {
	gs.Text.CharSpacing = spacing
}

// SetWordSpacing sets word spacing (Tw operator)
func (gs *GraphicsState) SetWordSpacing(spacing float64) {
	gs.Text.WordSpacing = spacing
}

// SetHorizontalScaling sets horizontal scaling (Tz operator)
func (gs *GraphicsState) SetHorizontalScaling(scale float64) {
	gs.Text.HorizontalScaling = scale
}

// SetLeading sets text leading (TL operator)
func (gs *GraphicsState) SetLeading(leading float64) {
	gs.Text.Leading = leading
}

// SetRenderingMode sets text rendering mode (Tr operator)
func (gs *GraphicsState) SetRenderingMode(mode int) {
	gs.Text.RenderingMode = mode
}

// SetTextRise sets text rise (Ts operator)
func (gs *GraphicsState) SetTextRise(rise float64) {
	gs.Text.Rise = rise
}

// BeginText initializes text state (BT operator)
func (gs *GraphicsState) BeginText() {
	gs.Text.TextMatrix = model.Identity()
	gs.Text.TextLineMatrix = model.Identity()
}

// SetTextMatrix sets the text matrix (Tm operator)
func (gs *GraphicsState) SetTextMatrix(m model.Matrix) {
	gs.Text.TextMatrix = m
	gs.Text.TextLineMatrix = m
}

// TranslateText starts a new line offset from the current one (Td operator)
func (gs *GraphicsState) TranslateText(tx, ty float64) {
	gs.Text.TextLineMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextLineMatrix)
	gs.Text.TextMatrix = gs.Text.TextLineMatrix
}

// TranslateTextSetLeading translates text and sets leading (TD operator)
func (gs *GraphicsState) TranslateTextSetLeading(tx, ty float64) {
	gs.SetLeading(-ty)
	gs.TranslateText(tx, ty)
}

// NextLine moves to next line (T* operator)
func (gs *GraphicsState) NextLine() {
	gs.TranslateText(0, -gs.Text.Leading)
}

// AdvanceText moves the text matrix by (tx, ty) in text space after a
// glyph or a TJ adjustment.
func (gs *GraphicsState) AdvanceText(tx, ty float64) {
	gs.Text.TextMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextMatrix)
}

// TextRenderingMatrix maps glyph space (scaled to 1 unit per em) to device
// space for the current text state.
func (gs *GraphicsState) TextRenderingMatrix() model.Matrix {
	t := gs.Text
	scale := model.Matrix{t.FontSize * t.HorizontalScaling / 100, 0, 0, t.FontSize, 0, t.Rise}
	return scale.Multiply(t.TextMatrix).Multiply(gs.CTM)
}
