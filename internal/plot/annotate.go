package plot

import (
	"fmt"
	"image"
	"image/draw"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const dpi = 96.0

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
}

func newAnnotator(dst draw.Image, fontSize float64) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)

	return &annotator{
		context: ctx,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

// height returns the line height in pixels
func (a *annotator) height() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) width(label string) int {
	return font.MeasureString(a.fontFace, label).Round()
}

// draw writes label with its baseline at y, starting at x
func (a *annotator) draw(label string, x, y int) error {
	if _, err := a.context.DrawString(label, freetype.Pt(x, y)); err != nil {
		return fmt.Errorf("drawing %q: %w", label, err)
	}
	return nil
}

// drawCentered writes label horizontally centered on x
func (a *annotator) drawCentered(label string, x, y int) error {
	return a.draw(label, x-a.width(label)/2, y)
}

// drawRight writes label ending at x, vertically centered on y
func (a *annotator) drawRight(label string, x, y int) error {
	metrics := a.fontFace.Metrics()
	return a.draw(label, x-a.width(label), y+a.height()/2-metrics.Descent.Round())
}

func humanHz(hz float64) string {
	v, prefix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%s %sHz", strconv.FormatFloat(v, 'g', 3, 64), prefix)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
