package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultWidth    = 1200
	defaultHeight   = 900
	defaultFontSize = 11.0
	defaultGap      = 50

	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 50
	defaultRightBorder  = 30

	tickMarkLength = 5
	lineWidth      = 2
	markerSize     = 5
)

var (
	frameColor = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}
	gridColor  = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	curveColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
)

type ImageFormat string

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

// ParseImageFormat validates an output image format name
func ParseImageFormat(s string) (ImageFormat, error) {
	f := ImageFormat(s)
	if _, ok := validImageFormats[f]; !ok {
		return "", fmt.Errorf("invalid image format: %s", s)
	}
	return f, nil
}

// BorderConfig defines the sizes of white space around the panels
type BorderConfig struct {
	Top    int // Space for the title
	Left   int // Space for value scales
	Bottom int // Space for the frequency scale
	Right  int // Right padding
}

// RenderConfig holds the chart geometry. Zero values select the defaults.
type RenderConfig struct {
	Width    int
	Height   int
	FontSize float64
	Gap      int // Space between the panels

	BorderConfig BorderConfig
}

// Renderer draws charts
type Renderer struct {
	config RenderConfig
}

// NewRenderer creates a new chart renderer with the given configuration
func NewRenderer(config RenderConfig) *Renderer {
	if config.Width == 0 {
		config.Width = defaultWidth
	}
	if config.Height == 0 {
		config.Height = defaultHeight
	}
	if config.FontSize == 0 {
		config.FontSize = defaultFontSize
	}
	if config.Gap == 0 {
		config.Gap = defaultGap
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &Renderer{config: config}
}

// panels returns the areas of the top and bottom panels
func (r *Renderer) panels() (image.Rectangle, image.Rectangle) {
	b := r.config.BorderConfig
	height := (r.config.Height - b.Top - b.Bottom - r.config.Gap) / 2

	top := image.Rect(b.Left, b.Top, r.config.Width-b.Right, b.Top+height)
	bottom := image.Rect(b.Left, top.Max.Y+r.config.Gap, r.config.Width-b.Right, top.Max.Y+r.config.Gap+height)
	return top, bottom
}

// Render creates an image of the chart with annotations
func (r *Renderer) Render(c Chart) (*image.RGBA, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	top, bottom := r.panels()
	if top.Dx() <= 0 || top.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d leaves no room for the panels", ErrInvalidChart, r.config.Width, r.config.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, r.config.Width, r.config.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	ann, err := newAnnotator(img, r.config.FontSize)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	x := frequencyAxis(c.Frequency, top.Min.X, top.Max.X)

	ops := []struct {
		msg string
		fn  func() error
	}{
		{"drawing title", func() error {
			return ann.drawCentered(c.Title, img.Bounds().Dx()/2, r.config.BorderConfig.Top/2+ann.height()/2)
		}},
		{"drawing top panel", func() error { return r.drawPanel(img, ann, top, x, c.Frequency, c.Top, false) }},
		{"drawing bottom panel", func() error { return r.drawPanel(img, ann, bottom, x, c.Frequency, c.Bottom, true) }},
	}
	for _, op := range ops {
		if err = op.fn(); err != nil {
			return nil, fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return img, nil
}

func (r *Renderer) drawPanel(img *image.RGBA, ann *annotator, area image.Rectangle, x axis, frequency []float64, p Panel, frequencyLabels bool) error {
	y, step := valueAxis(p.Values, area.Max.Y, area.Min.Y)

	// grid and scales first, the curve is drawn over them
	for _, f := range x.decades() {
		px := int(math.Round(x.pixel(f)))
		vline(img, px, area.Min.Y, area.Max.Y, gridColor)
		vline(img, px, area.Max.Y, area.Max.Y+tickMarkLength, frameColor)

		if frequencyLabels {
			if err := ann.drawCentered(humanHz(f), px, area.Max.Y+tickMarkLength+ann.height()); err != nil {
				return err
			}
		}
	}

	for _, v := range y.ticks(step) {
		py := int(math.Round(y.pixel(v)))
		hline(img, area.Min.X, area.Max.X, py, gridColor)
		hline(img, area.Min.X-tickMarkLength, area.Min.X, py, frameColor)

		if err := ann.drawRight(formatValue(v), area.Min.X-tickMarkLength-3, py); err != nil {
			return err
		}
	}

	frame(img, area, frameColor)

	if err := ann.draw(p.Label, area.Min.X+5, area.Min.Y+ann.height()); err != nil {
		return err
	}

	points := make([]point, 0, len(frequency))
	for i, f := range frequency {
		v := p.Values[i]
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		points = append(points, point{float32(x.pixel(f)), float32(y.pixel(v))})
	}
	stroke(img, points, curveColor)

	return nil
}

type point struct {
	x, y float32
}

// stroke draws the polyline through points with a marker on each point
func stroke(img draw.Image, points []point, c color.Color) {
	if len(points) == 0 {
		return
	}

	b := img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())

	for i := 1; i < len(points); i++ {
		p, q := points[i-1], points[i]
		dx, dy := q.x-p.x, q.y-p.y
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*lineWidth/2, dx/l*lineWidth/2

		z.MoveTo(p.x+nx, p.y+ny)
		z.LineTo(q.x+nx, q.y+ny)
		z.LineTo(q.x-nx, q.y-ny)
		z.LineTo(p.x-nx, p.y-ny)
		z.ClosePath()
	}

	const h = markerSize / 2.0
	for _, p := range points {
		z.MoveTo(p.x-h, p.y-h)
		z.LineTo(p.x+h, p.y-h)
		z.LineTo(p.x+h, p.y+h)
		z.LineTo(p.x-h, p.y+h)
		z.ClosePath()
	}

	z.Draw(img, b, image.NewUniform(c), image.Point{})
}

func hline(img *image.RGBA, x0, x1, y int, c color.Color) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.Color) {
	for y := y0; y <= y1; y++ {
		img.Set(x, y, c)
	}
}

func frame(img *image.RGBA, r image.Rectangle, c color.Color) {
	hline(img, r.Min.X, r.Max.X, r.Min.Y, c)
	hline(img, r.Min.X, r.Max.X, r.Max.Y, c)
	vline(img, r.Min.X, r.Min.Y, r.Max.Y, c)
	vline(img, r.Max.X, r.Min.Y, r.Max.Y, c)
}

// Encode writes img in the given format
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	var err error
	switch format {
	case ImagePNG:
		err = png.Encode(w, img)
	case ImageJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{
			Quality: 95,
		})
	default:
		err = fmt.Errorf("invalid image format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return nil
}
