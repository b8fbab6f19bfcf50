package plot

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"math"
	"math/cmplx"
	"testing"

	"github.com/roman-kulish/labtool/internal/bode"
)

func lowPassSweep(n int) []bode.Sample {
	samples := make([]bode.Sample, n)
	for i := range samples {
		f := 10 * math.Pow(4000, float64(i)/float64(n-1))
		h := 1 / complex(1, f/1000)
		samples[i] = bode.Sample{
			Frequency: f,
			InputVpp:  1,
			OutputVpp: cmplx.Abs(h),
			Module:    20 * math.Log10(cmplx.Abs(h)),
			Phase:     cmplx.Phase(h) * 180 / math.Pi,
		}
	}
	return samples
}

// curvePixels counts the pixels tinted by the curve colour within rows [y0, y1)
func curvePixels(img image.Image, y0, y1 int) int {
	var n int
	b := img.Bounds()
	for y := y0; y < y1; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, bl, _ := img.At(x, y).RGBA()
			if int(bl>>8)-int(r>>8) > 40 {
				n++
			}
		}
	}
	return n
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer(RenderConfig{Width: 800, Height: 600})

	img, err := r.Render(BodeChart("Low-pass", lowPassSweep(20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(800, 600) {
		t.Fatalf("expected 800x600, got %v", got)
	}

	top, bottom := r.panels()
	if n := curvePixels(img, top.Min.Y, top.Max.Y+1); n == 0 {
		t.Error("expected the module curve in the top panel")
	}
	if n := curvePixels(img, bottom.Min.Y, bottom.Max.Y+1); n == 0 {
		t.Error("expected the phase curve in the bottom panel")
	}
}

func TestRenderer_RenderImpedance(t *testing.T) {
	r := NewRenderer(RenderConfig{})

	samples := bode.Impedance(lowPassSweep(10), 1000)
	img, err := r.Render(ImpedanceChart("Input impedance", samples))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(defaultWidth, defaultHeight) {
		t.Errorf("expected the default size, got %v", got)
	}
}

func TestRenderer_SingleSample(t *testing.T) {
	r := NewRenderer(RenderConfig{Width: 400, Height: 300})

	img, err := r.Render(BodeChart("One", []bode.Sample{{Frequency: 1000, Module: -3, Phase: -45}}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, _ := r.panels()
	if n := curvePixels(img, top.Min.Y, top.Max.Y+1); n == 0 {
		t.Error("expected a marker for the single sample")
	}
}

func TestRenderer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		chart   Chart
		wantErr error
	}{
		{"no samples", BodeChart("empty", nil), ErrNoData},
		{"length mismatch", Chart{Frequency: []float64{1, 2}, Top: Panel{Values: []float64{1}}, Bottom: Panel{Values: []float64{1, 2}}}, ErrInvalidChart},
		{"zero frequency", BodeChart("zero", []bode.Sample{{Frequency: 0}}), ErrInvalidChart},
	}

	r := NewRenderer(RenderConfig{Width: 400, Height: 300})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Render(tt.chart); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	img, err := NewRenderer(RenderConfig{Width: 400, Height: 300}).Render(BodeChart("Low-pass", lowPassSweep(5)))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err = Encode(&buf, img, ImagePNG); err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decoding png: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("expected bounds %v, got %v", img.Bounds(), decoded.Bounds())
	}

	if err = Encode(&buf, img, "gif"); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestNiceStep(t *testing.T) {
	tests := []struct {
		span   float64
		pixels int
		want   float64
	}{
		{100, 500, 10},
		{90, 300, 20},
		{1, 250, 0.2},
		{35, 500, 5},
	}

	for _, tt := range tests {
		if got := niceStep(tt.span, tt.pixels); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("niceStep(%g, %d): expected %g, got %g", tt.span, tt.pixels, tt.want, got)
		}
	}
}

func TestAxis_Decades(t *testing.T) {
	x := frequencyAxis([]float64{10, 40000}, 0, 1000)

	got := x.decades()
	want := []float64{10, 100, 1000, 10000}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9*want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}

	if p := x.pixel(10); p != 0 {
		t.Errorf("expected the first frequency at 0, got %g", p)
	}
	if p := x.pixel(40000); math.Abs(p-1000) > 1e-9 {
		t.Errorf("expected the last frequency at 1000, got %g", p)
	}
}

func TestHumanHz(t *testing.T) {
	tests := map[float64]string{
		10:      "10 Hz",
		1000:    "1 kHz",
		40000:   "40 kHz",
		2500000: "2.5 MHz",
	}
	for hz, want := range tests {
		if got := humanHz(hz); got != want {
			t.Errorf("humanHz(%g): expected %q, got %q", hz, want, got)
		}
	}
}
