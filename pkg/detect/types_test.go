package detect

import (
	"math/rand"
	"testing"
)

func TestMethodString(t *testing.T) {
	tests := []struct {
		name string
		m    Method
		want string
	}{
		{name: "zero value", m: 0, want: "none"},
		{name: "single ocr", m: MethodOCR, want: "ocr"},
		{name: "single specific", m: MethodSpecific, want: "specific"},
		{name: "ocr and color merged", m: MethodOCR | MethodColor, want: "ocr+color"},
		{name: "all methods", m: MethodOCR | MethodColor | MethodTemplate | MethodSpecific, want: "ocr+color+template+specific"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.String(); got != tt.want {
				t.Errorf("String() = %q, 期望 %q", got, tt.want)
			}
		})
	}
}

func TestMethodHas(t *testing.T) {
	m := MethodOCR | MethodColor
	if !m.Has(MethodOCR) {
		t.Error("组合标记应包含 ocr")
	}
	if !m.Has(MethodColor) {
		t.Error("组合标记应包含 color")
	}
	if m.Has(MethodSpecific) {
		t.Error("组合标记不应包含 specific")
	}
}

func TestSightingValid(t *testing.T) {
	tests := []struct {
		name string
		s    Sighting
		want bool
	}{
		{
			name: "valid sighting",
			s:    Sighting{X: 10, Y: 10, Width: 80, Height: 30, Confidence: 0.9},
			want: true,
		},
		{
			name: "zero width",
			s:    Sighting{X: 10, Y: 10, Width: 0, Height: 30, Confidence: 0.9},
			want: false,
		},
		{
			name: "negative height",
			s:    Sighting{X: 10, Y: 10, Width: 80, Height: -5, Confidence: 0.9},
			want: false,
		},
		{
			name: "confidence above one",
			s:    Sighting{X: 10, Y: 10, Width: 80, Height: 30, Confidence: 1.5},
			want: false,
		},
		{
			name: "negative confidence",
			s:    Sighting{X: 10, Y: 10, Width: 80, Height: 30, Confidence: -0.1},
			want: false,
		},
		{
			name: "negative origin",
			s:    Sighting{X: -1, Y: 10, Width: 80, Height: 30, Confidence: 0.5},
			want: false,
		},
		{
			name: "extends past right edge",
			s:    Sighting{X: 950, Y: 10, Width: 80, Height: 30, Confidence: 0.5},
			want: false,
		},
		{
			name: "extends past bottom edge",
			s:    Sighting{X: 10, Y: 590, Width: 80, Height: 30, Confidence: 0.5},
			want: false,
		},
		{
			name: "exactly touching edges",
			s:    Sighting{X: 920, Y: 570, Width: 80, Height: 30, Confidence: 1.0},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Valid(1000, 600); got != tt.want {
				t.Errorf("Valid(1000, 600) = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

func TestSightingValidRandomGeometry(t *testing.T) {
	// 随机几何下 Valid 与逐条件判断一致
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		imgW := rng.Intn(400) + 1
		imgH := rng.Intn(400) + 1
		s := Sighting{
			X:          rng.Intn(500) - 50,
			Y:          rng.Intn(500) - 50,
			Width:      rng.Intn(120) - 10,
			Height:     rng.Intn(120) - 10,
			Confidence: rng.Float64()*1.4 - 0.2,
		}

		want := s.Width > 0 && s.Height > 0 &&
			s.Confidence >= 0 && s.Confidence <= 1 &&
			s.X >= 0 && s.Y >= 0 &&
			s.X+s.Width <= imgW && s.Y+s.Height <= imgH

		if got := s.Valid(imgW, imgH); got != want {
			t.Fatalf("Valid(%d, %d) = %v, 期望 %v, 候选 %+v", imgW, imgH, got, want, s)
		}
	}
}

func TestSightingCenter(t *testing.T) {
	s := Sighting{X: 500, Y: 400, Width: 80, Height: 30}
	if got := s.CenterX(); got != 540 {
		t.Errorf("CenterX() = %d, 期望 540", got)
	}
	if got := s.CenterY(); got != 415 {
		t.Errorf("CenterY() = %d, 期望 415", got)
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Sighting
		want float64
	}{
		{
			name: "identical boxes",
			a:    Sighting{X: 10, Y: 10, Width: 80, Height: 30},
			b:    Sighting{X: 10, Y: 10, Width: 80, Height: 30},
			want: 1.0,
		},
		{
			name: "no overlap",
			a:    Sighting{X: 0, Y: 0, Width: 50, Height: 20},
			b:    Sighting{X: 100, Y: 100, Width: 50, Height: 20},
			want: 0,
		},
		{
			name: "touching edges only",
			a:    Sighting{X: 0, Y: 0, Width: 50, Height: 20},
			b:    Sighting{X: 50, Y: 0, Width: 50, Height: 20},
			want: 0,
		},
		{
			// 交集 50x20=1000, 并集 100x20+100x20-1000=3000
			name: "half horizontal overlap",
			a:    Sighting{X: 0, Y: 0, Width: 100, Height: 20},
			b:    Sighting{X: 50, Y: 0, Width: 100, Height: 20},
			want: 1.0 / 3.0,
		},
		{
			name: "contained box",
			a:    Sighting{X: 0, Y: 0, Width: 100, Height: 100},
			b:    Sighting{X: 25, Y: 25, Width: 50, Height: 50},
			want: 0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("IoU() = %v, 期望 %v", got, tt.want)
			}
			// 交并比对称
			if rev := IoU(tt.b, tt.a); rev != got {
				t.Errorf("IoU 不对称: %v vs %v", got, rev)
			}
		})
	}
}
