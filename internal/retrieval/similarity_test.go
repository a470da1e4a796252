package retrieval

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical unit vectors", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "identical non-unit vectors", a: []float32{3, 4}, b: []float32{3, 4}, want: 1},
		{name: "scaled copy", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 2}, b: []float32{-1, -2}, want: -1},
		{name: "45 degrees", a: []float32{1, 0}, b: []float32{1, 1}, want: 1 / math.Sqrt2},
		{name: "zero vector left", a: []float32{0, 0}, b: []float32{1, 2}, want: 0},
		{name: "zero vector right", a: []float32{1, 2}, b: []float32{0, 0}, want: 0},
		{name: "both zero", a: []float32{0, 0}, b: []float32{0, 0}, want: 0},
		{name: "nil left", a: nil, b: []float32{1}, want: 0},
		{name: "nil right", a: []float32{1}, b: nil, want: 0},
		{name: "length mismatch", a: []float32{1, 2, 3}, b: []float32{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosine_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.1}
	b := []float32{-0.1, 0.4, 0.9, -0.5}

	if got, want := Cosine(a, b), Cosine(b, a); got != want {
		t.Errorf("Cosine(a, b) = %v, Cosine(b, a) = %v, want equal", got, want)
	}
}
