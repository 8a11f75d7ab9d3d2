package catalog

import "testing"

func TestMagnitudeCache_SetGetRemove(t *testing.T) {
	c := NewMagnitudeCache()
	c.Set("a", []float32{3, 4})
	if m, ok := c.Peek("a"); !ok || m != 5 {
		t.Errorf("expected magnitude 5, got %v (ok=%v)", m, ok)
	}
	c.Remove("a")
	if _, ok := c.Peek("a"); ok {
		t.Error("expected magnitude to be removed")
	}
}

func TestMagnitudeCache_GetRecomputesOnMiss(t *testing.T) {
	c := NewMagnitudeCache()
	m := c.Get("b", []float32{1, 0, 0})
	if m != 1 {
		t.Errorf("expected magnitude 1, got %v", m)
	}
}

func TestCosine_IdenticalVectors(t *testing.T) {
	c := NewMagnitudeCache()
	v := []float32{1, 2, 3}
	score := c.Cosine(v, "x", v)
	if score < 0.999 {
		t.Errorf("cosine of identical vectors should be ~1, got %v", score)
	}
}

func TestCosine_OrthogonalVectors(t *testing.T) {
	c := NewMagnitudeCache()
	score := c.Cosine([]float32{1, 0}, "y", []float32{0, 1})
	if score > 0.001 || score < -0.001 {
		t.Errorf("cosine of orthogonal vectors should be ~0, got %v", score)
	}
}

func TestCosine_ZeroMagnitudeReturnsZero(t *testing.T) {
	c := NewMagnitudeCache()
	score := c.Cosine([]float32{0, 0}, "z", []float32{1, 1})
	if score != 0 {
		t.Errorf("cosine against a zero vector should be 0, got %v", score)
	}
}

func TestCosine_ClampedToUnitRange(t *testing.T) {
	c := NewMagnitudeCache()
	// Slight floating point drift could otherwise push this a hair above 1.
	v := []float32{0.5, 0.5, 0.5, 0.5}
	score := c.Cosine(v, "w", v)
	if score > 1 || score < -1 {
		t.Errorf("cosine must be clamped to [-1,1], got %v", score)
	}
}
