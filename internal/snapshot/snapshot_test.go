package snapshot

import "testing"

func TestJpegQualityForClampsToRange(t *testing.T) {
	if q := jpegQualityFor(2, 5); q < 1 || q > 100 {
		t.Fatalf("jpegQualityFor(2,5) = %d, want in [1,100]", q)
	}
	if q := jpegQualityFor(0, 0); q != 100 {
		t.Fatalf("jpegQualityFor(0,0) = %d, want 100 (best quality at quantizer 0)", q)
	}
	if q := jpegQualityFor(20, 20); q != 1 {
		t.Fatalf("jpegQualityFor(20,20) = %d, want clamped to 1", q)
	}
}

func TestJpegQualityForMonotonic(t *testing.T) {
	lo := jpegQualityFor(1, 1)
	hi := jpegQualityFor(8, 8)
	if !(lo > hi) {
		t.Fatalf("lower quantizer band should map to higher jpeg quality: lo=%d hi=%d", lo, hi)
	}
}
