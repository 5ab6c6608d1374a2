package geometry

import (
	"math"
	"testing"
)

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		name     string
		degrees  int
		expected int
	}{
		{"Zero", 0, 0},
		{"Quarter turn", 90, 90},
		{"Half turn", 180, 180},
		{"Three quarter turn", 270, 270},
		{"Negative quarter turn", -90, 270},
		{"Negative half turn", -180, 180},
		{"Negative three quarter turn", -270, 90},
		{"Full turn", 360, 0},
		{"Past full turn", 450, 90},
		{"Negative full turn", -360, 0},
		{"Large negative", -630, 90},
		{"Non-canonical angle", 45, 0},
		{"Non-canonical negative", -45, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRotation(tt.degrees); got != tt.expected {
				t.Errorf("NormalizeRotation(%d) = %d, want %d", tt.degrees, got, tt.expected)
			}
		})
	}
}

func TestNormalizeRotationTotalAndIdempotent(t *testing.T) {
	canonical := map[int]bool{0: true, 90: true, 180: true, 270: true}

	for degrees := -720; degrees <= 720; degrees++ {
		once := NormalizeRotation(degrees)

		if !canonical[once] {
			t.Fatalf("NormalizeRotation(%d) = %d, not in canonical set", degrees, once)
		}

		if twice := NormalizeRotation(once); twice != once {
			t.Fatalf("NormalizeRotation not idempotent for %d: first %d, second %d", degrees, once, twice)
		}
	}
}

func TestResolveDimensionSwap(t *testing.T) {
	tests := []struct {
		name           string
		rotation       int
		expectedWidth  int
		expectedHeight int
	}{
		{"No rotation keeps orientation", 0, 1920, 1080},
		{"Quarter turn swaps", 90, 1080, 1920},
		{"Half turn keeps orientation", 180, 1920, 1080},
		{"Three quarter turn swaps", 270, 1080, 1920},
		{"Negative quarter turn swaps", -90, 1080, 1920},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Resolve(1920, 1080, tt.rotation, 4096, 4096)

			if plan.DisplayWidth != tt.expectedWidth || plan.DisplayHeight != tt.expectedHeight {
				t.Errorf("Resolve display = %dx%d, want %dx%d",
					plan.DisplayWidth, plan.DisplayHeight, tt.expectedWidth, tt.expectedHeight)
			}
		})
	}
}

func TestResolveTargetBounds(t *testing.T) {
	dimensions := []struct{ w, h int }{
		{1920, 1080},
		{3840, 2160},
		{640, 480},
		{1080, 1920},
		{4096, 2304},
		{853, 481}, // odd dimensions
		{7680, 4320},
	}
	rotations := []int{0, 90, 180, 270}

	const maxW, maxH = 1920, 1080

	for _, d := range dimensions {
		for _, r := range rotations {
			plan := Resolve(d.w, d.h, r, maxW, maxH)

			if plan.TargetWidth > maxW || plan.TargetHeight > maxH {
				t.Errorf("Resolve(%dx%d, r=%d) target %dx%d exceeds bounds %dx%d",
					d.w, d.h, r, plan.TargetWidth, plan.TargetHeight, maxW, maxH)
			}

			if plan.TargetWidth%2 != 0 || plan.TargetHeight%2 != 0 {
				t.Errorf("Resolve(%dx%d, r=%d) target %dx%d not even",
					d.w, d.h, r, plan.TargetWidth, plan.TargetHeight)
			}

			// Aspect ratio preserved within rounding tolerance
			displayRatio := float64(plan.DisplayWidth) / float64(plan.DisplayHeight)
			targetRatio := float64(plan.TargetWidth) / float64(plan.TargetHeight)
			if math.Abs(displayRatio-targetRatio)/displayRatio > 0.01 {
				t.Errorf("Resolve(%dx%d, r=%d) aspect drift: display %.4f target %.4f",
					d.w, d.h, r, displayRatio, targetRatio)
			}
		}
	}
}

func TestResolveNoUpscale(t *testing.T) {
	plan := Resolve(640, 480, 0, 1920, 1080)

	if plan.TargetWidth != 640 || plan.TargetHeight != 480 {
		t.Errorf("Expected target 640x480 (unchanged), got %dx%d", plan.TargetWidth, plan.TargetHeight)
	}

	if plan.NeedsScale() {
		t.Error("Expected NeedsScale()=false for input already within bounds")
	}
}

func TestResolveOddDimensionsRoundedToEven(t *testing.T) {
	plan := Resolve(853, 481, 0, 1920, 1080)

	if plan.TargetWidth != 852 || plan.TargetHeight != 480 {
		t.Errorf("Expected target 852x480, got %dx%d", plan.TargetWidth, plan.TargetHeight)
	}

	if !plan.NeedsScale() {
		t.Error("Expected NeedsScale()=true when even rounding changes dimensions")
	}
}

func TestResolvePortraitPhoneClip(t *testing.T) {
	// iPhone portrait clip: stored landscape with a -90 rotation tag
	plan := Resolve(1920, 1080, -90, 1920, 1920)

	if plan.Rotation != 270 {
		t.Errorf("Expected rotation 270, got %d", plan.Rotation)
	}

	if plan.DisplayWidth != 1080 || plan.DisplayHeight != 1920 {
		t.Errorf("Expected display 1080x1920, got %dx%d", plan.DisplayWidth, plan.DisplayHeight)
	}

	if plan.TargetWidth != 1080 || plan.TargetHeight != 1920 {
		t.Errorf("Expected target 1080x1920, got %dx%d", plan.TargetWidth, plan.TargetHeight)
	}
}

func TestResolveOversizedLandscapeClip(t *testing.T) {
	plan := Resolve(3840, 2160, 0, 1920, 1080)

	if plan.TargetWidth != 1920 || plan.TargetHeight != 1080 {
		t.Errorf("Expected target 1920x1080, got %dx%d", plan.TargetWidth, plan.TargetHeight)
	}

	if !plan.NeedsScale() {
		t.Error("Expected NeedsScale()=true for oversized input")
	}
}

func TestResolveOversizedPortraitClip(t *testing.T) {
	// 4K portrait clip constrained by height after rotation
	plan := Resolve(3840, 2160, 90, 1920, 1080)

	if plan.DisplayWidth != 2160 || plan.DisplayHeight != 3840 {
		t.Errorf("Expected display 2160x3840, got %dx%d", plan.DisplayWidth, plan.DisplayHeight)
	}

	if plan.TargetWidth != 606 || plan.TargetHeight != 1080 {
		t.Errorf("Expected target 606x1080, got %dx%d", plan.TargetWidth, plan.TargetHeight)
	}
}

func TestResolveZeroBoundsDisablesFitting(t *testing.T) {
	plan := Resolve(3840, 2160, 0, 0, 0)

	if plan.TargetWidth != 3840 || plan.TargetHeight != 2160 {
		t.Errorf("Expected target 3840x2160 with no bounds, got %dx%d", plan.TargetWidth, plan.TargetHeight)
	}
}
