package blocker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("package main\n")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint("package main\n"))
	assert.NotEqual(t, a, Fingerprint("package main\n\n"))
}

func TestDetector_CodeLoop(t *testing.T) {
	tests := []struct {
		name     string
		contents []string
		want     bool
	}{
		{"oscillation H1 H2 H1 H2", []string{"v1", "v2", "v1", "v2"}, true},
		{"converging H1 H2 H3 H4", []string{"v1", "v2", "v3", "v4"}, false},
		{"unchanged H1 H1 H1 H1", []string{"v1", "v1", "v1", "v1"}, false},
		{"too short H1 H2 H1", []string{"v1", "v2", "v1"}, false},
		{"oscillation after progress", []string{"v0", "v9", "v1", "v2", "v1", "v2"}, true},
		{"progress after oscillation", []string{"v1", "v2", "v1", "v2", "v3"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultThresholds())
			for _, c := range tt.contents {
				d.TrackFileChange("pkg/foo.go", c)
			}

			r := d.Detect()
			assert.Equal(t, tt.want, r.Detected)
			if tt.want {
				assert.Equal(t, TypeCodeLoop, r.Type)
				assert.Equal(t, SeverityHigh, r.Severity)
				assert.Equal(t, "pkg/foo.go", r.File)
				assert.Contains(t, r.Message, "pkg/foo.go")
				assert.NotEmpty(t, r.Recommendation)
			}
		})
	}
}

func TestDetector_FileHistoryBounded(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	for i := 0; i < 25; i++ {
		d.TrackFileChange("a.go", fmt.Sprintf("v%d", i))
	}

	h := d.FileHistory("a.go")
	require.Len(t, h, DefaultFingerprintHistory)
	assert.Equal(t, Fingerprint("v15"), h[0])
	assert.Equal(t, Fingerprint("v24"), h[9])
}

func TestDetector_VerificationLoop(t *testing.T) {
	t.Run("five identical failures", func(t *testing.T) {
		d := NewDetector(DefaultThresholds())
		for i := 0; i < 5; i++ {
			d.TrackVerification(false, "X")
		}

		r := d.Detect()
		require.True(t, r.Detected)
		assert.Equal(t, TypeVerificationLoop, r.Type)
		assert.Equal(t, SeverityHigh, r.Severity)
		assert.Contains(t, r.Message, "X")
	})

	t.Run("four failures are not enough", func(t *testing.T) {
		d := NewDetector(DefaultThresholds())
		for i := 0; i < 4; i++ {
			d.TrackVerification(false, "X")
		}
		assert.False(t, d.Detect().Detected)
	})

	for pos := 0; pos < 5; pos++ {
		t.Run(fmt.Sprintf("different message at %d", pos), func(t *testing.T) {
			d := NewDetector(DefaultThresholds())
			for i := 0; i < 5; i++ {
				msg := "X"
				if i == pos {
					msg = "Y"
				}
				d.TrackVerification(false, msg)
			}
			assert.False(t, d.Detect().Detected)
		})

		t.Run(fmt.Sprintf("success at %d", pos), func(t *testing.T) {
			d := NewDetector(DefaultThresholds())
			for i := 0; i < 5; i++ {
				d.TrackVerification(i == pos, "X")
			}
			assert.False(t, d.Detect().Detected)
		})
	}

	t.Run("only the last five count", func(t *testing.T) {
		d := NewDetector(DefaultThresholds())
		d.TrackVerification(true, "ok")
		for i := 0; i < 5; i++ {
			d.TrackVerification(false, "X")
		}
		assert.True(t, d.Detect().Detected)
	})
}

func TestDetector_VerificationHistoryBounded(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	for i := 0; i < 30; i++ {
		d.TrackVerification(i%2 == 0, fmt.Sprintf("run %d", i))
	}

	v := d.Verifications()
	require.Len(t, v, DefaultVerificationHistory)
	assert.Equal(t, "run 10", v[0].Message)
	assert.Equal(t, "run 29", v[19].Message)
}

func TestDetector_ToolFailure(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	d.TrackToolFailure("build")
	d.TrackToolFailure("build")
	assert.False(t, d.Detect().Detected, "two failures must not block")

	d.TrackToolFailure("build")
	r := d.Detect()
	require.True(t, r.Detected)
	assert.Equal(t, TypeToolFailure, r.Type)
	assert.Equal(t, SeverityMedium, r.Severity)
	assert.Equal(t, "build", r.Tool)
	assert.Contains(t, r.Message, "build")
}

func TestDetector_ToolFailureDeterministicOrder(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	for i := 0; i < 3; i++ {
		d.TrackToolFailure("zip")
		d.TrackToolFailure("lint")
	}

	for i := 0; i < 10; i++ {
		assert.Equal(t, "lint", d.Detect().Tool)
	}
}

func TestDetector_Priority(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	for i := 0; i < 3; i++ {
		d.TrackToolFailure("build")
	}
	for i := 0; i < 5; i++ {
		d.TrackVerification(false, "X")
	}
	for _, c := range []string{"a", "b", "a", "b"} {
		d.TrackFileChange("main.go", c)
	}

	assert.Equal(t, TypeCodeLoop, d.Detect().Type)

	// Break the code loop: verification loop wins next
	d.TrackFileChange("main.go", "c")
	assert.Equal(t, TypeVerificationLoop, d.Detect().Type)

	d.TrackVerification(true, "")
	assert.Equal(t, TypeToolFailure, d.Detect().Type)
}

func TestDetector_ResetFailureCounters(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	d.TrackVerification(true, "ok-1")
	for i := 0; i < 5; i++ {
		d.TrackVerification(false, "X")
	}
	d.TrackVerification(true, "ok-2")
	for i := 0; i < 4; i++ {
		d.TrackToolFailure("build")
	}

	d.ResetFailureCounters()

	assert.Empty(t, d.ToolFailures())
	v := d.Verifications()
	require.Len(t, v, 2)
	assert.Equal(t, "ok-1", v[0].Message)
	assert.Equal(t, "ok-2", v[1].Message)
	assert.False(t, d.Detect().Detected)
}

func TestDetector_NoEvidence(t *testing.T) {
	d := NewDetector(Thresholds{})
	assert.Equal(t, NotDetected, d.Detect())
	assert.Equal(t, DefaultThresholds(), d.Thresholds())
}

func TestDetector_CustomThresholds(t *testing.T) {
	d := NewDetector(Thresholds{ToolFailureThreshold: 1, VerificationLoopWindow: 2, VerificationHistory: 1})
	assert.Equal(t, 2, d.Thresholds().VerificationHistory, "history is raised to the window")

	d.TrackToolFailure("fmt")
	assert.Equal(t, TypeToolFailure, d.Detect().Type)
}
