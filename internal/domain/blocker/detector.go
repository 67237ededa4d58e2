package blocker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/cespare/xxhash/v2"
)

// Detector tracks rolling histories of the current session and decides
// whether the agent is stuck. Its state is in-memory only; loop detection
// concerns the running session.
type Detector struct {
	mu            sync.Mutex
	thresholds    Thresholds
	now           func() time.Time
	fileHistory   map[string][]string
	verifications []VerificationAttempt
	toolFailures  map[string]int
}

// NewDetector creates a detector. Non-positive thresholds fall back to defaults.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{
		thresholds:   thresholds.withDefaults(),
		now:          time.Now,
		fileHistory:  make(map[string][]string),
		toolFailures: make(map[string]int),
	}
}

// Thresholds returns the effective thresholds
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Fingerprint returns a short order-sensitive hash of content
func Fingerprint(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// TrackFileChange records the fingerprint of path's content after an edit
func (d *Detector) TrackFileChange(path, content string) {
	key := agentctx.NormalizePath(path)
	if key == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	h := append(d.fileHistory[key], Fingerprint(content))
	if excess := len(h) - d.thresholds.FingerprintHistory; excess > 0 {
		h = append([]string(nil), h[excess:]...)
	}
	d.fileHistory[key] = h
}

// TrackVerification records the outcome of a verification run
func (d *Detector) TrackVerification(success bool, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.verifications = append(d.verifications, VerificationAttempt{
		Timestamp: d.now().UTC(),
		Success:   success,
		Message:   message,
	})
	if excess := len(d.verifications) - d.thresholds.VerificationHistory; excess > 0 {
		d.verifications = append([]VerificationAttempt(nil), d.verifications[excess:]...)
	}
}

// TrackToolFailure increments the consecutive failure counter for toolName
func (d *Detector) TrackToolFailure(toolName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.toolFailures[toolName]++
}

// ResetFailureCounters clears every tool counter and drops failed
// verification attempts. Successful attempts are kept.
func (d *Detector) ResetFailureCounters() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.toolFailures = make(map[string]int)
	kept := make([]VerificationAttempt, 0, len(d.verifications))
	for _, v := range d.verifications {
		if v.Success {
			kept = append(kept, v)
		}
	}
	d.verifications = kept
}

// FileHistory returns a copy of the fingerprints tracked for path
func (d *Detector) FileHistory(path string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.fileHistory[agentctx.NormalizePath(path)]...)
}

// Verifications returns a copy of the verification history, oldest first
func (d *Detector) Verifications() []VerificationAttempt {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]VerificationAttempt(nil), d.verifications...)
}

// ToolFailures returns a copy of the per-tool failure counters
func (d *Detector) ToolFailures() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.toolFailures))
	for k, v := range d.toolFailures {
		out[k] = v
	}
	return out
}

// Detect runs the heuristics in priority order (code loop, verification
// loop, tool failure) and returns the first one that fires.
func (d *Detector) Detect() Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r := d.detectCodeLoop(); r.Detected {
		return r
	}
	if r := d.detectVerificationLoop(); r.Detected {
		return r
	}
	return d.detectToolFailure()
}

func (d *Detector) detectCodeLoop() Result {
	paths := make([]string, 0, len(d.fileHistory))
	for p := range d.fileHistory {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if isOscillating(d.fileHistory[p], d.thresholds.CodeLoopWindow) {
			return Result{
				Detected:       true,
				Type:           TypeCodeLoop,
				Severity:       SeverityHigh,
				File:           p,
				Message:        fmt.Sprintf("File %s is oscillating between two versions", p),
				Recommendation: fmt.Sprintf("Make a definitive decision about %s instead of continuing back-and-forth edits", p),
			}
		}
	}
	return NotDetected
}

// isOscillating reports whether the last window fingerprints alternate
// between exactly two distinct values (a,b,a,b,...).
func isOscillating(history []string, window int) bool {
	if len(history) < window {
		return false
	}
	tail := history[len(history)-window:]
	if tail[0] == tail[1] {
		return false
	}
	for i := 2; i < len(tail); i++ {
		if tail[i] != tail[i-2] {
			return false
		}
	}
	return true
}

func (d *Detector) detectVerificationLoop() Result {
	window := d.thresholds.VerificationLoopWindow
	if len(d.verifications) < window {
		return NotDetected
	}
	tail := d.verifications[len(d.verifications)-window:]
	msg := tail[0].Message
	for _, v := range tail {
		if v.Success || v.Message != msg {
			return NotDetected
		}
	}
	return Result{
		Detected:       true,
		Type:           TypeVerificationLoop,
		Severity:       SeverityHigh,
		Message:        fmt.Sprintf("Verification failed %d times in a row with the same error: %s", window, msg),
		Recommendation: "Try a different approach or escalate for help",
	}
}

func (d *Detector) detectToolFailure() Result {
	tools := make([]string, 0, len(d.toolFailures))
	for name := range d.toolFailures {
		tools = append(tools, name)
	}
	sort.Strings(tools)

	for _, name := range tools {
		count := d.toolFailures[name]
		if count >= d.thresholds.ToolFailureThreshold {
			return Result{
				Detected:       true,
				Type:           TypeToolFailure,
				Severity:       SeverityMedium,
				Tool:           name,
				Message:        fmt.Sprintf("Tool %s has failed %d consecutive times", name, count),
				Recommendation: fmt.Sprintf("Check the configuration of %s or switch to a different approach", name),
			}
		}
	}
	return NotDetected
}
