package agentctx

import (
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// AgentContext is the agent's operational context. It is the single mutable
// root owned by the context store; everything else works on clones.
type AgentContext struct {
	Phase           Phase      `json:"phase"`
	ActiveFiles     []string   `json:"active_files"`
	RecentDecisions []Decision `json:"recent_decisions"`
	TokenCount      int        `json:"token_count"`
	MaxTokens       int        `json:"max_tokens"`
}

// NewAgentContext returns the fresh-start context
func NewAgentContext(maxTokens int) AgentContext {
	return AgentContext{
		Phase:           PhaseInitializing,
		ActiveFiles:     []string{},
		RecentDecisions: []Decision{},
		TokenCount:      0,
		MaxTokens:       maxTokens,
	}
}

// Clone returns a deep copy of the context
func (c AgentContext) Clone() AgentContext {
	out := c
	if c.ActiveFiles != nil {
		out.ActiveFiles = make([]string, len(c.ActiveFiles))
		copy(out.ActiveFiles, c.ActiveFiles)
	}
	if c.RecentDecisions != nil {
		out.RecentDecisions = make([]Decision, len(c.RecentDecisions))
		copy(out.RecentDecisions, c.RecentDecisions)
	}
	return out
}

// Normalize repairs shape problems in a loaded document: nil collections
// become empty, active files are normalised and de-duplicated, and an
// unknown phase falls back to initializing.
func (c *AgentContext) Normalize(maxTokens int) {
	if !c.Phase.IsValid() {
		c.Phase = PhaseInitializing
	}
	if c.RecentDecisions == nil {
		c.RecentDecisions = []Decision{}
	}
	files := make([]string, 0, len(c.ActiveFiles))
	seen := make(map[string]bool, len(c.ActiveFiles))
	for _, f := range c.ActiveFiles {
		n := NormalizePath(f)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		files = append(files, n)
	}
	c.ActiveFiles = files
	if c.MaxTokens <= 0 {
		c.MaxTokens = maxTokens
	}
}

// HasActiveFile reports whether path is in the active set
func (c AgentContext) HasActiveFile(path string) bool {
	n := NormalizePath(path)
	for _, f := range c.ActiveFiles {
		if f == n {
			return true
		}
	}
	return false
}

// AddActiveFile adds path to the active set.
// Returns false when the path was already present.
func (c *AgentContext) AddActiveFile(path string) bool {
	n := NormalizePath(path)
	if n == "" || c.HasActiveFile(n) {
		return false
	}
	c.ActiveFiles = append(c.ActiveFiles, n)
	return true
}

// RemoveActiveFile removes path from the active set.
// Returns false when the path was not present.
func (c *AgentContext) RemoveActiveFile(path string) bool {
	n := NormalizePath(path)
	for i, f := range c.ActiveFiles {
		if f == n {
			files := make([]string, 0, len(c.ActiveFiles)-1)
			files = append(files, c.ActiveFiles[:i]...)
			files = append(files, c.ActiveFiles[i+1:]...)
			c.ActiveFiles = files
			return true
		}
	}
	return false
}

// NeedsCompaction reports whether TokenCount exceeds ratio*MaxTokens.
// The boundary itself does not trigger.
func (c AgentContext) NeedsCompaction(ratio float64) bool {
	return float64(c.TokenCount) > ratio*float64(c.MaxTokens)
}

// NormalizePath cleans a path and converts it to Unicode NFC so that the
// same file reported in decomposed form is treated as one member.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return norm.NFC.String(filepath.Clean(path))
}
