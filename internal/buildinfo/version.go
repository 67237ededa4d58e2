// Package buildinfo holds values injected at build time
package buildinfo

// Version is set with
// -ldflags "-X github.com/YoshitsuguKoike/agentstate/internal/buildinfo.Version=v0.1.0"
var Version = "dev"

// GetVersion returns Version, or "dev" when it was set empty
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}
