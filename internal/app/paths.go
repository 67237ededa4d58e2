package app

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the default storage home
const HomeEnv = "AGENTSTATE_HOME"

// DefaultHome is used when neither a flag nor HomeEnv is set
const DefaultHome = ".agentstate"

// Paths holds all resolved paths of the agentstate storage layout
type Paths struct {
	Home        string // .agentstate
	Var         string // .agentstate/var
	Checkpoints string // .agentstate/var/checkpoints

	// Key files
	Settings string // .agentstate/setting.yaml
	Context  string // .agentstate/var/context.json
	Session  string // .agentstate/var/session.json
	Lock     string // .agentstate/var/state.lock
}

// ResolvePaths builds the layout under home. An empty home falls back to
// AGENTSTATE_HOME and then to DefaultHome.
func ResolvePaths(home string) Paths {
	if home == "" {
		home = os.Getenv(HomeEnv)
	}
	if home == "" {
		home = DefaultHome
	}

	p := Paths{
		Home: home,
		Var:  filepath.Join(home, "var"),
	}
	p.Checkpoints = filepath.Join(p.Var, "checkpoints")

	p.Settings = filepath.Join(home, "setting.yaml")
	p.Context = filepath.Join(p.Var, "context.json")
	p.Session = filepath.Join(p.Var, "session.json")
	p.Lock = filepath.Join(p.Var, "state.lock")
	return p
}
