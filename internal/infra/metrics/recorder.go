package metrics

// Recorder defines observability hooks for the state subsystem.
// Implementations may forward to Prometheus; NoopRecorder is the default.
type Recorder interface {
	IncPersist(success bool)
	IncPhaseTransition(from, to string)
	IncCompaction(dropped int)
	IncCheckpointCreated()
	IncCheckpointsPruned(n int)
	IncCheckpointRestore(success bool)
	IncBlockerDetected(blockerType, severity string)
	SetTokenUsage(tokens, maxTokens int)
}

// NoopRecorder is a Recorder that does nothing
type NoopRecorder struct{}

func (NoopRecorder) IncPersist(bool)                   {}
func (NoopRecorder) IncPhaseTransition(string, string) {}
func (NoopRecorder) IncCompaction(int)                 {}
func (NoopRecorder) IncCheckpointCreated()             {}
func (NoopRecorder) IncCheckpointsPruned(int)          {}
func (NoopRecorder) IncCheckpointRestore(bool)         {}
func (NoopRecorder) IncBlockerDetected(string, string) {}
func (NoopRecorder) SetTokenUsage(int, int)            {}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
