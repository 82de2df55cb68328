package metrics

import "time"

// Result labels shared by the counters.
const (
	ResultSuccess        = "success"
	ResultFailure        = "failure"
	ResultNotImplemented = "not_implemented"
)

// Recorder defines observability hooks. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveBuildDuration(platform string, d time.Duration)
	IncBuildOutcome(outcome string)
	IncPolicyRejection()
	IncSandboxCleanupFailure()
	IncNodeOperation(verb, technology, result string)
	SetNodeCount(state string, n int)
	IncScanResult(technology, result string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) IncPolicyRejection()                        {}
func (NoopRecorder) IncSandboxCleanupFailure()                  {}
func (NoopRecorder) IncNodeOperation(string, string, string)    {}
func (NoopRecorder) SetNodeCount(string, int)                   {}
func (NoopRecorder) IncScanResult(string, string)               {}

// ResultOf maps an error to a result label.
func ResultOf(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
