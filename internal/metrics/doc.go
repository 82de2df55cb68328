// Package metrics provides the observability hooks for builds, node
// lifecycle verbs and discovery scans.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	engine := build.NewEngine(build.WithRecorder(recorder))
//
// The serve command swaps in a PrometheusRecorder and exposes its registry
// with HTTPHandler.
package metrics
