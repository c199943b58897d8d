// Package progress defines the telemetry surface the Session
// Orchestrator emits one event through on every step: a Progress value
// handed to a Reporter.
package progress

import "log"

// Progress describes where a programming session currently stands.
type Progress struct {
	SessionID  string
	Stage      string
	CurStep    int
	TotalSteps int
	DeviceName string
	Detail     string
}

// Reporter receives a Progress event after every orchestrator step. It
// must not block the orchestrator for long; a reporter with a slow
// downstream (e.g. Redis) should apply its own timeout.
type Reporter interface {
	Report(p Progress)
}

// NoopReporter discards every event. It is the default when the caller
// wires nothing else in.
type NoopReporter struct{}

func (NoopReporter) Report(Progress) {}

// LogReporter writes one line per event to the standard logger,
// matching the teacher's habit of tagging every log line with enough
// context to reconstruct a session from logs alone.
type LogReporter struct{}

func (LogReporter) Report(p Progress) {
	log.Printf("session=%s stage=%s step=%d/%d device=%s %s",
		p.SessionID, p.Stage, p.CurStep, p.TotalSteps, p.DeviceName, p.Detail)
}

// MultiReporter fans one event out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(p Progress) {
	for _, r := range m {
		r.Report(p)
	}
}
