package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingReporter struct {
	events []Progress
}

func (r *recordingReporter) Report(p Progress) {
	r.events = append(r.events, p)
}

func TestMultiReporterFansOutInOrder(t *testing.T) {
	a := &recordingReporter{}
	b := &recordingReporter{}
	m := MultiReporter{a, b}

	p := Progress{SessionID: "s1", Stage: "FLASH_PROG", CurStep: 1, TotalSteps: 4}
	m.Report(p)

	assert.Equal(t, []Progress{p}, a.events)
	assert.Equal(t, []Progress{p}, b.events)
}

func TestNoopReporterDiscardsEvents(t *testing.T) {
	var r Reporter = NoopReporter{}
	assert.NotPanics(t, func() {
		r.Report(Progress{Stage: "END"})
	})
}
