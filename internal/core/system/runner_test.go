package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerOrdersByPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"nav", PhaseSimulate, &log})
	r.Register(recorder{"events", PhaseEvents, &log})
	r.Register(recorder{"physics", PhaseSimulate, &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"events", "nav", "physics", "cleanup"}, log)
	assert.Equal(t, uint64(1), r.Ticks())

	log = log[:0]
	r.TickPhase(PhaseSimulate, time.Millisecond)
	assert.Equal(t, []string{"nav", "physics"}, log)
	assert.Equal(t, uint64(1), r.Ticks())
	assert.Equal(t, "simulate", PhaseSimulate.String())
}
