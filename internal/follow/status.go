package follow

import (
	"maps"
	"slices"
	"time"

	"github.com/1broseidon/stickyfollow/internal/platform"
)

// TemplateStatus is a read-only view of one template's follow state.
type TemplateStatus struct {
	ID            string                `json:"id"`
	Enabled       bool                  `json:"enabled"`
	Batch         bool                  `json:"batch"`
	Active        bool                  `json:"active"`
	Target        platform.WindowHandle `json:"target,omitempty"`
	TargetProcess string                `json:"target_process,omitempty"`
	Instances     []string              `json:"instances,omitempty"`
}

// Status summarizes the controller for status reporting.
type Status struct {
	Active           bool             `json:"active"`
	Interval         time.Duration    `json:"interval"`
	LastTick         time.Time        `json:"last_tick"`
	LastTickDuration time.Duration    `json:"last_tick_duration"`
	Templates        []TemplateStatus `json:"templates"`
}

// InstanceCount returns the number of live follow instances.
func (s Status) InstanceCount() int {
	n := 0
	for _, t := range s.Templates {
		n += len(t.Instances)
	}
	return n
}

// Snapshot returns the current state of every template, sorted by id.
func (c *Controller) Snapshot() Status {
	s := Status{
		Active:           c.ticker.Active(),
		Interval:         c.ticker.Period(),
		LastTick:         c.lastTick,
		LastTickDuration: c.lastTickDur,
	}
	for _, id := range slices.Sorted(maps.Keys(c.templates)) {
		st := c.templates[id]
		ts := TemplateStatus{
			ID:            id,
			Enabled:       st.tpl.Follow.Enabled,
			Batch:         st.tpl.Follow.Batch,
			Active:        st.active(),
			Target:        st.primary,
			TargetProcess: st.tpl.Follow.TargetProcess,
		}
		for _, iid := range st.instances {
			ts.Instances = append(ts.Instances, iid)
		}
		slices.Sort(ts.Instances)
		s.Templates = append(s.Templates, ts)
	}
	return s
}
