package session

import (
	"time"

	"github.com/alucardeht/specsync/internal/daemon"
	"github.com/alucardeht/specsync/internal/syncer"
	"github.com/alucardeht/specsync/pkg/protocol"
)

type controller struct {
	s *Session
}

// Controller exposes the session on the control socket.
func (s *Session) Controller() daemon.Controller {
	return controller{s: s}
}

func (c controller) Trigger(reason string) protocol.TriggerResult {
	accepted := c.s.Trigger(reason)
	return protocol.TriggerResult{
		Accepted: accepted,
		InFlight: c.s.inFlight.Load(),
	}
}

func (c controller) Status() protocol.StatusResult {
	st := c.s.Status()

	result := protocol.StatusResult{
		URL:       c.s.opts.URL,
		HostFile:  c.s.opts.HostFile,
		StartedAt: st.StartedAt,
		InFlight:  st.InFlight,
		Pending:   st.Pending,
		Syncs:     st.Syncs,
		Failures:  st.Failures,
		Coalesced: st.Coalesced,
	}
	if !st.StartedAt.IsZero() {
		result.Uptime = int64(time.Since(st.StartedAt).Seconds())
	}
	if st.LastRun != nil {
		result.LastRun = Summarize(*st.LastRun)
	}
	return result
}

func Summarize(r syncer.Result) *protocol.RunSummary {
	summary := &protocol.RunSummary{
		ID:           r.ID,
		Trigger:      r.Trigger,
		StartedAt:    r.StartedAt,
		DurationMs:   r.Duration.Milliseconds(),
		Changed:      r.Changed,
		BytesWritten: r.BytesWritten,
		DocHash:      r.DocHash,
		Kind:         string(r.Kind),
	}
	if r.Err != nil {
		summary.Error = r.Err.Error()
	}
	return summary
}
