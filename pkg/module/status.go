package module

import (
	"time"

	"github.com/marmos91/ecuserver/pkg/executor"
)

// Status is a point-in-time view of a module, served by the health endpoint
// and printed by the status command.
type Status struct {
	Name                string         `json:"name" yaml:"name"`
	State               string         `json:"state" yaml:"state"`
	Address             string         `json:"address,omitempty" yaml:"address,omitempty"`
	StartedAt           time.Time      `json:"started_at" yaml:"started_at"`
	Uptime              string         `json:"uptime" yaml:"uptime"`
	ActiveConnections   int32          `json:"active_connections" yaml:"active_connections"`
	AcceptedConnections int64          `json:"accepted_connections" yaml:"accepted_connections"`
	Tasks               executor.Stats `json:"tasks" yaml:"tasks"`
}

// Running reports whether the status describes a serving module.
func (s Status) Running() bool {
	return s.State == StateRunning.String()
}

// Status returns a snapshot of the module.
func (m *Module) Status() Status {
	st := Status{
		Name:                m.name,
		State:               m.State().String(),
		StartedAt:           m.started,
		Uptime:              time.Since(m.started).Round(time.Second).String(),
		ActiveConnections:   m.tracker.Active(),
		AcceptedConnections: m.tracker.Accepted(),
		Tasks:               m.handle.Executor().Stats(),
	}
	if m.addr != nil {
		st.Address = m.addr.String()
	}
	return st
}
