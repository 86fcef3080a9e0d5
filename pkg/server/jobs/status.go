package jobs

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Status is a snapshot of the running job.
type Status struct {
	ID         string        `json:"id"`
	Kind       Kind          `json:"kind"`
	PID        int           `json:"pid"`
	StartedAt  time.Time     `json:"started_at"`
	Cancelling bool          `json:"cancelling"`
	LastEvent  string        `json:"last_event,omitempty"`
	Progress   float64       `json:"progress"`
	Dropped    int           `json:"dropped_messages"`
	Process    *ProcessStats `json:"process,omitempty"`
}

// ProcessStats is resource usage of the worker process.
type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
}

// Outcome is how a worker process ended.
type Outcome struct {
	// Code is the exit code, or -1 when the process was killed by a signal
	// or could not be waited on.
	Code int
	Err  error
}

// Failed reports whether the exit counts as abnormal termination.
func (o Outcome) Failed() bool {
	return o.Code != 0 || o.Err != nil
}

func sampleProcess(pid int) *ProcessStats {
	if pid <= 0 {
		return nil
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}
	stats := &ProcessStats{}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats
}
