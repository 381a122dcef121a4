// Package health serves the liveness endpoint with basic host telemetry.
package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status is the payload returned by the health endpoint.
type Status struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Checker reports process health.
type Checker struct {
	version string
	started time.Time
}

func NewChecker(version string) *Checker {
	return &Checker{version: version, started: time.Now()}
}

// Check gathers the current status. Telemetry failures degrade to zero
// values rather than failing the endpoint.
func (c *Checker) Check() Status {
	s := Status{
		Status:        "ok",
		Version:       c.version,
		UptimeSeconds: time.Since(c.started).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vm.UsedPercent
	}
	return s
}

// Handler serves the status as JSON.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.Check())
	})
}
