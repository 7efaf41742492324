package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse reports process and host health alongside sync state.
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
	CPUPercent    float64 `json:"cpuPercent"`
	RAMPercent    float64 `json:"ramPercent"`
	Syncing       bool    `json:"syncing"`
	Placeholder   bool    `json:"placeholder"`
	LastSync      string  `json:"lastSync,omitempty"`
	Notifications string  `json:"notifications"`
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		Status:        "running",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Syncing:       s.syncer.Syncing(),
		Placeholder:   s.calendar.IsPlaceholder(),
		Notifications: string(s.notifier.Permission()),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response.CPUPercent = percents[0]
	} else if err != nil {
		s.log.Debug().Err(err).Msg("Failed to read CPU usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response.RAMPercent = vm.UsedPercent
	} else {
		s.log.Debug().Err(err).Msg("Failed to read memory usage")
	}

	if last := s.calendar.LastSync(); !last.IsZero() {
		response.LastSync = last.UTC().Format(time.RFC3339)
	}

	s.writeJSON(w, http.StatusOK, response)
}
