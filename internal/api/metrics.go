package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/music-gateway/internal/zone"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          MQTTMetrics    `json:"mqtt"`
	Zones         ZoneMetrics    `json:"zones"`
	Journal       JournalMetrics `json:"journal"`
	Miniserver    string         `json:"miniserver,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT mirror statistics.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// ZoneMetrics counts zones by player mode.
type ZoneMetrics struct {
	Total  int            `json:"total"`
	ByMode map[string]int `json:"by_mode"`
}

// JournalMetrics reports whether commands are being journaled.
type JournalMetrics struct {
	Enabled bool `json:"enabled"`
}

// handleMetrics returns runtime, push channel, mirror and zone statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Journal: JournalMetrics{
			Enabled: s.journal != nil,
		},
		Miniserver: s.MiniserverHost(),
	}

	if s.stateBus != nil {
		metrics.MQTT = MQTTMetrics{
			Enabled:   true,
			Connected: s.stateBus.IsConnected(),
		}
	}

	zones := s.zones.All()
	metrics.Zones = ZoneMetrics{
		Total:  len(zones),
		ByMode: make(map[string]int),
	}
	for _, z := range zones {
		mode := z.Mode()
		if mode == zone.ModeBuffer {
			mode = zone.ModePlay
		}
		metrics.Zones.ByMode[string(mode)]++
	}

	writeJSON(w, http.StatusOK, metrics)
}
