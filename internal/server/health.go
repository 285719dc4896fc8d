package server

import (
	"context"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp       ComponentStatus = "up"
	ComponentStatusDown     ComponentStatus = "down"
	ComponentStatusDisabled ComponentStatus = "disabled"
)

// Health represents the complete health check response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
	Details   any             `json:"details,omitempty"`
}

// StorageDetails describes the upload directory.
type StorageDetails struct {
	Dir          string `json:"dir"`
	Files        int    `json:"files"`
	UsedBytes    int64  `json:"used_bytes"`
	Used         string `json:"used"`
	MaxFileBytes int64  `json:"max_file_bytes"`
}

// handleHealth reports every component. Storage is critical; the mirror and
// the audit trail only degrade the result.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth(r.Context())

	statusCode := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, health)
}

// handleReady is the readiness probe: ready when the upload directory
// accepts writes.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.CheckWritable(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "upload directory unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleLive is the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) checkHealth(ctx context.Context) Health {
	health := Health{
		Timestamp:  time.Now().UTC(),
		Version:    s.build.Version,
		Components: make(map[string]ComponentHealth, 3),
	}

	storage := s.checkStorageHealth(ctx)
	health.Components["storage"] = storage

	if s.mirror == nil {
		health.Components["mirror"] = ComponentHealth{Status: ComponentStatusDisabled}
	} else {
		mc := checkComponent(ctx, "mirror", s.mirror.Check)
		if g, ok := s.mirror.(*guardedMirror); ok {
			mc.Details = map[string]string{"breaker": g.breaker.State().String()}
		}
		health.Components["mirror"] = mc
	}

	if s.audit == nil {
		health.Components["audit"] = ComponentHealth{Status: ComponentStatusDisabled}
	} else {
		health.Components["audit"] = checkComponent(ctx, "audit", s.audit.Ping)
	}

	health.Status = determineOverallHealth(health.Components)
	return health
}

func (s *Server) checkStorageHealth(ctx context.Context) ComponentHealth {
	start := time.Now()
	if err := s.store.CheckWritable(); err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: err.Error()}
	}

	files, err := s.store.List(ctx)
	if err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: err.Error()}
	}
	var used int64
	for _, f := range files {
		used += f.Size
	}

	return ComponentHealth{
		Status:    ComponentStatusUp,
		Message:   "storage healthy",
		LatencyMs: float64(time.Since(start).Milliseconds()),
		Details: StorageDetails{
			Dir:          s.store.Dir(),
			Files:        len(files),
			UsedBytes:    used,
			Used:         humanize.IBytes(uint64(used)),
			MaxFileBytes: s.store.MaxFileBytes(),
		},
	}
}

func checkComponent(ctx context.Context, name string, check func(context.Context) error) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := check(ctx); err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: name + " check failed: " + err.Error()}
	}
	return ComponentHealth{
		Status:    ComponentStatusUp,
		Message:   name + " healthy",
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}
}

// determineOverallHealth: storage down is unhealthy, any optional component
// down is degraded.
func determineOverallHealth(components map[string]ComponentHealth) HealthStatus {
	if components["storage"].Status != ComponentStatusUp {
		return HealthStatusUnhealthy
	}
	for name, c := range components {
		if name != "storage" && c.Status == ComponentStatusDown {
			return HealthStatusDegraded
		}
	}
	return HealthStatusHealthy
}
