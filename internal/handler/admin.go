package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"chronolookup-api/internal/cache"
	"chronolookup-api/internal/model"
	"chronolookup-api/internal/service"
	"chronolookup-api/pkg/apierror"
	"chronolookup-api/pkg/response"
)

// maxImportBytes bounds a snapshot upload.
const maxImportBytes = 64 << 20

// StoreStats reports on the snapshot backend.
type StoreStats interface {
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// AdminHandler handles cache maintenance requests.
type AdminHandler struct {
	maintainer *service.CacheMaintainer
	persisters map[model.Kind]*cache.Persister
	store      StoreStats
	storeType  string
	startTime  time.Time
}

// NewAdminHandler creates a new admin handler. store may be nil when
// snapshots are not persisted.
func NewAdminHandler(
	maintainer *service.CacheMaintainer,
	persisters map[model.Kind]*cache.Persister,
	store StoreStats,
	storeType string,
) *AdminHandler {
	return &AdminHandler{
		maintainer: maintainer,
		persisters: persisters,
		store:      store,
		storeType:  storeType,
		startTime:  time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/cache/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["caches"] = h.maintainer.Stats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":   float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":     float64(memStats.Sys) / 1024 / 1024,
		"num_gc":     memStats.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}

	if h.store != nil {
		storeStats, err := h.store.GetStats(r.Context())
		if err == nil {
			storeStats["type"] = h.storeType
			storeStats["status"] = "connected"
			stats["snapshot_store"] = storeStats
		} else {
			stats["snapshot_store"] = map[string]interface{}{
				"type":   h.storeType,
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["snapshot_store"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	response.OK(w, stats)
}

// Sweep handles POST /api/v1/admin/cache/sweep
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{"removed": h.maintainer.Sweep()})
}

// Persist handles POST /api/v1/admin/cache/persist
func (h *AdminHandler) Persist(w http.ResponseWriter, r *http.Request) {
	if err := h.maintainer.PersistAll(); err != nil {
		response.Error(w, apierror.ServiceUnavailable("snapshot store unavailable"))
		return
	}
	response.OK(w, map[string]interface{}{"persisted": len(h.maintainer.Persisters())})
}

// Restore handles POST /api/v1/admin/cache/restore
func (h *AdminHandler) Restore(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{"restored": h.maintainer.RestoreAll()})
}

// Resume handles POST /api/v1/admin/cache/resume
func (h *AdminHandler) Resume(w http.ResponseWriter, r *http.Request) {
	swept, restored := h.maintainer.Resume()
	response.OK(w, map[string]interface{}{
		"removed":  swept,
		"restored": restored,
	})
}

// Clear handles POST /api/v1/admin/cache/clear
func (h *AdminHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.maintainer.ClearAll(); err != nil {
		response.Error(w, apierror.InternalError("failed to clear caches"))
		return
	}
	response.NoContent(w)
}

// Export handles GET /api/v1/admin/cache/{kind}/export
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, apiErr := h.persister(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var buf bytes.Buffer
	if err := p.Export(&buf); err != nil {
		response.Error(w, apierror.InternalError("failed to export cache"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, p.Name()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Import handles POST /api/v1/admin/cache/{kind}/import
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	p, apiErr := h.persister(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	defer r.Body.Close()

	n, err := p.Import(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid cache snapshot"))
		return
	}
	response.OK(w, map[string]interface{}{
		"cache":    p.Name(),
		"imported": n,
	})
}

func (h *AdminHandler) persister(r *http.Request) (*cache.Persister, *apierror.Error) {
	kind, apiErr := kindParam(r)
	if apiErr != nil {
		return nil, apiErr
	}
	p, ok := h.persisters[kind]
	if !ok {
		return nil, apierror.NotFound("unknown collection")
	}
	return p, nil
}
