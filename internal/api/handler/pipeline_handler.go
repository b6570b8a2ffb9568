package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"go-report-stream/internal/model"
	"go-report-stream/internal/pipeline"
	"go-report-stream/internal/source"
	"go-report-stream/internal/store"
)

// Handlers serves the pipeline control API.
type Handlers struct {
	Manager *pipeline.Manager
	Store   *store.Store // optional run history; nil disables history routes
	Log     zerolog.Logger

	// Defaults applied to API-started pipelines when the request omits them.
	DefaultChunkSize  int
	DefaultMaxDemand  int
	DefaultPartitions int
}

// SourceSpec describes the SQL source an API-started pipeline reads from.
type SourceSpec struct {
	Driver string `json:"driver"` // e.g. sqlite3
	DSN    string `json:"dsn"`
	Query  string `json:"query"`
}

// StartPipelineRequest is the body of POST /pipelines.
type StartPipelineRequest struct {
	Source             SourceSpec                `json:"source"`
	ChunkSize          int                       `json:"chunk_size"`
	MaxDemand          int                       `json:"max_demand"`
	PartitionCount     int                       `json:"partition_count"`
	Groups             []model.GroupDef          `json:"groups"`
	Variables          []model.VariableDef       `json:"variables"`
	AggregationConfigs []model.AggregationConfig `json:"aggregation_configs"`
	Cumulative         *bool                     `json:"cumulative"`
	EnforceLimits      *bool                     `json:"enforce_limits"`
	MaxEstimatedGroups int64                     `json:"max_estimated_groups"`
	MaxEstimatedMemory int64                     `json:"max_estimated_memory"`
}

// StartPipeline creates and starts a new pipeline
// @Summary Start a pipeline
// @Description Start a streaming aggregation pipeline over a paged SQL source
// @Tags pipelines
// @Accept json
// @Produce json
// @Param pipeline body StartPipelineRequest true "Pipeline configuration"
// @Success 200 {object} map[string]interface{} "Pipeline started"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 500 {object} map[string]interface{} "Start failed"
// @Router /pipelines [post]
func (h *Handlers) StartPipeline(w http.ResponseWriter, r *http.Request) {
	var req StartPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Source.Driver == "" || req.Source.Query == "" {
		http.Error(w, "source.driver and source.query are required", http.StatusBadRequest)
		return
	}

	src, err := source.OpenSQL(req.Source.Driver, req.Source.DSN, req.Source.Query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := pipeline.StartOptions{
		Source:             src,
		SourceDescriptor:   req.Source.Driver + ":" + req.Source.Query,
		ChunkSize:          req.ChunkSize,
		MaxDemand:          req.MaxDemand,
		PartitionCount:     req.PartitionCount,
		Groups:             req.Groups,
		Variables:          req.Variables,
		AggregationConfigs: req.AggregationConfigs,
		Cumulative:         req.Cumulative,
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = h.DefaultChunkSize
	}
	if opts.MaxDemand == 0 {
		opts.MaxDemand = h.DefaultMaxDemand
	}
	if opts.PartitionCount == 0 {
		opts.PartitionCount = h.DefaultPartitions
	}
	limits := pipeline.DefaultMemoryLimits()
	if req.MaxEstimatedGroups > 0 {
		limits.MaxGroups = req.MaxEstimatedGroups
	}
	if req.MaxEstimatedMemory > 0 {
		limits.MaxMemoryBytes = req.MaxEstimatedMemory
	}
	if req.EnforceLimits != nil {
		limits.Enforce = *req.EnforceLimits
	}
	opts.Limits = &limits

	// The pipeline outlives this request; its context must not be the
	// request's.
	handle, err := h.Manager.Start(context.Background(), opts)
	if err != nil {
		var startErr *model.StartError
		status := http.StatusInternalServerError
		if errors.As(err, &startErr) && startErr.Kind == model.StartErrValidation {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	// API callers consume results through the snapshot/state endpoints, so
	// drain the stream server-side to drive the run to completion.
	go func() {
		if err := handle.Stream.Drain(context.Background()); err != nil {
			h.Log.Warn().Err(err).Str("pipeline_id", handle.PipelineID).Msg("drain interrupted")
		}
		h.persistRun(handle.PipelineID)
	}()

	writeJSON(w, map[string]interface{}{
		"pipeline_id": handle.PipelineID,
		"status":      model.StatusRunning,
	})
}

// ListPipelines lists pipelines
// @Summary List pipelines
// @Description List registered pipelines, optionally filtered by status
// @Tags pipelines
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {array} model.PipelineInfo
// @Router /pipelines [get]
func (h *Handlers) ListPipelines(w http.ResponseWriter, r *http.Request) {
	var infos []model.PipelineInfo
	if status := r.URL.Query().Get("status"); status != "" {
		infos = h.Manager.List(model.PipelineStatus(status))
	} else {
		infos = h.Manager.List()
	}
	writeJSON(w, map[string]interface{}{"pipelines": infos, "count": len(infos)})
}

// PipelineCounts returns pipeline counts by status
// @Summary Pipeline counts
// @Tags pipelines
// @Produce json
// @Success 200 {object} map[string]int
// @Router /pipelines/counts [get]
func (h *Handlers) PipelineCounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Manager.Counts())
}

// GetPipeline returns one pipeline's info
// @Summary Get pipeline
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} model.PipelineInfo
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /pipelines/{id} [get]
func (h *Handlers) GetPipeline(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "")
	if id == "" {
		http.Error(w, "pipeline id is required", http.StatusBadRequest)
		return
	}
	info, err := h.Manager.Info(id)
	if err != nil {
		// Fall back to persisted history for forgotten runs.
		if h.Store != nil {
			if stored, serr := h.Store.GetRun(id); serr == nil {
				writeJSON(w, stored)
				return
			}
		}
		http.Error(w, "pipeline not found", http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

// GetSnapshot returns a non-blocking aggregation snapshot
// @Summary Get aggregation snapshot
// @Description Possibly-incomplete snapshot; stable only once the pipeline completed
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} model.Snapshot
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /pipelines/{id}/snapshot [get]
func (h *Handlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/snapshot")
	snap, err := h.Manager.Snapshot(id)
	if err != nil {
		http.Error(w, "pipeline not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

// GetState returns the merged aggregation state
// @Summary Get aggregation state
// @Description Authoritative only after the stream has been fully drained
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} model.AggregationState
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /pipelines/{id}/state [get]
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/state")
	state, err := h.Manager.State(id)
	if err != nil {
		http.Error(w, "pipeline not found", http.StatusNotFound)
		return
	}
	writeJSON(w, state)
}

// PausePipeline pauses a running pipeline
// @Summary Pause pipeline
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Not found"
// @Failure 409 {object} map[string]interface{} "Invalid transition"
// @Router /pipelines/{id}/pause [post]
func (h *Handlers) PausePipeline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "/pause", h.Manager.Pause, model.StatusPaused)
}

// ResumePipeline resumes a paused pipeline
// @Summary Resume pipeline
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Not found"
// @Failure 409 {object} map[string]interface{} "Invalid transition"
// @Router /pipelines/{id}/resume [post]
func (h *Handlers) ResumePipeline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "/resume", h.Manager.Resume, model.StatusRunning)
}

// StopPipeline stops a pipeline (idempotent)
// @Summary Stop pipeline
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /pipelines/{id}/stop [post]
func (h *Handlers) StopPipeline(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/stop")
	if err := h.Manager.Stop(id); err != nil {
		http.Error(w, "pipeline not found", http.StatusNotFound)
		return
	}
	h.persistRun(id)
	status := model.StatusCompleted
	if info, err := h.Manager.Info(id); err == nil {
		status = info.Status
	}
	writeJSON(w, map[string]interface{}{"pipeline_id": id, "status": status})
}

// GetEvents returns persisted telemetry events for a pipeline
// @Summary Get pipeline events
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} map[string]interface{}
// @Router /pipelines/{id}/events [get]
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		http.Error(w, "event history disabled", http.StatusNotFound)
		return
	}
	id := pathID(r.URL.Path, "/events")
	events, err := h.Store.ListEvents(id, 100)
	if err != nil {
		http.Error(w, "failed to retrieve events", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"pipeline_id": id, "events": events, "count": len(events)})
}

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"status": "ok"})
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, suffix string, op func(string) error, next model.PipelineStatus) {
	id := pathID(r.URL.Path, suffix)
	if err := op(id); err != nil {
		if errors.Is(err, model.ErrPipelineNotFound) {
			http.Error(w, "pipeline not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]interface{}{"pipeline_id": id, "status": next})
}

func (h *Handlers) persistRun(id string) {
	if h.Store == nil {
		return
	}
	info, err := h.Manager.Info(id)
	if err != nil {
		return
	}
	if err := h.Store.SaveRun(info); err != nil {
		h.Log.Warn().Err(err).Str("pipeline_id", id).Msg("run history write failed")
	}
}

const apiPrefix = "/api/v1/pipelines/"

// pathID extracts the pipeline id between the API prefix and suffix.
func pathID(path, suffix string) string {
	if !strings.HasPrefix(path, apiPrefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	return path[len(apiPrefix) : len(path)-len(suffix)]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
