package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/alignment-charts/pkg/models"
	"github.com/gilchrisn/alignment-charts/pkg/service"
	"github.com/gilchrisn/alignment-charts/pkg/utils"
)

// UploadField is the multipart field carrying the results CSV
const UploadField = "results"

// Handlers contains all HTTP handlers
type Handlers struct {
	renderService *service.RenderService
	maxUpload     int64
}

// NewHandlers creates a new handlers instance
func NewHandlers(renderService *service.RenderService, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = 100 << 20
	}
	return &Handlers{
		renderService: renderService,
		maxUpload:     maxUpload,
	}
}

// CreateRender renders an uploaded results CSV with the active catalog
func (h *Handlers) CreateRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		log.Error().Err(err).Msg("Failed to parse multipart form")
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		log.Error().Err(err).Str("field", UploadField).Msg("Missing required file")
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing required file: "+UploadField, err)
		return
	}
	defer file.Close()

	job, err := h.renderService.Submit(r.Context(), header.Filename, file)
	if err != nil {
		status := http.StatusInternalServerError
		if service.IsInputError(err) {
			status = http.StatusBadRequest
		}
		log.Error().Err(err).Str("source", header.Filename).Msg("Render failed")
		if job != nil {
			writeJobError(w, status, job, err)
			return
		}
		utils.WriteErrorResponse(w, status, "Render failed", err)
		return
	}

	log.Info().
		Str("render_id", job.ID).
		Int("charts", len(job.Charts)).
		Msg("Render completed")

	utils.WriteCreatedResponse(w, "Render completed", job)
}

// writeJobError reports a failure that still produced a stored job
func writeJobError(w http.ResponseWriter, status int, job *models.RenderJob, err error) {
	w.Header().Set("Location", "/api/v1/renders/"+job.ID)
	utils.WriteErrorResponse(w, status, "Render failed for job "+job.ID, err)
}

// ListRenders lists all render jobs
func (h *Handlers) ListRenders(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, "Renders retrieved successfully", h.renderService.List())
}

// GetRender retrieves a specific render job
func (h *Handlers) GetRender(w http.ResponseWriter, r *http.Request) {
	renderID := mux.Vars(r)["renderId"]

	job, err := h.renderService.Get(renderID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Render not found", err)
		return
	}

	utils.WriteSuccessResponse(w, "Render retrieved successfully", job)
}

// GetChart streams one rendered PNG
func (h *Handlers) GetChart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	renderID := vars["renderId"]
	chart := vars["chart"]

	path, err := h.renderService.ChartPath(renderID, chart)
	if err != nil {
		message := "Chart not found"
		if errors.Is(err, service.ErrJobNotFound) {
			message = "Render not found"
		}
		utils.WriteErrorResponse(w, http.StatusNotFound, message, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

// DeleteRender removes a render job and its charts
func (h *Handlers) DeleteRender(w http.ResponseWriter, r *http.Request) {
	renderID := mux.Vars(r)["renderId"]

	if err := h.renderService.Delete(renderID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrJobNotFound) {
			status = http.StatusNotFound
		}
		utils.WriteErrorResponse(w, status, "Failed to delete render", err)
		return
	}

	log.Info().Str("render_id", renderID).Msg("Render deleted")
	utils.WriteSuccessResponse(w, "Render deleted successfully", nil)
}

// ListExperiments returns the active catalog
func (h *Handlers) ListExperiments(w http.ResponseWriter, r *http.Request) {
	cat := h.renderService.Catalog()
	utils.WriteSuccessResponse(w, "Experiments retrieved successfully", map[string]interface{}{
		"catalog":     cat.Name(),
		"experiments": cat.Infos(),
	})
}

// HealthCheck returns service health status
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, "Service is healthy", models.HealthStatus{
		Status:    "healthy",
		Jobs:      h.renderService.Count(),
		Timestamp: time.Now(),
	})
}
