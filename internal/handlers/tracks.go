package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracks/internal/ingest"
	"github.com/ukydev/fleet-tracks/internal/models"
	"github.com/ukydev/fleet-tracks/internal/retrieval"
)

// MaxUploadBytes bounds the upload request body.
const MaxUploadBytes = 50 << 20

// Ingester is the ingestion side used by TrackHandler.
type Ingester interface {
	FileExists(ctx context.Context, fileName string) (bool, error)
	Ingest(ctx context.Context, req models.UploadRequest) (int64, error)
}

// TrackReader is the retrieval side used by TrackHandler.
type TrackReader interface {
	ListFiles(ctx context.Context) ([]models.FileSummary, error)
	FileContent(ctx context.Context, fileName string) (string, error)
	TripPath(ctx context.Context, tripID int64) (*models.Trip, error)
}

// TrackHandler serves the GPX upload and retrieval endpoints.
type TrackHandler struct {
	ingester Ingester
	reader   TrackReader
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(ingester Ingester, reader TrackReader) *TrackHandler {
	return &TrackHandler{ingester: ingester, reader: reader}
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TripID  int64  `json:"trip_id"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// UploadGPX ingests one GPX file with its trip summary and points.
func (h *TrackHandler) UploadGPX(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to read request body"})
		return
	}

	var req models.UploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
		return
	}

	tripID, err := h.ingester.Ingest(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, uploadResponse{
			Success: true,
			Message: "Data uploaded successfully",
			TripID:  tripID,
		})
	case errors.Is(err, ingest.ErrInvalidPayload):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid payload",
			Message: strings.TrimPrefix(err.Error(), ingest.ErrInvalidPayload.Error()+": "),
		})
	case errors.Is(err, ingest.ErrDuplicateFile):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:   "File already exists",
			Message: fmt.Sprintf("The file %s has already been uploaded.", req.FileName),
		})
	default:
		log.WithError(err).WithField("file_name", req.FileName).Error("Failed to ingest GPX file")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
	}
}

// ListFiles returns the stored file summaries, newest first.
func (h *TrackHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.reader.ListFiles(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list GPX files")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch files"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

// GetGPXFile returns the stored GPX text as XML.
func (h *TrackHandler) GetGPXFile(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	if fileName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "fileName is required"})
		return
	}

	content, err := h.reader.FileContent(r.Context(), fileName)
	if errors.Is(err, retrieval.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "GPX file not found"})
		return
	}
	if err != nil {
		log.WithError(err).WithField("file_name", fileName).Error("Failed to fetch GPX file")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, content)
}

// FileExists reports whether a file name has already been uploaded.
func (h *TrackHandler) FileExists(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	if fileName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "fileName is required"})
		return
	}

	exists, err := h.ingester.FileExists(r.Context(), fileName)
	if err != nil {
		log.WithError(err).WithField("file_name", fileName).Error("Failed to check GPX file")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"file_name": fileName, "exists": exists})
}

// TripPath renders a trip's points as a GeoJSON LineString feature.
func (h *TrackHandler) TripPath(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || tripID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid trip id"})
		return
	}

	trip, err := h.reader.TripPath(r.Context(), tripID)
	if errors.Is(err, retrieval.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Trip not found"})
		return
	}
	if err != nil {
		log.WithError(err).WithField("trip_id", tripID).Error("Failed to fetch trip path")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}

	data, err := trip.PathFeature().MarshalJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
