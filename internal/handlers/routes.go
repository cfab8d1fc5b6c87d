package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Register mounts the API routes on r. uploadLimit wraps the upload route
// only; pass nil for no limit.
func (h *TrackHandler) Register(r *mux.Router, uploadLimit func(http.Handler) http.Handler) {
	upload := http.Handler(http.HandlerFunc(h.UploadGPX))
	if uploadLimit != nil {
		upload = uploadLimit(upload)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/upload-gpx", upload).Methods(http.MethodPost)
	api.HandleFunc("/files", h.ListFiles).Methods(http.MethodGet)
	api.HandleFunc("/gpx-file", h.GetGPXFile).Methods(http.MethodGet)
	api.HandleFunc("/gpx-file/exists", h.FileExists).Methods(http.MethodGet)
	api.HandleFunc("/trips/{id:[0-9]+}/path", h.TripPath).Methods(http.MethodGet)

	r.HandleFunc("/health", Health).Methods(http.MethodGet)
}
