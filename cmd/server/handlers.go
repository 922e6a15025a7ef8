package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/himanishpuri/sonicprint/pkg/logger"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
	"github.com/himanishpuri/sonicprint/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service sonicprint.Service
	config  *ServerConfig
	log     sonicprint.Logger
	started time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	AllowedOrigins []string
}

func NewServer(service sonicprint.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().With("http"),
		started: time.Now(),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "sonicprint API",
		"version": version,
		"endpoints": map[string]string{
			"health":             "GET /health",
			"metrics":            "GET /api/health/metrics",
			"fingerprints":       "GET /api/fingerprints",
			"loadFingerprint":    "POST /api/fingerprints",
			"currentFingerprint": "GET /api/fingerprints/current",
			"getFingerprint":     "GET /api/fingerprints/{id}",
			"deleteFingerprint":  "DELETE /api/fingerprints/{id}",
			"analyse":            "POST /api/analyse",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	infos, err := s.service.ListFingerprints()
	if err != nil {
		s.log.Errorf("Failed to count fingerprints: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:           "healthy",
		DatabasePath:     s.config.DBPath,
		FingerprintCount: len(infos),
		HasCurrent:       s.service.Current() != nil,
		Uptime:           time.Since(s.started),
	})
}

// handleListFingerprints handles GET /api/fingerprints
func (s *Server) handleListFingerprints(w http.ResponseWriter, r *http.Request) {
	infos, err := s.service.ListFingerprints()
	if err != nil {
		s.log.Errorf("Failed to list fingerprints: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve fingerprints")
		return
	}
	if infos == nil {
		infos = []sonicprint.FingerprintInfo{}
	}
	s.respondJSON(w, http.StatusOK, ListFingerprintsResponse{
		Fingerprints: infos,
		Count:        len(infos),
	})
}

// handleLoadFingerprint handles POST /api/fingerprints. The loaded
// fingerprint becomes the current one.
func (s *Server) handleLoadFingerprint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req CreateFingerprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if n := req.Fingerprint.Len(); n >= SampleWarningThreshold {
		s.log.Warnf("Large fingerprint received: %d samples", n)
	}

	fp, err := s.service.LoadFingerprint(ctx, req.Name, req.Fingerprint)
	if err != nil {
		var verr *fingerprint.ValidationError
		switch {
		case errors.As(err, &verr):
			s.respondError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, sonicprint.ErrStaleDerivation):
			s.respondError(w, http.StatusConflict, "Superseded by a newer load")
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			s.respondError(w, http.StatusServiceUnavailable, "Derivation did not finish in time")
		default:
			s.log.Errorf("Failed to load fingerprint %q: %v", req.Name, err)
			s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load fingerprint: %v", err))
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, FingerprintResponse{
		FingerprintInfo: fp.FingerprintInfo,
		Derived:         fp.Derived,
	})
}

// handleCurrent handles GET /api/fingerprints/current
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	d := s.service.Current()
	if d == nil {
		s.respondError(w, http.StatusNotFound, "No fingerprint loaded")
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

// handleGetFingerprint handles GET /api/fingerprints/{id}
func (s *Server) handleGetFingerprint(w http.ResponseWriter, r *http.Request, id string) {
	fp, err := s.service.GetFingerprint(id)
	if err != nil {
		if errors.Is(err, sonicprint.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, fmt.Sprintf("Fingerprint %s not found", id))
			return
		}
		s.log.Errorf("Failed to get fingerprint %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve fingerprint")
		return
	}
	s.respondJSON(w, http.StatusOK, FingerprintResponse{
		FingerprintInfo: fp.FingerprintInfo,
		Derived:         fp.Derived,
	})
}

// handleDeleteFingerprint handles DELETE /api/fingerprints/{id}
func (s *Server) handleDeleteFingerprint(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteFingerprint(id); err != nil {
		if errors.Is(err, sonicprint.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, fmt.Sprintf("Fingerprint %s not found", id))
			return
		}
		s.log.Errorf("Failed to delete fingerprint %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete fingerprint")
		return
	}
	s.respondJSON(w, http.StatusOK, DeleteFingerprintResponse{
		Message: "Fingerprint deleted successfully",
		ID:      id,
	})
}

// handleAnalyseFile handles POST /api/analyse (multipart file upload)
func (s *Server) handleAnalyseFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	// Parse multipart form (max 50MB)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	tempFile := utils.ScratchPath(s.config.TempDir, "analyse", header.Filename)
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(tempFile)

	_, err = io.Copy(out, file)
	out.Close()
	if err != nil {
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}

	s.log.Infof("Analysing uploaded file: %s", header.Filename)
	tl, err := s.service.AnalyseFile(ctx, tempFile)
	if err != nil {
		s.log.Errorf("Failed to analyse %s: %v", header.Filename, err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to analyse audio: %v", err))
		return
	}
	tl.Name = header.Filename

	withFrames, _ := strconv.ParseBool(r.URL.Query().Get("frames"))
	s.log.Infof("Analysis complete: %d frames, %d triggers", len(tl.Frames), len(tl.Triggers))
	s.respondJSON(w, http.StatusOK, newAnalyseResponse(tl, withFrames))
}

// handleFingerprints routes requests to /api/fingerprints
func (s *Server) handleFingerprints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListFingerprints(w, r)
	case http.MethodPost:
		s.handleLoadFingerprint(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleFingerprint routes requests to /api/fingerprints/{id}
func (s *Server) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/api/fingerprints/"):]
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Fingerprint ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetFingerprint(w, r, id)
	case http.MethodDelete:
		s.handleDeleteFingerprint(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleAnalyse routes requests to /api/analyse
func (s *Server) handleAnalyse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleAnalyseFile(w, r)
}
