package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"stemsmith/internal/domain"
	"stemsmith/internal/jobmodel"
	"stemsmith/internal/profile"
	"stemsmith/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	statuses := s.svc.ListModels()
	profiles := make([]map[string]any, 0, len(statuses))
	for _, st := range statuses {
		profiles = append(profiles, map[string]any{
			"profile":    st.Profile,
			"cached":     st.Cached,
			"size_bytes": st.SizeBytes,
			"sha256":     st.SHA256,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// jobConfig is the optional per-submission override payload accepted as
// the "config" multipart field.
type jobConfig struct {
	Model *string  `json:"model"`
	Stems []string `json:"stems"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing required file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".wav") {
		respondError(w, http.StatusBadRequest, "file must be a .wav upload")
		return
	}

	overrides, err := parseJobConfig(r.FormValue("config"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		s.logger.Error("create uploads dir", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to prepare upload")
		return
	}

	id := s.registry.newID()
	safeName := sanitizeFileName(header.Filename)
	inputPath := filepath.Join(s.uploadsDir, id+"_"+safeName)

	dest, err := os.Create(inputPath)
	if err != nil {
		s.logger.Error("create upload file", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	if _, err := dest.ReadFrom(file); err != nil {
		dest.Close()
		s.logger.Error("persist upload", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	dest.Close()

	e := newEntry(id)
	handle, err := s.svc.Submit(service.Request{
		InputPath: inputPath,
		Profile:   overrides.Profile,
		Stems:     overrides.StemsFilter,
		Observer:  e.apply,
	})
	if err != nil {
		_ = os.Remove(inputPath)
		respondError(w, statusForError(err), err.Error())
		return
	}

	e.attach(handle)
	s.registry.put(id, e)

	respondJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// parseJobConfig decodes the optional "config" form field. An empty raw
// value yields zero-value overrides. Malformed JSON and unknown model keys
// are rejected here; the model key is translated into a profile.ID, and
// unsupported stems are rejected by the catalog once Submit runs.
func parseJobConfig(raw string) (jobmodel.Overrides, error) {
	if strings.TrimSpace(raw) == "" {
		return jobmodel.Overrides{}, nil
	}

	var cfg jobConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return jobmodel.Overrides{}, fmt.Errorf("invalid config: %w", err)
	}

	overrides := jobmodel.Overrides{StemsFilter: cfg.Stems}
	if cfg.Model != nil {
		p, ok := profile.LookupKey(*cfg.Model)
		if !ok {
			return jobmodel.Overrides{}, fmt.Errorf("unknown model %q", *cfg.Model)
		}
		id := p.ID
		overrides.Profile = &id
	}
	return overrides, nil
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	e, ok := s.registry.get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown job id")
		return
	}

	_, status, progress, message, errMessage, outputDir := e.snapshot()
	payload := map[string]any{
		"id":       e.id,
		"status":   status,
		"progress": progress,
	}
	if message != "" {
		payload["message"] = message
	}
	if outputDir != "" && status == domain.JobStatusCompleted {
		payload["output_dir"] = outputDir
	}
	if errMessage != "" {
		payload["error"] = errMessage
	}
	respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	e, ok := s.registry.get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown job id")
		return
	}

	_, status, _, _, _, _ := e.snapshot()
	if status.IsTerminal() {
		respondError(w, http.StatusConflict, "job already reached a terminal state")
		return
	}

	if !e.cancel("cancelled via HTTP API") {
		respondError(w, http.StatusConflict, "job already reached a terminal state")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleDownloadJob(w http.ResponseWriter, r *http.Request) {
	e, ok := s.registry.get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown job id")
		return
	}

	_, status, _, _, _, outputDir := e.snapshot()
	if status != domain.JobStatusCompleted || outputDir == "" {
		respondError(w, http.StatusConflict, "job has not completed")
		return
	}

	if _, err := os.Stat(outputDir); err != nil {
		respondError(w, http.StatusNotFound, "output directory not found")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", e.id+".zip"))
	if err := zipDirectory(w, outputDir); err != nil {
		s.logger.Error("zip output directory", "job_id", e.id, "error", err)
	}
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		return "upload.wav"
	}
	return name
}
