package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
)

const maxUploadBytes = 200 * 1024 * 1024

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"extensions": s.service.Registry.Extensions()})
}

// handleSubmit accepts a multipart file upload and submits it for
// ingestion, honoring ?mode=sync|async (default async) per spec §6.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "parsing multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	opts := optionsFromForm(r)

	var job model.Job
	if r.URL.Query().Get("mode") == "sync" {
		job, err = s.service.SubmitSync(r.Context(), header.Filename, data, opts)
	} else {
		job, err = s.service.Submit(r.Context(), header.Filename, data, opts)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.Progress(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.service.Schema(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	jobs, err := s.service.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	records, err := s.service.Records(r.Context(), chi.URLParam(r, "jobID"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleSearchRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	substr := q.Get("q")
	if substr == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: q")
		return
	}
	limit, offset := paginationParams(r)

	records, err := s.service.SearchRecords(r.Context(), chi.URLParam(r, "jobID"), q.Get("field"), substr, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func optionsFromForm(r *http.Request) parser.Options {
	opts := parser.DefaultOptions()
	q := r.URL.Query()

	if d := q.Get("delimiter"); d != "" {
		opts.Delimiter = []rune(d)[0]
	}
	if q.Get("has_header") == "true" {
		opts.HasHeader = true
	}
	if skip, err := strconv.Atoi(q.Get("skip_rows")); err == nil {
		opts.SkipRows = skip
	}
	if sheet := q.Get("sheet"); sheet != "" {
		opts.SheetName = sheet
	}
	return opts
}

func paginationParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a service-layer error to an HTTP status using
// its FailureKind where available (spec §7 recovery policy).
func writeServiceError(w http.ResponseWriter, err error) {
	var kindErr *model.KindError
	if errors.As(err, &kindErr) {
		writeError(w, statusForKind(kindErr.Kind), kindErr.Error())
		return
	}

	var unsupported *model.UnsupportedFormatError
	if errors.As(err, &unsupported) {
		writeError(w, http.StatusUnprocessableEntity, unsupported.Error())
		return
	}

	if errors.Is(err, model.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if errors.Is(err, model.ErrEmptyInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

func statusForKind(kind model.FailureKind) int {
	switch kind {
	case model.FailureUnsupportedFormat:
		return http.StatusUnprocessableEntity
	case model.FailureEmptyInput:
		return http.StatusBadRequest
	case model.FailureMalformedRow:
		return http.StatusUnprocessableEntity
	case model.FailureSchemaDetection:
		return http.StatusUnprocessableEntity
	case model.FailurePersistence:
		return http.StatusInternalServerError
	case model.FailureCancelled:
		return http.StatusRequestTimeout
	case model.FailureJobNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
