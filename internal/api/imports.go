package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/staffdrop/internal/api/middleware"
	"github.com/dharsanguruparan/staffdrop/internal/importer"
	"github.com/dharsanguruparan/staffdrop/internal/model"
	"github.com/dharsanguruparan/staffdrop/internal/spreadsheet"
)

const maxNameBytes = 256

type startRequest struct {
	IDs []string `json:"ids"`
}

type startResponse struct {
	Results []importer.StartResult `json:"results"`
}

func (s *Server) handleSubmitImport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.User(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxFileSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form")
		return
	}
	in, err := s.readUpload(mr)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.OwnerID = user.ID

	job, err := s.imports.Submit(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, job)
}

// readUpload drains the multipart body, collecting the file part and the
// optional job name in whichever order they arrive.
func (s *Server) readUpload(mr *multipart.Reader) (importer.SubmitInput, error) {
	var (
		in      importer.SubmitInput
		hasFile bool
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return in, fmt.Errorf("read multipart: %w", err)
		}
		switch part.FormName() {
		case "file":
			data, err := io.ReadAll(io.LimitReader(part, s.opts.MaxFileSize+1))
			if err != nil {
				part.Close()
				return in, fmt.Errorf("read file: %w", err)
			}
			if int64(len(data)) > s.opts.MaxFileSize {
				part.Close()
				return in, fmt.Errorf("file exceeds limit (%d bytes)", s.opts.MaxFileSize)
			}
			in.Data = data
			in.FileName = part.FileName()
			hasFile = true
		case "name":
			name, err := io.ReadAll(io.LimitReader(part, maxNameBytes))
			if err != nil {
				part.Close()
				return in, fmt.Errorf("read name: %w", err)
			}
			in.Name = strings.TrimSpace(string(name))
		}
		part.Close()
	}
	if !hasFile {
		return in, errors.New("missing file part")
	}
	if len(in.Data) == 0 {
		return in, importer.ErrEmptyUpload
	}
	return in, nil
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.User(r.Context())
	jobs, err := s.imports.List(r.Context(), user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*model.ImportJob{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"imports": jobs})
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.User(r.Context())
	job, err := s.imports.Get(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.User(r.Context())
	res := s.imports.Start(r.Context(), user, chi.URLParam(r, "id"))[0]
	if err := res.Err(); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, startResponse{Results: []importer.StartResult{res}})
}

// handleStartImports starts a set of jobs. Item failures are reported per
// result; the request itself only fails on a malformed body.
func (s *Server) handleStartImports(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.User(r.Context())
	var req startRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids is required")
		return
	}
	respondJSON(w, http.StatusAccepted, startResponse{Results: s.imports.Start(r.Context(), user, req.IDs...)})
}

func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := spreadsheet.Template()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", importer.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="employee_import_template.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
