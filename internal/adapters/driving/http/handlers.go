package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driving"
)

// maxUploadSize caps document uploads at 20 MB
const maxUploadSize = 20 << 20

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Question answering

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer         string   `json:"answer"`
	Grounded       bool     `json:"grounded"`
	GroundedChunks []string `json:"grounded_chunks,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.askService.Ask(r.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "question is required")
		case errors.Is(err, domain.ErrEmbeddingService):
			writeError(w, http.StatusServiceUnavailable, "embedding service unavailable")
		case errors.Is(err, domain.ErrGenerationService):
			writeError(w, http.StatusServiceUnavailable, "answer generation unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "failed to answer question")
		}
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:         answer.Text,
		Grounded:       answer.Grounded,
		GroundedChunks: answer.GroundedChunks,
	})
}

// Document endpoints

type ingestDocumentRequest struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	SourceFormat string `json:"source_format,omitempty"`
	Content      string `json:"content"`
	Async        bool   `json:"async,omitempty"`
}

type taskAcceptedResponse struct {
	TaskID     string `json:"task_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.ingestDocument(w, r, req)
}

func (s *Server) ingestDocument(w http.ResponseWriter, r *http.Request, req ingestDocumentRequest) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	format := domain.SourceFormat(req.SourceFormat)
	if format == "" {
		format = domain.SourceFormatPlain
	}

	if req.Async {
		if s.taskQueue == nil {
			writeError(w, http.StatusBadRequest, "async ingestion is not enabled")
			return
		}
		task := domain.NewIngestTask(req.ID, req.Title, format, req.Content)
		if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to enqueue ingestion")
			return
		}
		writeJSON(w, http.StatusAccepted, taskAcceptedResponse{
			TaskID:     task.ID,
			DocumentID: req.ID,
			Status:     string(task.Status),
		})
		return
	}

	result, err := s.ingestService.Ingest(r.Context(), driving.IngestRequest{
		ID:           req.ID,
		Title:        req.Title,
		SourceFormat: format,
		Content:      req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "title and content are required")
		case errors.Is(err, domain.ErrEmptyDocument):
			writeError(w, http.StatusUnprocessableEntity, "document produced no indexable chunks")
		case errors.Is(err, domain.ErrIngestInProgress):
			writeError(w, http.StatusConflict, "document is already being ingested")
		case errors.Is(err, domain.ErrEmbeddingService):
			writeError(w, http.StatusServiceUnavailable, "embedding service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "ingestion failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleUploadDocument accepts a multipart file upload. PDF files are
// converted to plain text before entering the pipeline; everything else
// is treated as text.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	var content string
	format := domain.SourceFormatPlain
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf":
		content, err = extractPDFText(data)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "failed to extract text from PDF")
			return
		}
	case ".md", ".markdown":
		content = string(data)
		format = domain.SourceFormatStructured
	default:
		content = string(data)
	}

	s.ingestDocument(w, r, ingestDocumentRequest{
		ID:           r.FormValue("id"),
		Title:        title,
		SourceFormat: string(format),
		Content:      content,
		Async:        r.FormValue("async") == "true",
	})
}

// extractPDFText pulls plain text out of a PDF file
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ingestService.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ingestService.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.ingestService.GetDocument(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}

	chunks, err := s.chunkStore.GetByDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get chunks")
		return
	}
	writeJSON(w, http.StatusOK, chunks)
}

func (s *Server) handleReembedDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if s.taskQueue != nil {
		task := domain.NewReembedTask(id)
		if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to enqueue re-embedding")
			return
		}
		writeJSON(w, http.StatusAccepted, taskAcceptedResponse{
			TaskID:     task.ID,
			DocumentID: id,
			Status:     string(task.Status),
		})
		return
	}

	result, err := s.ingestService.Reembed(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		case errors.Is(err, domain.ErrIngestInProgress):
			writeError(w, http.StatusConflict, "document is already being ingested")
		case errors.Is(err, domain.ErrEmbeddingService):
			writeError(w, http.StatusServiceUnavailable, "embedding service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "re-embedding failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.ingestService.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Task endpoints

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusNotFound, "task queue is not enabled")
		return
	}

	task, err := s.taskQueue.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusNotFound, "task queue is not enabled")
		return
	}

	stats, err := s.taskQueue.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get queue stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
