package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/labdriver/specsim/internal/models"
	"github.com/labdriver/specsim/internal/storage"
)

const defaultListLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.repo.CountByStatus(r.Context())
	if err != nil {
		s.logger.Error("status: count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]any{
		"documents": counts,
	}
	if s.index != nil {
		if indexed, err := s.index.Count(); err == nil {
			resp["indexed"] = indexed
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.respondError(w, http.StatusNotImplemented, "search index not enabled")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := queryInt(r, "limit", defaultListLimit)

	hits, err := s.index.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Resolve hits to document records; drop hits whose document vanished.
	type searchHit struct {
		Document *models.Document `json:"document"`
		Score    float64          `json:"score"`
	}
	results := make([]searchHit, 0, len(hits))
	for _, hit := range hits {
		doc, err := s.repo.GetDocument(r.Context(), hit.ID)
		if err != nil {
			continue
		}
		results = append(results, searchHit{Document: doc, Score: hit.Score})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

type processRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Info("process request", zap.String("path", req.Path))
	ok, err := s.proc.ProcessDocumentUpdate(r.Context(), req.Path)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"path": req.Path, "processed": ok})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.DocumentFilter{
		Protocol:     q.Get("protocol"),
		Manufacturer: q.Get("manufacturer"),
		Status:       models.DocumentStatus(q.Get("status")),
		SearchTerm:   q.Get("q"),
		Limit:        queryInt(r, "limit", defaultListLimit),
		Offset:       queryInt(r, "offset", 0),
	}
	docs, err := s.repo.ListDocuments(r.Context(), filter)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) handleRecentDocuments(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "n", 10)
	docs, err := s.repo.RecentDocuments(r.Context(), n)
	if err != nil {
		s.logger.Error("recent documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.repo.GetDocument(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if content, err := s.repo.GetContent(r.Context(), id); err == nil {
		doc.Content = content
	}
	if sections, err := s.repo.GetSections(r.Context(), id); err == nil {
		doc.Sections = sections
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.repo.GetDocument(r.Context(), id); errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err := s.repo.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.index != nil {
		if err := s.index.Delete(r.Context(), id); err != nil {
			s.logger.Warn("index delete failed", zap.String("id", id), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleGetSections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sections, err := s.repo.GetSections(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"sections": sections, "count": len(sections)})
}

func (s *Server) handleGetSimilar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.repo.GetDocument(r.Context(), id); errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	results, err := s.repo.ListSimilarityResults(r.Context(), id)
	if err != nil {
		s.logger.Error("list similarity failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	content, err := s.repo.GetContent(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document has no content")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	analysis := s.messages.ParseDocumentMessagesAdvanced(content.FullText)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"document_type": analysis.Classification.Type,
		"summary":       analysis.Summary,
		"messages":      analysis.Messages,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
