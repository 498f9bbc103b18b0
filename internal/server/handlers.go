package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/smartlens/internal/models"
	"github.com/hyperjump/smartlens/internal/storage"
)

// emptyQueryHint is shown instead of results for blank queries.
const emptyQueryHint = "Type a description of the photo you are looking for, e.g. \"sunset over mountains\"."

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		if errors.Is(err, models.ErrEmptyQuery) {
			s.respondJSON(w, http.StatusOK, &models.SearchResponse{
				Results: []*models.SearchResult{},
				Hint:    emptyQueryHint,
			})
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("reindex requested")
	report, err := s.indexer.Reindex(r.Context())
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)

	photos, err := s.engine.Browse(r.Context(), filter, offset, limit)
	if err != nil {
		s.logger.Error("photo listing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if photos == nil {
		photos = []*models.Photo{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"photos": photos,
		"total":  len(photos),
	})
}

func (s *Server) handlePhotoFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		s.respondError(w, http.StatusBadRequest, "invalid photo id")
		return
	}
	// Only files that went through the indexer are served; the stored path
	// is the one the loader resolved, so no path is built from user input.
	photo, err := s.storage.GetPhoto(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	http.ServeFile(w, r, photo.Path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	photoCount, err := s.storage.CountPhotos(ctx)
	if err != nil {
		s.logger.Error("status: count photos failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"photos":            photoCount,
		"vector_index_size": s.engine.VectorIndexSize(),
	}

	configInfo := map[string]interface{}{
		"photos_dir":           s.config.Photos.Dir,
		"embedding_provider":   s.config.Embedding.Provider,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"vector_index_type":    s.config.Vector.IndexType,
		"database_path":        s.config.Storage.DatabasePath,
		"bleve_index_path":     s.config.Storage.BleveIndexPath,
		"watch_enabled":        s.config.Watch.Enabled,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.BleveIndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
