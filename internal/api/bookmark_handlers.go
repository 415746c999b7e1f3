package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/internal/storage"
)

// bookmarkLookupLimit bounds concurrent professional lookups per request
const bookmarkLookupLimit = 4

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	customerID := CustomerFromContext(r.Context())

	bookmarks, err := s.bookmarks.ListBookmarks(r.Context(), customerID)
	if err != nil {
		s.log.Error("failed to list bookmarks", zap.Error(err), zap.String("customer_id", customerID))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list bookmarks")
		return
	}

	s.attachProfessionals(r, bookmarks)
	respondJSON(w, http.StatusOK, bookmarks)
}

// attachProfessionals fills in each bookmark's professional. A failed
// lookup leaves the bookmark without one.
func (s *Server) attachProfessionals(r *http.Request, bookmarks []*models.Bookmark) {
	if s.market == nil {
		return
	}

	var g errgroup.Group
	g.SetLimit(bookmarkLookupLimit)
	for _, b := range bookmarks {
		b := b
		g.Go(func() error {
			pro, err := s.market.GetProfessional(r.Context(), b.ProfessionalID)
			if err != nil {
				s.log.Debug("bookmarked professional unavailable",
					zap.Int64("professional_id", b.ProfessionalID),
					zap.Error(err),
				)
				return nil
			}
			b.Professional = pro
			return nil
		})
	}
	g.Wait()
}

func (s *Server) handleCreateBookmark(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProfessionalID < 1 {
		respondError(w, http.StatusBadRequest, "validation_error", "professionalId is required")
		return
	}

	var pro *models.Professional
	if s.market != nil {
		var err error
		pro, err = s.market.GetProfessional(r.Context(), req.ProfessionalID)
		if err != nil {
			s.respondUpstreamError(w, err, "professional")
			return
		}
	}

	b := &models.Bookmark{
		CustomerID:     CustomerFromContext(r.Context()),
		ProfessionalID: req.ProfessionalID,
	}
	if err := s.bookmarks.CreateBookmark(r.Context(), b); err != nil {
		if errors.Is(err, storage.ErrDuplicateBookmark) {
			respondError(w, http.StatusConflict, "already_bookmarked", "professional already bookmarked")
			return
		}
		s.log.Error("failed to create bookmark", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create bookmark")
		return
	}
	b.Professional = pro

	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"), "bookmark")
	if !ok {
		return
	}

	if err := s.bookmarks.DeleteBookmark(r.Context(), CustomerFromContext(r.Context()), id); err != nil {
		if errors.Is(err, storage.ErrBookmarkNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "bookmark not found")
			return
		}
		s.log.Error("failed to delete bookmark", zap.Error(err), zap.Int64("id", id))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete bookmark")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "bookmark deleted",
	})
}
