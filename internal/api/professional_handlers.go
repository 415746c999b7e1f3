package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/build-directory/internal/models"
)

const (
	defaultFeaturedLimit = 6
	maxFeaturedLimit     = 24
)

func (s *Server) handleFeaturedProfessionals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	profession := q.Get("profession")
	if profession != "" && !models.Profession(profession).Valid() {
		respondError(w, http.StatusBadRequest, "validation_error", "profession must be contractor or architect")
		return
	}

	limit := defaultFeaturedLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxFeaturedLimit {
			respondError(w, http.StatusBadRequest, "validation_error", "limit must be between 1 and "+strconv.Itoa(maxFeaturedLimit))
			return
		}
		limit = n
	}

	pros, err := s.market.FeaturedProfessionals(r.Context(), profession, limit)
	if err != nil {
		s.respondUpstreamError(w, err, "featured professionals")
		return
	}
	if pros == nil {
		pros = []models.Professional{}
	}

	respondJSON(w, http.StatusOK, pros)
}

// handleGetProfessional assembles a profile from three upstream reads made
// in parallel
func (s *Server) handleGetProfessional(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"), "professional")
	if !ok {
		return
	}

	var profile models.Profile
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		pro, err := s.market.GetProfessional(ctx, id)
		if err != nil {
			return err
		}
		profile.Professional = pro
		return nil
	})
	g.Go(func() error {
		reviews, err := s.market.ListReviews(ctx, id)
		profile.Reviews = reviews
		return err
	})
	g.Go(func() error {
		projects, err := s.market.ListProjects(ctx, id)
		profile.Projects = projects
		return err
	})

	if err := g.Wait(); err != nil {
		s.respondUpstreamError(w, err, "professional")
		return
	}
	if profile.Reviews == nil {
		profile.Reviews = []models.Review{}
	}
	if profile.Projects == nil {
		profile.Projects = []models.Project{}
	}

	respondJSON(w, http.StatusOK, profile)
}

// handleCreateReview forwards a review and flushes cached listings, since
// rating and review count feed the listing sort order
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"), "professional")
	if !ok {
		return
	}

	var req models.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	review, err := s.market.CreateReview(r.Context(), id, req)
	if err != nil {
		s.respondUpstreamError(w, err, "professional")
		return
	}

	if s.cache != nil {
		// the review is stored; a failed flush only delays it until the TTL
		if err := s.cache.InvalidateAll(context.WithoutCancel(r.Context())); err != nil {
			s.log.Warn("failed to flush listing cache", zap.Int64("professional_id", id), zap.Error(err))
		}
	}

	respondJSON(w, http.StatusCreated, review)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"), "project")
	if !ok {
		return
	}

	project, err := s.market.GetProject(r.Context(), id)
	if err != nil {
		s.respondUpstreamError(w, err, "project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

func parseID(w http.ResponseWriter, raw, what string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid "+what+" id")
		return 0, false
	}
	return id, true
}
