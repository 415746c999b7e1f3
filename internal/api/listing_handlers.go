package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/controller"
	"github.com/terra-clan/build-directory/internal/listing"
	"github.com/terra-clan/build-directory/internal/render"
)

// handleListProfessionals runs one controller sync for the request query
// and returns the rendered listing. Out-of-range pages come back clamped
// with the canonical query in the view.
func (s *Server) handleListProfessionals(w http.ResponseWriter, r *http.Request) {
	ctl := controller.New(s.fetcher,
		controller.WithContext(r.Context()),
		controller.WithLogger(s.log),
	)
	defer ctl.Close()

	ctl.Mount(r.URL.RawQuery)
	ctl.Wait()

	view := ctl.View()
	if err := r.Context().Err(); err != nil {
		s.log.Debug("listing request ended before sync", zap.Error(err))
		return
	}
	if view.Status == controller.StatusError {
		if !errors.Is(view.Err, listing.ErrFetchFailed) {
			s.log.Error("listing failed", zap.Error(view.Err))
		}
		respondError(w, http.StatusBadGateway, "fetch_failed", "failed to load professionals")
		return
	}

	respondJSON(w, http.StatusOK, render.Listing(view, s.catalog()))
}
