package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/grove/pkg/httputil"
	"github.com/platinummonkey/grove/pkg/storage"
)

// listInsects handles GET /insects
func (s *Server) listInsects(w http.ResponseWriter, r *http.Request) {
	insects, err := s.repo.ListInsects(r.Context())
	if err != nil {
		s.fail(w, r, Failure("Could not find insects", err))
		return
	}
	if len(insects) == 0 {
		s.fail(w, r, NotFound("Could not find insects", "Insects not found"))
		return
	}
	httputil.WriteSuccess(w, insects)
}

// getInsect handles GET /insects/{id}
func (s *Server) getInsect(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	message := fmt.Sprintf("Could not find insect %s", raw)

	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		s.fail(w, r, Invalid(message, err.Error()))
		return
	}

	insect, err := s.repo.GetInsect(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, r, NotFound(message, "Insect not found").WithField(FieldError))
		return
	}
	if err != nil {
		s.fail(w, r, Failure(message, err))
		return
	}
	httputil.WriteSuccess(w, insect)
}

// createInsect handles POST /insects
func (s *Server) createInsect(w http.ResponseWriter, r *http.Request) {
	const message = "Could not create new insect"

	var req createInsectRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		s.fail(w, r, Invalid(message, err.Error()))
		return
	}

	insect := req.toInsect()
	if err := s.repo.CreateInsect(r.Context(), insect); err != nil {
		s.fail(w, r, Failure(message, err))
		return
	}

	s.logger.WithField("insect_id", insect.ID).Debug("created insect")
	httputil.WriteSuccessMessage(w, "Successfully created new insect", insect)
}

// deleteInsect handles DELETE /insects/{id}
func (s *Server) deleteInsect(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	message := fmt.Sprintf("Could not remove insect %s", raw)

	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		s.fail(w, r, Invalid(message, err.Error()))
		return
	}

	if _, err := s.repo.GetInsect(r.Context(), id); err != nil {
		s.failLookup(w, r, message, "Insect not found", err)
		return
	}
	if err := s.repo.DeleteInsect(r.Context(), id); err != nil {
		s.failLookup(w, r, message, "Insect not found", err)
		return
	}

	httputil.WriteSuccessMessage(w, fmt.Sprintf("Successfully removed insect %s", raw), nil)
}

// updateInsect handles PUT /insects/{id}
func (s *Server) updateInsect(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]

	var req updateInsectRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		s.fail(w, r, Invalid(fmt.Sprintf("Could not update insect %s", raw), err.Error()))
		return
	}

	id, mismatch := checkBodyID(r, req.ID, "insect")
	if mismatch != nil {
		s.fail(w, r, mismatch)
		return
	}
	message := fmt.Sprintf("Could not update insect %d", id)

	insect, err := s.repo.GetInsect(r.Context(), id)
	if err != nil {
		s.failLookup(w, r, message, "Insect not found", err)
		return
	}

	req.apply(insect)
	if err := s.repo.UpdateInsect(r.Context(), insect); err != nil {
		s.failLookup(w, r, message, "Insect not found", err)
		return
	}

	httputil.WriteSuccessMessage(w, fmt.Sprintf("Successfully updated insect %d", id), insect)
}

// searchInsects handles GET /insects/search/{value}
func (s *Server) searchInsects(w http.ResponseWriter, r *http.Request) {
	value, err := httputil.ParsePathString(r, "value")
	if err != nil {
		s.fail(w, r, Invalid("Could not find insects", err.Error()).WithField(FieldError))
		return
	}
	message := fmt.Sprintf("Could not find insects with name like %s", value)

	insects, err := s.repo.SearchInsects(r.Context(), value)
	if err != nil {
		s.fail(w, r, Failure(message, err).WithField(FieldError))
		return
	}
	if len(insects) == 0 {
		s.fail(w, r, NotFound(message, "Insects not found").WithField(FieldError))
		return
	}
	httputil.WriteSuccess(w, insects)
}
