package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/grove/pkg/httputil"
	"github.com/platinummonkey/grove/pkg/storage"
)

// listTrees handles GET /trees
func (s *Server) listTrees(w http.ResponseWriter, r *http.Request) {
	trees, err := s.repo.ListTrees(r.Context())
	if err != nil {
		s.fail(w, r, Failure("Could not find trees", err))
		return
	}
	// An empty table is reported as not-found, not as [].
	if len(trees) == 0 {
		s.fail(w, r, NotFound("Could not find trees", "Trees could not be found"))
		return
	}
	httputil.WriteSuccess(w, trees)
}

// getTree handles GET /trees/{id}
func (s *Server) getTree(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	message := fmt.Sprintf("Could not find tree %s", raw)

	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		s.fail(w, r, Invalid(message, err.Error()))
		return
	}

	tree, err := s.repo.GetTree(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, r, NotFound(message, "Tree not found"))
		return
	}
	if err != nil {
		s.fail(w, r, Failure(message, err))
		return
	}
	httputil.WriteSuccess(w, tree)
}

// createTree handles POST /trees
func (s *Server) createTree(w http.ResponseWriter, r *http.Request) {
	const message = "Could not create new tree"

	var req createTreeRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		s.fail(w, r, Invalid(message, err.Error()))
		return
	}

	tree := req.toTree()
	if err := s.repo.CreateTree(r.Context(), tree); err != nil {
		s.fail(w, r, Failure(message, err))
		return
	}

	s.logger.WithField("tree_id", tree.ID).Debug("created tree")
	httputil.WriteSuccessMessage(w, "Successfully created new tree", tree)
}

// deleteTree handles DELETE /trees/{id}
func (s *Server) deleteTree(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	message := fmt.Sprintf("Could not remove tree %s", raw)

	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		s.fail(w, r, Invalid(message, err.Error()))
		return
	}

	if _, err := s.repo.GetTree(r.Context(), id); err != nil {
		s.failLookup(w, r, message, "Tree not found", err)
		return
	}
	if err := s.repo.DeleteTree(r.Context(), id); err != nil {
		s.failLookup(w, r, message, "Tree not found", err)
		return
	}

	httputil.WriteSuccessMessage(w, fmt.Sprintf("Successfully removed tree %s", raw), nil)
}

// updateTree handles PUT /trees/{id}. A body id that does not match the
// path id stops the request before anything is read or written.
func (s *Server) updateTree(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]

	var req updateTreeRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		s.fail(w, r, Invalid(fmt.Sprintf("Could not update tree %s", raw), err.Error()))
		return
	}

	id, mismatch := checkBodyID(r, req.ID, "tree")
	if mismatch != nil {
		s.fail(w, r, mismatch)
		return
	}
	message := fmt.Sprintf("Could not update tree %d", id)

	tree, err := s.repo.GetTree(r.Context(), id)
	if err != nil {
		s.failLookup(w, r, message, "Tree not found", err)
		return
	}

	req.apply(tree)
	if err := s.repo.UpdateTree(r.Context(), tree); err != nil {
		s.failLookup(w, r, message, "Tree not found", err)
		return
	}

	httputil.WriteSuccessMessage(w, "Successfully updated tree", tree)
}

// searchTrees handles GET /trees/search/{value}
func (s *Server) searchTrees(w http.ResponseWriter, r *http.Request) {
	value, err := httputil.ParsePathString(r, "value")
	if err != nil {
		s.fail(w, r, Invalid("Could not find trees", err.Error()).WithField(FieldError))
		return
	}
	message := fmt.Sprintf("Could not find trees with name like %s", value)

	trees, err := s.repo.SearchTrees(r.Context(), value)
	if err != nil {
		s.fail(w, r, Failure(message, err).WithField(FieldError))
		return
	}
	if len(trees) == 0 {
		s.fail(w, r, NotFound(message, "Trees not found").WithField(FieldError))
		return
	}
	httputil.WriteSuccess(w, trees)
}

// failLookup reports storage.ErrNotFound as not-found and anything else as a
// store failure.
func (s *Server) failLookup(w http.ResponseWriter, r *http.Request, message, notFoundDetails string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, r, NotFound(message, notFoundDetails))
		return
	}
	s.fail(w, r, Failure(message, err))
}

// checkBodyID compares the id in a PUT body with the {id} path variable. It
// returns the path id, or a descriptor naming both ids when they differ or
// the body carries none.
func checkBodyID(r *http.Request, bodyID httputil.Optional[int64], entity string) (int64, *APIError) {
	raw := mux.Vars(r)["id"]
	pathID, err := strconv.ParseInt(raw, 10, 64)
	if err == nil && bodyID.Present() && bodyID.Value == pathID {
		return pathID, nil
	}

	shown := "missing"
	if bodyID.Present() {
		shown = strconv.FormatInt(bodyID.Value, 10)
	}
	return 0, Invalid(
		fmt.Sprintf("Could not update %s %s", entity, shown),
		fmt.Sprintf("URL id %s does not match input id %s", raw, shown),
	)
}
