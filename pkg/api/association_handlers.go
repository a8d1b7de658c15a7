package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/platinummonkey/grove/pkg/httputil"
	"github.com/platinummonkey/grove/pkg/storage"
)

const associationFailed = "Could not create association"

// listTreesWithInsects handles GET /trees-insects
func (s *Server) listTreesWithInsects(w http.ResponseWriter, r *http.Request) {
	trees, err := s.repo.ListTreesWithInsects(r.Context())
	if err != nil {
		s.fail(w, r, Failure("Could not find trees with insects", err).WithField(FieldError))
		return
	}
	httputil.WriteSuccess(w, trees)
}

// listInsectsWithTrees handles GET /insects-trees
func (s *Server) listInsectsWithTrees(w http.ResponseWriter, r *http.Request) {
	insects, err := s.repo.ListInsectsWithTrees(r.Context())
	if err != nil {
		s.fail(w, r, Failure("Could not find insects with trees", err).WithField(FieldError))
		return
	}
	httputil.WriteSuccess(w, insects)
}

// associateTreeInsect handles POST /associate-tree-insect. It resolves or
// creates both sides and links them in one transaction; the first failing
// step aborts the request and rolls everything back.
func (s *Server) associateTreeInsect(w http.ResponseWriter, r *http.Request) {
	var req associateRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		s.fail(w, r, Invalid(associationFailed, err.Error()).WithField(FieldError))
		return
	}
	if apiErr := validateAssociation(&req); apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}

	var tree *storage.Tree
	err := s.repo.WithTx(r.Context(), func(tx storage.Repository) error {
		p := &associationPipeline{tx: tx, req: &req}
		if err := p.run(r.Context()); err != nil {
			return err
		}
		tree = p.tree
		return nil
	})
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			apiErr = Failure(associationFailed, err)
		}
		s.fail(w, r, apiErr.WithField(FieldError))
		return
	}

	s.logger.WithField("tree_id", tree.ID).Debug("recorded tree/insect association")
	httputil.WriteSuccessMessage(w, "Successfully recorded information", tree)
}

// validateAssociation checks the parts of the body that must be present
// before any storage call.
func validateAssociation(req *associateRequest) *APIError {
	if req.Tree == nil {
		return Missing("Could not find tree", "Tree missing in request")
	}
	if req.Insect == nil {
		return Missing("Could not find insect", "Insect missing in request")
	}
	return nil
}

// associationPipeline runs the association steps against one transaction.
type associationPipeline struct {
	tx  storage.Repository
	req *associateRequest

	tree   *storage.Tree
	insect *storage.Insect
}

func (p *associationPipeline) run(ctx context.Context) error {
	steps := []func(context.Context) error{
		p.resolveTree,
		p.resolveInsect,
		p.rejectDuplicate,
		p.link,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resolveTree looks the tree up when an id was sent and creates it from the
// payload otherwise.
func (p *associationPipeline) resolveTree(ctx context.Context) error {
	payload := p.req.Tree
	if httputil.Truthy(payload.ID) {
		tree, err := p.tx.GetTree(ctx, payload.ID.Value)
		if errors.Is(err, storage.ErrNotFound) {
			return NotFound("Could not find tree", "Tree not found")
		}
		if err != nil {
			return err
		}
		p.tree = tree
		return nil
	}

	tree := payload.toTree()
	if err := p.tx.CreateTree(ctx, tree); err != nil {
		return err
	}
	p.tree = tree
	return nil
}

// resolveInsect mirrors resolveTree. Insects are never matched by name, so a
// payload without an id always creates a new row.
func (p *associationPipeline) resolveInsect(ctx context.Context) error {
	payload := p.req.Insect
	if httputil.Truthy(payload.ID) {
		insect, err := p.tx.GetInsect(ctx, payload.ID.Value)
		if errors.Is(err, storage.ErrNotFound) {
			return NotFound("Could not find insect", "Insect not found")
		}
		if err != nil {
			return err
		}
		p.insect = insect
		return nil
	}

	insect := payload.toInsect()
	if err := p.tx.CreateInsect(ctx, insect); err != nil {
		return err
	}
	p.insect = insect
	return nil
}

// rejectDuplicate only applies when both sides were existing rows.
func (p *associationPipeline) rejectDuplicate(ctx context.Context) error {
	if !httputil.Truthy(p.req.Tree.ID) || !httputil.Truthy(p.req.Insect.ID) {
		return nil
	}
	exists, err := p.tx.AssociationExists(ctx, p.tree.ID, p.insect.ID)
	if err != nil {
		return err
	}
	if exists {
		return p.duplicate()
	}
	return nil
}

func (p *associationPipeline) link(ctx context.Context) error {
	err := p.tx.Associate(ctx, p.tree.ID, p.insect.ID)
	if errors.Is(err, storage.ErrAlreadyAssociated) {
		return p.duplicate()
	}
	return err
}

func (p *associationPipeline) duplicate() *APIError {
	return Conflict(associationFailed,
		fmt.Sprintf("Association already exists between %s and %s", p.tree.Name, p.insect.Name))
}
