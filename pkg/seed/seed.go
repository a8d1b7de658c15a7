// Package seed loads the starter trees and insects and links them.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/storage"
)

// Trees are the starter trees, matched by name.
var Trees = []storage.Tree{
	{Name: "General Sherman", Location: "Sequoia National Park", HeightFt: 274.9, GroundCircumferenceFt: 102.6},
	{Name: "General Grant", Location: "Kings Canyon National Park", HeightFt: 268.1, GroundCircumferenceFt: 107.5},
	{Name: "Lincoln", Location: "Sequoia National Park", HeightFt: 255.8, GroundCircumferenceFt: 98.3},
	{Name: "Stagg", Location: "Alder Creek Grove", HeightFt: 243, GroundCircumferenceFt: 109},
}

// Insects are the starter insects, matched by name.
var Insects = []storage.Insect{
	{
		Name:        "Western Pygmy Blue Butterfly",
		Description: "One of the smallest butterflies in the world",
		Fact:        "Its wingspan is about half an inch",
		Territory:   "Western North America",
		Millimeters: 12,
	},
	{
		Name:        "Patu Digua Spider",
		Description: "One of the smallest spiders in the world",
		Fact:        "Its body is smaller than a pinhead",
		Territory:   "Colombia",
		Millimeters: 0.37,
	},
}

// Link pairs an insect with the trees it is found on.
type Link struct {
	Insect string
	Trees  []string
}

// Links are the starter associations.
var Links = []Link{
	{Insect: "Western Pygmy Blue Butterfly", Trees: []string{"General Sherman", "General Grant", "Lincoln", "Stagg"}},
	{Insect: "Patu Digua Spider", Trees: []string{"Stagg"}},
}

// Result counts what a run changed.
type Result struct {
	TreesCreated   int
	InsectsCreated int
	Linked         int
	Unlinked       int
}

// Seeder applies the starter data to a repository.
type Seeder struct {
	repo   storage.Repository
	logger *observability.Logger
	tracer trace.Tracer
}

// New creates a Seeder.
func New(repo storage.Repository, logger *observability.Logger) *Seeder {
	return &Seeder{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("github.com/platinummonkey/grove/pkg/seed"),
	}
}

func (s *Seeder) start(ctx context.Context, name string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, name)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Up creates missing starter rows and links them. Running it twice changes
// nothing the second time.
func (s *Seeder) Up(ctx context.Context) (res Result, err error) {
	ctx, end := s.start(ctx, "seed.up")
	defer func() { end(err) }()

	err = s.repo.WithTx(ctx, func(tx storage.Repository) error {
		res = Result{}
		trees := make(map[string]int64, len(Trees))
		for _, t := range Trees {
			tree, created, err := ensureTree(ctx, tx, t)
			if err != nil {
				return err
			}
			if created {
				res.TreesCreated++
			}
			trees[tree.Name] = tree.ID
		}

		insects := make(map[string]int64, len(Insects))
		for _, i := range Insects {
			insect, created, err := ensureInsect(ctx, tx, i)
			if err != nil {
				return err
			}
			if created {
				res.InsectsCreated++
			}
			insects[insect.Name] = insect.ID
		}

		for _, link := range Links {
			insectID := insects[link.Insect]
			for _, name := range link.Trees {
				exists, err := tx.AssociationExists(ctx, trees[name], insectID)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				if err := tx.Associate(ctx, trees[name], insectID); err != nil {
					return fmt.Errorf("link %s to %s: %w", link.Insect, name, err)
				}
				res.Linked++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seed up: %w", err)
	}

	observability.UpdateLoggerWithTraceContext(ctx, s.logger).WithFields(map[string]interface{}{
		"trees_created":   res.TreesCreated,
		"insects_created": res.InsectsCreated,
		"linked":          res.Linked,
	}).Info("Seed applied")
	return res, nil
}

// Down removes the starter links. Trees and insects are left in place.
func (s *Seeder) Down(ctx context.Context) (res Result, err error) {
	ctx, end := s.start(ctx, "seed.down")
	defer func() { end(err) }()

	err = s.repo.WithTx(ctx, func(tx storage.Repository) error {
		res = Result{}
		for _, link := range Links {
			insect, err := tx.FindInsectByName(ctx, link.Insect)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			for _, name := range link.Trees {
				tree, err := tx.FindTreeByName(ctx, name)
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}

				err = tx.RemoveAssociation(ctx, tree.ID, insect.ID)
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				if err != nil {
					return fmt.Errorf("unlink %s from %s: %w", link.Insect, name, err)
				}
				res.Unlinked++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seed down: %w", err)
	}

	observability.UpdateLoggerWithTraceContext(ctx, s.logger).WithField("unlinked", res.Unlinked).Info("Seed reverted")
	return res, nil
}

func ensureTree(ctx context.Context, tx storage.Repository, want storage.Tree) (*storage.Tree, bool, error) {
	tree, err := tx.FindTreeByName(ctx, want.Name)
	if err == nil {
		return tree, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	tree = &want
	if err := tx.CreateTree(ctx, tree); err != nil {
		return nil, false, fmt.Errorf("create tree %s: %w", want.Name, err)
	}
	return tree, true, nil
}

func ensureInsect(ctx context.Context, tx storage.Repository, want storage.Insect) (*storage.Insect, bool, error) {
	insect, err := tx.FindInsectByName(ctx, want.Name)
	if err == nil {
		return insect, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	insect = &want
	if err := tx.CreateInsect(ctx, insect); err != nil {
		return nil, false, fmt.Errorf("create insect %s: %w", want.Name, err)
	}
	return insect, true, nil
}
