package storage

import (
	"context"
	"time"
)

// TreeStore covers the trees table.
type TreeStore interface {
	// ListTrees returns every tree, tallest first.
	ListTrees(ctx context.Context) ([]TreeSummary, error)
	GetTree(ctx context.Context, id int64) (*Tree, error)
	// FindTreeByName returns the first tree with exactly this name.
	FindTreeByName(ctx context.Context, name string) (*Tree, error)
	// CreateTree inserts the tree and fills in ID and timestamps.
	CreateTree(ctx context.Context, tree *Tree) error
	// UpdateTree overwrites every column of an existing tree.
	UpdateTree(ctx context.Context, tree *Tree) error
	DeleteTree(ctx context.Context, id int64) error
	// SearchTrees returns trees whose name contains value, ordered by name.
	SearchTrees(ctx context.Context, value string) ([]TreeSummary, error)
}

// InsectStore covers the insects table.
type InsectStore interface {
	// ListInsects returns every insect, smallest first.
	ListInsects(ctx context.Context) ([]InsectSummary, error)
	GetInsect(ctx context.Context, id int64) (*Insect, error)
	FindInsectByName(ctx context.Context, name string) (*Insect, error)
	CreateInsect(ctx context.Context, insect *Insect) error
	UpdateInsect(ctx context.Context, insect *Insect) error
	DeleteInsect(ctx context.Context, id int64) error
	// SearchInsects returns insects whose name contains value in store order.
	SearchInsects(ctx context.Context, value string) ([]InsectSummary, error)
}

// AssociationStore covers the insect_trees join table.
type AssociationStore interface {
	// ListTreesWithInsects returns only trees that have at least one insect,
	// tallest first, with their insects sorted by name.
	ListTreesWithInsects(ctx context.Context) ([]TreeWithInsects, error)
	// ListInsectsWithTrees returns every insect sorted by name, each with
	// its trees (possibly none) sorted by tree name.
	ListInsectsWithTrees(ctx context.Context) ([]InsectWithTrees, error)
	// TreesForInsect returns the trees linked to an insect sorted by name.
	TreesForInsect(ctx context.Context, insectID int64) ([]TreeRef, error)
	AssociationExists(ctx context.Context, treeID, insectID int64) (bool, error)
	Associate(ctx context.Context, treeID, insectID int64) error
	RemoveAssociation(ctx context.Context, treeID, insectID int64) error
}

// Transactor runs fn against a repository bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

// Repository is everything the HTTP layer needs from persistence.
type Repository interface {
	TreeStore
	InsectStore
	AssociationStore
	Transactor

	Counts(ctx context.Context) (Counts, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and tunes a storage backend.
type Config struct {
	Driver string `yaml:"driver"` // "postgres" or "sqlite"
	DSN    string `yaml:"dsn"`

	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`

	// Bootstrap creates the tables when they are missing.
	Bootstrap bool `yaml:"bootstrap"`
}

// DefaultConfig returns a local SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Driver:      "sqlite",
		DSN:         "file:grove.db?_foreign_keys=on",
		MaxConns:    20,
		MinConns:    2,
		Timeout:     10 * time.Second,
		MaxLifetime: time.Hour,
		MaxIdleTime: 10 * time.Minute,
		Bootstrap:   true,
	}
}
