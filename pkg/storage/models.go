package storage

import "time"

// Tree is a row of the trees table.
type Tree struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"tree"`
	Location              string    `json:"location"`
	HeightFt              float64   `json:"heightFt"`
	GroundCircumferenceFt float64   `json:"groundCircumferenceFt"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// Insect is a row of the insects table.
type Insect struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Fact        string    `json:"fact"`
	Territory   string    `json:"territory"`
	Millimeters float64   `json:"millimeters"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TreeSummary is the list/search projection of a tree.
type TreeSummary struct {
	ID       int64   `json:"id"`
	Name     string  `json:"tree"`
	HeightFt float64 `json:"heightFt"`
}

// InsectSummary is the list/search projection of an insect.
type InsectSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Millimeters float64 `json:"millimeters"`
}

// TreeRef is a tree nested under an insect.
type TreeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"tree"`
}

// InsectRef is an insect nested under a tree.
type InsectRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TreeWithInsects is a tree together with the insects found near it.
type TreeWithInsects struct {
	ID       int64       `json:"id"`
	Name     string      `json:"tree"`
	Location string      `json:"location"`
	HeightFt float64     `json:"heightFt"`
	Insects  []InsectRef `json:"insects"`
}

// InsectWithTrees is an insect together with the trees it was found near.
type InsectWithTrees struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Trees       []TreeRef `json:"trees"`
}

// Counts holds row counts used by the stats collector.
type Counts struct {
	Trees        int64
	Insects      int64
	Associations int64
}
