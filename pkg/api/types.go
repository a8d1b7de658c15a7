package api

import (
	"github.com/platinummonkey/grove/pkg/httputil"
	"github.com/platinummonkey/grove/pkg/storage"
)

// createTreeRequest is the POST /trees body.
type createTreeRequest struct {
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Height   float64 `json:"height"`
	Size     float64 `json:"size"`
}

func (req createTreeRequest) toTree() *storage.Tree {
	return &storage.Tree{
		Name:                  req.Name,
		Location:              req.Location,
		HeightFt:              req.Height,
		GroundCircumferenceFt: req.Size,
	}
}

// updateTreeRequest is the PUT /trees/{id} body. Only truthy fields replace
// stored values; absent, null, zero and empty fields keep them.
type updateTreeRequest struct {
	ID       httputil.Optional[int64]   `json:"id"`
	Name     httputil.Optional[string]  `json:"name"`
	Location httputil.Optional[string]  `json:"location"`
	Height   httputil.Optional[float64] `json:"height"`
	Size     httputil.Optional[float64] `json:"size"`
}

func (req updateTreeRequest) apply(tree *storage.Tree) {
	tree.Name = httputil.Coalesce(req.Name, tree.Name)
	tree.Location = httputil.Coalesce(req.Location, tree.Location)
	tree.HeightFt = httputil.Coalesce(req.Height, tree.HeightFt)
	tree.GroundCircumferenceFt = httputil.Coalesce(req.Size, tree.GroundCircumferenceFt)
}

// createInsectRequest is the POST /insects body.
type createInsectRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fact        string  `json:"fact"`
	Territory   string  `json:"territory"`
	Millimeters float64 `json:"millimeters"`
}

func (req createInsectRequest) toInsect() *storage.Insect {
	return &storage.Insect{
		Name:        req.Name,
		Description: req.Description,
		Fact:        req.Fact,
		Territory:   req.Territory,
		Millimeters: req.Millimeters,
	}
}

// updateInsectRequest is the PUT /insects/{id} body, with the same update
// rule as updateTreeRequest.
type updateInsectRequest struct {
	ID          httputil.Optional[int64]   `json:"id"`
	Name        httputil.Optional[string]  `json:"name"`
	Description httputil.Optional[string]  `json:"description"`
	Fact        httputil.Optional[string]  `json:"fact"`
	Territory   httputil.Optional[string]  `json:"territory"`
	Millimeters httputil.Optional[float64] `json:"millimeters"`
}

func (req updateInsectRequest) apply(insect *storage.Insect) {
	insect.Name = httputil.Coalesce(req.Name, insect.Name)
	insect.Description = httputil.Coalesce(req.Description, insect.Description)
	insect.Fact = httputil.Coalesce(req.Fact, insect.Fact)
	insect.Territory = httputil.Coalesce(req.Territory, insect.Territory)
	insect.Millimeters = httputil.Coalesce(req.Millimeters, insect.Millimeters)
}

// associateRequest is the POST /associate-tree-insect body.
type associateRequest struct {
	Tree   *treePayload   `json:"tree"`
	Insect *insectPayload `json:"insect"`
}

// treePayload identifies an existing tree by id or describes a new one. The
// model names (tree, heightFt, groundCircumferenceFt) are accepted next to
// the create-endpoint names.
type treePayload struct {
	ID                    httputil.Optional[int64] `json:"id"`
	Name                  string                   `json:"name"`
	Tree                  string                   `json:"tree"`
	Location              string                   `json:"location"`
	Height                float64                  `json:"height"`
	HeightFt              float64                  `json:"heightFt"`
	Size                  float64                  `json:"size"`
	GroundCircumferenceFt float64                  `json:"groundCircumferenceFt"`
}

func (p *treePayload) toTree() *storage.Tree {
	return &storage.Tree{
		Name:                  firstNonZero(p.Name, p.Tree),
		Location:              p.Location,
		HeightFt:              firstNonZero(p.Height, p.HeightFt),
		GroundCircumferenceFt: firstNonZero(p.Size, p.GroundCircumferenceFt),
	}
}

// insectPayload identifies an existing insect by id or describes a new one.
type insectPayload struct {
	ID          httputil.Optional[int64] `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Fact        string                   `json:"fact"`
	Territory   string                   `json:"territory"`
	Millimeters float64                  `json:"millimeters"`
}

func (p *insectPayload) toInsect() *storage.Insect {
	return &storage.Insect{
		Name:        p.Name,
		Description: p.Description,
		Fact:        p.Fact,
		Territory:   p.Territory,
		Millimeters: p.Millimeters,
	}
}

func firstNonZero[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
