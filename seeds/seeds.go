package seeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/actuallystonmai/nutrigrade/internal/model"
	"github.com/actuallystonmai/nutrigrade/internal/repository"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

// band splits one nutrient into five ranges. Range i votes for grade i, or
// for grade 4-i when more of the nutrient is better.
type band struct {
	feature    int
	thresholds [4]float64
	beneficial bool
}

// Per 100g cut points loosely following the Nutri-Score point tables.
var bands = []band{
	{feature: 0, thresholds: [4]float64{80, 160, 270, 400}},
	{feature: 2, thresholds: [4]float64{1, 2.5, 5, 8}},
	{feature: 3, thresholds: [4]float64{4.5, 9, 18, 31}},
	{feature: 4, thresholds: [4]float64{0.3, 0.6, 1.2, 2}},
	{feature: 6, thresholds: [4]float64{0.9, 1.9, 2.8, 3.7}, beneficial: true},
	{feature: 5, thresholds: [4]float64{1.6, 3.2, 4.8, 6.4}, beneficial: true},
}

// BaselineForest returns a small hand-set forest with one chain-shaped tree
// per band. It is a placeholder artifact for local runs, not a trained model.
func BaselineForest() model.ForestArtifact {
	trees := make([]model.Tree, 0, len(bands))
	for _, b := range bands {
		trees = append(trees, bandTree(b))
	}
	return model.ForestArtifact{
		Format:       model.ForestFormat,
		Version:      model.ForestVersion,
		FeatureNames: domain.FeatureNames(),
		Classes:      []int{0, 1, 2, 3, 4},
		Trees:        trees,
	}
}

func bandTree(b band) model.Tree {
	k := len(b.thresholds)
	nodes := make([]model.Node, 2*k+1)
	for i, t := range b.thresholds {
		nodes[2*i] = model.Node{Feature: b.feature, Threshold: t, Left: 2*i + 1, Right: 2*i + 2}
		nodes[2*i+1] = model.Node{Value: vote(i, b.beneficial)}
	}
	nodes[2*k] = model.Node{Value: vote(k, b.beneficial)}
	return model.Tree{Nodes: nodes}
}

func vote(rangeIdx int, beneficial bool) []float64 {
	peak := rangeIdx
	if beneficial {
		peak = 4 - rangeIdx
	}
	v := []float64{1, 1, 1, 1, 1}
	v[peak] = 7
	return v
}

// Encode writes the baseline forest as JSON, gzip compressed when asked.
func Encode(w io.Writer, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(BaselineForest())
	}
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(BaselineForest()); err != nil {
		zw.Close()
		return fmt.Errorf("encode forest: %w", err)
	}
	return zw.Close()
}

// Setup stores the baseline forest under name unless an artifact already exists.
func Setup(ctx context.Context, repo *repository.Repository, name string) error {
	existing, err := repo.ListArtifacts(ctx, name, 1)
	if err != nil {
		return fmt.Errorf("check artifacts: %w", err)
	}
	if len(existing) > 0 {
		log.Info().Str("component", "seed").Str("name", name).Msg("artifact already present, skipping")
		return nil
	}

	payload, err := json.Marshal(BaselineForest())
	if err != nil {
		return fmt.Errorf("marshal forest: %w", err)
	}
	a, err := repo.PutArtifact(ctx, name, payload)
	if err != nil {
		return fmt.Errorf("store forest: %w", err)
	}
	log.Info().Str("component", "seed").Str("name", name).Str("id", a.ID).Msg("baseline artifact stored")
	return nil
}
