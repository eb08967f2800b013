package model

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
)

const (
	ForestFormat  = "nutrigrade-forest"
	ForestVersion = 1
)

// Node is either a split (Value empty) or a leaf carrying per-class weights.
type Node struct {
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
	Value     []float64 `json:"value,omitempty"`
}

func (n Node) isLeaf() bool {
	return len(n.Value) > 0
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// ForestArtifact is the serialized form of a random forest classifier.
type ForestArtifact struct {
	Format       string   `json:"format"`
	Version      int      `json:"version"`
	FeatureNames []string `json:"feature_names"`
	Classes      []int    `json:"classes"`
	Trees        []Tree   `json:"trees"`
}

// Forest is a decoded, validated random forest. It is read-only after
// construction so Predict is safe for concurrent use.
type Forest struct {
	classes []int
	trees   []Tree
}

// DecodeForest reads and validates a JSON forest artifact.
func DecodeForest(r io.Reader) (*Forest, error) {
	var a ForestArtifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	return NewForest(a)
}

// NewForest validates an artifact and returns a classifier for it.
func NewForest(a ForestArtifact) (*Forest, error) {
	if a.Format != ForestFormat {
		return nil, fmt.Errorf("unsupported artifact format %q", a.Format)
	}
	if a.Version != ForestVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if !slices.Equal(a.FeatureNames, domain.FeatureNames()) {
		return nil, fmt.Errorf("feature names %v do not match %v", a.FeatureNames, domain.FeatureNames())
	}
	if len(a.Classes) == 0 {
		return nil, fmt.Errorf("artifact has no classes")
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("artifact has no trees")
	}
	for i, t := range a.Trees {
		if err := validateTree(t, len(a.Classes)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &Forest{
		classes: slices.Clone(a.Classes),
		trees:   a.Trees,
	}, nil
}

func validateTree(t Tree, numClasses int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, n := range t.Nodes {
		if n.isLeaf() {
			if len(n.Value) != numClasses {
				return fmt.Errorf("node %d: leaf has %d weights, want %d", i, len(n.Value), numClasses)
			}
			var total float64
			for _, w := range n.Value {
				if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
					return fmt.Errorf("node %d: invalid leaf weight %v", i, w)
				}
				total += w
			}
			if total == 0 {
				return fmt.Errorf("node %d: leaf weights sum to zero", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= domain.FeatureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if math.IsNaN(n.Threshold) {
			return fmt.Errorf("node %d: threshold is NaN", i)
		}
		// children must point forward, which rules out cycles
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d: child index %d out of range", i, child)
			}
		}
	}
	return nil
}

func (f *Forest) NumFeatures() int {
	return domain.FeatureCount
}

// Predict returns the class whose averaged probability across trees is highest.
// Ties go to the class listed first.
func (f *Forest) Predict(features []float64) (int, error) {
	if len(features) != domain.FeatureCount {
		return 0, fmt.Errorf("expected %d features, got %d", domain.FeatureCount, len(features))
	}
	for i, x := range features {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("feature %d is not finite", i)
		}
	}

	proba := make([]float64, len(f.classes))
	for _, t := range f.trees {
		leaf := t.leaf(features)
		var total float64
		for _, w := range leaf.Value {
			total += w
		}
		for c, w := range leaf.Value {
			proba[c] += w / total
		}
	}

	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return f.classes[best], nil
}

func (t Tree) leaf(features []float64) Node {
	n := t.Nodes[0]
	for !n.isLeaf() {
		if features[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n
}
