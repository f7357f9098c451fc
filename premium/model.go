package premium

import (
	"fmt"
)

// Model kinds understood by the predictor
const (
	ModelLinear       = "linear"
	ModelTreeEnsemble = "tree_ensemble"
)

// Model is a fitted regression function over a scaled feature vector
type Model interface {
	Apply(v FeatureVector) float64
}

// ModelSpec is the serialized form of a fitted model. Only the fields of
// the declared kind are read.
type ModelSpec struct {
	Kind string `json:"kind"`

	// linear
	Intercept    float64            `json:"intercept,omitempty"`
	Coefficients map[string]float64 `json:"coefficients,omitempty"`

	// tree_ensemble
	BaseScore float64    `json:"base_score,omitempty"`
	Trees     []TreeSpec `json:"trees,omitempty"`
}

// TreeSpec is a regression tree stored as a flat node array rooted at index 0
type TreeSpec struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is either a split (Feature set) or a leaf
type TreeNode struct {
	Feature   string  `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Leaf      float64 `json:"leaf,omitempty"`
}

func (n TreeNode) isLeaf() bool {
	return n.Feature == ""
}

// Build resolves feature names against the schema and returns an executable model
func (s ModelSpec) Build(schema *FeatureSchema) (Model, error) {
	switch s.Kind {
	case ModelLinear:
		return buildLinear(s, schema)
	case ModelTreeEnsemble:
		return buildEnsemble(s, schema)
	default:
		return nil, fmt.Errorf("unknown model kind %q", s.Kind)
	}
}

// LinearModel computes intercept + Σ coef·x
type LinearModel struct {
	intercept float64
	coef      []float64 // aligned with the schema
}

func buildLinear(s ModelSpec, schema *FeatureSchema) (*LinearModel, error) {
	if len(s.Coefficients) == 0 {
		return nil, fmt.Errorf("linear model has no coefficients")
	}
	if !finite(s.Intercept) {
		return nil, fmt.Errorf("linear model intercept is not finite")
	}
	coef := make([]float64, schema.Len())
	for name, c := range s.Coefficients {
		idx, ok := schema.Index(name)
		if !ok {
			return nil, fmt.Errorf("coefficient for unknown feature %q", name)
		}
		if !finite(c) {
			return nil, fmt.Errorf("coefficient for %q is not finite", name)
		}
		coef[idx] = c
	}
	return &LinearModel{intercept: s.Intercept, coef: coef}, nil
}

// Apply evaluates the linear function
func (m *LinearModel) Apply(v FeatureVector) float64 {
	y := m.intercept
	for i, c := range m.coef {
		y += c * v.Values[i]
	}
	return y
}

type compiledNode struct {
	feature   int // -1 for a leaf
	threshold float64
	left      int
	right     int
	leaf      float64
}

// TreeEnsemble sums the outputs of boosted regression trees
type TreeEnsemble struct {
	baseScore float64
	trees     [][]compiledNode
}

func buildEnsemble(s ModelSpec, schema *FeatureSchema) (*TreeEnsemble, error) {
	if len(s.Trees) == 0 {
		return nil, fmt.Errorf("tree ensemble has no trees")
	}
	if !finite(s.BaseScore) {
		return nil, fmt.Errorf("tree ensemble base score is not finite")
	}

	trees := make([][]compiledNode, 0, len(s.Trees))
	for t, tree := range s.Trees {
		nodes, err := compileTree(tree, schema)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", t, err)
		}
		trees = append(trees, nodes)
	}
	return &TreeEnsemble{baseScore: s.BaseScore, trees: trees}, nil
}

// compileTree resolves feature indexes and checks that every node is
// reachable from the root exactly once, so evaluation always terminates
func compileTree(tree TreeSpec, schema *FeatureSchema) ([]compiledNode, error) {
	if len(tree.Nodes) == 0 {
		return nil, fmt.Errorf("empty tree")
	}

	nodes := make([]compiledNode, len(tree.Nodes))
	for i, n := range tree.Nodes {
		if n.isLeaf() {
			if !finite(n.Leaf) {
				return nil, fmt.Errorf("node %d: leaf value is not finite", i)
			}
			nodes[i] = compiledNode{feature: -1, leaf: n.Leaf}
			continue
		}
		idx, ok := schema.Index(n.Feature)
		if !ok {
			return nil, fmt.Errorf("node %d: unknown feature %q", i, n.Feature)
		}
		if !finite(n.Threshold) {
			return nil, fmt.Errorf("node %d: threshold is not finite", i)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= 0 || child >= len(tree.Nodes) {
				return nil, fmt.Errorf("node %d: child index %d out of range", i, child)
			}
		}
		nodes[i] = compiledNode{feature: idx, threshold: n.Threshold, left: n.Left, right: n.Right}
	}

	seen := make([]bool, len(nodes))
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			return nil, fmt.Errorf("node %d reached twice", i)
		}
		seen[i] = true
		if nodes[i].feature >= 0 {
			stack = append(stack, nodes[i].left, nodes[i].right)
		}
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("node %d unreachable", i)
		}
	}

	return nodes, nil
}

// Apply walks every tree and sums the leaves reached
func (m *TreeEnsemble) Apply(v FeatureVector) float64 {
	y := m.baseScore
	for _, nodes := range m.trees {
		i := 0
		for nodes[i].feature >= 0 {
			n := nodes[i]
			if v.Values[n.feature] < n.threshold {
				i = n.left
			} else {
				i = n.right
			}
		}
		y += nodes[i].leaf
	}
	return y
}
