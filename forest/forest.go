// Package forest implements a small CART random-forest binary classifier:
// gini splits, bootstrap sampling, sqrt-feature subsampling.
//
// Training is sequential and driven by a single seeded source, so a fixed
// seed produces bit-identical forests run after run. That reproducibility
// is a contract, not an optimization: keep tree construction single
// threaded.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrSingleClass is returned when the training labels contain fewer than
// two classes; a forest fit on one class can only ever repeat it.
var ErrSingleClass = errors.New("training labels contain a single class")

// Params are the forest hyperparameters. They are fixed constants in the
// pipeline, not tuned per run.
type Params struct {
	Trees           int
	MinSamplesSplit int
	Seed            int64
}

// DefaultParams mirrors the dashboard's constants.
func DefaultParams() Params {
	return Params{Trees: 100, MinSamplesSplit: 5, Seed: 42}
}

type node struct {
	leaf      bool
	prob      float64 // P(class 1) among samples in this node
	feature   int
	threshold float64
	left      *node
	right     *node
}

// Forest is a trained ensemble.
type Forest struct {
	trees       []*node
	nFeatures   int
	importances []float64
}

// Train fits a forest on x (rows of features) and binary labels y.
func Train(x [][]float64, y []int, p Params) (*Forest, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("empty training set")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("feature/label length mismatch: %d vs %d", len(x), len(y))
	}
	nFeatures := len(x[0])
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), nFeatures)
		}
	}
	seen := map[int]bool{}
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("label %d at row %d is not binary", label, i)
		}
		seen[label] = true
	}
	if len(seen) < 2 {
		return nil, ErrSingleClass
	}
	if p.Trees <= 0 {
		return nil, fmt.Errorf("trees must be positive, got %d", p.Trees)
	}
	if p.MinSamplesSplit < 2 {
		return nil, fmt.Errorf("min samples split must be at least 2, got %d", p.MinSamplesSplit)
	}

	f := &Forest{
		nFeatures:   nFeatures,
		importances: make([]float64, nFeatures),
	}
	rng := rand.New(rand.NewSource(p.Seed))
	mtry := int(math.Sqrt(float64(nFeatures)))
	if mtry < 1 {
		mtry = 1
	}

	t := &trainer{
		x:      x,
		y:      y,
		params: p,
		rng:    rng,
		mtry:   mtry,
		imp:    f.importances,
		nTotal: len(x),
	}
	for i := 0; i < p.Trees; i++ {
		sample := make([]int, len(x))
		for j := range sample {
			sample[j] = rng.Intn(len(x))
		}
		f.trees = append(f.trees, t.build(sample))
	}

	total := 0.0
	for _, v := range f.importances {
		total += v
	}
	if total > 0 {
		for i := range f.importances {
			f.importances[i] /= total
		}
	}
	return f, nil
}

type trainer struct {
	x      [][]float64
	y      []int
	params Params
	rng    *rand.Rand
	mtry   int
	imp    []float64
	nTotal int
}

func (t *trainer) build(indices []int) *node {
	count1 := 0
	for _, i := range indices {
		count1 += t.y[i]
	}
	prob := float64(count1) / float64(len(indices))

	if count1 == 0 || count1 == len(indices) || len(indices) < t.params.MinSamplesSplit {
		return &node{leaf: true, prob: prob}
	}

	feature, threshold, decrease, ok := t.bestSplit(indices, prob)
	if !ok {
		return &node{leaf: true, prob: prob}
	}

	// Weighted impurity decrease accumulates into the global importance
	// accounting, normalized to sum 1 after training.
	t.imp[feature] += decrease * float64(len(indices)) / float64(t.nTotal)

	var left, right []int
	for _, i := range indices {
		if t.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      t.build(left),
		right:     t.build(right),
	}
}

// bestSplit searches a random subset of features for the gini-optimal
// threshold. Split candidates sit between distinct consecutive sorted
// values, so tie ordering cannot change the outcome.
func (t *trainer) bestSplit(indices []int, parentProb float64) (feature int, threshold, decrease float64, ok bool) {
	parentGini := gini(parentProb)
	n := float64(len(indices))

	bestDecrease := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	order := make([]int, len(indices))
	for _, fi := range t.rng.Perm(len(t.imp))[:t.mtry] {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool {
			return t.x[order[a]][fi] < t.x[order[b]][fi]
		})

		left1 := 0
		total1 := 0
		for _, i := range order {
			total1 += t.y[i]
		}

		for pos := 0; pos < len(order)-1; pos++ {
			left1 += t.y[order[pos]]
			v, next := t.x[order[pos]][fi], t.x[order[pos+1]][fi]
			if v == next {
				continue
			}
			nL := float64(pos + 1)
			nR := n - nL
			giniL := gini(float64(left1) / nL)
			giniR := gini(float64(total1-left1) / nR)
			d := parentGini - (nL/n)*giniL - (nR/n)*giniR
			if d > bestDecrease {
				bestDecrease = d
				bestFeature = fi
				bestThreshold = (v + next) / 2
			}
		}
	}

	if bestFeature < 0 || bestDecrease <= 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestDecrease, true
}

// gini computes binary gini impurity 2p(1-p).
func gini(p float64) float64 {
	return 2 * p * (1 - p)
}

// PredictProba returns the probability of class 1 for a feature row: the
// mean of per-tree leaf class fractions.
func (f *Forest) PredictProba(row []float64) float64 {
	sum := 0.0
	for _, t := range f.trees {
		sum += leafProb(t, row)
	}
	return sum / float64(len(f.trees))
}

// Predict returns the majority class for a feature row.
func (f *Forest) Predict(row []float64) int {
	if f.PredictProba(row) >= 0.5 {
		return 1
	}
	return 0
}

// Score returns the fraction of correct predictions over x against y.
// When x and y are the data the forest was fit on, this is an in-sample
// (optimistic) accuracy, not out-of-sample performance.
func (f *Forest) Score(x [][]float64, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i, row := range x {
		if f.Predict(row) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

// Importances returns per-feature impurity-decrease importances in input
// feature order. Values are non-negative and sum to 1 when any split was
// made.
func (f *Forest) Importances() []float64 {
	return append([]float64(nil), f.importances...)
}

// NumFeatures returns the feature width the forest was trained on.
func (f *Forest) NumFeatures() int { return f.nFeatures }

func leafProb(nd *node, row []float64) float64 {
	for !nd.leaf {
		if row[nd.feature] <= nd.threshold {
			nd = nd.left
		} else {
			nd = nd.right
		}
	}
	return nd.prob
}
