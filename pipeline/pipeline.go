// Package pipeline wires the prediction flow end to end: fetch prices,
// build features, train the classifier, and either predict the next day or
// simulate the trading rule over held-out history.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marketsync/marketsync/backtest"
	"github.com/marketsync/marketsync/features"
	"github.com/marketsync/marketsync/forest"
	"github.com/marketsync/marketsync/market"
)

// Threshold bounds for the probability cutoff the caller may supply.
const (
	MinThreshold     = 0.3
	MaxThreshold     = 0.7
	DefaultThreshold = 0.5
)

// DefaultTrainSplit is the chronological prefix fraction used for
// training; the remaining suffix is the evaluation window.
const DefaultTrainSplit = 0.8

// PriceProvider supplies the gap-filled daily price table for a period.
type PriceProvider interface {
	FetchTable(ctx context.Context, period string) (*market.Table, error)
}

// Pipeline runs the feature/train/predict/simulate flow. Each invocation
// retrains from scratch; no model state survives between calls.
type Pipeline struct {
	provider PriceProvider
	builder  *features.Builder
	model    forest.Params
	split    float64
	log      *logrus.Logger
}

// Options tune the pipeline; zero values take the defaults.
type Options struct {
	Features   features.Params
	Model      forest.Params
	TrainSplit float64
}

// New creates a Pipeline on top of a price provider.
func New(provider PriceProvider, opts Options, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	model := opts.Model
	if model.Trees == 0 {
		model = forest.DefaultParams()
	}
	split := opts.TrainSplit
	if split <= 0 || split >= 1 {
		split = DefaultTrainSplit
	}
	return &Pipeline{
		provider: provider,
		builder:  features.NewBuilder(opts.Features),
		model:    model,
		split:    split,
		log:      log,
	}
}

// Prediction is the point forecast for the next trading day.
type Prediction struct {
	Direction string `json:"prediction"` // "up" or "down"
	// Probability is P(predicted class), so it is always >= 0.5.
	Probability float64 `json:"probability"`
	// Accuracy is measured on the training data itself: an in-sample,
	// optimistic figure, not out-of-sample performance.
	Accuracy   float64            `json:"accuracy"`
	Importance map[string]float64 `json:"importance"`
	AsOf       time.Time          `json:"as_of"`
}

// Report is a full backtest: the simulated curves plus run metadata.
type Report struct {
	Period    string  `json:"period"`
	Threshold float64 `json:"threshold"`
	TrainRows int     `json:"train_rows"`
	EvalRows  int     `json:"eval_rows"`
	backtest.Result
	Signals []backtest.Signal `json:"signals"`
}

func (p *Pipeline) fetch(ctx context.Context, period string) (*market.Table, error) {
	table, err := p.provider.FetchTable(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty table for period %s", ErrDataUnavailable, period)
	}
	return table, nil
}

// Predict trains on the full feature history and classifies the latest
// row.
func (p *Pipeline) Predict(ctx context.Context, period string) (*Prediction, error) {
	table, err := p.fetch(ctx, period)
	if err != nil {
		return nil, err
	}
	set, err := p.builder.Build(table)
	if err != nil {
		return nil, err
	}

	model, err := forest.Train(set.X, set.Y, p.model)
	if err != nil {
		return nil, err
	}

	last := set.X[set.Len()-1]
	pUp := model.PredictProba(last)

	pred := &Prediction{
		Direction:   "up",
		Probability: pUp,
		Accuracy:    model.Score(set.X, set.Y),
		Importance:  importanceMap(set.Names, model.Importances()),
		AsOf:        set.Dates[set.Len()-1],
	}
	if pUp < 0.5 {
		pred.Direction = "down"
		pred.Probability = 1 - pUp
	}

	p.log.WithFields(logrus.Fields{
		"period":      period,
		"rows":        set.Len(),
		"prediction":  pred.Direction,
		"probability": pred.Probability,
	}).Debug("prediction complete")

	return pred, nil
}

// Backtest trains on the chronological prefix of the feature history and
// simulates the threshold rule over the remaining suffix. Training never
// sees the evaluation window.
func (p *Pipeline) Backtest(ctx context.Context, period string, threshold float64) (*Report, error) {
	if threshold < MinThreshold || threshold > MaxThreshold {
		return nil, fmt.Errorf("threshold %g out of range [%g, %g]", threshold, MinThreshold, MaxThreshold)
	}

	table, err := p.fetch(ctx, period)
	if err != nil {
		return nil, err
	}
	set, err := p.builder.Build(table)
	if err != nil {
		return nil, err
	}

	cut := int(float64(set.Len()) * p.split)
	if cut < 1 || set.Len()-cut < 1 {
		return nil, fmt.Errorf("%w: %d feature rows cannot be split %d/%d",
			ErrInsufficientHistory, set.Len(), cut, set.Len()-cut)
	}

	model, err := forest.Train(set.X[:cut], set.Y[:cut], p.model)
	if err != nil {
		return nil, err
	}

	evalDates := set.Dates[cut:]
	probs := make([]float64, len(evalDates))
	for i, row := range set.X[cut:] {
		probs[i] = model.PredictProba(row)
	}

	result, err := backtest.Simulate(evalDates, probs, set.NextReturn[cut:], threshold)
	if err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"period":       period,
		"threshold":    threshold,
		"train_rows":   cut,
		"eval_rows":    set.Len() - cut,
		"strategy_pct": result.StrategyReturnPct,
		"market_pct":   result.MarketReturnPct,
	}).Debug("backtest complete")

	return &Report{
		Period:    period,
		Threshold: threshold,
		TrainRows: cut,
		EvalRows:  set.Len() - cut,
		Result:    *result,
		Signals:   backtest.Signals(result.Records),
	}, nil
}

// Trend returns the fetched table normalized to 1.0 at the first date, for
// the price-comparison chart.
func (p *Pipeline) Trend(ctx context.Context, period string) (*market.Table, error) {
	table, err := p.fetch(ctx, period)
	if err != nil {
		return nil, err
	}
	return table.Normalize(), nil
}

// Lag returns the lag-shifted normalized table and the lead/lag return
// correlation for the display-alignment view.
func (p *Pipeline) Lag(ctx context.Context, period string, days int) (*market.Table, float64, error) {
	table, err := p.fetch(ctx, period)
	if err != nil {
		return nil, 0, err
	}
	shifted, err := table.LagShift(days)
	if err != nil {
		return nil, 0, err
	}
	corr, err := table.LeadLagCorrelation(days)
	if err != nil {
		return nil, 0, err
	}
	return shifted, corr, nil
}

func importanceMap(names []string, importances []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = importances[i]
	}
	return out
}
