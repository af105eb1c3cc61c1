package ann

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// TrainConfig holds optimizer and early-stopping settings
type TrainConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Patience     int     // epochs without validation improvement before stopping
	MinDelta     float64 // minimum validation loss decrease that counts as improvement
	Seed         int64

	// OnEpoch is called after every epoch, if set.
	OnEpoch func(EpochStats)
}

// EpochStats reports the losses of one epoch
type EpochStats struct {
	Epoch     int
	TrainLoss float64
	ValLoss   float64
	ValMAE    float64
	Improved  bool
}

// History is the outcome of Fit
type History struct {
	Epochs       []EpochStats
	BestEpoch    int
	BestValLoss  float64
	StoppedEarly bool
}

func (c *TrainConfig) applyDefaults() {
	if c.Epochs <= 0 {
		c.Epochs = 100
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.001
	}
	if c.Patience <= 0 {
		c.Patience = 10
	}
}

// Fit trains the network with mini-batch Adam on MSE. After training the
// network holds the weights of the epoch with the lowest validation loss.
func (n *Network) Fit(ctx context.Context, trainX [][]float64, trainY []float64, valX [][]float64, valY []float64, cfg TrainConfig) (*History, error) {
	cfg.applyDefaults()
	if len(trainX) == 0 || len(valX) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(trainX) != len(trainY) || len(valX) != len(valY) {
		return nil, fmt.Errorf("%w: features and targets differ in length", ErrShape)
	}
	for _, x := range trainX {
		if len(x) != n.InputWidth() {
			return nil, fmt.Errorf("%w: got %d features, want %d", ErrShape, len(x), n.InputWidth())
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	opt := newAdam(n, cfg.LearningRate)
	grads := newGradients(n)

	hist := &History{BestValLoss: math.Inf(1)}
	best := n.Clone()
	wait := 0

	order := make([]int, len(trainX))
	for i := range order {
		order[i] = i
	}

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var sumSq float64
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(order))
			batch := order[start:end]

			grads.zero()
			for _, idx := range batch {
				pred, p := n.forward(trainX[idx], rng)
				diff := pred - trainY[idx]
				sumSq += diff * diff
				n.backward(p, 2*diff/float64(len(batch)), grads)
			}
			opt.step(n, grads)
		}

		stats := EpochStats{Epoch: epoch, TrainLoss: sumSq / float64(len(order))}
		var err error
		stats.ValLoss, stats.ValMAE, err = n.Evaluate(valX, valY)
		if err != nil {
			return nil, err
		}
		if !isFinite(stats.TrainLoss) || !isFinite(stats.ValLoss) {
			return nil, fmt.Errorf("%w at epoch %d", ErrDiverged, epoch)
		}

		if stats.ValLoss < hist.BestValLoss-cfg.MinDelta {
			stats.Improved = true
			hist.BestValLoss = stats.ValLoss
			hist.BestEpoch = epoch
			best = n.Clone()
			wait = 0
		} else {
			wait++
		}

		hist.Epochs = append(hist.Epochs, stats)
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(stats)
		}

		if wait >= cfg.Patience {
			hist.StoppedEarly = true
			break
		}
	}

	n.copyFrom(best)
	return hist, nil
}

// Evaluate returns mean squared error and mean absolute error over a dataset.
func (n *Network) Evaluate(xs [][]float64, ys []float64) (mse, mae float64, err error) {
	if len(xs) == 0 {
		return 0, 0, ErrEmptyDataset
	}
	if len(xs) != len(ys) {
		return 0, 0, fmt.Errorf("%w: features and targets differ in length", ErrShape)
	}
	for i, x := range xs {
		pred, err := n.Predict(x)
		if err != nil {
			return 0, 0, err
		}
		diff := pred - ys[i]
		mse += diff * diff
		mae += math.Abs(diff)
	}
	count := float64(len(xs))
	return mse / count, mae / count, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

// adam keeps first and second moment estimates per parameter
type adam struct {
	lr     float64
	t      int
	mW, vW [][]float64
	mB, vB [][]float64
}

func newAdam(n *Network, lr float64) *adam {
	a := &adam{lr: lr}
	for _, l := range n.Layers {
		a.mW = append(a.mW, make([]float64, len(l.Weights)))
		a.vW = append(a.vW, make([]float64, len(l.Weights)))
		a.mB = append(a.mB, make([]float64, len(l.Biases)))
		a.vB = append(a.vB, make([]float64, len(l.Biases)))
	}
	return a
}

func (a *adam) step(n *Network, g *gradients) {
	a.t++
	c1 := 1 - math.Pow(adamBeta1, float64(a.t))
	c2 := 1 - math.Pow(adamBeta2, float64(a.t))

	for i, l := range n.Layers {
		a.update(l.Weights, g.weights[i].RawMatrix().Data, a.mW[i], a.vW[i], c1, c2)
		a.update(l.Biases, g.biases[i], a.mB[i], a.vB[i], c1, c2)
	}
}

func (a *adam) update(params, grad, m, v []float64, c1, c2 float64) {
	for j := range params {
		m[j] = adamBeta1*m[j] + (1-adamBeta1)*grad[j]
		v[j] = adamBeta2*v[j] + (1-adamBeta2)*grad[j]*grad[j]
		params[j] -= a.lr * (m[j] / c1) / (math.Sqrt(v[j]/c2) + adamEpsilon)
	}
}
