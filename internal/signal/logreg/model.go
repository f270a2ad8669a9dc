package logreg

import (
	"errors"
	"math"
)

type TrainOptions struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		LearningRate: 0.05,
		Epochs:       600,
		L2:           0.0001,
	}
}

// Model is a binary logistic classifier fit by full-batch gradient descent
// on z-score normalized inputs. It lives for one decision cycle only and is
// never serialized.
type Model struct {
	weights []float64
	bias    float64
	means   []float64
	stds    []float64
}

func Train(samples [][]float64, labels []float64, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("invalid training dataset")
	}
	if len(samples[0]) == 0 {
		return nil, errors.New("empty feature vectors")
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultTrainOptions().Epochs
	}
	if opts.L2 < 0 {
		opts.L2 = DefaultTrainOptions().L2
	}

	featCount := len(samples[0])
	means := make([]float64, featCount)
	stds := make([]float64, featCount)
	for j := 0; j < featCount; j++ {
		for i := range samples {
			means[j] += samples[i][j]
		}
		means[j] /= float64(len(samples))
		for i := range samples {
			d := samples[i][j] - means[j]
			stds[j] += d * d
		}
		stds[j] = math.Sqrt(stds[j] / float64(len(samples)))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	weights := make([]float64, featCount)
	bias := 0.0

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		grads := make([]float64, featCount)
		gradBias := 0.0
		n := float64(len(samples))
		for i := range samples {
			x := normalize(samples[i], means, stds)
			p := sigmoid(dot(weights, x) + bias)
			err := p - labels[i]
			for j := range grads {
				grads[j] += err * x[j]
			}
			gradBias += err
		}
		for j := range weights {
			grads[j] = grads[j]/n + opts.L2*weights[j]
			weights[j] -= opts.LearningRate * grads[j]
		}
		bias -= opts.LearningRate * (gradBias / n)
	}

	return &Model{weights: weights, bias: bias, means: means, stds: stds}, nil
}

// PredictProb returns the up-probability for one sample. A nil model or a
// dimension mismatch yields the neutral 0.5.
func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || len(sample) != len(m.weights) {
		return 0.5
	}
	x := normalize(sample, m.means, m.stds)
	return sigmoid(dot(m.weights, x) + m.bias)
}

func sigmoid(x float64) float64 {
	if x > 35 {
		return 1
	}
	if x < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func normalize(in, means, stds []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = (in[i] - means[i]) / stds[i]
	}
	return out
}
