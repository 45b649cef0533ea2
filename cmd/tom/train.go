package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tom-ml/tom/internal/dataset"
	"github.com/tom-ml/tom/internal/model"
	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/optim"
	"github.com/tom-ml/tom/internal/serialization"
	"github.com/tom-ml/tom/internal/tensor"
)

// trainConfig holds the flags of the train command.
type trainConfig struct {
	csv        string
	label      int
	header     bool
	scale      bool
	hidden     []int
	activation string
	epochs     int
	batch      int
	optimizer  string
	lr         float64
	momentum   float64
	decay      float64
	holdout    float64
	seed       uint64
	save       string
	verbose    bool
}

var activations = map[string]nn.Kind{
	"relu":      nn.KindReLU,
	"leakyrelu": nn.KindLeakyReLU,
	"sigmoid":   nn.KindSigmoid,
	"tanh":      nn.KindTanh,
}

func parseTrainFlags(args []string, stderr io.Writer) (trainConfig, error) {
	var cfg trainConfig
	var hidden string

	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.csv, "csv", "", "CSV file with one sample per record (required)")
	fs.IntVar(&cfg.label, "label", -1, "Zero-based label column (negative counts from the end)")
	fs.BoolVar(&cfg.header, "header", false, "Skip the first CSV record")
	fs.BoolVar(&cfg.scale, "scale", true, "Rescale every feature to [0, 1]")
	fs.StringVar(&hidden, "hidden", "16", "Comma-separated hidden layer sizes")
	fs.StringVar(&cfg.activation, "activation", "relu", "Hidden activation: relu, leakyrelu, sigmoid, tanh")
	fs.IntVar(&cfg.epochs, "epochs", 100, "Number of training epochs")
	fs.IntVar(&cfg.batch, "batch", 10, "Batch size")
	fs.StringVar(&cfg.optimizer, "optimizer", "adam", "Optimizer: sgd, adam, rmsprop")
	fs.Float64Var(&cfg.lr, "lr", 0, "Learning rate (0 = optimizer default)")
	fs.Float64Var(&cfg.momentum, "momentum", 0, "SGD momentum")
	fs.Float64Var(&cfg.decay, "decay", 0, "Learning rate decay per iteration")
	fs.Float64Var(&cfg.holdout, "holdout", 0.2, "Fraction of samples held out for evaluation")
	fs.Uint64Var(&cfg.seed, "seed", 1, "Random seed for shuffling, initialization and dropout")
	fs.StringVar(&cfg.save, "save", "", "Write the trained model to this file")
	fs.BoolVar(&cfg.verbose, "v", false, "Log debug output")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	sizes, err := parseSizes(hidden)
	if err != nil {
		return cfg, err
	}
	cfg.hidden = sizes
	return cfg, nil
}

func parseSizes(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid hidden size %q: %w", p, err)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

func (c trainConfig) validate() error {
	var errs []error
	if c.csv == "" {
		errs = append(errs, errors.New("-csv is required"))
	}
	for _, h := range c.hidden {
		if h <= 0 {
			errs = append(errs, fmt.Errorf("hidden size %d must be positive", h))
		}
	}
	if _, ok := activations[c.activation]; !ok {
		errs = append(errs, fmt.Errorf("unknown activation %q", c.activation))
	}
	if c.epochs <= 0 {
		errs = append(errs, fmt.Errorf("epochs %d must be positive", c.epochs))
	}
	if c.batch <= 0 {
		errs = append(errs, fmt.Errorf("batch %d must be positive", c.batch))
	}
	if c.holdout < 0 || c.holdout >= 1 {
		errs = append(errs, fmt.Errorf("holdout %g outside [0, 1)", c.holdout))
	}
	if _, err := c.optimizerConfig(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c trainConfig) optimizerConfig() (optim.Config, error) {
	switch strings.ToLower(c.optimizer) {
	case "sgd":
		return optim.SGDConfig{LearningRate: c.lr, Decay: c.decay, Momentum: c.momentum}, nil
	case "adam":
		return optim.AdamConfig{LearningRate: c.lr, Decay: c.decay}, nil
	case "rmsprop":
		return optim.RMSPropConfig{LearningRate: c.lr, Decay: c.decay}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", c.optimizer)
	}
}

// buildModel declares a classifier: hidden Dense layers with the configured
// activation, then a Dense→Softmax head trained with cross-entropy.
func buildModel(c trainConfig, inputs, classes int, logger *slog.Logger) (*model.Model, error) {
	m, err := model.New(c.batch, model.WithSeed(c.seed), model.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	act := activations[c.activation]
	in := inputs
	for _, h := range c.hidden {
		l, err := m.AddLayer(nn.KindDense, in, h)
		if err != nil {
			return nil, err
		}
		if act == nn.KindReLU || act == nn.KindLeakyReLU {
			l.(*nn.Dense).SetInitializers(nn.HeUniform, nn.Zeros)
		}
		if _, err := m.AddLayer(act, h, h); err != nil {
			return nil, err
		}
		in = h
	}
	if _, err := m.AddLayer(nn.KindDense, in, classes); err != nil {
		return nil, err
	}
	if _, err := m.AddLayer(nn.KindSoftmax, classes, classes); err != nil {
		return nil, err
	}
	if err := m.SetLoss(nn.LossCategoricalCrossEntropy); err != nil {
		return nil, err
	}
	if err := m.Finalize(); err != nil {
		return nil, err
	}

	opt, err := c.optimizerConfig()
	if err != nil {
		m.Close()
		return nil, err
	}
	if err := m.InitOptimizers(opt); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func accuracy(m *model.Model, d *dataset.Dataset) (float64, error) {
	pred, err := tensor.New(d.Y.Rows, d.Y.Cols)
	if err != nil {
		return 0, err
	}
	if err := m.Predict(d.X, pred); err != nil {
		return 0, err
	}
	return dataset.Accuracy(pred, d.Y)
}

func train(args []string, stdout, stderr io.Writer) error {
	cfg, err := parseTrainFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	data, err := dataset.LoadCSV(cfg.csv, dataset.CSVOptions{LabelColumn: cfg.label, Header: cfg.header})
	if err != nil {
		return err
	}
	if cfg.scale {
		if err := dataset.Scale(data.X, 0, 1); err != nil {
			return err
		}
	}
	if err := dataset.Shuffle(data.X, data.Y, data.Labels, nn.NewRNG(cfg.seed)); err != nil {
		return err
	}
	trainSet, holdout, err := data.Split(cfg.holdout)
	if err != nil {
		return err
	}
	trainSet, err = trainSet.Truncate(cfg.batch)
	if err != nil {
		return err
	}
	logger.Debug("dataset loaded",
		"samples", data.Len(),
		"features", data.X.Cols,
		"classes", data.Y.Cols,
		"train", trainSet.Len(),
		"holdout", holdout.Len(),
	)

	m, err := buildModel(cfg, data.X.Cols, data.Y.Cols, logger)
	if err != nil {
		return fmt.Errorf("failed to build model: %w", err)
	}
	defer m.Close()

	logger.Info("training",
		"layers", m.Len(),
		"optimizer", cfg.optimizer,
		"epochs", cfg.epochs,
		"batch", cfg.batch,
	)
	if err := m.Train(trainSet.X, trainSet.Y, cfg.epochs, true); err != nil {
		return err
	}

	acc, err := accuracy(m, trainSet)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "train accuracy: %.4f (%d samples)\n", acc, trainSet.Len())
	if holdout.Len() > 0 {
		acc, err := accuracy(m, holdout)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "holdout accuracy: %.4f (%d samples)\n", acc, holdout.Len())
	}

	if cfg.save != "" {
		if err := serialization.SaveFile(cfg.save, m); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "saved model to %s\n", cfg.save)
	}
	return nil
}
