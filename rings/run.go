package rings

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

// RunConfig captures every knob of a training run.  There is no config
// file; the defaults below are the canonical experiment, and the run
// subcommand exposes each field as a flag.
type RunConfig struct {
	// Radii lists the ring radii.  Its length is the class count.
	Radii []float32
	// Samples is the total dataset size.
	Samples int
	// NoiseStd is the standard deviation of the radial noise.
	NoiseStd float32
	// TrainFrac is the fraction of samples assigned to the training split.
	TrainFrac float64

	HiddenUnits  int
	BatchSize    int
	Epochs       int
	LearningRate float64

	// GridPoints is the evaluation mesh resolution per axis.
	GridPoints int
	// Checkpoints lists the epoch boundaries to snapshot for plotting.
	// The pre-training state (epoch 0) is always snapshotted as well.
	Checkpoints []int

	Seed int64
	// Backend selects the numeric execution context ("float32" or
	// "float64").  Empty means float32.
	Backend string
	Verbose bool
}

// DefaultRunConfig returns the canonical experiment configuration.
func DefaultRunConfig() RunConfig {
	radii := []float32{1, 2, 3, 4, 5, 6}
	return RunConfig{
		Radii:        radii,
		Samples:      50 * len(radii),
		NoiseStd:     0.5,
		TrainFrac:    0.8,
		HiddenUnits:  32,
		BatchSize:    64,
		Epochs:       500,
		LearningRate: 0.1,
		GridPoints:   101,
		Checkpoints:  []int{10, 20, 50, 100, 500},
		Seed:         12345,
		Backend:      "float32",
	}
}

// Validate checks that the configuration describes a runnable experiment.
func (cfg *RunConfig) Validate() error {
	if len(cfg.Radii) == 0 {
		return errors.New("radii list must not be empty")
	}
	if cfg.Samples <= 0 {
		return errors.New("sample count must be > 0")
	}
	if cfg.NoiseStd < 0 {
		return errors.New("noise standard deviation must be >= 0")
	}
	if cfg.TrainFrac <= 0 || cfg.TrainFrac >= 1 {
		return errors.New("train fraction must be in (0, 1)")
	}
	if cfg.HiddenUnits <= 0 {
		return errors.New("hidden unit count must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("batch size must be > 0")
	}
	if cfg.Epochs < 0 {
		return errors.New("epoch count must be >= 0")
	}
	if cfg.LearningRate <= 0 {
		return errors.New("learning rate must be > 0")
	}
	if cfg.GridPoints < 2 {
		return errors.New("grid resolution must be >= 2")
	}
	for _, ep := range cfg.Checkpoints {
		if ep < 1 {
			return fmt.Errorf("checkpoint epoch %d must be >= 1", ep)
		}
	}
	return nil
}

// CreatorFor selects the numeric backend.  Data placement is a pure
// performance/precision choice; results are identical across backends up
// to floating-point rounding.
func CreatorFor(backend string) (anyvec.Creator, error) {
	switch backend {
	case "", "float32":
		return anyvec32.CurrentCreator(), nil
	case "float64":
		return anyvec64.CurrentCreator(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (have float32, float64)", backend)
	}
}

// A RunResult holds everything the rendering stage needs: the trained
// model, the data splits, the shared evaluation grid, and the ordered
// checkpoint snapshots.
type RunResult struct {
	Model   *Classifier
	Dataset *Dataset
	Train   []Sample
	Test    []Sample

	Grid        *Grid
	Checkpoints []Checkpoint
}

// Run executes the whole pipeline: synthesize the dataset, split it, build
// the evaluation grid, train for cfg.Epochs epochs, and capture the
// decision surface at epoch 0 plus every scheduled checkpoint boundary, in
// increasing epoch order.  Each checkpoint is captured only after its
// epoch has fully completed.
func Run(cfg RunConfig) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	creator, err := CreatorFor(cfg.Backend)
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(cfg.Seed))

	dataset := Generate(cfg.Radii, cfg.Samples, cfg.NoiseStd, r)
	train, test := dataset.Split(cfg.TrainFrac, r)

	grid := MakeGrid(DataExtent(dataset), cfg.GridPoints)

	model := NewClassifier(creator, cfg.HiddenUnits, dataset.NumClasses(), r)
	trainer := &anyff.Trainer{
		Net:     model.SoftmaxNet(),
		Cost:    anynet.DotCost{},
		Params:  model.Parameters(),
		Average: true,
	}
	trainSamples := FFSamples(creator, train, dataset.NumClasses())
	rater := anysgd.ConstRater(cfg.LearningRate)

	// Snapshot schedule: ascending, deduplicated, limited to epochs that
	// will actually run.
	schedule := []int{}
	for _, ep := range cfg.Checkpoints {
		if ep <= cfg.Epochs {
			schedule = append(schedule, ep)
		}
	}
	slices.Sort(schedule)
	schedule = slices.Compact(schedule)

	checkpoints := []Checkpoint{{Epoch: 0, Probs: grid.Eval(model)}}

	next := 0
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := TrainEpoch(trainer, trainSamples, cfg.BatchSize, rater, epoch, cfg.Verbose); err != nil {
			return nil, fmt.Errorf("while training epoch %d: %w", epoch, err)
		}

		if next < len(schedule) && schedule[next] == epoch {
			checkpoints = append(checkpoints, Checkpoint{Epoch: epoch, Probs: grid.Eval(model)})
			next++
		}
	}

	return &RunResult{
		Model:       model,
		Dataset:     dataset,
		Train:       train,
		Test:        test,
		Grid:        grid,
		Checkpoints: checkpoints,
	}, nil
}
