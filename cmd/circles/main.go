// Command circles trains a small classifier on noisy concentric rings of
// 2-D points and renders the model's decision surface at selected epochs.
//
// To run the canonical experiment: `go run ./cmd/circles run --out=circles.png`
//
// To re-render a saved model: `go run ./cmd/circles render --weights=circles.safetensors`
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/ahmedtd/circles/rings"
	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&RunCommand{}, "")
	subcommands.Register(&RenderCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

type RunCommand struct {
	radii        string
	samples      int
	noiseStd     float64
	trainFrac    float64
	hidden       int
	batchSize    int
	epochs       int
	learningRate float64
	gridPoints   int
	checkpoints  string
	seed         int64
	backend      string
	verbose      bool

	outFile          string
	outputWeightFile string
	dumpFieldFile    string

	cpuProfileFile string
}

var _ subcommands.Command = (*RunCommand)(nil)

func (*RunCommand) Name() string {
	return "run"
}

func (*RunCommand) Synopsis() string {
	return "Generate the ring dataset, train the model, and render decision surfaces"
}

func (*RunCommand) Usage() string {
	return ``
}

func (c *RunCommand) SetFlags(f *flag.FlagSet) {
	def := rings.DefaultRunConfig()

	f.StringVar(&c.radii, "radii", "1,2,3,4,5,6", "Comma-separated ring radii; one class per radius")
	f.IntVar(&c.samples, "samples", 0, "Total sample count (default 50 per ring)")
	f.Float64Var(&c.noiseStd, "noise-std", float64(def.NoiseStd), "Standard deviation of the radial noise")
	f.Float64Var(&c.trainFrac, "train-frac", def.TrainFrac, "Fraction of samples assigned to the training split")
	f.IntVar(&c.hidden, "hidden", def.HiddenUnits, "Hidden layer width")
	f.IntVar(&c.batchSize, "batch-size", def.BatchSize, "Minibatch size")
	f.IntVar(&c.epochs, "epochs", def.Epochs, "Number of training epochs")
	f.Float64Var(&c.learningRate, "learning-rate", def.LearningRate, "SGD learning rate")
	f.IntVar(&c.gridPoints, "grid-points", def.GridPoints, "Evaluation mesh resolution per axis")
	f.StringVar(&c.checkpoints, "checkpoints", "10,20,50,100,500", "Comma-separated epochs to snapshot (epoch 0 is always included)")
	f.Int64Var(&c.seed, "seed", def.Seed, "Random seed")
	f.StringVar(&c.backend, "backend", def.Backend, "Numeric backend (float32 or float64)")
	f.BoolVar(&c.verbose, "verbose", false, "Log the training loss every 100th batch")

	f.StringVar(&c.outFile, "out", "circles.png", "Path to write the tiled decision-surface figure")
	f.StringVar(&c.outputWeightFile, "output-weight-file", "", "Path to save trained weights (safetensors format)")
	f.StringVar(&c.dumpFieldFile, "dump-field", "", "Path to dump the final probability field (npy format)")

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *RunCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *RunCommand) executeErr(ctx context.Context) error {
	if c.cpuProfileFile != "" {
		f, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	radii, err := parseFloats(c.radii)
	if err != nil {
		return fmt.Errorf("while parsing --radii: %w", err)
	}
	checkpoints, err := parseInts(c.checkpoints)
	if err != nil {
		return fmt.Errorf("while parsing --checkpoints: %w", err)
	}

	cfg := rings.DefaultRunConfig()
	cfg.Radii = radii
	cfg.Samples = c.samples
	if cfg.Samples == 0 {
		cfg.Samples = 50 * len(radii)
	}
	cfg.NoiseStd = float32(c.noiseStd)
	cfg.TrainFrac = c.trainFrac
	cfg.HiddenUnits = c.hidden
	cfg.BatchSize = c.batchSize
	cfg.Epochs = c.epochs
	cfg.LearningRate = c.learningRate
	cfg.GridPoints = c.gridPoints
	cfg.Checkpoints = checkpoints
	cfg.Seed = c.seed
	cfg.Backend = c.backend
	cfg.Verbose = c.verbose

	res, err := rings.Run(cfg)
	if err != nil {
		return err
	}

	log.Printf("training done training-pct=%.1f testing-pct=%.1f",
		res.Model.Accuracy(res.Train)*100,
		res.Model.Accuracy(res.Test)*100,
	)

	if err := rings.RenderPanels(res, c.outFile); err != nil {
		return fmt.Errorf("while rendering decision surfaces: %w", err)
	}
	log.Printf("wrote %d panels to %s", len(res.Checkpoints), c.outFile)

	if c.outputWeightFile != "" {
		if err := c.writeWeights(res); err != nil {
			return fmt.Errorf("while saving weights: %w", err)
		}
	}

	if c.dumpFieldFile != "" {
		if err := c.dumpField(res); err != nil {
			return fmt.Errorf("while dumping probability field: %w", err)
		}
	}

	return nil
}

func (c *RunCommand) writeWeights(res *rings.RunResult) error {
	f, err := os.Create(c.outputWeightFile)
	if err != nil {
		return fmt.Errorf("while creating weight file: %w", err)
	}
	defer f.Close()

	if err := rings.SaveWeights(f, res.Model); err != nil {
		return fmt.Errorf("while writing weight tensors: %w", err)
	}
	return nil
}

func (c *RunCommand) dumpField(res *rings.RunResult) error {
	f, err := os.Create(c.dumpFieldFile)
	if err != nil {
		return fmt.Errorf("while creating field file: %w", err)
	}
	defer f.Close()

	final := res.Checkpoints[len(res.Checkpoints)-1]
	return rings.WriteFieldNPY(f, final, res.Grid.NumPoints(), res.Dataset.NumClasses())
}

type RenderCommand struct {
	weightsFile string
	outFile     string
	epoch       int

	radii      string
	samples    int
	noiseStd   float64
	trainFrac  float64
	hidden     int
	gridPoints int
	seed       int64
	backend    string
}

var _ subcommands.Command = (*RenderCommand)(nil)

func (*RenderCommand) Name() string {
	return "render"
}

func (*RenderCommand) Synopsis() string {
	return "Render the decision surface of saved model weights"
}

func (*RenderCommand) Usage() string {
	return ``
}

func (c *RenderCommand) SetFlags(f *flag.FlagSet) {
	def := rings.DefaultRunConfig()

	f.StringVar(&c.weightsFile, "weights", "circles.safetensors", "Path to the weights produced by the run command")
	f.StringVar(&c.outFile, "out", "circles-final.png", "Path to write the decision-surface figure")
	f.IntVar(&c.epoch, "epoch", def.Epochs, "Epoch label for the panel title")

	f.StringVar(&c.radii, "radii", "1,2,3,4,5,6", "Comma-separated ring radii; must match the trained model")
	f.IntVar(&c.samples, "samples", 0, "Total sample count (default 50 per ring)")
	f.Float64Var(&c.noiseStd, "noise-std", float64(def.NoiseStd), "Standard deviation of the radial noise")
	f.Float64Var(&c.trainFrac, "train-frac", def.TrainFrac, "Fraction of samples assigned to the training split")
	f.IntVar(&c.hidden, "hidden", def.HiddenUnits, "Hidden layer width; must match the trained model")
	f.IntVar(&c.gridPoints, "grid-points", def.GridPoints, "Evaluation mesh resolution per axis")
	f.Int64Var(&c.seed, "seed", def.Seed, "Random seed; reuse the run seed to reproduce its scatter")
	f.StringVar(&c.backend, "backend", def.Backend, "Numeric backend (float32 or float64)")
}

func (c *RenderCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *RenderCommand) executeErr(ctx context.Context) error {
	radii, err := parseFloats(c.radii)
	if err != nil {
		return fmt.Errorf("while parsing --radii: %w", err)
	}
	samples := c.samples
	if samples == 0 {
		samples = 50 * len(radii)
	}

	creator, err := rings.CreatorFor(c.backend)
	if err != nil {
		return err
	}

	r := rand.New(rand.NewSource(c.seed))
	dataset := rings.Generate(radii, samples, float32(c.noiseStd), r)
	train, test := dataset.Split(c.trainFrac, r)

	model := rings.NewClassifier(creator, c.hidden, dataset.NumClasses(), r)
	if err := c.loadWeights(model); err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}

	grid := rings.MakeGrid(rings.DataExtent(dataset), c.gridPoints)

	res := &rings.RunResult{
		Model:       model,
		Dataset:     dataset,
		Train:       train,
		Test:        test,
		Grid:        grid,
		Checkpoints: []rings.Checkpoint{{Epoch: c.epoch, Probs: grid.Eval(model)}},
	}
	if err := rings.RenderPanels(res, c.outFile); err != nil {
		return fmt.Errorf("while rendering decision surface: %w", err)
	}
	log.Printf("wrote %s", c.outFile)

	return nil
}

func (c *RenderCommand) loadWeights(model *rings.Classifier) error {
	f, err := os.Open(c.weightsFile)
	if err != nil {
		return fmt.Errorf("while opening weights file: %w", err)
	}
	defer f.Close()

	return rings.LoadWeights(f, model)
}

func parseFloats(s string) ([]float32, error) {
	out := []float32{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", part, err)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	out := []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
