package rings

import (
	"errors"
	"fmt"
	"log"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anyff"
	"github.com/unixpickle/anynet/anysgd"
)

// TrainEpoch performs one full pass of minibatch gradient descent over the
// sample list: shuffle, then for each batch compute the cost, backpropagate
// into a zeroed gradient, and apply one SGD update scaled by the rater's
// learning rate for this epoch.
//
// Every batch propagates into a freshly allocated zero gradient.
// Backpropagation accumulates, so reusing a gradient across batches would
// fold stale gradients into the update.
//
// The caller owns the total epoch count and calls TrainEpoch once per
// epoch.  With verbose set, the cost is logged every 100th batch.
func TrainEpoch(tr *anyff.Trainer, samples anyff.SliceSampleList, batchSize int, rater anysgd.Rater, epoch int, verbose bool) error {
	if samples.Len() == 0 {
		return errors.New("cannot train on an empty sample list")
	}
	if len(tr.Params) == 0 {
		return errors.New("trainer has no parameters to update")
	}
	if batchSize <= 0 || batchSize > samples.Len() {
		batchSize = samples.Len()
	}

	creator := tr.Params[0].Vector.Creator()
	rate := rater.Rate(float64(epoch - 1))

	anysgd.Shuffle(samples)

	for start, batchIdx := 0, 0; start < samples.Len(); start, batchIdx = start+batchSize, batchIdx+1 {
		end := start + batchSize
		if end > samples.Len() {
			end = samples.Len()
		}

		batch, err := tr.Fetch(samples.Slice(start, end))
		if err != nil {
			return fmt.Errorf("while fetching batch %d: %w", batchIdx, err)
		}

		cost := tr.TotalCost(batch)
		if verbose && batchIdx%100 == 0 {
			log.Printf("epoch %d loss=%f [%d/%d]", epoch, vecFloats(cost.Output())[0], end, samples.Len())
		}

		grad := anydiff.NewGrad(tr.Params...)
		upstream := creator.MakeVectorData(creator.MakeNumericList([]float64{1}))
		cost.Propagate(upstream, grad)

		grad.Scale(creator.MakeNumeric(-rate))
		grad.AddToVars()
	}

	return nil
}
