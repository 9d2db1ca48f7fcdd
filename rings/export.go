package rings

import (
	"fmt"
	"io"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// WriteFieldNPY exports a checkpoint's probability field as a numpy .npy
// matrix with one row per grid point and one column per class, for
// offline analysis of the decision surface.
func WriteFieldNPY(w io.Writer, ck Checkpoint, numPoints, numClasses int) error {
	if len(ck.Probs) != numPoints*numClasses {
		return fmt.Errorf("field has %d values, want %d points x %d classes", len(ck.Probs), numPoints, numClasses)
	}

	data := make([]float64, len(ck.Probs))
	for i, p := range ck.Probs {
		data[i] = float64(p)
	}

	if err := npyio.Write(w, mat.NewDense(numPoints, numClasses, data)); err != nil {
		return fmt.Errorf("while writing npy matrix: %w", err)
	}
	return nil
}
