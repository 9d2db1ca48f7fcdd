package rings

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// Weight checkpoints use the safetensors container format: a
// little-endian uint64 header length, a JSON header mapping tensor names
// to dtype/shape/byte-offsets, then the packed little-endian float32
// data.

type safeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

type weightTensor struct {
	Shape []int
	V     []float32
}

// namedTensors extracts the classifier's FC parameters under the names
// net.<layer>.weights and net.<layer>.biases.
func (m *Classifier) namedTensors() map[string]weightTensor {
	tensors := map[string]weightTensor{}
	for l, layer := range m.Net {
		fc, ok := layer.(*anynet.FC)
		if !ok {
			continue
		}
		tensors[fmt.Sprintf("net.%d.weights", l)] = weightTensor{
			Shape: []int{fc.OutCount, fc.InCount},
			V:     vecFloats(fc.Weights.Vector),
		}
		tensors[fmt.Sprintf("net.%d.biases", l)] = weightTensor{
			Shape: []int{fc.OutCount},
			V:     vecFloats(fc.Biases.Vector),
		}
	}
	return tensors
}

// SaveWeights writes the classifier's parameters to w in safetensors
// format.
func SaveWeights(w io.Writer, m *Classifier) error {
	tensors := m.namedTensors()

	keys := []string{}
	for k := range tensors {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	header := map[string]safeTensorInfo{}
	dataOffset := 0
	for _, k := range keys {
		begin := dataOffset
		dataOffset += len(tensors[k].V) * 4
		header[k] = safeTensorInfo{
			DType:       "F32",
			Shape:       tensors[k].Shape,
			DataOffsets: []int{begin, dataOffset},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}
	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}

	return nil
}

// LoadWeights replaces m's parameters with tensors read from r.  The
// stored shapes must match the classifier's architecture.
func LoadWeights(r io.Reader, m *Classifier) error {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return fmt.Errorf("while reading header length: %w", err)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return fmt.Errorf("while reading header: %w", err)
	}
	header := map[string]safeTensorInfo{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return fmt.Errorf("while decoding header: %w", err)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("while reading tensor data: %w", err)
	}

	for l, layer := range m.Net {
		fc, ok := layer.(*anynet.FC)
		if !ok {
			continue
		}

		weights, err := readTensor(header, payload, fmt.Sprintf("net.%d.weights", l), []int{fc.OutCount, fc.InCount})
		if err != nil {
			return err
		}
		biases, err := readTensor(header, payload, fmt.Sprintf("net.%d.biases", l), []int{fc.OutCount})
		if err != nil {
			return err
		}

		setVector(fc.Weights.Vector, weights)
		setVector(fc.Biases.Vector, biases)
	}

	return nil
}

func readTensor(header map[string]safeTensorInfo, payload []byte, key string, wantShape []int) ([]float32, error) {
	info, ok := header[key]
	if !ok {
		return nil, fmt.Errorf("no entry for %s", key)
	}
	if info.DType != "F32" {
		return nil, fmt.Errorf("%s: unsupported dtype %s", key, info.DType)
	}
	if !slices.Equal(info.Shape, wantShape) {
		return nil, fmt.Errorf("%s: wrong shape; got %v, want %v", key, info.Shape, wantShape)
	}
	if len(info.DataOffsets) != 2 {
		return nil, fmt.Errorf("%s: malformed data offsets %v", key, info.DataOffsets)
	}

	begin, end := info.DataOffsets[0], info.DataOffsets[1]
	size := 1
	for _, s := range wantShape {
		size *= s
	}
	if begin < 0 || end > len(payload) || end-begin != size*4 {
		return nil, fmt.Errorf("%s: data offsets %v out of range", key, info.DataOffsets)
	}

	vals := make([]float32, size)
	if err := binary.Read(bytes.NewReader(payload[begin:end]), binary.LittleEndian, vals); err != nil {
		return nil, fmt.Errorf("%s: while decoding values: %w", key, err)
	}
	return vals, nil
}

// setVector overwrites a backend vector with float32 values, converting
// through the vector's own creator so either backend works.
func setVector(v anyvec.Vector, vals []float32) {
	asFloat64 := make([]float64, len(vals))
	for i, x := range vals {
		asFloat64[i] = float64(x)
	}
	v.SetData(v.Creator().MakeNumericList(asFloat64))
}
