package prediction

import (
	"math"
	"strconv"

	"github.com/Brownie44l1/medscan-api/internal/tensor"
)

// Normalize converts a model's output tensor into a Result. It never fails:
// output it cannot interpret comes back as Raw.
func Normalize(out tensor.Tensor, mapping ClassMapping) Result {
	values := widen(out.Data)
	if len(values) == 0 {
		return Raw{Values: values}
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Raw{Values: values}
		}
	}

	if n := out.Trailing(); n > 1 {
		if int64(len(values)) < n {
			return Raw{Values: values}
		}
		probs := values[:n]
		idx := argmax(probs)
		return MultiClass{
			ClassIndex:    idx,
			Label:         mapping.Label(idx),
			Probabilities: probs,
		}
	}

	value := values[0]
	result := Binary{Value: value}
	if mapping.Binary() {
		if value >= 0.5 {
			result.Label = mapping.Label(1)
		} else {
			result.Label = mapping.Label(0)
		}
	}
	return result
}

func argmax(values []float64) int {
	idx := 0
	for i, v := range values {
		if v > values[idx] {
			idx = i
		}
	}
	return idx
}

// widen converts float32 scores to the shortest float64 that prints the same,
// so 0.9f is reported as 0.9 rather than 0.8999999761581421.
func widen(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		f := float64(v)
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			f, _ = strconv.ParseFloat(strconv.FormatFloat(f, 'g', -1, 32), 64)
		}
		out[i] = f
	}
	return out
}
