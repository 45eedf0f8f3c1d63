package prediction

// Confidence derives a top-line score in [0,1] from normalized results. Each
// probability vector offers its maximum and each binary result its value; a
// candidate outside [0,1] (logits, unscaled scores) is dropped rather than
// replaced by a smaller element. It is a heuristic summary, not a calibrated
// probability. Returns 0 when no result offers a candidate.
func Confidence(results map[string]Result) float64 {
	confidence := 0.0
	for _, r := range results {
		switch r := r.(type) {
		case MultiClass:
			if len(r.Probabilities) == 0 {
				continue
			}
			top := r.Probabilities[0]
			for _, p := range r.Probabilities[1:] {
				if p > top {
					top = p
				}
			}
			if inUnitRange(top) && top > confidence {
				confidence = top
			}
		case Binary:
			if inUnitRange(r.Value) && r.Value > confidence {
				confidence = r.Value
			}
		}
	}
	return confidence
}

func inUnitRange(v float64) bool { return v >= 0 && v <= 1 }
