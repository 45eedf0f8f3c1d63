// Package prediction normalizes raw classifier output into labelled results
// and derives a confidence score from them.
package prediction

import (
	"encoding/json"
	"math"
)

// Kind discriminates the Result variants.
type Kind string

const (
	KindMultiClass Kind = "multiclass"
	KindBinary     Kind = "binary"
	KindRaw        Kind = "raw"
)

// Result is one of MultiClass, Binary or Raw.
type Result interface {
	Kind() Kind
	isResult()
}

// MultiClass is the arg-max reading of a probability vector.
type MultiClass struct {
	ClassIndex    int
	Label         *string
	Probabilities []float64
}

// Binary is a single score thresholded at 0.5.
type Binary struct {
	Value float64
	Label *string
}

// Raw carries output that could not be normalized.
type Raw struct {
	Values []float64
}

func (MultiClass) Kind() Kind { return KindMultiClass }
func (Binary) Kind() Kind     { return KindBinary }
func (Raw) Kind() Kind        { return KindRaw }

func (MultiClass) isResult() {}
func (Binary) isResult()     {}
func (Raw) isResult()        {}

func (r MultiClass) MarshalJSON() ([]byte, error) {
	probs := r.Probabilities
	if probs == nil {
		probs = []float64{}
	}
	return json.Marshal(struct {
		ClassIndex    int       `json:"class_index"`
		Label         *string   `json:"label"`
		Probabilities []float64 `json:"probabilities"`
	}{r.ClassIndex, r.Label, probs})
}

func (r Binary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value float64 `json:"value"`
		Label *string `json:"label"`
	}{r.Value, r.Label})
}

// MarshalJSON writes non-finite values as null.
func (r Raw) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(r.Values))
	for i := range r.Values {
		if v := r.Values[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			values[i] = &v
		}
	}
	return json.Marshal(struct {
		Raw []*float64 `json:"raw"`
	}{values})
}
