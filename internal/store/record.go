package store

import (
	"encoding/base64"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Brownie44l1/medscan-api/internal/prediction"
)

// Record is one prediction request as persisted. It is written once and
// never updated.
type Record struct {
	ID         string
	UserID     *string
	ImageData  []byte
	Result     map[string]prediction.Result
	Confidence float64
	CreatedAt  time.Time
}

// Document is a stored record as served to API callers. ImageData is only
// set, as base64 text, when the caller asked for the image.
type Document struct {
	ID         string                       `json:"id"`
	UserID     *string                      `json:"userId"`
	ImageData  *string                      `json:"imageData,omitempty"`
	Result     map[string]prediction.Result `json:"result"`
	Confidence float64                      `json:"confidence"`
	CreatedAt  string                       `json:"createdAt"`
}

type recordDoc struct {
	ID         string               `bson:"id"`
	UserID     *string              `bson:"userId"`
	ImageData  []byte               `bson:"imageData,omitempty"`
	Result     map[string]resultDoc `bson:"result"`
	Confidence float64              `bson:"confidence"`
	CreatedAt  string               `bson:"createdAt"`
}

// resultDoc decodes any stored variant. Encoding goes through MarshalBSON so
// each variant keeps its own keys.
type resultDoc struct {
	ClassIndex    *int      `bson:"class_index,omitempty"`
	Label         *string   `bson:"label"`
	Probabilities []float64 `bson:"probabilities,omitempty"`
	Value         *float64  `bson:"value,omitempty"`
	Raw           []float64 `bson:"raw"`
}

func (d resultDoc) MarshalBSON() ([]byte, error) {
	switch {
	case d.ClassIndex != nil:
		return bson.Marshal(bson.D{
			{Key: "class_index", Value: *d.ClassIndex},
			{Key: "label", Value: d.Label},
			{Key: "probabilities", Value: d.Probabilities},
		})
	case d.Value != nil:
		return bson.Marshal(bson.D{
			{Key: "value", Value: *d.Value},
			{Key: "label", Value: d.Label},
		})
	}
	raw := d.Raw
	if raw == nil {
		raw = []float64{}
	}
	return bson.Marshal(bson.D{{Key: "raw", Value: raw}})
}

func toDoc(rec *Record) recordDoc {
	results := make(map[string]resultDoc, len(rec.Result))
	for name, r := range rec.Result {
		results[name] = fromResult(r)
	}
	return recordDoc{
		ID:         rec.ID,
		UserID:     rec.UserID,
		ImageData:  rec.ImageData,
		Result:     results,
		Confidence: rec.Confidence,
		CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromResult(r prediction.Result) resultDoc {
	switch r := r.(type) {
	case prediction.MultiClass:
		idx := r.ClassIndex
		probs := r.Probabilities
		if probs == nil {
			probs = []float64{}
		}
		return resultDoc{ClassIndex: &idx, Label: r.Label, Probabilities: probs}
	case prediction.Binary:
		v := r.Value
		return resultDoc{Value: &v, Label: r.Label}
	case prediction.Raw:
		return resultDoc{Raw: r.Values}
	}
	return resultDoc{}
}

func (d resultDoc) toResult() prediction.Result {
	switch {
	case d.ClassIndex != nil:
		return prediction.MultiClass{ClassIndex: *d.ClassIndex, Label: d.Label, Probabilities: d.Probabilities}
	case d.Value != nil:
		return prediction.Binary{Value: *d.Value, Label: d.Label}
	}
	return prediction.Raw{Values: d.Raw}
}

func (d recordDoc) document(includeImage bool) *Document {
	results := make(map[string]prediction.Result, len(d.Result))
	for name, r := range d.Result {
		results[name] = r.toResult()
	}
	doc := &Document{
		ID:         d.ID,
		UserID:     d.UserID,
		Result:     results,
		Confidence: d.Confidence,
		CreatedAt:  d.CreatedAt,
	}
	if includeImage && d.ImageData != nil {
		encoded := base64.StdEncoding.EncodeToString(d.ImageData)
		doc.ImageData = &encoded
	}
	return doc
}
