package prediction

import (
	"maps"
	"sort"
)

// Service names. Each names one model and one upload endpoint.
const (
	MRI  = "mri"
	XRay = "xray"
)

// ClassMapping maps a model's output index to a human-readable label.
type ClassMapping map[int]string

var mappings = map[string]ClassMapping{
	MRI: {
		0: "Notumor",
		1: "Glioma",
		2: "Meningioma",
		3: "Pituitary",
	},
	XRay: {
		0: "Normal",
		1: "Pneumonia",
	},
}

// Services lists every service with a class mapping, sorted.
func Services() []string {
	keys := make([]string, 0, len(mappings))
	for k := range mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MappingFor returns a copy of the class mapping for service, or nil.
func MappingFor(service string) ClassMapping {
	m, ok := mappings[service]
	if !ok {
		return nil
	}
	return maps.Clone(m)
}

// Label returns the label for index, or nil when it is unmapped.
func (m ClassMapping) Label(index int) *string {
	label, ok := m[index]
	if !ok {
		return nil
	}
	return &label
}

// Binary reports whether the mapping can label a single-score output.
func (m ClassMapping) Binary() bool {
	_, neg := m[0]
	_, pos := m[1]
	return neg && pos
}
