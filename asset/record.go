package asset

// Record field names read or written during publishing.
const (
	FieldNormalTexturePath   = "normalTexturePath"
	FieldAlbedoTexturePath   = "albedoTexturePath"
	FieldEmissionTexturePath = "emissionTexturePath"
	FieldReceptacleCandidate = "receptacleCandidate"
	FieldAnnotations         = "annotations"
	FieldAction              = "action"
	FieldName                = "name"
)

// Record is the decoded asset description handed to the engine.
type Record map[string]any

// String returns the field as a string; ok is false when absent or not a string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Bool returns the field as a bool; absent or non-bool values read as false.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Clone returns a shallow copy of the top-level mapping.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Subset returns only the listed keys that are present.
func (r Record) Subset(keys ...string) Record {
	out := make(Record, len(keys))
	for _, k := range keys {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}
