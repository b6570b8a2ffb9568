package model

// Record is a schema-agnostic map for any data source.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Chunk is a bounded batch of records moving between pipeline stages.
// Seq is the producer-assigned chunk number and Start the absolute index
// of the first record, so every record carries an implicit sequence
// Start+offset that is unique and ordered across the whole run.
type Chunk struct {
	Seq     uint64   `json:"seq"`
	Start   uint64   `json:"start"`
	Records []Record `json:"records"`
}

// Transformer converts a raw record into its report form. It must be pure;
// a non-nil error drops the record without failing the chunk.
type Transformer func(Record) (Record, error)

// IdentityTransformer passes records through unchanged.
func IdentityTransformer(rec Record) (Record, error) {
	return rec, nil
}
