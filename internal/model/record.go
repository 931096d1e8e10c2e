package model

// Record is a stored entity keyed by field name.
type Record map[string]any

// ID returns the record identifier, or "" when absent.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// String returns the string value of field, or "" when absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Recorder is implemented by request payloads that map onto a record.
type Recorder interface {
	Record() Record
}

// Page is the list envelope returned by every collection endpoint.
type Page struct {
	Data    []Record `json:"data"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Total   int64    `json:"total"`
	Results int      `json:"results"`
}

// MessageResponse is the body of errors and bare acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}
