package api

import "encoding/json"

// Envelope is the `{success, data, message, errors, meta}` wrapper
// every endpoint returns. Bodies lacking an explicit success field are
// wrapped as `{success: true, data: <body>}` by the client.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
	Meta    *Meta           `json:"meta,omitempty"`
}

// Meta carries pagination info on list responses.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Decode unmarshals the envelope's data payload into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
