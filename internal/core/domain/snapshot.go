package domain

import (
	"net/http"
	"time"
)

// Snapshot is a fully buffered response. It is what strategies return and what
// cache regions store.
type Snapshot struct {
	Status   int            `json:"status"`
	Header   http.Header    `json:"header,omitempty"`
	Body     []byte         `json:"body,omitempty"`
	StoredAt time.Time      `json:"stored_at,omitzero"`
	Source   ResponseSource `json:"-"`
}

// OK reports a 2xx status.
func (s *Snapshot) OK() bool {
	return s != nil && s.Status >= 200 && s.Status < 300
}

// Clone returns a deep copy so a cached copy never aliases a served one.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Header = s.Header.Clone()
	if s.Body != nil {
		out.Body = append([]byte(nil), s.Body...)
	}
	return &out
}

// WithSource returns a copy tagged with src.
func (s *Snapshot) WithSource(src ResponseSource) *Snapshot {
	out := s.Clone()
	out.Source = src
	return out
}

// Empty builds a bodiless response with the given status.
func Empty(status int) *Snapshot {
	return &Snapshot{Status: status, Header: http.Header{}, Source: SourceOffline}
}
