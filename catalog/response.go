package catalog

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
)

// BodyKind records whether an upstream body parsed as JSON.
type BodyKind int

const (
	BodyJSON BodyKind = iota
	BodyRaw
)

func (k BodyKind) String() string {
	if k == BodyJSON {
		return "json"
	}
	return "raw"
}

// Cache-Control values for relayed catalog responses
const (
	// CacheNoStore is used whenever a user token was sent: the response is user-specific
	CacheNoStore = "no-store"
	// CacheShared lets an edge cache share successful app-token responses briefly
	CacheShared = "s-maxage=60, stale-while-revalidate=300"
)

// Response is an upstream catalog answer, relayed with its status unchanged.
// Bodies that are not valid JSON are kept raw rather than rejected, so upstream
// error pages are never mistaken for client errors.
type Response struct {
	Status       int
	Kind         BodyKind
	JSON         json.RawMessage // set when Kind == BodyJSON
	Raw          []byte          // set when Kind == BodyRaw
	ContentType  string
	CacheControl string // empty means no caching directive
	UserScoped   bool
}

func newResponse(status int, contentType string, body []byte) Response {
	r := Response{Status: status, ContentType: contentType}
	if json.Valid(body) {
		r.Kind = BodyJSON
		r.JSON = json.RawMessage(body)
	} else {
		r.Kind = BodyRaw
		r.Raw = body
	}
	return r
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

func (r Response) Body() []byte {
	if r.Kind == BodyJSON {
		return r.JSON
	}
	return r.Raw
}

// Decode unmarshals a successful JSON body into v. Non-2xx responses come back
// as *errors.UpstreamError.
func (r Response) Decode(v any) error {
	if !r.OK() {
		return &apperrors.UpstreamError{Status: r.Status, Body: r.Body(), ContentType: r.ContentType}
	}
	if r.Kind != BodyJSON {
		return fmt.Errorf("[catalog Response Decode] expected JSON body, got %d raw bytes", len(r.Raw))
	}
	if err := json.Unmarshal(r.JSON, v); err != nil {
		return fmt.Errorf("[catalog Response Decode] %w", err)
	}
	return nil
}

// CacheControlFor picks the directive for a response derived from catalog data.
func CacheControlFor(userScoped, ok bool) string {
	switch {
	case userScoped:
		return CacheNoStore
	case ok:
		return CacheShared
	}
	return ""
}
