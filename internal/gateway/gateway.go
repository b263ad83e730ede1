// Package gateway is the typed facade over the document store. It owns the
// field mapping between domain values and the store's loosely-typed
// documents, including defaulting of absent optional fields and rejection of
// documents whose required enum fields do not parse. Rejected documents are
// dropped from result sets and logged; one bad ticket or message never
// blanks a whole list or thread.
package gateway

import (
	"time"

	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/store"
)

// Gateway translates between domain types and store documents. It carries no
// business logic; lifecycle rules live in the lifecycle package and thread
// ordering in the chat package.
type Gateway struct {
	store  store.Store
	logger *zap.Logger
}

// New constructs the gateway over any store backend.
func New(st store.Store, logger *zap.Logger) *Gateway {
	return &Gateway{store: st, logger: logger}
}

// fieldReport records which optional fields were substituted with defaults
// during a decode, so callers and tests can assert on partial data exactly.
type fieldReport struct {
	Defaulted []string
}

func (r *fieldReport) defaulted(field string) {
	r.Defaulted = append(r.Defaulted, field)
}

// timeValue accepts the two timestamp representations produced by the
// backends: native time.Time (memstore) and RFC 3339 strings (jsonb).
func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func boolValue(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func optionalString(fields map[string]any, key string) *string {
	if s, ok := stringValue(fields[key]); ok {
		return &s
	}
	return nil
}

func optionalTime(fields map[string]any, key string) *time.Time {
	if t, ok := timeValue(fields[key]); ok {
		return &t
	}
	return nil
}
