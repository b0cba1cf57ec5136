package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is fixed width so stored timestamps sort lexically in creation order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp is stored as UTC text and scanned back from text or native time columns.
type Timestamp struct{ time.Time }

func Now() Timestamp { return Timestamp{time.Now().UTC()} }

func (t Timestamp) Value() (driver.Value, error) {
	return t.UTC().Format(TimeLayout), nil
}

func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("timestamp: unsupported type %T", src)
}

func (t *Timestamp) parse(s string) error {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if p, err := time.Parse(layout, s); err == nil {
			t.Time = p.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: cannot parse %q", s)
}

// FieldValues holds per-category or per-platform values keyed by field name.
// Empty maps persist as NULL.
type FieldValues map[string]any

func (f FieldValues) Value() (driver.Value, error) {
	if len(f) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(map[string]any(f))
	return string(b), err
}

func (f *FieldValues) Scan(src any) error {
	return scanJSON(src, f)
}

// Platforms is the set of target marketplaces for a product.
type Platforms []string

func (p Platforms) Value() (driver.Value, error) {
	if p == nil {
		p = Platforms{}
	}
	b, err := json.Marshal([]string(p))
	return string(b), err
}

func (p *Platforms) Scan(src any) error {
	return scanJSON(src, p)
}

func (p Platforms) Has(name string) bool {
	for _, x := range p {
		if x == name {
			return true
		}
	}
	return false
}

func scanJSON(src, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("json column: unsupported type %T", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
