// Package model holds the canonical in-memory profile representation shared
// by the loader, extractor, merge engine and record mapper.
package model

import "encoding/json"

// Profile is one psychologist record in its JSON shape. It is a live view
// into the decoded vendor export tree: mutating a Profile mutates the tree,
// which is how scrape results and the scraped_at sentinel get written back
// into data/psychologie.ch.json without disturbing unknown keys.
type Profile map[string]any

// Str returns the string value for key, or "" when absent or not a string.
func (p Profile) Str(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int64 reads a numeric value regardless of how the JSON decoder typed it.
func (p Profile) Int64(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// Float64 reads a floating point value; string values are not coerced here,
// the record mapper handles lossy coordinate parsing itself.
func (p Profile) Float64(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// List returns the string elements of an array-valued field.
func (p Profile) List(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// User returns the nested user object, never nil.
func (p Profile) User() Profile {
	switch v := p["user"].(type) {
	case map[string]any:
		return Profile(v)
	case Profile:
		return v
	}
	return Profile{}
}

// FirstName and LastName prefer the nested user object, falling back to the
// flattened top-level keys some flows write.
func (p Profile) FirstName() string {
	if s := p.User().Str("firstname"); s != "" {
		return s
	}
	return p.Str("firstname")
}

func (p Profile) LastName() string {
	if s := p.User().Str("lastname"); s != "" {
		return s
	}
	return p.Str("lastname")
}

// ID returns the psychologist id, the natural key for resumability and
// failure journaling.
func (p Profile) ID() (int64, bool) {
	return p.Int64("id")
}

// UserID returns the id of the nested user object, or the flattened user_id.
func (p Profile) UserID() int64 {
	if id, ok := p.User().Int64("id"); ok {
		return id
	}
	id, _ := p.Int64("user_id")
	return id
}

// Scraped reports whether the record carries the scraped_at sentinel and is
// therefore skipped by merge-mode passes.
func (p Profile) Scraped() bool {
	_, ok := p["scraped_at"]
	return ok
}

// Clone returns a top-level copy. Merge never mutates nested values in
// place, so a shallow copy is enough to keep replace mode from annotating
// the loaded export tree.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
