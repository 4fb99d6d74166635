package model

// listFields are unioned as sets on merge instead of being overwritten.
var listFields = map[string]bool{
	"offer":           true,
	"target_groups":   true,
	"languages":       true,
	"billing":         true,
	"specialisations": true,
	"fsp_titles":      true,
}

// Merge folds incoming into base. A field of base is only replaced when it
// is absent or falsy (empty string, empty array, zero, nil, false); the six
// designated list fields are unioned as sets instead. The same rule applies
// whether base is a fresh seed or a previously merged record being
// re-scraped.
func Merge(base, incoming Profile) {
	for key, value := range incoming {
		if !truthy(base[key]) {
			base[key] = value
			continue
		}
		if !listFields[key] {
			continue
		}
		existing := base.List(key)
		added := Profile{key: value}.List(key)
		if len(added) == 0 {
			continue
		}
		base[key] = unionStrings(existing, added)
	}
}

// truthy mirrors JSON truthiness: nil, false, zero numbers, empty strings
// and empty collections all count as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case Profile:
		return len(t) > 0
	}
	return true
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
