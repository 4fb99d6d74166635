package journal

import "regexp"

var specialChars = regexp.MustCompile(`[^\w\s\-]`)

// Analysis buckets journaled failures by the name patterns that typically
// break slug construction.
type Analysis struct {
	Total        int
	EmptyNames   []FailedURL
	SpecialChars []FailedURL
	Hyphenated   []FailedURL
	LongNames    []FailedURL
}

// Analyze classifies records; one record can land in several buckets except
// that empty names are terminal.
func Analyze(records []FailedURL) Analysis {
	a := Analysis{Total: len(records)}
	for _, r := range records {
		if r.Firstname == "" || r.Lastname == "" {
			a.EmptyNames = append(a.EmptyNames, r)
			continue
		}
		if specialChars.MatchString(r.Firstname) || specialChars.MatchString(r.Lastname) {
			a.SpecialChars = append(a.SpecialChars, r)
		}
		if containsHyphen(r.Firstname) || containsHyphen(r.Lastname) {
			a.Hyphenated = append(a.Hyphenated, r)
		}
		if len(r.Firstname) > 20 || len(r.Lastname) > 20 {
			a.LongNames = append(a.LongNames, r)
		}
	}
	return a
}

func containsHyphen(s string) bool {
	for _, r := range s {
		if r == '-' {
			return true
		}
	}
	return false
}
