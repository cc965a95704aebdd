package sources

import (
	"fmt"
	"slices"
	"strings"
)

// FilterFields lists the post fields a source filter may inspect.
var FilterFields = []string{"title", "excerpt", "content", "authors", "link", "categories"}

// Subject is anything the filters can be evaluated against: a freshly parsed
// feed entry or a post already stored for the source.
type Subject interface {
	FilterValues(field string) []string
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run marks entries rejected by the source filters. Filtered entries are kept
// so they can be stored hidden and re-evaluated when the filters change.
func (f *Filterer) Run(entries []Entry, sourceConfig *Config) []Entry {
	result := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.IsFiltered, entry.FilterReason = f.Evaluate(entry, sourceConfig.Filters)
		result = append(result, entry)
	}

	return result
}

// Evaluate reports whether subject is rejected and the reason. Rules apply in
// order and the first rejecting rule wins; within a rule excludes are checked
// before includes. Multi-valued fields match when any single value does.
func (f *Filterer) Evaluate(subject Subject, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		values := subject.FilterValues(filter.Field)

		if pattern, ok := firstMatch(values, filter.Excludes); ok {
			return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, pattern)
		}

		if len(filter.Includes) == 0 {
			continue
		}
		if _, ok := firstMatch(values, filter.Includes); !ok {
			return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
		}
	}

	return false, ""
}

// firstMatch returns the first pattern contained, case-insensitively, in any of values.
func firstMatch(values, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		needle := strings.ToLower(pattern)
		if slices.ContainsFunc(values, func(v string) bool {
			return strings.Contains(strings.ToLower(v), needle)
		}) {
			return pattern, true
		}
	}
	return "", false
}

// FilterValues implements Subject.
func (e Entry) FilterValues(field string) []string {
	switch field {
	case "title":
		return []string{e.Title}
	case "excerpt":
		return []string{e.Excerpt}
	case "content":
		return []string{e.Content}
	case "authors":
		return e.Authors
	case "link":
		return []string{e.Link}
	case "categories":
		return e.Categories
	default:
		return nil
	}
}
