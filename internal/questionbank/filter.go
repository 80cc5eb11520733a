// Package questionbank composes question bank queries from structured
// filters and pages through the server's results.
package questionbank

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// anyValue is the "no filter" marker the web UI sends for unset facets.
const anyValue = "any"

// Range bounds the difficulty facet (1-10). A nil bound is open.
type Range struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Exact returns a range matching exactly one difficulty.
func Exact(d int) *Range {
	return &Range{Min: &d, Max: &d}
}

func (r *Range) empty() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// Filter selects question bank entries. The zero value matches everything;
// nil pointers and empty slices are unset facets.
type Filter struct {
	Boards        []string `json:"boards,omitempty"`
	CourseTypes   []string `json:"course_types,omitempty"`
	Levels        []string `json:"levels,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Subject       *string  `json:"subject,omitempty"`
	Topic         *string  `json:"topic,omitempty"`
	Grade         *string  `json:"grade,omitempty"`
	QuestionType  *string  `json:"question_type,omitempty"`
	QAStatus      *string  `json:"qa_status,omitempty"`
	PriorityLevel *string  `json:"priority_level,omitempty"`
	Difficulty    *Range   `json:"difficulty,omitempty"`
	PYQ           *bool    `json:"is_pyq,omitempty"`
	Flagged       *bool    `json:"is_flagged,omitempty"`
}

// Equal reports whether f and o select the same entries.
func (f Filter) Equal(o Filter) bool {
	return f.values().Encode() == o.values().Encode()
}

func (f Filter) values() url.Values {
	v := url.Values{}
	setList := func(key string, list []string) {
		var clean []string
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				clean = append(clean, s)
			}
		}
		if len(clean) > 0 {
			v.Set(key, strings.Join(clean, ","))
		}
	}
	setStr := func(key string, s *string) {
		if s != nil && strings.TrimSpace(*s) != "" {
			v.Set(key, strings.TrimSpace(*s))
		}
	}
	setBool := func(key string, b *bool) {
		if b != nil {
			v.Set(key, strconv.FormatBool(*b))
		}
	}

	setList("boards", f.Boards)
	setList("course_types", f.CourseTypes)
	setList("levels", f.Levels)
	setList("tags", f.Tags)
	setStr("subject", f.Subject)
	setStr("topic", f.Topic)
	setStr("grade", f.Grade)
	setStr("question_type", f.QuestionType)
	setStr("qa_status", f.QAStatus)
	setStr("priority_level", f.PriorityLevel)
	setBool("is_pyq", f.PYQ)
	setBool("is_flagged", f.Flagged)

	if r := f.Difficulty; !r.empty() {
		if r.Min != nil && r.Max != nil && *r.Min == *r.Max {
			v.Set("difficulty", strconv.Itoa(*r.Min))
		} else {
			if r.Min != nil {
				v.Set("difficulty_min", strconv.Itoa(*r.Min))
			}
			if r.Max != nil {
				v.Set("difficulty_max", strconv.Itoa(*r.Max))
			}
		}
	}
	return v
}

// Query is one page request against the question bank.
type Query struct {
	Search string
	Filter Filter
	Page   int
	Limit  int
}

// Values encodes q as request parameters. Unset facets and an empty search
// are omitted; page and limit are always present.
func (q Query) Values() url.Values {
	v := q.Filter.values()
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(min(limit, MaxLimit)))
	return v
}

// ParseQuery decodes request parameters into a Query. "any" and empty
// values mean unset.
func ParseQuery(v url.Values) (Query, error) {
	f, err := ParseFilter(v)
	if err != nil {
		return Query{}, err
	}
	q := Query{Search: strings.TrimSpace(v.Get("search")), Filter: f, Page: 1, Limit: DefaultLimit}
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Query{}, fmt.Errorf("invalid page %q", s)
		}
		q.Page = n
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxLimit {
			return Query{}, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	return q, nil
}

// ParseFilter is the inverse of the filter part of Query.Values.
func ParseFilter(v url.Values) (Filter, error) {
	var f Filter
	get := func(key string) string {
		s := strings.TrimSpace(v.Get(key))
		if strings.EqualFold(s, anyValue) {
			return ""
		}
		return s
	}
	list := func(key string) []string {
		s := get(key)
		if s == "" {
			return nil
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" && !slices.Contains(out, part) {
				out = append(out, part)
			}
		}
		return out
	}
	str := func(key string) *string {
		if s := get(key); s != "" {
			return &s
		}
		return nil
	}
	boolean := func(key, yes, no string) (*bool, error) {
		s := get(key)
		switch strings.ToLower(s) {
		case "":
			return nil, nil
		case "true", yes:
			b := true
			return &b, nil
		case "false", no:
			b := false
			return &b, nil
		}
		return nil, fmt.Errorf("invalid %s %q", key, s)
	}
	num := func(key string) (*int, error) {
		s := get(key)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 10 {
			return nil, fmt.Errorf("invalid %s %q", key, s)
		}
		return &n, nil
	}

	f.Boards = list("boards")
	f.CourseTypes = list("course_types")
	f.Levels = list("levels")
	f.Tags = list("tags")
	f.Subject = str("subject")
	f.Topic = str("topic")
	f.Grade = str("grade")
	f.QuestionType = str("question_type")
	f.QAStatus = str("qa_status")
	f.PriorityLevel = str("priority_level")

	var err error
	if f.PYQ, err = boolean("is_pyq", "pyq", "practice"); err != nil {
		return Filter{}, err
	}
	if f.Flagged, err = boolean("is_flagged", "flagged", "unflagged"); err != nil {
		return Filter{}, err
	}

	exact, err := num("difficulty")
	if err != nil {
		return Filter{}, err
	}
	if exact != nil {
		f.Difficulty = Exact(*exact)
		return f, nil
	}
	lo, err := num("difficulty_min")
	if err != nil {
		return Filter{}, err
	}
	hi, err := num("difficulty_max")
	if err != nil {
		return Filter{}, err
	}
	if lo != nil && hi != nil && *lo > *hi {
		return Filter{}, fmt.Errorf("difficulty_min %d exceeds difficulty_max %d", *lo, *hi)
	}
	if lo != nil || hi != nil {
		f.Difficulty = &Range{Min: lo, Max: hi}
	}
	return f, nil
}
