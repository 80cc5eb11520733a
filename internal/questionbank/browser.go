package questionbank

import (
	"context"
	"sync"
)

// Entry is a question bank row as listed by the search endpoint.
type Entry struct {
	ID              string   `json:"id"`
	HumanReadableID string   `json:"human_readable_id,omitempty"`
	QuestionText    string   `json:"question_text"`
	Difficulty      int      `json:"difficulty"`
	QuestionType    string   `json:"question_type"`
	Subject         string   `json:"subject,omitempty"`
	Boards          []string `json:"boards,omitempty"`
	CourseTypes     []string `json:"course_types,omitempty"`
	Levels          []string `json:"levels,omitempty"`
	Grade           string   `json:"grade,omitempty"`
	Topic           string   `json:"topic,omitempty"`
	Subtopic        string   `json:"subtopic,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	IsPYQ           bool     `json:"is_pyq"`
	TotalMarks      int      `json:"total_marks"`
	PYQYear         *int     `json:"pyq_year,omitempty"`
	QAStatus        string   `json:"qa_status,omitempty"`
	PriorityLevel   string   `json:"priority_level,omitempty"`
	IsFlagged       bool     `json:"is_flagged,omitempty"`
}

// Page is one server-paginated result. It is used as returned; nothing is
// filtered client-side.
type Page struct {
	Questions      []Entry `json:"questions"`
	Total          int     `json:"total"`
	TotalQuestions int     `json:"totalQuestions"`
	Page           int     `json:"page"`
	Limit          int     `json:"limit"`
	TotalPages     int     `json:"totalPages"`
}

// Searcher runs a query against the question bank.
type Searcher interface {
	SearchQuestions(ctx context.Context, q Query) (Page, error)
}

// Browser keeps the current search, filter and pagination. Changing the
// search, the filter or the page size returns to page 1.
type Browser struct {
	client Searcher

	mu         sync.Mutex
	query      Query
	totalPages int
}

func NewBrowser(client Searcher, limit int) *Browser {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Browser{client: client, query: Query{Page: 1, Limit: min(limit, MaxLimit)}}
}

// Query returns the query the next Fetch will send.
func (b *Browser) Query() Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// SetSearch replaces the search term. It reports whether anything changed.
func (b *Browser) SetSearch(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.query.Search == s {
		return false
	}
	b.query.Search = s
	b.query.Page = 1
	return true
}

// SetFilter replaces the filter. It reports whether the selection changed.
func (b *Browser) SetFilter(f Filter) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.query.Filter.Equal(f) {
		return false
	}
	b.query.Filter = f
	b.query.Page = 1
	return true
}

// SetLimit changes the page size.
func (b *Browser) SetLimit(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	n = max(1, min(n, MaxLimit))
	if b.query.Limit == n {
		return false
	}
	b.query.Limit = n
	b.query.Page = 1
	return true
}

// SetPage moves to page n, clamped to the last page seen.
func (b *Browser) SetPage(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.totalPages > 0 {
		n = min(n, b.totalPages)
	}
	b.query.Page = max(1, n)
}

func (b *Browser) NextPage() { b.SetPage(b.Query().Page + 1) }
func (b *Browser) PrevPage() { b.SetPage(b.Query().Page - 1) }

// Fetch runs the current query and adopts the server's pagination.
func (b *Browser) Fetch(ctx context.Context) (Page, error) {
	q := b.Query()
	p, err := b.client.SearchQuestions(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if p.TotalQuestions == 0 {
		p.TotalQuestions = p.Total
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// A concurrent filter change wins over this response.
	if b.query.Filter.Equal(q.Filter) && b.query.Search == q.Search {
		if p.Page > 0 {
			b.query.Page = p.Page
		}
		if p.Limit > 0 {
			b.query.Limit = p.Limit
		}
		b.totalPages = p.TotalPages
	}
	return p, nil
}
