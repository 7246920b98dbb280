// Package listquery turns list-view query strings (search, start, end, sort,
// column, page) into SQL predicates, ordering and paging for Postgres.
//
// Every list endpoint parses its parameters through Parse, and every list
// statement is constructed from a Spec, so soft-deleted rows are excluded in
// one place.
package listquery

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/dentalclinic-api/pkg/timeutil"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"

	// DateLayout is the civil-date format accepted by start and end.
	DateLayout = "2006-01-02"

	// DefaultPageSize is the fixed number of rows per page.
	DefaultPageSize = 10

	// MaxPage bounds the page number so the offset stays well inside int range.
	MaxPage = 1_000_000
)

// Params holds the parsed list parameters.
type Params struct {
	Search string
	// Start is the inclusive lower bound.
	Start *time.Time
	// End is the exclusive upper bound: midnight after the requested end day.
	End    *time.Time
	Sort   string
	Column string
	Page   int
}

// Parse reads the recognised list parameters from values. Unknown parameters
// are ignored, malformed dates are dropped and page falls back to 1.
func Parse(values url.Values, loc *time.Location) Params {
	if loc == nil {
		loc = time.UTC
	}

	p := Params{
		Search: strings.TrimSpace(values.Get("search")),
		Sort:   ParseSort(values.Get("sort")),
		Column: strings.ToLower(strings.TrimSpace(values.Get("column"))),
		Page:   ParsePage(values.Get("page")),
	}

	if start, ok := ParseDate(values.Get("start"), loc); ok {
		p.Start = &start
	}
	if end, ok := ParseDate(values.Get("end"), loc); ok {
		next := end.AddDate(0, 0, 1)
		p.End = &next
	}

	return p
}

// ParsePage returns the 1-based page number, or 1 for anything that is not a
// positive integer up to MaxPage.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > MaxPage {
		return 1
	}
	return n
}

// ParseSort returns "asc" or "desc"; the default is "desc".
func ParseSort(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), SortAsc) {
		return SortAsc
	}
	return SortDesc
}

// ParseDate parses a civil date as midnight in loc. RFC3339 timestamps are
// accepted and truncated to their civil date in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := timeutil.ParseCivilDate(raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Offset returns pageSize * (page - 1). Pages whose offset would overflow are
// treated as page 1.
func (p Params) Offset(pageSize int) int {
	page := p.Page
	if page < 1 || pageSize <= 0 || page-1 > math.MaxInt/pageSize {
		page = 1
	}
	return pageSize * (page - 1)
}

// NotDeleted returns the soft-delete predicate for a table alias.
func NotDeleted(alias string) string {
	if alias == "" {
		return "deleted_at IS NULL"
	}
	return alias + ".deleted_at IS NULL"
}

// Builder accumulates AND-ed conditions with positional arguments.
type Builder struct {
	conds []string
	args  []interface{}
}

// Arg registers v and returns its placeholder.
func (b *Builder) Arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Where adds a condition. Placeholders inside cond must come from Arg.
func (b *Builder) Where(cond string) {
	b.conds = append(b.conds, cond)
}

// Args returns the collected arguments.
func (b *Builder) Args() []interface{} {
	return b.args
}

// Clause renders "WHERE a AND b", or an empty string.
func (b *Builder) Clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// Filter adds an entity specific condition to a Builder.
type Filter func(b *Builder)

// Eq filters column = v.
func Eq(column string, v interface{}) Filter {
	return func(b *Builder) {
		b.Where(column + " = " + b.Arg(v))
	}
}

// Spec describes how an entity is listed.
type Spec struct {
	// SoftDelete lists the table aliases whose deleted rows are excluded.
	SoftDelete []string
	// SearchColumns are matched case-insensitively and OR-ed together.
	SearchColumns []string
	// SearchID, when set, is matched exactly if the search term is an integer.
	SearchID string
	// DateColumn is the column bounded by start/end.
	DateColumn string
	// DateOnly marks DateColumn as a DATE column; bounds are then sent as
	// civil dates instead of instants.
	DateOnly bool
	// Columns maps logical sort names to SQL expressions.
	Columns      map[string]string
	DefaultOrder string
	// TieBreaker keeps pages disjoint when the sort expression has ties.
	TieBreaker string
}

// Query is a built list statement fragment.
type Query struct {
	Where   string
	Args    []interface{}
	OrderBy string
	Limit   int
	Offset  int
}

// PageClause renders LIMIT/OFFSET.
func (q Query) PageClause() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", q.Limit, q.Offset)
}

// Build constructs the predicate, ordering and page window for p.
func (s Spec) Build(p Params, pageSize int, filters ...Filter) Query {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	b := &Builder{}
	for _, alias := range s.SoftDelete {
		b.Where(NotDeleted(alias))
	}

	if p.Search != "" && len(s.SearchColumns) > 0 {
		ph := b.Arg("%" + escapeLike(p.Search) + "%")
		parts := make([]string, 0, len(s.SearchColumns)+1)
		for _, col := range s.SearchColumns {
			parts = append(parts, col+" ILIKE "+ph)
		}
		if s.SearchID != "" {
			if id, err := strconv.ParseInt(p.Search, 10, 64); err == nil {
				parts = append(parts, s.SearchID+" = "+b.Arg(id))
			}
		}
		b.Where("(" + strings.Join(parts, " OR ") + ")")
	}

	if s.DateColumn != "" {
		if p.Start != nil {
			b.Where(s.DateColumn + " >= " + s.dateArg(b, *p.Start))
		}
		if p.End != nil {
			b.Where(s.DateColumn + " < " + s.dateArg(b, *p.End))
		}
	}

	for _, f := range filters {
		f(b)
	}

	return Query{
		Where:   b.Clause(),
		Args:    b.Args(),
		OrderBy: s.orderBy(p),
		Limit:   pageSize,
		Offset:  p.Offset(pageSize),
	}
}

func (s Spec) dateArg(b *Builder, t time.Time) string {
	if s.DateOnly {
		return b.Arg(t.Format(DateLayout)) + "::date"
	}
	return b.Arg(t)
}

func (s Spec) orderBy(p Params) string {
	expr := s.DefaultOrder
	if col, ok := s.Columns[p.Column]; ok {
		expr = col
	}

	dir := "DESC"
	if p.Sort == SortAsc {
		dir = "ASC"
	}

	keys := make([]string, 0, 2)
	if expr != "" {
		keys = append(keys, expr+" "+dir)
	}
	if s.TieBreaker != "" && s.TieBreaker != expr {
		keys = append(keys, s.TieBreaker+" "+dir)
	}
	if len(keys) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(keys, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Page is one page of a list result.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// TotalPages rounds Total up to whole pages.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
