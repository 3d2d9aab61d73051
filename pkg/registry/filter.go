package registry

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"gorm.io/gorm"
)

// filterExpr is the parsed form of a version filter query: one or more
// `field op value` clauses joined by AND. Fields are status, author and
// file_name; ops are = and !=. Values containing spaces or punctuation need
// double quotes, e.g. `status = draft AND file_name = "pump_7.l5x"`.
type filterExpr struct {
	First *filterClause   `parser:"@@"`
	Rest  []*filterClause `parser:"(('AND' | 'and') @@)*"`
}

type filterClause struct {
	Field string `parser:"@Ident"`
	Op    string `parser:"@('!' '=' | '=')"`
	Value string `parser:"@(String | Ident | Int)"`
}

var filterParser = participle.MustBuild[filterExpr]()

// filterColumns maps filter fields to version columns.
var filterColumns = map[string]string{
	"status":    "status",
	"author":    "author",
	"file_name": "file_name",
}

// VersionFilter narrows version listings.
type VersionFilter struct {
	clauses []*filterClause
}

// ParseVersionFilter parses a filter query. An empty query returns a nil
// filter, which Apply treats as a no-op.
func ParseVersionFilter(query string) (*VersionFilter, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	expr, err := filterParser.ParseString("", query)
	if err != nil {
		return nil, Validationf("invalid filter query: %v", err)
	}

	clauses := append([]*filterClause{expr.First}, expr.Rest...)
	for _, c := range clauses {
		field := strings.ToLower(c.Field)
		if _, ok := filterColumns[field]; !ok {
			return nil, Validationf("unknown filter field %q", c.Field)
		}
		c.Field = field

		if strings.HasPrefix(c.Value, `"`) {
			unquoted, err := strconv.Unquote(c.Value)
			if err != nil {
				return nil, Validationf("invalid filter value %s", c.Value)
			}
			c.Value = unquoted
		}
		if field == "status" {
			status, err := ParseStatus(c.Value)
			if err != nil {
				return nil, err
			}
			c.Value = string(status)
		}
	}
	return &VersionFilter{clauses: clauses}, nil
}

// Apply adds the filter's WHERE clauses to a versions query.
func (f *VersionFilter) Apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	for _, c := range f.clauses {
		column := filterColumns[c.Field]
		if c.Op == "=" {
			db = db.Where(column+" = ?", c.Value)
		} else {
			db = db.Where(column+" <> ?", c.Value)
		}
	}
	return db
}
