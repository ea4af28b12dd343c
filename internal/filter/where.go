package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/vburojevic/pricewatch/internal/domain"
)

// Fields accepted on the left side of a where clause
var Fields = []string{"type", "level", "outcome", "status", "message", "session", "check"}

// WhereClause represents a parsed --where condition
type WhereClause struct {
	Field    string
	Operator string
	Value    string
	regex    *regexp.Regexp // compiled for ~ and !~
}

// ParseWhereClause parses a clause like "level>=warn" or "message~Drop"
// Supported operators: =, !=, ~, !~, >=, <=, ^, $
func ParseWhereClause(clause string) (*WhereClause, error) {
	// longest first to avoid partial matches
	operators := []string{"!~", ">=", "<=", "!=", "~", "=", "^", "$"}

	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx <= 0 {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(clause[:idx]))
		value := strings.TrimSpace(clause[idx+len(op):])

		if field == "" || value == "" {
			return nil, fmt.Errorf("invalid where clause: %s", clause)
		}
		if !lo.Contains(Fields, field) {
			return nil, fmt.Errorf("unknown field %q in where clause (use %s)", field, strings.Join(Fields, ", "))
		}
		if (op == ">=" || op == "<=") && field != "level" && field != "check" {
			return nil, fmt.Errorf("operator %s only applies to level or check: %s", op, clause)
		}

		wc := &WhereClause{Field: field, Operator: op, Value: value}
		if op == "~" || op == "!~" {
			re, err := regexp.Compile(value)
			if err != nil {
				return nil, fmt.Errorf("invalid regex in where clause '%s': %w", clause, err)
			}
			wc.regex = re
		}
		return wc, nil
	}

	return nil, fmt.Errorf("no valid operator found in where clause: %s (use =, !=, ~, !~, >=, <=, ^, $)", clause)
}

// Match checks if an event matches this clause
func (wc *WhereClause) Match(ev *domain.Event) bool {
	fieldValue := wc.fieldValue(ev)

	switch wc.Operator {
	case "=":
		return fieldValue == wc.Value
	case "!=":
		return fieldValue != wc.Value
	case "~":
		return wc.regex.MatchString(fieldValue)
	case "!~":
		return !wc.regex.MatchString(fieldValue)
	case "^":
		return strings.HasPrefix(fieldValue, wc.Value)
	case "$":
		return strings.HasSuffix(fieldValue, wc.Value)
	case ">=":
		return wc.compare(ev, true)
	case "<=":
		return wc.compare(ev, false)
	}
	return false
}

func (wc *WhereClause) fieldValue(ev *domain.Event) string {
	switch wc.Field {
	case "type":
		return string(ev.Type)
	case "level":
		return string(ev.Level)
	case "outcome":
		return string(ev.Outcome)
	case "status":
		return string(ev.Status)
	case "message":
		return ev.Message
	case "session":
		return ev.SessionID
	case "check":
		return strconv.Itoa(ev.Check)
	}
	return ""
}

// compare handles >= and <= on levels and check numbers. Events without a
// level never match a level comparison.
func (wc *WhereClause) compare(ev *domain.Event, greaterOrEqual bool) bool {
	var have, want int
	switch wc.Field {
	case "level":
		if ev.Level == "" {
			return false
		}
		have, want = ev.Level.Priority(), domain.ParseLevel(wc.Value).Priority()
	case "check":
		n, err := strconv.Atoi(wc.Value)
		if err != nil {
			return false
		}
		have, want = ev.Check, n
	default:
		return false
	}
	if greaterOrEqual {
		return have >= want
	}
	return have <= want
}

// WhereFilter applies multiple where clauses (AND logic)
type WhereFilter struct {
	clauses []*WhereClause
}

// NewWhereFilter creates a filter from clause strings. No clauses yields nil.
func NewWhereFilter(whereClauses []string) (*WhereFilter, error) {
	if len(whereClauses) == 0 {
		return nil, nil
	}

	filter := &WhereFilter{}
	for _, clause := range whereClauses {
		wc, err := ParseWhereClause(clause)
		if err != nil {
			return nil, err
		}
		filter.clauses = append(filter.clauses, wc)
	}
	return filter, nil
}

// Match returns true if the event matches ALL clauses. A nil filter matches everything.
func (f *WhereFilter) Match(ev *domain.Event) bool {
	if f == nil {
		return true
	}
	for _, clause := range f.clauses {
		if !clause.Match(ev) {
			return false
		}
	}
	return true
}
