// Package query parses history search queries such as "source:en target:vi hello".
package query

import (
	"regexp"
	"strings"
)

// Field is the name of a search operator.
type Field string

const (
	FieldSource Field = "source"
	FieldTarget Field = "target"
)

var operatorPattern = regexp.MustCompile(`^([A-Za-z]+):([A-Za-z-]+)$`)

// Known reports whether filtering understands the field.
func (f Field) Known() bool {
	return f == FieldSource || f == FieldTarget
}

// Operator is a parsed field:value token. Field and Value are lower-cased.
type Operator struct {
	Field Field
	Value string
}

// Query is a parsed search query.
type Query struct {
	// Operators in the order they appear in the input, including unknown fields.
	Operators []Operator
	// Text is the input without operator tokens, whitespace collapsed.
	Text string
}

// Parse splits the input into operators and free text.
// Every whitespace-separated token of the form field:value, where the field is letters only
// and the value letters and hyphens, is an operator.
func Parse(input string) Query {
	var q Query
	var rest []string
	for _, token := range strings.Fields(input) {
		m := operatorPattern.FindStringSubmatch(token)
		if m == nil {
			rest = append(rest, token)
			continue
		}
		q.Operators = append(q.Operators, Operator{
			Field: Field(strings.ToLower(m[1])),
			Value: strings.ToLower(m[2]),
		})
	}
	q.Text = strings.Join(rest, " ")
	return q
}

// Last returns the value of the last operator for the field; later tokens override earlier ones.
func (q Query) Last(field Field) (string, bool) {
	for i := len(q.Operators) - 1; i >= 0; i-- {
		if q.Operators[i].Field == field {
			return q.Operators[i].Value, true
		}
	}
	return "", false
}

// IsEmpty reports whether the query has neither operators nor text.
func (q Query) IsEmpty() bool {
	return len(q.Operators) == 0 && q.Text == ""
}
