package model

// Operator is a comparison supported by the record store.
type Operator string

const (
	OpEq Operator = "eq"
	OpLt Operator = "lt"
	// OpLtColumn compares two columns of the same row: Column < Value(column name).
	OpLtColumn Operator = "lt_column"
)

// Condition is one predicate of a Filter. When BindSubject is set the value is
// replaced with the current session subject before the query is issued.
type Condition struct {
	Column      string      `json:"column"`
	Op          Operator    `json:"op"`
	Value       interface{} `json:"value,omitempty"`
	BindSubject bool        `json:"bind_subject,omitempty"`
}

// Filter is a conjunction of conditions.
type Filter []Condition

func Eq(column string, value interface{}) Condition {
	return Condition{Column: column, Op: OpEq, Value: value}
}

func Lt(column string, value interface{}) Condition {
	return Condition{Column: column, Op: OpLt, Value: value}
}

func LtColumn(column, other string) Condition {
	return Condition{Column: column, Op: OpLtColumn, Value: other}
}

// EqSubject matches column against the current session subject.
func EqSubject(column string) Condition {
	return Condition{Column: column, Op: OpEq, BindSubject: true}
}

// Bind returns a copy of f with subject-bound conditions resolved.
func (f Filter) Bind(subject string) Filter {
	if len(f) == 0 {
		return nil
	}
	out := make(Filter, len(f))
	for i, c := range f {
		if c.BindSubject {
			c.Value = subject
			c.BindSubject = false
		}
		out[i] = c
	}
	return out
}

// Order sorts query results by a single column.
type Order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// NewestFirst orders rows by creation time, most recent first.
var NewestFirst = &Order{Column: "created_at", Desc: true}
