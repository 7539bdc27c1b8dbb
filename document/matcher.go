package document

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/kishultan/go-strata/core/query"
	"github.com/kishultan/go-strata/core/schema"
)

// Match evaluates a rendered filter document against one stored document.
// A nil or empty filter matches everything.
func Match(filter map[string]any, doc schema.Document) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	for key, operand := range filter {
		ok, err := matchEntry(key, operand, doc)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchEntry evaluates one filter entry: a logical combinator or a field
// constraint.
func matchEntry(key string, operand any, doc schema.Document) (bool, error) {
	switch key {
	case "$and", "$or":
		children, ok := operand.([]any)
		if !ok {
			return false, fmt.Errorf("%s requires a list of filters, got %T", key, operand)
		}
		for _, child := range children {
			filter, ok := child.(map[string]any)
			if !ok {
				return false, fmt.Errorf("%s child must be a filter, got %T", key, child)
			}
			matched, err := Match(filter, doc)
			if err != nil {
				return false, err
			}
			if key == "$and" && !matched {
				return false, nil
			}
			if key == "$or" && matched {
				return true, nil
			}
		}
		return key == "$and", nil

	case "$not":
		filter, ok := operand.(map[string]any)
		if !ok {
			return false, fmt.Errorf("$not requires a filter, got %T", operand)
		}
		matched, err := Match(filter, doc)
		if err != nil {
			return false, err
		}
		return !matched, nil

	default:
		constraints, ok := operand.(map[string]any)
		if !ok {
			// A bare value is shorthand for equality.
			return looselyEqual(doc[key], operand), nil
		}
		for op, value := range constraints {
			matched, err := matchField(op, doc[key], value)
			if err != nil {
				return false, fmt.Errorf("field %q: %w", key, err)
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	}
}

// matchField applies one operator to a field value.
func matchField(op string, field, operand any) (bool, error) {
	switch query.Operator(strings.TrimPrefix(op, "$")) {
	case query.OperatorEq:
		return looselyEqual(field, operand), nil
	case query.OperatorNe:
		return !looselyEqual(field, operand), nil
	case query.OperatorGt, query.OperatorGe, query.OperatorLt, query.OperatorLe:
		return compareOrdered(op, field, operand)
	case query.OperatorLike:
		pattern, ok := operand.(string)
		if !ok {
			return false, fmt.Errorf("like requires a string pattern, got %T", operand)
		}
		s, ok := field.(string)
		if !ok {
			return false, nil
		}
		return likeMatch(pattern, s)
	case query.OperatorIn, query.OperatorNotIn:
		values, ok := operand.([]any)
		if !ok {
			return false, fmt.Errorf("in requires a value list, got %T", operand)
		}
		found := false
		for _, v := range values {
			if looselyEqual(field, v) {
				found = true
				break
			}
		}
		if strings.TrimPrefix(op, "$") == string(query.OperatorNotIn) {
			return !found, nil
		}
		return found, nil
	case query.OperatorBetween:
		values, ok := operand.([]any)
		if !ok || len(values) != 2 {
			return false, fmt.Errorf("between requires exactly two bounds")
		}
		lower, err := compareOrdered("$ge", field, values[0])
		if err != nil || !lower {
			return false, err
		}
		return compareOrdered("$le", field, values[1])
	case query.OperatorIsNull:
		return field == nil, nil
	case query.OperatorIsNotNull:
		return field != nil, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", op)
	}
}

// looselyEqual compares values the way a dynamically typed store would:
// numerics of different widths compare by value, everything else by deep
// equality.
func looselyEqual(a, b any) bool {
	if af, ok := query.ToFloat64(a); ok {
		if bf, ok := query.ToFloat64(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareOrdered applies an ordering operator, numerically when both sides
// convert, lexically when both are strings.
func compareOrdered(op string, field, operand any) (bool, error) {
	var cmp int
	if af, aok := query.ToFloat64(field); aok {
		bf, bok := query.ToFloat64(operand)
		if !bok {
			return false, fmt.Errorf("cannot order %T against %T", field, operand)
		}
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		}
	} else {
		as, aok := field.(string)
		bs, bok := operand.(string)
		if !aok || !bok {
			return false, nil
		}
		cmp = strings.Compare(as, bs)
	}

	switch strings.TrimPrefix(op, "$") {
	case string(query.OperatorGt):
		return cmp > 0, nil
	case string(query.OperatorGe):
		return cmp >= 0, nil
	case string(query.OperatorLt):
		return cmp < 0, nil
	case string(query.OperatorLe):
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("unsupported ordering operator %q", op)
	}
}

// likeMatch evaluates a SQL LIKE pattern: % matches any run, _ matches one
// character, everything else is literal.
func likeMatch(pattern, s string) (bool, error) {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false, fmt.Errorf("invalid like pattern %q: %w", pattern, err)
	}
	return re.MatchString(s), nil
}
