// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package validation

import "strings"

// Record is a submitted form: field name to raw input.
type Record map[string]string

// FieldRule binds a Rule to a field name.
type FieldRule struct {
	Field string
	Rule  Rule
}

// Confirm requires Field to equal Of. It is only evaluated when both fields
// passed their own rules; a mismatch is reported on Field.
type Confirm struct {
	Field   string
	Of      string
	Message string
}

// RuleSet is a named, ordered collection of field rules.
type RuleSet struct {
	Name     string
	Fields   []FieldRule
	Confirms []Confirm
}

// Rule returns the rule for field.
func (rs RuleSet) Rule(field string) (Rule, bool) {
	for _, fr := range rs.Fields {
		if fr.Field == field {
			return fr.Rule, true
		}
	}
	return Rule{}, false
}

// Result is the outcome of Validate. Errors maps field to message; Order
// lists the failing fields in rule set order.
type Result struct {
	Errors map[string]string
	Order  []string
}

// Valid reports whether no field failed.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Messages returns the error messages in rule set order.
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Order))
	for _, f := range r.Order {
		msgs = append(msgs, r.Errors[f])
	}
	return msgs
}

// Summary joins all messages with ", ".
func (r Result) Summary() string {
	return strings.Join(r.Messages(), ", ")
}

// Validate applies rs to record. It performs no I/O and does not modify
// record. Fields absent from record are treated as empty.
func Validate(record Record, rs RuleSet) Result {
	res := Result{Errors: make(map[string]string)}
	passed := make(map[string]bool, len(rs.Fields))

	for _, fr := range rs.Fields {
		msg, ok := fr.Rule.Check(record[fr.Field])
		if !ok {
			res.add(fr.Field, msg)
			continue
		}
		passed[fr.Field] = true
	}

	for _, c := range rs.Confirms {
		if !passed[c.Field] || !passed[c.Of] {
			continue
		}
		if record[c.Field] != record[c.Of] {
			res.add(c.Field, pick(c.Message, "Passwords do not match"))
		}
	}
	return res
}

// Sanitize returns a copy of record restricted to the fields of rs, with
// values trimmed unless the rule is Raw.
func Sanitize(record Record, rs RuleSet) Record {
	out := make(Record, len(rs.Fields))
	for _, fr := range rs.Fields {
		v := record[fr.Field]
		if !fr.Rule.Raw {
			v = strings.TrimSpace(v)
		}
		out[fr.Field] = v
	}
	return out
}

func (r *Result) add(field, msg string) {
	if _, exists := r.Errors[field]; exists {
		return
	}
	r.Errors[field] = msg
	r.Order = append(r.Order, field)
}
