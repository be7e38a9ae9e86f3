// Package reconcile implements the shared describe, diff, plan routine
// behind every create-or-alter operation. Translators supply a property
// classification table and, for composite state, a diff strategy; the
// engine produces an ordered statement plan.
package reconcile

import (
	"context"

	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
	"snowbridge/internal/sqlgen"
)

// Class says how a property participates in reconciliation.
type Class int

const (
	// Optional properties set when present and unset when absent.
	Optional Class = iota
	// Required properties must appear in every desired state.
	Required
	// Immutable properties reject any change after creation.
	Immutable
	// ReadOnly properties are backend-owned and reject being supplied at
	// all.
	ReadOnly
)

// Property is one entry in a translator's classification table.
type Property struct {
	Name  string
	Class Class
	// Quoted marks string-valued properties whose assignments take a
	// single-quoted literal.
	Quoted bool
}

// Change is one scalar assignment or removal, in table order.
type Change struct {
	Name  string
	Value string
	Unset bool
}

// DiffScalars walks the classification table comparing desired against
// current. Optional properties absent from desired but present in current
// produce removals, so the desired document is authoritative.
func DiffScalars(desired, current map[string]any, props []Property) ([]Change, error) {
	var changes []Change
	for _, p := range props {
		dv, inDesired := desired[p.Name]
		cv, inCurrent := current[p.Name]
		switch p.Class {
		case ReadOnly:
			if inDesired {
				return nil, domain.ErrBadRequest("property %s is read-only and cannot be supplied", p.Name)
			}
		case Immutable:
			if inDesired && inCurrent && render(dv, p.Quoted) != render(cv, p.Quoted) {
				return nil, domain.ErrBadRequest("property %s cannot be changed after creation", p.Name)
			}
		case Required:
			if !inDesired || dv == nil {
				return nil, domain.ErrBadRequest("required property %s is missing", p.Name)
			}
			if !inCurrent || render(dv, p.Quoted) != render(cv, p.Quoted) {
				changes = append(changes, Change{Name: p.Name, Value: render(dv, p.Quoted)})
			}
		case Optional:
			switch {
			case inDesired && dv != nil:
				if !inCurrent || cv == nil || render(dv, p.Quoted) != render(cv, p.Quoted) {
					changes = append(changes, Change{Name: p.Name, Value: render(dv, p.Quoted)})
				}
			case inCurrent && cv != nil:
				changes = append(changes, Change{Name: p.Name, Unset: true})
			}
		}
	}
	return changes, nil
}

func render(v any, quoted bool) string {
	if quoted {
		return sqlgen.QuoteValue(v)
	}
	return sqlgen.FormatValue(v)
}

// Split separates a change list into assignments and removals, preserving
// order within each.
func Split(changes []Change) (set, unset []Change) {
	for _, c := range changes {
		if c.Unset {
			unset = append(unset, c)
		} else {
			set = append(set, c)
		}
	}
	return set, unset
}

// Plan is an ordered statement sequence. Statements run one at a time with
// no rollback; a failure surfaces immediately with the statements before it
// already applied.
type Plan struct {
	Statements []string
}

// Add appends a statement. Empty statements are skipped so conditional
// builders can always call Add.
func (p *Plan) Add(stmt string) {
	if stmt != "" {
		p.Statements = append(p.Statements, stmt)
	}
}

// Empty reports whether the plan changes anything.
func (p *Plan) Empty() bool { return len(p.Statements) == 0 }

// Apply runs the plan sequentially. An empty plan succeeds without touching
// the backend.
func (p *Plan) Apply(ctx context.Context, exec executor.Executor) ([]normalize.Row, error) {
	if p.Empty() {
		return []normalize.Row{{"description": "successful"}}, nil
	}
	for _, stmt := range p.Statements {
		if _, err := exec.Execute(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return []normalize.Row{{"description": "successful"}}, nil
}

// Pair holds corresponding desired and current elements.
type Pair[T any] struct {
	Desired T
	Current T
}

// OrderedDiff is the outcome of a positional comparison.
type OrderedDiff[T any] struct {
	// Modified pairs occupy the same position but compare unequal.
	Modified []Pair[T]
	// Added elements extend the desired list beyond the current one.
	Added []T
	// Removed elements exist only in the longer current list.
	Removed []T
}

// DiffOrderedList compares two lists positionally. Order is identity:
// elements are matched by position, never by name.
func DiffOrderedList[T any](desired, current []T, equal func(a, b T) bool) OrderedDiff[T] {
	var d OrderedDiff[T]
	n := len(desired)
	if len(current) < n {
		n = len(current)
	}
	for i := 0; i < n; i++ {
		if !equal(desired[i], current[i]) {
			d.Modified = append(d.Modified, Pair[T]{Desired: desired[i], Current: current[i]})
		}
	}
	if len(desired) > n {
		d.Added = append(d.Added, desired[n:]...)
	}
	if len(current) > n {
		d.Removed = append(d.Removed, current[n:]...)
	}
	return d
}

// SetDiff is the outcome of a keyed comparison.
type SetDiff[T any] struct {
	Added   []T
	Removed []T
	Matched []Pair[T]
}

// DiffKeyedSet matches elements by key. Desired order drives Added and
// Matched, current order drives Removed, so plans are deterministic.
func DiffKeyedSet[T any](desired, current []T, key func(T) string) SetDiff[T] {
	currentByKey := make(map[string]T, len(current))
	for _, c := range current {
		currentByKey[key(c)] = c
	}
	seen := make(map[string]bool, len(desired))
	var d SetDiff[T]
	for _, dv := range desired {
		k := key(dv)
		seen[k] = true
		if cv, ok := currentByKey[k]; ok {
			d.Matched = append(d.Matched, Pair[T]{Desired: dv, Current: cv})
		} else {
			d.Added = append(d.Added, dv)
		}
	}
	for _, cv := range current {
		if !seen[key(cv)] {
			d.Removed = append(d.Removed, cv)
		}
	}
	return d
}

// DiffDependencies compares dependency name lists under a caller-supplied
// canonical key. Only newly present names are added; names absent from
// desired are removed.
func DiffDependencies(desired, current []string, key func(string) string) (removed, added []string) {
	want := make(map[string]bool, len(desired))
	for _, d := range desired {
		want[key(d)] = true
	}
	have := make(map[string]bool, len(current))
	for _, c := range current {
		have[key(c)] = true
		if !want[key(c)] {
			removed = append(removed, c)
		}
	}
	for _, d := range desired {
		if !have[key(d)] {
			added = append(added, d)
		}
	}
	return removed, added
}
