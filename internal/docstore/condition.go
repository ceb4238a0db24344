// Copyright 2025 Gosayram Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Op is a comparison operator
type Op string

// Supported operators
const (
	OpEq         Op = "eq"
	OpNe         Op = "ne"
	OpLt         Op = "lt"
	OpLe         Op = "le"
	OpGt         Op = "gt"
	OpGe         Op = "ge"
	OpBeginsWith Op = "begins_with"
	OpBetween    Op = "between"
	OpExists     Op = "exists"
	OpContains   Op = "contains"
)

// operandCount is the number of values each operator takes
var operandCount = map[Op]int{
	OpEq:         1,
	OpNe:         1,
	OpLt:         1,
	OpLe:         1,
	OpGt:         1,
	OpGe:         1,
	OpBeginsWith: 1,
	OpBetween:    2,
	OpExists:     0,
	OpContains:   1,
}

// sortKeyOps are the operators allowed on an index sort key
var sortKeyOps = map[Op]bool{
	OpEq:         true,
	OpLt:         true,
	OpLe:         true,
	OpGt:         true,
	OpGe:         true,
	OpBeginsWith: true,
	OpBetween:    true,
}

// Condition tests one attribute. Field may be a dotted path into nested maps.
type Condition struct {
	Field  string
	Op     Op
	Values []any
}

// Eq matches attributes equal to value
func Eq(field string, value any) Condition { return Condition{Field: field, Op: OpEq, Values: []any{value}} }

// Ne matches attributes absent or not equal to value
func Ne(field string, value any) Condition { return Condition{Field: field, Op: OpNe, Values: []any{value}} }

// Lt matches attributes less than value
func Lt(field string, value any) Condition { return Condition{Field: field, Op: OpLt, Values: []any{value}} }

// Le matches attributes less than or equal to value
func Le(field string, value any) Condition { return Condition{Field: field, Op: OpLe, Values: []any{value}} }

// Gt matches attributes greater than value
func Gt(field string, value any) Condition { return Condition{Field: field, Op: OpGt, Values: []any{value}} }

// Ge matches attributes greater than or equal to value
func Ge(field string, value any) Condition { return Condition{Field: field, Op: OpGe, Values: []any{value}} }

// BeginsWith matches string attributes with the given prefix
func BeginsWith(field, prefix string) Condition {
	return Condition{Field: field, Op: OpBeginsWith, Values: []any{prefix}}
}

// Between matches attributes in the inclusive range [low, high]
func Between(field string, low, high any) Condition {
	return Condition{Field: field, Op: OpBetween, Values: []any{low, high}}
}

// Exists matches items that have the attribute
func Exists(field string) Condition { return Condition{Field: field, Op: OpExists} }

// Contains matches string attributes containing a substring or lists containing an element
func Contains(field string, value any) Condition {
	return Condition{Field: field, Op: OpContains, Values: []any{value}}
}

// Validate checks the operator and its operands
func (c Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("%w: condition field is required", ErrInvalidCriteria)
	}
	n, ok := operandCount[c.Op]
	if !ok {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidCriteria, c.Op)
	}
	if len(c.Values) != n {
		return fmt.Errorf("%w: %s takes %d values, got %d", ErrInvalidCriteria, c.Op, n, len(c.Values))
	}
	return nil
}

// Match evaluates the condition against item
func (c Condition) Match(item Item) bool {
	value, present := lookup(item, c.Field)

	switch c.Op {
	case OpExists:
		return present
	case OpNe:
		return !present || !valuesEqual(value, c.Values[0])
	}

	if !present {
		return false
	}

	switch c.Op {
	case OpEq:
		return valuesEqual(value, c.Values[0])
	case OpLt:
		cmp, ok := compareValues(value, c.Values[0])
		return ok && cmp < 0
	case OpLe:
		cmp, ok := compareValues(value, c.Values[0])
		return ok && cmp <= 0
	case OpGt:
		cmp, ok := compareValues(value, c.Values[0])
		return ok && cmp > 0
	case OpGe:
		cmp, ok := compareValues(value, c.Values[0])
		return ok && cmp >= 0
	case OpBetween:
		low, okLow := compareValues(value, c.Values[0])
		high, okHigh := compareValues(value, c.Values[1])
		return okLow && okHigh && low >= 0 && high <= 0
	case OpBeginsWith:
		s, ok := value.(string)
		prefix, okPrefix := c.Values[0].(string)
		return ok && okPrefix && strings.HasPrefix(s, prefix)
	case OpContains:
		return contains(value, c.Values[0])
	default:
		return false
	}
}

// KeyCondition selects one partition of an index and optionally a sort key range
type KeyCondition struct {
	Partition any
	Sort      *Condition
}

// Criteria describes a query. Limit bounds the number of returned items after filtering; zero means no limit.
type Criteria struct {
	Index      string
	Key        KeyCondition
	Filter     []Condition
	Descending bool
	Limit      int
}

// Resolve validates the criteria against schema and returns the queried index
func (c Criteria) Resolve(schema *Schema) (IndexSchema, error) {
	index, err := schema.Index(c.Index)
	if err != nil {
		return IndexSchema{}, err
	}
	if c.Key.Partition == nil || c.Key.Partition == "" {
		return IndexSchema{}, fmt.Errorf("%w: partition value for %s is required", ErrInvalidCriteria, index.PartitionKey)
	}
	if c.Limit < 0 {
		return IndexSchema{}, fmt.Errorf("%w: negative limit", ErrInvalidCriteria)
	}
	if sortCond := c.Key.Sort; sortCond != nil {
		if index.SortKey == "" {
			return IndexSchema{}, fmt.Errorf("%w: index has no sort key", ErrInvalidCriteria)
		}
		if sortCond.Field != "" && sortCond.Field != index.SortKey {
			return IndexSchema{}, fmt.Errorf("%w: sort condition on %s, index sort key is %s",
				ErrInvalidCriteria, sortCond.Field, index.SortKey)
		}
		if !sortKeyOps[sortCond.Op] {
			return IndexSchema{}, fmt.Errorf("%w: %s not allowed on a sort key", ErrInvalidCriteria, sortCond.Op)
		}
	}
	for _, cond := range c.Filter {
		if err := cond.Validate(); err != nil {
			return IndexSchema{}, err
		}
	}
	return index, nil
}

// sortCondition returns the sort key condition bound to the index sort attribute
func (c Criteria) sortCondition(index IndexSchema) (Condition, bool) {
	if c.Key.Sort == nil {
		return Condition{}, false
	}
	cond := *c.Key.Sort
	cond.Field = index.SortKey
	return cond, true
}

// selectItems applies criteria to candidate items: key match, filters, ordering, then limit.
// Backends that cannot push a query down to the store scan and call it.
func selectItems(schema *Schema, criteria Criteria, candidates []Item) ([]Item, error) {
	index, err := criteria.Resolve(schema)
	if err != nil {
		return nil, err
	}
	if sortCond, ok := criteria.sortCondition(index); ok {
		if err := sortCond.Validate(); err != nil {
			return nil, err
		}
	}

	matched := make([]Item, 0)
	for _, item := range candidates {
		if !matchesKey(item, index, criteria) {
			continue
		}
		if !matchesAll(item, criteria.Filter) {
			continue
		}
		matched = append(matched, item)
	}

	sortItems(schema, index, matched, criteria.Descending)

	if criteria.Limit > 0 && len(matched) > criteria.Limit {
		matched = matched[:criteria.Limit]
	}
	return matched, nil
}

func matchesKey(item Item, index IndexSchema, criteria Criteria) bool {
	partition, ok := item[index.PartitionKey]
	if !ok || !valuesEqual(partition, criteria.Key.Partition) {
		return false
	}
	if index.SortKey == "" {
		return true
	}
	// Items without the sort attribute are not part of the index
	if _, ok := item[index.SortKey]; !ok {
		return false
	}
	if sortCond, ok := criteria.sortCondition(index); ok {
		return sortCond.Match(item)
	}
	return true
}

func matchesAll(item Item, conditions []Condition) bool {
	for _, cond := range conditions {
		if !cond.Match(item) {
			return false
		}
	}
	return true
}

// sortItems orders by the index sort key, then by primary key
func sortItems(schema *Schema, index IndexSchema, items []Item, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		cmp := compareItems(schema, index, items[i], items[j])
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareItems(schema *Schema, index IndexSchema, a, b Item) int {
	if index.SortKey != "" {
		va, vb := a[index.SortKey], b[index.SortKey]
		if cmp, ok := compareValues(va, vb); ok {
			if cmp != 0 {
				return cmp
			}
		} else if cmp := strings.Compare(keyString(va), keyString(vb)); cmp != 0 {
			return cmp
		}
	}
	ka, _ := schema.EncodeKey(Key(a))
	kb, _ := schema.EncodeKey(Key(b))
	return strings.Compare(ka, kb)
}

// lookup resolves a dotted path
func lookup(item Item, path string) (any, bool) {
	var current any = map[string]any(item)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Item:
		return m, true
	default:
		return nil, false
	}
}

// toFloat converts any Go or JSON number
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// compareValues orders two numbers or two strings
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func valuesEqual(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

func contains(container, element any) bool {
	switch c := container.(type) {
	case string:
		s, ok := element.(string)
		return ok && strings.Contains(c, s)
	case []any:
		for _, v := range c {
			if valuesEqual(v, element) {
				return true
			}
		}
	case []string:
		s, ok := element.(string)
		if !ok {
			return false
		}
		for _, v := range c {
			if v == s {
				return true
			}
		}
	}
	return false
}
