package query

import (
	"math"

	"github.com/valyala/fastjson"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// Top-level and nested section names.
const (
	sectionWhere           = "WHERE"
	sectionOptions         = "OPTIONS"
	sectionTransformations = "TRANSFORMATIONS"
	sectionColumns         = "COLUMNS"
	sectionOrder           = "ORDER"
	sectionGroup           = "GROUP"
	sectionApply           = "APPLY"
	orderDir               = "dir"
	orderKeys              = "keys"
)

// Parse parses and validates a JSON query. Every error it returns is a
// *core.ValidationError.
func Parse(data []byte) (*Query, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, core.NewValidationErrorf("query is not valid JSON: %v", err)
	}
	return ParseValue(v)
}

// ParseValue validates an already decoded JSON query.
func ParseValue(v *fastjson.Value) (*Query, error) {
	if v == nil || v.Type() != fastjson.TypeObject {
		return nil, core.NewValidationError("query is not an object")
	}
	root, _ := v.Object()

	if err := rejectUnknownKeys("query", root, sectionWhere, sectionOptions, sectionTransformations); err != nil {
		return nil, err
	}

	optionsVal := root.Get(sectionOptions)
	if optionsVal == nil {
		return nil, core.NewValidationError("query missing OPTIONS")
	}
	if optionsVal.Type() != fastjson.TypeObject {
		return nil, core.NewValidationError("OPTIONS is not an object")
	}
	whereVal := root.Get(sectionWhere)
	if whereVal == nil {
		return nil, core.NewValidationError("query missing WHERE")
	}
	if whereVal.Type() != fastjson.TypeObject {
		return nil, core.NewValidationError("WHERE is not an object")
	}

	q := &Query{}

	opts, _ := optionsVal.Object()
	if err := parseOptions(opts, &q.Options); err != nil {
		return nil, err
	}

	where, err := parseFilter(whereVal)
	if err != nil {
		return nil, err
	}
	q.Where = where

	if tv := root.Get(sectionTransformations); tv != nil {
		t, err := parseTransformations(tv)
		if err != nil {
			return nil, err
		}
		q.Transformations = t
	}

	ds, err := ResolveDataset(q)
	if err != nil {
		return nil, err
	}
	q.Dataset = ds

	if err := validateColumns(q); err != nil {
		return nil, err
	}
	return q, nil
}

func parseOptions(opts *fastjson.Object, out *Options) error {
	if err := rejectUnknownKeys("OPTIONS", opts, sectionColumns, sectionOrder); err != nil {
		return err
	}

	colsVal := opts.Get(sectionColumns)
	if colsVal == nil {
		return core.NewValidationError("query missing COLUMNS")
	}
	cols, err := stringList(sectionColumns, colsVal)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return core.NewValidationError("COLUMNS must not be empty")
	}
	out.Columns = cols

	if ov := opts.Get(sectionOrder); ov != nil {
		order, err := parseOrder(ov)
		if err != nil {
			return err
		}
		out.Order = order
	}
	return nil
}

func parseOrder(v *fastjson.Value) (*Order, error) {
	switch v.Type() {
	case fastjson.TypeString:
		key, _ := v.StringBytes()
		return &Order{Dir: Up, Keys: []string{string(key)}}, nil
	case fastjson.TypeObject:
	default:
		return nil, core.NewValidationError("ORDER must be a string or an object")
	}

	obj, _ := v.Object()
	if err := rejectUnknownKeys("ORDER", obj, orderDir, orderKeys); err != nil {
		return nil, err
	}

	order := &Order{}
	dirVal := obj.Get(orderDir)
	if dirVal == nil || dirVal.Type() != fastjson.TypeString {
		return nil, core.NewValidationError("ORDER.dir must be \"UP\" or \"DOWN\"")
	}
	switch dir, _ := dirVal.StringBytes(); string(dir) {
	case "UP":
		order.Dir = Up
	case "DOWN":
		order.Dir = Down
	default:
		return nil, core.NewValidationErrorf("ORDER.dir must be \"UP\" or \"DOWN\", got %q", dir)
	}

	keysVal := obj.Get(orderKeys)
	if keysVal == nil {
		return nil, core.NewValidationError("ORDER.keys must be a non-empty array")
	}
	keys, err := stringList("ORDER.keys", keysVal)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, core.NewValidationError("ORDER.keys must be a non-empty array")
	}
	order.Keys = keys
	return order, nil
}

func parseFilter(v *fastjson.Value) (Filter, error) {
	if v.Type() != fastjson.TypeObject {
		return nil, core.NewValidationErrorf("filter must be an object, got %s", v.Type())
	}
	obj, _ := v.Object()

	switch n := obj.Len(); {
	case n == 0:
		return True{}, nil
	case n > 1:
		return nil, core.NewValidationErrorf("filter must have exactly one operator, got %d", n)
	}

	tag, val := firstEntry(obj)
	switch tag {
	case "AND", "OR":
		if val.Type() != fastjson.TypeArray {
			return nil, core.NewValidationErrorf("%s must be a non-empty array", tag)
		}
		items, _ := val.Array()
		if len(items) == 0 {
			return nil, core.NewValidationErrorf("%s must be a non-empty array", tag)
		}
		subs := make([]Filter, 0, len(items))
		for _, item := range items {
			sub, err := parseFilter(item)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		if tag == "AND" {
			return And{Filters: subs}, nil
		}
		return Or{Filters: subs}, nil

	case "NOT":
		sub, err := parseFilter(val)
		if err != nil {
			return nil, err
		}
		return Not{Filter: sub}, nil

	case string(OpLT), string(OpGT), string(OpEQ):
		key, operand, err := comparisonOperand(tag, val)
		if err != nil {
			return nil, err
		}
		if operand.Type() != fastjson.TypeNumber {
			return nil, core.NewValidationErrorf("%s requires a numeric value", tag)
		}
		num, err := operand.Float64()
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
			return nil, core.NewValidationErrorf("%s requires a finite numeric value", tag)
		}
		return Compare{Op: CompareOp(tag), Key: key, Value: num}, nil

	case "IS":
		key, operand, err := comparisonOperand(tag, val)
		if err != nil {
			return nil, err
		}
		if operand.Type() != fastjson.TypeString {
			return nil, core.NewValidationError("IS requires a string pattern")
		}
		raw, _ := operand.StringBytes()
		pattern, err := CompilePattern(string(raw))
		if err != nil {
			return nil, err
		}
		return Match{Key: key, Pattern: pattern}, nil
	}

	return nil, core.NewValidationErrorf("unknown filter operator %q", tag)
}

// comparisonOperand unpacks the {"<dataset>_<field>": operand} body of a
// comparison node.
func comparisonOperand(tag string, v *fastjson.Value) (Key, *fastjson.Value, error) {
	if v.Type() != fastjson.TypeObject {
		return Key{}, nil, core.NewValidationErrorf("%s must be an object", tag)
	}
	obj, _ := v.Object()
	if obj.Len() != 1 {
		return Key{}, nil, core.NewValidationErrorf("%s must have exactly one key, got %d", tag, obj.Len())
	}
	name, operand := firstEntry(obj)
	key, err := ParseKey(name)
	if err != nil {
		return Key{}, nil, err
	}
	return key, operand, nil
}

func parseTransformations(v *fastjson.Value) (*Transformations, error) {
	if v.Type() != fastjson.TypeObject {
		return nil, core.NewValidationError("TRANSFORMATIONS is not an object")
	}
	obj, _ := v.Object()
	if err := rejectUnknownKeys("TRANSFORMATIONS", obj, sectionGroup, sectionApply); err != nil {
		return nil, err
	}

	groupVal := obj.Get(sectionGroup)
	if groupVal == nil {
		return nil, core.NewValidationError("TRANSFORMATIONS missing GROUP")
	}
	groupNames, err := stringList(sectionGroup, groupVal)
	if err != nil {
		return nil, err
	}
	if len(groupNames) == 0 {
		return nil, core.NewValidationError("GROUP must not be empty")
	}

	t := &Transformations{Group: make([]Key, 0, len(groupNames))}
	for _, name := range groupNames {
		key, err := ParseKey(name)
		if err != nil {
			return nil, err
		}
		t.Group = append(t.Group, key)
	}

	applyVal := obj.Get(sectionApply)
	if applyVal == nil {
		return nil, core.NewValidationError("TRANSFORMATIONS missing APPLY")
	}
	if applyVal.Type() != fastjson.TypeArray {
		return nil, core.NewValidationError("APPLY must be an array")
	}
	rules, _ := applyVal.Array()

	seen := make(map[string]bool, len(rules))
	for _, rv := range rules {
		rule, err := parseApplyRule(rv)
		if err != nil {
			return nil, err
		}
		if seen[rule.Alias] {
			return nil, core.NewValidationErrorf("duplicate APPLY key %q", rule.Alias)
		}
		seen[rule.Alias] = true
		t.Apply = append(t.Apply, rule)
	}
	return t, nil
}

func parseApplyRule(v *fastjson.Value) (ApplyRule, error) {
	if v.Type() != fastjson.TypeObject {
		return ApplyRule{}, core.NewValidationError("APPLY rule must be an object")
	}
	obj, _ := v.Object()
	if obj.Len() != 1 {
		return ApplyRule{}, core.NewValidationErrorf("APPLY rule must have exactly one key, got %d", obj.Len())
	}

	alias, body := firstEntry(obj)
	if alias == "" {
		return ApplyRule{}, core.NewValidationError("APPLY key must not be empty")
	}
	if isQualified(alias) {
		return ApplyRule{}, core.NewValidationErrorf("APPLY key %q must not contain %q", alias, core.KeySeparator)
	}

	if body.Type() != fastjson.TypeObject {
		return ApplyRule{}, core.NewValidationErrorf("APPLY body for %q must be an object", alias)
	}
	bodyObj, _ := body.Object()
	if bodyObj.Len() != 1 {
		return ApplyRule{}, core.NewValidationErrorf("APPLY body for %q must have exactly one aggregation", alias)
	}

	aggName, target := firstEntry(bodyObj)
	agg, ok := parseAggKind(aggName)
	if !ok {
		return ApplyRule{}, core.NewValidationErrorf("invalid APPLY token %q", aggName)
	}
	if target.Type() != fastjson.TypeString {
		return ApplyRule{}, core.NewValidationErrorf("%s target for %q must be a key", agg, alias)
	}
	raw, _ := target.StringBytes()
	key, err := ParseKey(string(raw))
	if err != nil {
		return ApplyRule{}, err
	}
	return ApplyRule{Alias: alias, Agg: agg, Field: key}, nil
}

// stringList decodes a JSON array whose elements must all be strings.
func stringList(name string, v *fastjson.Value) ([]string, error) {
	if v.Type() != fastjson.TypeArray {
		return nil, core.NewValidationErrorf("%s must be an array", name)
	}
	items, _ := v.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type() != fastjson.TypeString {
			return nil, core.NewValidationErrorf("%s must contain only strings", name)
		}
		s, _ := item.StringBytes()
		out = append(out, string(s))
	}
	return out, nil
}

func firstEntry(obj *fastjson.Object) (string, *fastjson.Value) {
	var (
		key string
		val *fastjson.Value
		set bool
	)
	obj.Visit(func(k []byte, v *fastjson.Value) {
		if !set {
			key, val, set = string(k), v, true
		}
	})
	return key, val
}

func rejectUnknownKeys(section string, obj *fastjson.Object, allowed ...string) error {
	var (
		unknown string
		found   bool
	)
	obj.Visit(func(k []byte, _ *fastjson.Value) {
		if found {
			return
		}
		name := string(k)
		for _, a := range allowed {
			if name == a {
				return
			}
		}
		unknown, found = name, true
	})
	if found {
		return core.NewValidationErrorf("%s has unexpected key %q", section, unknown)
	}
	return nil
}
