package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Record is one stored document. Every record returned by a Store carries its id under "id".
type Record map[string]any

type Operator string

const (
	OpEq  Operator = "=="
	OpNe  Operator = "!="
	OpLt  Operator = "<"
	OpLte Operator = "<="
	OpGt  Operator = ">"
	OpGte Operator = ">="
)

// Filter is a (field, operator, value) triple.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

var ErrNotFound = errors.New("record not found")

// Store is the narrow port over the persistent document store.
type Store interface {
	Query(ctx context.Context, collection string, filters ...Filter) ([]Record, error)
	// Get returns nil, nil when no record exists.
	Get(ctx context.Context, collection, id string) (Record, error)
	// Update merges partial into the record's top-level fields.
	Update(ctx context.Context, collection, id string, partial Record) error
	// UpdateIf merges partial only when every condition holds, atomically.
	// It reports whether the record was changed.
	UpdateIf(ctx context.Context, collection, id string, conds []Filter, partial Record) (bool, error)
}

func (op Operator) valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

func validateFilters(filters []Filter) error {
	for _, f := range filters {
		if strings.TrimSpace(f.Field) == "" {
			return errors.New("filter field is empty")
		}
		if !f.Op.valid() {
			return fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	return nil
}

// normalizeValue reduces named scalar types (e.g. models.ScheduleStatus) to
// their underlying kind so stores compare them uniformly.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64, time.Time:
		return x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}

// toRecord converts a model into a document through its JSON form.
func toRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// fromRecord decodes a document into a model through its JSON form.
func fromRecord(rec Record, out any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
