package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore keeps every collection in the documents table as JSONB.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

var sqlOperators = map[Operator]string{
	OpEq:  "=",
	OpNe:  "<>",
	OpLt:  "<",
	OpLte: "<=",
	OpGt:  ">",
	OpGte: ">=",
}

// buildConditions renders filters as SQL predicates over the data column,
// numbering placeholders from next.
func buildConditions(filters []Filter, next int) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(filters)*2)

	for _, f := range filters {
		value := normalizeValue(f.Value)
		field := fmt.Sprintf("(data->>$%d::text)", next)
		param := fmt.Sprintf("$%d", next+1)

		switch value.(type) {
		case time.Time:
			field += "::timestamptz"
			param += "::timestamptz"
		case bool:
			field += "::boolean"
			param += "::boolean"
		case float64:
			field += "::numeric"
			param += "::numeric"
		default:
			param += "::text"
		}

		sb.WriteString(" AND ")
		if value == nil {
			if f.Op == OpNe {
				sb.WriteString(fmt.Sprintf("%s IS NOT NULL", field))
			} else {
				sb.WriteString(fmt.Sprintf("%s IS NULL", field))
			}
			args = append(args, f.Field)
			next++
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %s %s", field, sqlOperators[f.Op], param))
		args = append(args, f.Field, value)
		next += 2
	}

	return sb.String(), args
}

func (s *postgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Record, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	where, args := buildConditions(filters, 2)
	query := `SELECT id, data FROM documents WHERE collection = $1` + where + ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, append([]any{collection}, args...)...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		rec, err := decodeDocument(id, data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return records, nil
}

func (s *postgresStore) Get(ctx context.Context, collection, id string) (Record, error) {
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return decodeDocument(id, data)
}

func (s *postgresStore) Update(ctx context.Context, collection, id string, partial Record) error {
	ok, err := s.UpdateIf(ctx, collection, id, nil, partial)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) UpdateIf(ctx context.Context, collection, id string, conds []Filter, partial Record) (bool, error) {
	if err := validateFilters(conds); err != nil {
		return false, err
	}

	patch := make(Record, len(partial))
	for k, v := range partial {
		if k != "id" {
			patch[k] = v
		}
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return false, err
	}

	where, args := buildConditions(conds, 4)
	query := `UPDATE documents SET data = data || $3::jsonb, modified_at = NOW() WHERE collection = $1 AND id = $2` + where

	res, err := s.db.ExecContext(ctx, query, append([]any{collection, id, string(raw)}, args...)...)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func decodeDocument(id string, data []byte) (Record, error) {
	rec := Record{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
	}
	rec["id"] = id
	return rec, nil
}
