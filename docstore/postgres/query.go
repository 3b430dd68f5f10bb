package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/voicelink/voicelink/docstore"
)

// Get retrieves a document by key.
func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if err := s.checkConnected(); err != nil {
		return docstore.Document{}, err
	}
	if key == "" {
		return docstore.Document{}, docstore.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT fields FROM %s WHERE collection = $1 AND key = $2`, s.opts.table)

	var raw []byte
	err := s.db.GetContext(ctx, &raw, query, collection, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{}, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
		}
		return docstore.Document{}, fmt.Errorf("postgres get: %w", err)
	}
	return decodeDocument(key, raw)
}

// FindWhere returns all documents matching every condition.
func (s *Store) FindWhere(ctx context.Context, collection string, conds []docstore.Condition) ([]docstore.Document, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateConditions(conds); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query, args, err := s.buildSelect(collection, conds, "", 0)
	if err != nil {
		return nil, err
	}
	return s.selectDocuments(ctx, query, args)
}

// FindWhereOrdered returns matching documents sorted by orderBy.
//
// jsonb expressions are always sortable, so this backend never returns
// ErrIndexMissing. Declared indexes affect performance only.
func (s *Store) FindWhereOrdered(ctx context.Context, collection string, conds []docstore.Condition, orderBy string, order docstore.SortOrder, limit int) ([]docstore.Document, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateConditions(conds); err != nil {
		return nil, err
	}
	if orderBy == "" {
		return nil, fmt.Errorf("%w: empty order field", docstore.ErrInvalidCondition)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query, args, err := s.buildSelect(collection, conds, orderBy, order)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	return s.selectDocuments(ctx, query, args)
}

// buildSelect constructs the SELECT statement for the given conditions.
//
// Equality uses jsonb containment, which matches both scalar fields and
// array fields containing the value (array-contains semantics, consistent
// with the other backends). Range operators compare as numeric when the
// condition value is numeric, otherwise as text.
func (s *Store) buildSelect(collection string, conds []docstore.Condition, orderBy string, order docstore.SortOrder) (string, []any, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT key, fields FROM %s WHERE collection = $1`, s.opts.table)
	args := []any{collection}

	for _, c := range conds {
		if err := validateFieldName(c.Field); err != nil {
			return "", nil, err
		}
		switch c.Op {
		case docstore.OpEqual:
			encoded, err := json.Marshal(c.Value)
			if err != nil {
				return "", nil, fmt.Errorf("%w: unencodable value for %s", docstore.ErrInvalidCondition, c.Field)
			}
			args = append(args, string(encoded))
			fmt.Fprintf(&sb, ` AND (fields->'%s' @> $%d::jsonb OR fields->'%s' = $%d::jsonb)`,
				c.Field, len(args), c.Field, len(args))
		case docstore.OpGreaterOrEqual, docstore.OpLessOrEqual:
			op := ">="
			if c.Op == docstore.OpLessOrEqual {
				op = "<="
			}
			if isNumeric(c.Value) {
				args = append(args, c.Value)
				fmt.Fprintf(&sb, ` AND (fields->>'%s')::numeric %s $%d`, c.Field, op, len(args))
			} else {
				args = append(args, fmt.Sprint(c.Value))
				fmt.Fprintf(&sb, ` AND fields->>'%s' %s $%d`, c.Field, op, len(args))
			}
		}
	}

	if orderBy != "" {
		if err := validateFieldName(orderBy); err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if order == docstore.SortDesc {
			dir = "DESC"
		}
		// jsonb ordering compares numbers numerically and strings lexically.
		fmt.Fprintf(&sb, ` ORDER BY fields->'%s' %s, key ASC`, orderBy, dir)
	}

	return sb.String(), args, nil
}

func (s *Store) selectDocuments(ctx context.Context, query string, args []any) ([]docstore.Document, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres select: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		doc, err := decodeDocument(key, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows: %w", err)
	}
	return docs, nil
}

func decodeDocument(key string, raw []byte) (docstore.Document, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return docstore.Document{}, fmt.Errorf("postgres decode fields: %w", err)
	}
	return docstore.Document{Key: key, Fields: fields}, nil
}

// validateFieldName rejects field names that cannot be safely interpolated
// into a jsonb path expression.
func validateFieldName(field string) error {
	if field == "" {
		return fmt.Errorf("%w: empty field", docstore.ErrInvalidCondition)
	}
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: unsafe field name: %s", docstore.ErrInvalidCondition, field)
		}
	}
	return nil
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
