package apiindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	apperrors "github.com/patrickoleary/vtkapi-mcp/pkg/errors"
	"github.com/patrickoleary/vtkapi-mcp/pkg/postgres"
	"github.com/patrickoleary/vtkapi-mcp/pkg/resilience"
)

// pq error code for a missing relation.
const undefinedTable = "42P01"

// PostgresSource keeps one row per class in a table:
//
//	position        INTEGER NOT NULL
//	class_name      TEXT PRIMARY KEY
//	module_name     TEXT NOT NULL DEFAULT ''
//	content         TEXT NOT NULL DEFAULT ''
//	structured_docs JSONB
//
// Rows are read back in position order so that search order matches the
// order documents were stored in.
type PostgresSource struct {
	client *postgres.Client
	table  string
}

func NewPostgresSource(client *postgres.Client) *PostgresSource {
	return &PostgresSource{client: client, table: client.Table}
}

func (s *PostgresSource) String() string { return "postgres://" + s.table }

func (s *PostgresSource) Fetch(ctx context.Context) ([]Document, error) {
	query := fmt.Sprintf(
		`SELECT class_name, module_name, content, structured_docs FROM %s ORDER BY position`,
		pq.QuoteIdentifier(s.table),
	)
	rows, err := s.client.DB.QueryContext(ctx, query)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
			return nil, resilience.Permanent(fmt.Errorf("%w: table %s", apperrors.ErrSourceNotFound, s.table))
		}
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc        Document
			structured []byte
		)
		if err := rows.Scan(&doc.ClassName, &doc.ModuleName, &doc.Content, &structured); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.table, err)
		}
		if len(structured) > 0 {
			var sd StructuredDocs
			if err := json.Unmarshal(structured, &sd); err != nil {
				return nil, resilience.Permanent(fmt.Errorf("decoding structured docs of %s: %w", doc.ClassName, err))
			}
			doc.StructuredDocs = &sd
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s.table, err)
	}
	return docs, nil
}

// Store replaces the table contents with docs in one transaction, using
// COPY for the bulk insert.
func (s *PostgresSource) Store(ctx context.Context, docs []Document) error {
	table := pq.QuoteIdentifier(s.table)
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			position        INTEGER NOT NULL,
			class_name      TEXT PRIMARY KEY,
			module_name     TEXT NOT NULL DEFAULT '',
			content         TEXT NOT NULL DEFAULT '',
			structured_docs JSONB
		)`, table)); err != nil {
			return fmt.Errorf("creating %s: %w", s.table, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`TRUNCATE %s`, table)); err != nil {
			return fmt.Errorf("truncating %s: %w", s.table, err)
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(s.table, "position", "class_name", "module_name", "content", "structured_docs"))
		if err != nil {
			return fmt.Errorf("preparing copy into %s: %w", s.table, err)
		}
		// Later duplicates win, matching how the index treats them.
		x := New(docs)
		for i, doc := range x.Documents() {
			var structured any
			if doc.StructuredDocs != nil {
				b, err := json.Marshal(doc.StructuredDocs)
				if err != nil {
					stmt.Close()
					return fmt.Errorf("encoding structured docs of %s: %w", doc.ClassName, err)
				}
				structured = string(b)
			}
			if _, err := stmt.ExecContext(ctx, i, doc.ClassName, doc.ModuleName, doc.Content, structured); err != nil {
				stmt.Close()
				return fmt.Errorf("copying %s: %w", doc.ClassName, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy into %s: %w", s.table, err)
		}
		return stmt.Close()
	})
}
