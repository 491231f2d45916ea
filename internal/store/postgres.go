package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sunghokim-dev/presbytery-site/internal/schema"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres implements Records over a pgx connection pool, one table per
// flat collection.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a record store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// ListAll returns every record of a flat collection in its display order.
func (p *Postgres) ListAll(ctx context.Context, collection string) ([]schema.FlatRecord, error) {
	return listAll(ctx, p.pool, collection)
}

// DeleteAll clears a flat collection.
func (p *Postgres) DeleteAll(ctx context.Context, collection string) error {
	return deleteAll(ctx, p.pool, collection)
}

// BulkInsert appends records to a flat collection.
func (p *Postgres) BulkInsert(ctx context.Context, collection string, records []schema.FlatRecord) error {
	return bulkInsert(ctx, p.pool, collection, records)
}

// ReplaceAll clears a flat collection and inserts the given records inside
// one transaction, so a failure partway through rolls the whole swap back.
func (p *Postgres) ReplaceAll(ctx context.Context, collection string, records []schema.FlatRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deleteAll(ctx, tx, collection); err != nil {
		return err
	}
	if err := bulkInsert(ctx, tx, collection, records); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func deleteAll(ctx context.Context, db DBTX, collection string) error {
	table, ok := tableNames[collection]
	if !ok {
		return fmt.Errorf("unknown collection: %s", collection)
	}
	if _, err := db.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}
	return nil
}

// tableNames maps collection names to their quoted table identifiers. The
// indirection keeps collection strings out of SQL text.
var tableNames = map[string]string{
	schema.CollectionCommittees: `"committees"`,
	schema.CollectionFees:       `"fees"`,
	schema.CollectionMembers:    `"members"`,
}

func bulkInsert(ctx context.Context, db DBTX, collection string, records []schema.FlatRecord) error {
	for i, record := range records {
		if err := insertOne(ctx, db, collection, record); err != nil {
			return fmt.Errorf("insert %s row %d: %w", collection, i+1, err)
		}
	}
	return nil
}

func insertOne(ctx context.Context, db DBTX, collection string, record schema.FlatRecord) error {
	switch collection {
	case schema.CollectionCommittees:
		r, ok := record.(schema.CommitteeRecord)
		if !ok {
			return fmt.Errorf("expected CommitteeRecord, got %T", record)
		}
		_, err := db.Exec(ctx,
			`INSERT INTO "committees"
			 (name, head_title, head_name, head_role, secretary_name, secretary_role, members, term, display_order)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			r.Name, r.HeadTitle, r.HeadName, r.HeadRole,
			r.SecretaryName, r.SecretaryRole, r.Members, r.Term, r.Order)
		return err

	case schema.CollectionFees:
		r, ok := record.(schema.FeeRecord)
		if !ok {
			return fmt.Errorf("expected FeeRecord, got %T", record)
		}
		_, err := db.Exec(ctx,
			`INSERT INTO "fees" (district, church, pastor, assessment, settlement)
			 VALUES ($1, $2, $3, $4, $5)`,
			r.District, r.Church, r.Pastor, r.Assessment, r.Settlement)
		return err

	case schema.CollectionMembers:
		r, ok := record.(schema.MemberRecord)
		if !ok {
			return fmt.Errorf("expected MemberRecord, got %T", record)
		}
		_, err := db.Exec(ctx,
			`INSERT INTO "members" (name, church, position, role, username, password)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			r.Name, r.Church, r.Position, r.Role, r.Username, r.Password)
		return err

	default:
		return fmt.Errorf("unknown collection: %s", collection)
	}
}

func listAll(ctx context.Context, db DBTX, collection string) ([]schema.FlatRecord, error) {
	switch collection {
	case schema.CollectionCommittees:
		rows, err := db.Query(ctx,
			`SELECT name, head_title, head_name, head_role, secretary_name, secretary_role, members, term, display_order
			 FROM "committees" ORDER BY display_order, name`)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		defer rows.Close()

		var records []schema.FlatRecord
		for rows.Next() {
			var r schema.CommitteeRecord
			if err := rows.Scan(&r.Name, &r.HeadTitle, &r.HeadName, &r.HeadRole,
				&r.SecretaryName, &r.SecretaryRole, &r.Members, &r.Term, &r.Order); err != nil {
				return nil, fmt.Errorf("scan %s: %w", collection, err)
			}
			records = append(records, r)
		}
		return records, rows.Err()

	case schema.CollectionFees:
		rows, err := db.Query(ctx,
			`SELECT district, church, pastor, assessment, settlement
			 FROM "fees" ORDER BY district, church`)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		defer rows.Close()

		var records []schema.FlatRecord
		for rows.Next() {
			var r schema.FeeRecord
			if err := rows.Scan(&r.District, &r.Church, &r.Pastor, &r.Assessment, &r.Settlement); err != nil {
				return nil, fmt.Errorf("scan %s: %w", collection, err)
			}
			records = append(records, r)
		}
		return records, rows.Err()

	case schema.CollectionMembers:
		rows, err := db.Query(ctx,
			`SELECT name, church, position, role, username, password
			 FROM "members" ORDER BY church, name`)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		defer rows.Close()

		var records []schema.FlatRecord
		for rows.Next() {
			var r schema.MemberRecord
			if err := rows.Scan(&r.Name, &r.Church, &r.Position, &r.Role, &r.Username, &r.Password); err != nil {
				return nil, fmt.Errorf("scan %s: %w", collection, err)
			}
			records = append(records, r)
		}
		return records, rows.Err()

	default:
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}
}
