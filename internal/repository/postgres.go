package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"fouani/storesync/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const productColumns = `sku, title, price, availability, url, images, tags_images, description,
	specifications, main_category, sub_category, product_type, deleted`

const createProductsTable = `
CREATE TABLE IF NOT EXISTS products (
	sku            TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	price          TEXT NOT NULL DEFAULT '',
	availability   TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT '',
	images         TEXT[] NOT NULL DEFAULT '{}',
	tags_images    TEXT[] NOT NULL DEFAULT '{}',
	description    TEXT NOT NULL DEFAULT '',
	specifications JSONB NOT NULL DEFAULT '{}',
	main_category  TEXT[] NOT NULL DEFAULT '{}',
	sub_category   TEXT[] NOT NULL DEFAULT '{}',
	product_type   TEXT[] NOT NULL DEFAULT '{}',
	deleted        BOOLEAN NOT NULL DEFAULT FALSE
)`

// array columns get GIN indexes so category membership queries can use them
var postgresIndexes = map[string]string{
	"title":         "CREATE INDEX IF NOT EXISTS idx_products_title ON products (title)",
	"main_category": "CREATE INDEX IF NOT EXISTS idx_products_main_category ON products USING GIN (main_category)",
	"sub_category":  "CREATE INDEX IF NOT EXISTS idx_products_sub_category ON products USING GIN (sub_category)",
	"product_type":  "CREATE INDEX IF NOT EXISTS idx_products_product_type ON products USING GIN (product_type)",
	"availability":  "CREATE INDEX IF NOT EXISTS idx_products_availability ON products (availability)",
	"deleted":       "CREATE INDEX IF NOT EXISTS idx_products_deleted ON products (deleted)",
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) ProductRepository {
	return &postgresRepository{
		db: db,
	}
}

func (r *postgresRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createProductsTable); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}
	for _, field := range IndexedFields {
		if _, err := r.db.Exec(ctx, postgresIndexes[field]); err != nil {
			return fmt.Errorf("failed to create %s index: %w", field, err)
		}
	}
	log.Info("✅ Postgres schema and indexes ready")
	return nil
}

func (r *postgresRepository) FindAll(ctx context.Context) ([]domain.ProductRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProductRecord, error) {
		var rec domain.ProductRecord
		err := row.Scan(
			&rec.SKU, &rec.Title, &rec.Price, &rec.Availability, &rec.URL,
			&rec.Images, &rec.TagsImages, &rec.Description, &rec.Specifications,
			&rec.MainCategory, &rec.SubCategory, &rec.ProductType, &rec.Deleted,
		)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return records, nil
}

func (r *postgresRepository) InsertBatch(ctx context.Context, records []domain.ProductRecord) (BatchResult, error) {
	query := `
	INSERT INTO products (` + productColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (sku) DO NOTHING`

	// a conflicting sku affects zero rows instead of aborting the batch
	return r.sendBatch(ctx, query, records, ErrDuplicateSKU)
}

func (r *postgresRepository) ReplaceBatch(ctx context.Context, records []domain.ProductRecord) (BatchResult, error) {
	query := `
	UPDATE products SET
		title = $2, price = $3, availability = $4, url = $5, images = $6, tags_images = $7,
		description = $8, specifications = $9, main_category = $10, sub_category = $11,
		product_type = $12, deleted = $13
	WHERE sku = $1`

	return r.sendBatch(ctx, query, records, ErrUnknownSKU)
}

func (r *postgresRepository) sendBatch(ctx context.Context, query string, records []domain.ProductRecord, noRowsErr error) (BatchResult, error) {
	batch := &pgx.Batch{}
	for _, rec := range records {
		args, err := productArgs(rec)
		if err != nil {
			return BatchResult{}, err
		}
		batch.Queue(query, args...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	var result BatchResult
	for _, rec := range records {
		tag, err := results.Exec()
		if err != nil {
			return result, fmt.Errorf("failed to write product %s: %w", rec.SKU, err)
		}
		if tag.RowsAffected() == 0 {
			result.Failures = append(result.Failures, domain.WriteFailure{SKU: rec.SKU, Err: noRowsErr})
			continue
		}
		result.Written++
	}
	return result, nil
}

func productArgs(rec domain.ProductRecord) ([]any, error) {
	specs := rec.Specifications
	if specs == nil {
		specs = map[string]string{}
	}
	specsJSON, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode specifications of %s: %w", rec.SKU, err)
	}

	return []any{
		rec.SKU, rec.Title, rec.Price, rec.Availability, rec.URL,
		nonNil(rec.Images), nonNil(rec.TagsImages), rec.Description, specsJSON,
		nonNil(rec.MainCategory), nonNil(rec.SubCategory), nonNil(rec.ProductType), rec.Deleted,
	}, nil
}

func (r *postgresRepository) MarkDeleted(ctx context.Context, skus []string) (int, error) {
	tag, err := r.db.Exec(ctx, `UPDATE products SET deleted = TRUE WHERE sku = ANY($1) AND NOT deleted`, skus)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete products: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *postgresRepository) Counts(ctx context.Context) (int, int, error) {
	var active, deleted int
	err := r.db.QueryRow(ctx, `
	SELECT COUNT(*) FILTER (WHERE NOT deleted), COUNT(*) FILTER (WHERE deleted)
	FROM products`).Scan(&active, &deleted)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count products: %w", err)
	}
	return active, deleted, nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *postgresRepository) Close(context.Context) error {
	r.db.Close()
	return nil
}
