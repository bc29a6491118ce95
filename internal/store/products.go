package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Product is a downloaded satellite data product on local disk.
type Product struct {
	UUID          string
	Source        string // platform the product came from, e.g. "s5p"
	ProductType   string
	Title         string
	MD5           string
	Size          string
	BeginPosition time.Time
	Path          string
}

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// RecordProduct stores a downloaded product, replacing any earlier record
// for the same UUID.
func (s *Store) RecordProduct(ctx context.Context, p Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (uuid, source, product_type, title, md5, size, begin_position, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET source=excluded.source,
			product_type=excluded.product_type, title=excluded.title,
			md5=excluded.md5, size=excluded.size,
			begin_position=excluded.begin_position, path=excluded.path`,
		p.UUID, p.Source, p.ProductType, p.Title, p.MD5, p.Size,
		p.BeginPosition.Format(time.RFC3339), p.Path)
	if err != nil {
		return fmt.Errorf("failed to record product: %w", err)
	}
	return nil
}

// ProductByUUID fetches one product record.
func (s *Store) ProductByUUID(ctx context.Context, uuid string) (*Product, error) {
	var (
		p     Product
		begin string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT uuid, source, product_type, title, md5, size, begin_position, path
		FROM products WHERE uuid = ?`,
		uuid).Scan(&p.UUID, &p.Source, &p.ProductType, &p.Title, &p.MD5, &p.Size, &begin, &p.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", uuid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, begin); err == nil {
		p.BeginPosition = ts
	}
	return &p, nil
}

// HasProduct reports whether a product has already been downloaded.
func (s *Store) HasProduct(ctx context.Context, uuid string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE uuid = ?`, uuid).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check product: %w", err)
	}
	return count > 0, nil
}
