package postgres

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/interfaces"
)

type productRepository struct {
	db DB
}

func NewProductRepository(db DB) interfaces.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `product_id, name, filename, price, no_stock`

func (r *productRepository) SelectAll(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY product_id ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Filename, &p.Price, &p.NoStock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) ByProductID(ctx context.Context, productID int) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`
	var p domain.Product
	err := r.db.QueryRow(ctx, query, productID).Scan(
		&p.ProductID, &p.Name, &p.Filename, &p.Price, &p.NoStock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) Insert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO products (product_id, name, filename, price, no_stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + productColumns
	var inserted domain.Product
	err := r.db.QueryRow(ctx, query, p.ProductID, p.Name, p.Filename, p.Price, p.NoStock).Scan(
		&inserted.ProductID, &inserted.Name, &inserted.Filename, &inserted.Price, &inserted.NoStock,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("product %d already exists: %w", p.ProductID, domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return &inserted, nil
}

func (r *productRepository) Update(ctx context.Context, productID int, p domain.Product) (*domain.Product, error) {
	// The update only matches when the destination product id is the row
	// itself or unoccupied; an occupied destination means no row updated,
	// reported as a conflict rather than raised by the database.
	query := `
		UPDATE products
		SET product_id = $1, name = $2, filename = $3, price = $4, no_stock = $5
		WHERE product_id = $6 AND (
			$1 = $6 OR NOT EXISTS (SELECT 1 FROM products WHERE product_id = $1)
		)
		RETURNING ` + productColumns
	var updated domain.Product
	err := r.db.QueryRow(ctx, query, p.ProductID, p.Name, p.Filename, p.Price, p.NoStock, productID).Scan(
		&updated.ProductID, &updated.Name, &updated.Filename, &updated.Price, &updated.NoStock,
	)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	// Distinguish a missing source row from an occupied destination id.
	if _, lookupErr := r.ByProductID(ctx, productID); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, fmt.Errorf("product id %d occupied: %w", p.ProductID, domain.ErrConflict)
}

func (r *productRepository) Delete(ctx context.Context, productID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM products WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}

	// Receipts referencing a removed product carry no meaning, cascade.
	if _, err := tx.Exec(ctx, `DELETE FROM ordered_items WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete ordered items: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *productRepository) SeedIfEmpty(ctx context.Context, csvPath string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products)`).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check products: %w", err)
	}
	if exists {
		return nil
	}

	products, err := readProductCSV(csvPath)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO products (product_id, name, filename, price, no_stock)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, p := range products {
		if _, err := tx.Exec(ctx, query, p.ProductID, p.Name, p.Filename, p.Price, p.NoStock); err != nil {
			return fmt.Errorf("failed to seed product %d: %w", p.ProductID, err)
		}
	}
	return tx.Commit(ctx)
}

// readProductCSV parses a product list CSV with a
// product_id,name,filename,price,no_stock header. Lines starting with # are
// comments; an empty no_stock column means untracked.
func readProductCSV(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open product csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse product csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var products []domain.Product
	for _, rec := range records[1:] { // skip header
		if len(rec) < 5 {
			return nil, fmt.Errorf("product csv row has %d columns, want 5", len(rec))
		}
		productID, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("bad product_id %q: %w", rec[0], err)
		}
		price, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("bad price %q: %w", rec[3], err)
		}
		p := domain.Product{
			ProductID: productID,
			Name:      rec[1],
			Filename:  rec[2],
			Price:     price,
		}
		if rec[4] != "" {
			noStock, err := strconv.Atoi(rec[4])
			if err != nil {
				return nil, fmt.Errorf("bad no_stock %q: %w", rec[4], err)
			}
			p.NoStock = &noStock
		}
		products = append(products, p)
	}
	return products, nil
}
