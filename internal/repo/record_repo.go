package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xxxsen/tenantrag/internal/model"
	"github.com/xxxsen/tenantrag/internal/pkg/dbutil"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
)

// RecordRepo is a read-only view over the inventory products table.
type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// ListProducts loads the products of one owner, or of every owner when
// ownerID is empty.
func (r *RecordRepo) ListProducts(ctx context.Context, ownerID string) ([]model.Product, error) {
	query := `
		SELECT product_id, owner_id::text, name, type, price, quantity,
			expiry_date::text, warranty_period::text, author, pages
		FROM products`
	var args []interface{}
	if ownerID != "" {
		query += ` WHERE owner_id::text = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY product_id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if dbutil.IsUndefinedTable(err) {
			return nil, fmt.Errorf("%w: products table not found", appErr.ErrConfiguration)
		}
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ProductID, &p.OwnerID, &p.Name, &p.Type, &p.Price, &p.Quantity,
			&p.ExpiryDate, &p.WarrantyPeriod, &p.Author, &p.Pages); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// ListRecords adapts products into ingestible source records.
func (r *RecordRepo) ListRecords(ctx context.Context, ownerID string) ([]*model.SourceRecord, error) {
	products, err := r.ListProducts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	records := make([]*model.SourceRecord, 0, len(products))
	for i := range products {
		records = append(records, products[i].SourceRecord())
	}
	return records, nil
}
