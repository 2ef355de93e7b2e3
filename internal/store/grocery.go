package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/smartgrocery/internal/model"
)

type GroceryStore struct {
	db *sql.DB
}

func NewGroceryStore(db *sql.DB) *GroceryStore {
	return &GroceryStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.GroceryItem, error) {
	var item model.GroceryItem
	err := scanner.Scan(
		&item.ID, &item.UserID, &item.Name, &item.Description, &item.ImageURL,
		&item.Details, &item.Quantity, &item.Barcode, &item.Brand, &item.Category,
		&item.ExpirationDate, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

const itemCols = `id, user_id, name, description, image_url, details, quantity, barcode, brand, category, expiration_date, created_at`

func (s *GroceryStore) GetByID(ctx context.Context, userID, id int64) (*model.GroceryItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM grocery_items WHERE id = ? AND user_id = ?`, id, userID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Insert stores item, replacing the row with the same ID when one exists for
// the same user. A zero ID always inserts a new row. Returns nil when the ID
// belongs to another user.
func (s *GroceryStore) Insert(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error) {
	var id sql.NullInt64
	if item.ID != 0 {
		id = sql.NullInt64{Int64: item.ID, Valid: true}
	}

	var newID int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO grocery_items (id, user_id, name, description, image_url, details, quantity, barcode, brand, category, expiration_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			image_url = excluded.image_url,
			details = excluded.details,
			quantity = excluded.quantity,
			barcode = excluded.barcode,
			brand = excluded.brand,
			category = excluded.category,
			expiration_date = excluded.expiration_date
		WHERE grocery_items.user_id = excluded.user_id
		RETURNING id`,
		id, item.UserID, item.Name, item.Description, item.ImageURL, item.Details,
		item.Quantity, item.Barcode, item.Brand, item.Category, item.ExpirationDate,
	).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetByID(ctx, item.UserID, newID)
}

// ListAll returns every item owned by userID, newest first.
func (s *GroceryStore) ListAll(ctx context.Context, userID int64) ([]model.GroceryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemCols+` FROM grocery_items WHERE user_id = ? ORDER BY id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.GroceryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Update overwrites the mutable fields of an existing item. Returns nil when
// the item does not exist for that user.
func (s *GroceryStore) Update(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE grocery_items SET name = ?, description = ?, image_url = ?, details = ?, quantity = ?,
			barcode = ?, brand = ?, category = ?, expiration_date = ?
		WHERE id = ? AND user_id = ?`,
		item.Name, item.Description, item.ImageURL, item.Details, item.Quantity,
		item.Barcode, item.Brand, item.Category, item.ExpirationDate,
		item.ID, item.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, item.UserID, item.ID)
}

// Delete removes the item and reports whether a row was deleted.
func (s *GroceryStore) Delete(ctx context.Context, userID, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM grocery_items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
