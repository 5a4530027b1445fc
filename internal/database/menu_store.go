package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/logging"
)

// DefaultMenuName names the menu created on a vendor's first item
const DefaultMenuName = "Main Menu"

// MenuStore handles vendor menus
type MenuStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewMenuStore creates a new menu store
func NewMenuStore(db *DB) (*MenuStore, error) {
	return &MenuStore{db: db.Conn(), logger: logging.GetLogger("menu-store"), now: db.now}, nil
}

// AddItem adds an item to the vendor's active menu, creating the menu when needed
func (s *MenuStore) AddItem(ctx context.Context, vendorID string, in NewMenuItem) (*MenuItem, error) {
	now := s.now().UTC()
	item := &MenuItem{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Description:  in.Description,
		PriceCents:   in.PriceCents,
		IsAvailable:  true,
		IsGlutenFree: in.IsGlutenFree,
		IsSpicy:      in.IsSpicy,
		IsVegan:      in.IsVegan,
		IsVegetarian: in.IsVegetarian,
		CreatedAt:    now,
	}

	err := withTransaction(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		menuID, err := ensureActiveMenu(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		item.MenuID = menuID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO menu_items (
				id, menu_id, name, description, price_cents, is_available,
				is_gluten_free, is_spicy, is_vegan, is_vegetarian, created_at
			) VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
		`, item.ID, menuID, item.Name, nullString(item.Description), item.PriceCents,
			item.IsGlutenFree, item.IsSpicy, item.IsVegan, item.IsVegetarian, FormatTime(now))
		if err != nil {
			return fmt.Errorf("failed to insert menu item: %w", classify(err))
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("vendor_id", vendorID).Msg("Failed to add menu item")
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item that belongs to one of the vendor's menus.
// Items of other vendors yield ErrNotFound.
func (s *MenuStore) DeleteItem(ctx context.Context, vendorID, itemID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM menu_items
		WHERE id = ?
		  AND menu_id IN (SELECT id FROM menus WHERE vendor_id = ?)
	`, itemID, vendorID)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListItems returns the items on the vendor's active menu in creation order
func (s *MenuStore) ListItems(ctx context.Context, vendorID string) ([]MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mi.id, mi.menu_id, mi.name, COALESCE(mi.description, ''), mi.price_cents,
			mi.is_available, mi.is_gluten_free, mi.is_spicy, mi.is_vegan, mi.is_vegetarian, mi.created_at
		FROM menu_items mi
		JOIN menus m ON m.id = mi.menu_id
		WHERE m.vendor_id = ? AND m.is_active = 1
		ORDER BY mi.created_at, mi.rowid
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := []MenuItem{}
	for rows.Next() {
		var (
			it      MenuItem
			created string
		)
		if err := rows.Scan(&it.ID, &it.MenuID, &it.Name, &it.Description, &it.PriceCents,
			&it.IsAvailable, &it.IsGlutenFree, &it.IsSpicy, &it.IsVegan, &it.IsVegetarian, &created); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		if it.CreatedAt, err = ParseTime(created); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func ensureActiveMenu(ctx context.Context, q querier, vendorID string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		SELECT id FROM menus WHERE vendor_id = ? AND is_active = 1 LIMIT 1
	`, vendorID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to load active menu: %w", err)
	}

	id = uuid.NewString()
	if _, err := q.ExecContext(ctx, `
		INSERT INTO menus (id, vendor_id, name, is_active) VALUES (?, ?, ?, 1)
	`, id, vendorID, DefaultMenuName); err != nil {
		return "", fmt.Errorf("failed to create menu: %w", classify(err))
	}
	return id, nil
}
