package catalog

import (
	"context"
	"log/slog"

	"habitat-server/internal/shared/database"
	"habitat-server/internal/shared/errors"
)

type Repository struct {
	db     database.Executor
	logger *slog.Logger
}

func NewRepository(db database.Executor, logger *slog.Logger) *Repository {
	logger.Debug("Initializing catalog repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetModuleTypes(ctx context.Context) ([]ModuleType, error) {
	logger := r.logger.With("component", "catalog_repository", "operation", "get_module_types")
	logger.Debug("Loading module types")

	query := `
		SELECT key, name, phase, o2, energy, water, food, capacity
		FROM module_types
		ORDER BY sort_order, key
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query module types", "error", err)
		return nil, errors.WrapExternal("failed to query module types", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var types []ModuleType
	for rows.Next() {
		var t ModuleType
		if err := rows.Scan(&t.Key, &t.Name, &t.Phase, &t.Oxygen, &t.Energy, &t.Water, &t.Food, &t.Capacity); err != nil {
			logger.Error("Failed to scan module type", "error", err)
			return nil, errors.WrapExternal("failed to scan module type", err)
		}
		types = append(types, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, errors.WrapExternal("error iterating module types", err)
	}

	logger.Debug("Module types loaded", "count", len(types))
	return types, nil
}

func (r *Repository) GetShapes(ctx context.Context) ([]Shape, error) {
	logger := r.logger.With("component", "catalog_repository", "operation", "get_shapes")

	rows, err := r.db.QueryContext(ctx, `SELECT key, name FROM module_shapes ORDER BY sort_order, key`)
	if err != nil {
		logger.Error("Failed to query shapes", "error", err)
		return nil, errors.WrapExternal("failed to query shapes", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var shapes []Shape
	for rows.Next() {
		var s Shape
		if err := rows.Scan(&s.Key, &s.Name); err != nil {
			logger.Error("Failed to scan shape", "error", err)
			return nil, errors.WrapExternal("failed to scan shape", err)
		}
		shapes = append(shapes, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WrapExternal("error iterating shapes", err)
	}
	return shapes, nil
}

// Load builds a catalog from the database tables; sprite resolution is not
// stored in the database and comes from sprites.
func (r *Repository) Load(ctx context.Context, sprites SpriteConfig) (*Catalog, error) {
	types, err := r.GetModuleTypes(ctx)
	if err != nil {
		return nil, err
	}
	shapes, err := r.GetShapes(ctx)
	if err != nil {
		return nil, err
	}

	c, err := New(types, shapes, sprites)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Catalog loaded from database", "module_types", len(types), "shapes", len(shapes))
	return c, nil
}
