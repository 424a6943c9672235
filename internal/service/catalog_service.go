package service

import (
	"art-catalog-service/internal/entity"
	"art-catalog-service/internal/repository"
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "catalog").Logger()

// ErrEmptyFields is returned when a write carries no fields at all.
var ErrEmptyFields = errors.New("no fields provided")

// CatalogService validates field maps and performs the matching store operation
// on art_catalog.products.
type CatalogService struct {
	store repository.RecordStore
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(store repository.RecordStore) *CatalogService {
	return &CatalogService{store: store}
}

// RetrieveAll returns every catalog item, possibly none.
func (s *CatalogService) RetrieveAll(ctx context.Context) ([]entity.Item, error) {
	records, err := s.store.FetchAll(ctx, entity.Schema, entity.Table)
	if err != nil {
		logger.Error().Err(err).Msg("Error retrieving catalog")
		return nil, err
	}

	items := make([]entity.Item, 0, len(records))
	for _, r := range records {
		items = append(items, entity.Item(r))
	}
	return items, nil
}

// RetrieveByID returns the item with the given id. A missing item is
// reported through the bool, not as an error.
func (s *CatalogService) RetrieveByID(ctx context.Context, id int) (entity.Item, bool, error) {
	records, err := s.store.FindByTemplate(ctx, entity.Schema, entity.Table, map[string]any{entity.KeyID: id})
	if err != nil {
		logger.Error().Err(err).Msgf("Error retrieving item %d", id)
		return nil, false, err
	}

	if len(records) == 0 {
		logger.Debug().Msgf("Item %d not found", id)
		return nil, false, nil
	}
	return entity.Item(records[0]), true, nil
}

// Create validates fields and inserts a new item, returning its item_id.
func (s *CatalogService) Create(ctx context.Context, fields entity.Fields) (int64, error) {
	if err := checkWritable(fields); err != nil {
		logger.Warn().Err(err).Msg("Rejected new item")
		return 0, err
	}

	id, err := s.store.Insert(ctx, entity.Schema, entity.Table, fields)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating item")
		return 0, err
	}

	logger.Info().Msgf("Created item %d", id)
	return id, nil
}

// Update validates fields and applies them to the item with the given id.
// It returns the number of rows affected: 0 when no such item exists.
func (s *CatalogService) Update(ctx context.Context, id int, fields entity.Fields) (int64, error) {
	if err := checkWritable(fields); err != nil {
		logger.Warn().Err(err).Msgf("Rejected update of item %d", id)
		return 0, err
	}

	n, err := s.store.Update(ctx, entity.Schema, entity.Table, entity.KeyID, id, fields)
	if err != nil {
		logger.Error().Err(err).Msgf("Error updating item %d", id)
		return 0, err
	}

	if n == 0 {
		logger.Warn().Msgf("Item %d not found for update", id)
	}
	return n, nil
}

// Delete removes the item with the given id and returns the number of rows
// affected: 0 when no such item exists.
func (s *CatalogService) Delete(ctx context.Context, id int) (int64, error) {
	n, err := s.store.Delete(ctx, entity.Schema, entity.Table, entity.KeyID, id)
	if err != nil {
		logger.Error().Err(err).Msgf("Error deleting item %d", id)
		return 0, err
	}

	if n == 0 {
		logger.Warn().Msgf("Item %d not found for delete", id)
	}
	return n, nil
}

// Ping reports whether the record store is reachable.
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func checkWritable(fields entity.Fields) error {
	if err := entity.Validate(fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		return ErrEmptyFields
	}
	return nil
}
