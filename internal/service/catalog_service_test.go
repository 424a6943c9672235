package service

import (
	"art-catalog-service/internal/entity"
	"art-catalog-service/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore wraps a MemoryRepository and remembers the last write.
type recordingStore struct {
	*repository.MemoryRepository
	writes []map[string]any
	err    error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryRepository: repository.NewMemoryRepository(entity.KeyID)}
}

func (s *recordingStore) Insert(ctx context.Context, schema, table string, fields map[string]any) (int64, error) {
	s.writes = append(s.writes, fields)
	if s.err != nil {
		return 0, s.err
	}
	return s.MemoryRepository.Insert(ctx, schema, table, fields)
}

func (s *recordingStore) Update(ctx context.Context, schema, table, keyField string, keyValue any, fields map[string]any) (int64, error) {
	s.writes = append(s.writes, fields)
	if s.err != nil {
		return 0, s.err
	}
	return s.MemoryRepository.Update(ctx, schema, table, keyField, keyValue, fields)
}

func (s *recordingStore) FetchAll(ctx context.Context, schema, table string) ([]map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.MemoryRepository.FetchAll(ctx, schema, table)
}

func (s *recordingStore) Delete(ctx context.Context, schema, table, keyField string, keyValue any) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.MemoryRepository.Delete(ctx, schema, table, keyField, keyValue)
}

func TestCreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(newRecordingStore())

	fields := entity.Fields{"artist": "A", "title": "T", "width": 10, "height": 20, "price": 99.5}
	id, err := svc.Create(ctx, fields)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	item, found, err := svc.RetrieveByID(ctx, int(id))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entity.Item{"item_id": id, "artist": "A", "title": "T", "width": 10, "height": 20, "price": 99.5}, item)
}

func TestCreatePassesFieldsUnchanged(t *testing.T) {
	store := newRecordingStore()
	svc := NewCatalogService(store)

	fields := entity.Fields{"artist": "A", "width": json.Number("5"), "price": json.Number("5.0")}
	_, err := svc.Create(context.Background(), fields)
	require.NoError(t, err)

	require.Len(t, store.writes, 1)
	assert.Equal(t, map[string]any{"artist": "A", "width": json.Number("5"), "price": json.Number("5.0")}, store.writes[0])
}

func TestCreateRejectsBeforeWriting(t *testing.T) {
	tests := []struct {
		name   string
		fields entity.Fields
		want   error
	}{
		{"unknown field", entity.Fields{"artist": "A", "frame": "oak"}, entity.ErrUnknownField},
		{"unknown wins over bad type", entity.Fields{"artist": 5, "frame": "oak"}, entity.ErrUnknownField},
		{"bad type", entity.Fields{"artist": 5}, entity.ErrInvalidType},
		{"empty", entity.Fields{}, ErrEmptyFields},
		{"nil", nil, ErrEmptyFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore()
			svc := NewCatalogService(store)

			_, err := svc.Create(context.Background(), tt.fields)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.writes)
		})
	}
}

func TestRetrieveByIDMissing(t *testing.T) {
	svc := NewCatalogService(newRecordingStore())

	item, found, err := svc.RetrieveByID(context.Background(), 404)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, item)
}

func TestRetrieveAll(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(newRecordingStore())

	items, err := svc.RetrieveAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = svc.Create(ctx, entity.Fields{"artist": "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, entity.Fields{"artist": "B"})
	require.NoError(t, err)

	items, err = svc.RetrieveAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[1]["artist"])
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(newRecordingStore())

	id, err := svc.Create(ctx, entity.Fields{"artist": "A", "title": "T"})
	require.NoError(t, err)

	n, err := svc.Update(ctx, int(id), entity.Fields{"title": "New"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	item, _, err := svc.RetrieveByID(ctx, int(id))
	require.NoError(t, err)
	assert.Equal(t, "A", item["artist"])
	assert.Equal(t, "New", item["title"])

	n, err = svc.Update(ctx, 999, entity.Fields{"title": "New"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateRejectsBeforeWriting(t *testing.T) {
	store := newRecordingStore()
	svc := NewCatalogService(store)

	_, err := svc.Update(context.Background(), 1, entity.Fields{"width": "wide"})
	assert.ErrorIs(t, err, entity.ErrInvalidType)

	_, err = svc.Update(context.Background(), 1, entity.Fields{})
	assert.ErrorIs(t, err, ErrEmptyFields)

	assert.Empty(t, store.writes)
}

func TestDeleteTwice(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(newRecordingStore())

	id, err := svc.Create(ctx, entity.Fields{"artist": "A"})
	require.NoError(t, err)

	n, err := svc.Delete(ctx, int(id))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.Delete(ctx, int(id))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")
	store := newRecordingStore()
	store.err = boom
	svc := NewCatalogService(store)

	_, err := svc.RetrieveAll(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = svc.Create(ctx, entity.Fields{"artist": "A"})
	assert.ErrorIs(t, err, boom)

	_, err = svc.Update(ctx, 1, entity.Fields{"artist": "A"})
	assert.ErrorIs(t, err, boom)

	_, err = svc.Delete(ctx, 1)
	assert.ErrorIs(t, err, boom)
}
