package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chargehub/internal/repository"
)

func newTariffService(t *testing.T) (*TariffService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTariffService(repository.NewTariffRepository(db), zap.NewNop()), mock
}

func TestResolveActiveReturnsPricedTariff(t *testing.T) {
	svc, mock := newTariffService(t)
	at := time.Date(2026, 3, 14, 10, 12, 0, 0, time.UTC)

	mock.ExpectQuery("FROM tariffs").WithArgs("CCS", at).
		WillReturnRows(sqlmock.NewRows([]string{"id", "connector_type", "price_per_kwh", "price_per_minute", "valid_from", "valid_to"}).
			AddRow(int64(5), "CCS", 0.3, 0.5, at.Add(-24*time.Hour), nil))

	tariff := svc.ResolveActive(context.Background(), "CCS", at)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.False(t, tariff.IsZeroRate())
	assert.Equal(t, int64(5), tariff.ID)
	assert.Equal(t, 0.3, tariff.PricePerKWh)
	assert.Equal(t, 0.5, tariff.PricePerMinute)
}

func TestResolveActiveNoRowsYieldsZeroRate(t *testing.T) {
	svc, mock := newTariffService(t)
	at := time.Date(2026, 3, 14, 10, 12, 0, 0, time.UTC)

	mock.ExpectQuery("FROM tariffs").WithArgs("CHAdeMO", at).WillReturnError(sql.ErrNoRows)

	tariff := svc.ResolveActive(context.Background(), "CHAdeMO", at)
	assert.True(t, tariff.IsZeroRate())
	assert.Equal(t, "CHAdeMO", tariff.ConnectorType)
}

func TestResolveActiveLookupFailureYieldsZeroRate(t *testing.T) {
	svc, mock := newTariffService(t)
	at := time.Date(2026, 3, 14, 10, 12, 0, 0, time.UTC)

	mock.ExpectQuery("FROM tariffs").WithArgs("CCS", at).
		WillReturnError(errors.New("connection reset"))

	tariff := svc.ResolveActive(context.Background(), "CCS", at)
	assert.True(t, tariff.IsZeroRate())
}
