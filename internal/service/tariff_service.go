package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"chargehub/internal/models"
	"chargehub/internal/repository"
)

// TariffService resolves the tariff in effect for a connector type at a
// point in time. Absence of a priced tariff is not an error here: callers
// get a zero-rate sentinel and must apply the no-billing fallback.
type TariffService struct {
	repo   *repository.TariffRepository
	logger *zap.Logger
}

// NewTariffService returns service instance.
func NewTariffService(repo *repository.TariffRepository, logger *zap.Logger) *TariffService {
	return &TariffService{repo: repo, logger: logger}
}

// ResolveActive returns the active tariff or the zero-rate sentinel.
func (s *TariffService) ResolveActive(ctx context.Context, connectorType string, at time.Time) models.Tariff {
	tariff, err := s.repo.FindActive(ctx, connectorType, at)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("tariff lookup failed, falling back to zero-rate",
				zap.String("connector_type", connectorType),
				zap.Error(err),
			)
		}
		return zeroRateTariff(connectorType, at)
	}
	return *tariff
}

func zeroRateTariff(connectorType string, at time.Time) models.Tariff {
	return models.Tariff{
		ConnectorType: connectorType,
		ValidFrom:     at,
	}
}
