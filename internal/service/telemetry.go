package service

import (
	"context"

	"grid_supervisor/internal/models"
	"grid_supervisor/internal/repository"
)

type TelemetryService struct {
	repo repository.TelemetryRepo
}

func NewTelemetryService(repo repository.TelemetryRepo) *TelemetryService {
	return &TelemetryService{repo: repo}
}

func (s *TelemetryService) History(ctx context.Context, f TelemetryFilter) ([]models.TelemetrySample, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, from, to, f.Limit)
}
