package service

import (
	"context"

	"grid_supervisor/internal/models"
)

type MonitoringService struct {
	engine Engine
}

func NewMonitoringService(engine Engine) *MonitoringService {
	return &MonitoringService{engine: engine}
}

// GetState returns a consistent copy of the live grid.
func (s *MonitoringService) GetState(ctx context.Context) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}
	return s.engine.Snapshot(), nil
}
