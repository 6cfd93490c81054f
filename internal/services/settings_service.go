package services

import (
	"context"
	"errors"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/repository"
)

type SettingsService struct {
	settingsRepo *repository.SettingsRepository
}

func NewSettingsService(settingsRepo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// GetSettings returns the stored settings. On a fresh install the hardcoded
// defaults are written first and then returned, so the record exists from the
// first read on.
func (s *SettingsService) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	return loadSettings(ctx, s.settingsRepo)
}

func (s *SettingsService) SaveSettings(ctx context.Context, settings models.AppSettings) (*models.AppSettings, error) {
	if settings.DefaultTeamSessionCharge <= 0 || settings.DefaultIndividualSessionCharge <= 0 {
		return nil, ErrInvalidInput
	}
	if settings.AvailableGoals == nil {
		settings.AvailableGoals = []string{}
	}
	return s.settingsRepo.Upsert(ctx, &settings)
}

func loadSettings(ctx context.Context, repo *repository.SettingsRepository) (*models.AppSettings, error) {
	settings, err := repo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			defaults := models.DefaultSettings()
			return repo.Upsert(ctx, &defaults)
		}
		return nil, err
	}
	return settings, nil
}
