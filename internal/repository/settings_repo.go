package repository

import (
	"context"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
)

// SettingsRepository stores the single app_settings row. The table is
// constrained to id = 1; Get returns ErrNotFound on a fresh install and the
// service layer falls back to hardcoded defaults.
type SettingsRepository struct {
	db DBTX
}

func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*models.AppSettings, error) {
	query := `
		SELECT default_team_session_charge, default_individual_session_charge, available_goals
		FROM app_settings
		WHERE id = 1
	`
	var settings models.AppSettings
	err := r.db.QueryRow(ctx, query).Scan(
		&settings.DefaultTeamSessionCharge,
		&settings.DefaultIndividualSessionCharge,
		&settings.AvailableGoals,
	)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	if settings.AvailableGoals == nil {
		settings.AvailableGoals = []string{}
	}
	return &settings, nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.AppSettings) (*models.AppSettings, error) {
	query := `
		INSERT INTO app_settings (id, default_team_session_charge,
			default_individual_session_charge, available_goals)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			default_team_session_charge = EXCLUDED.default_team_session_charge,
			default_individual_session_charge = EXCLUDED.default_individual_session_charge,
			available_goals = EXCLUDED.available_goals
		RETURNING default_team_session_charge, default_individual_session_charge, available_goals
	`
	var saved models.AppSettings
	err := r.db.QueryRow(
		ctx,
		query,
		settings.DefaultTeamSessionCharge,
		settings.DefaultIndividualSessionCharge,
		settings.AvailableGoals,
	).Scan(
		&saved.DefaultTeamSessionCharge,
		&saved.DefaultIndividualSessionCharge,
		&saved.AvailableGoals,
	)
	if err != nil {
		return nil, err
	}
	if saved.AvailableGoals == nil {
		saved.AvailableGoals = []string{}
	}
	return &saved, nil
}
