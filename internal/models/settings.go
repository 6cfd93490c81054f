package models

type AppSettings struct {
	DefaultTeamSessionCharge       int      `json:"default_team_session_charge"`
	DefaultIndividualSessionCharge int      `json:"default_individual_session_charge"`
	AvailableGoals                 []string `json:"available_goals"`
}

// DefaultSettings is what a fresh install starts with before the instructor
// saves anything.
func DefaultSettings() AppSettings {
	return AppSettings{
		DefaultTeamSessionCharge:       1,
		DefaultIndividualSessionCharge: 2,
		AvailableGoals: []string{
			"Flexibility",
			"Strength",
			"Balance",
			"Breathing",
			"Relaxation",
			"Posture",
		},
	}
}

// ChargeFor returns the default per-attendee charge for a session type.
func (s AppSettings) ChargeFor(sessionType string) int {
	if sessionType == SessionTypeIndividual {
		return s.DefaultIndividualSessionCharge
	}
	return s.DefaultTeamSessionCharge
}
