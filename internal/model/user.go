package model

import (
	"fmt"
	"strings"
)

// RawUser is one user record as delivered by the upstream player API.
// The upstream is loose about types: numeric fields may arrive as JSON
// numbers, numeric strings, the sentinel "Never", or be missing entirely,
// so everything non-identity is typed any and coerced at read time.
type RawUser struct {
	ID        any    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Country   string `json:"country"`
	CreatedAt string `json:"created_at"`
	KYCStatus string `json:"kyc_status"`
	IsVIP     any    `json:"is_vip"`

	DaysSinceLastGame    any `json:"days_since_last_game"`
	DaysSinceLastDeposit any `json:"days_since_last_deposit"`
	GamesLast7Days       any `json:"games_last_7_days"`
	GamesLast30Days      any `json:"games_last_30_days"`
	TotalGamesPlayed     any `json:"total_games_played"`

	TotalDeposits      any `json:"total_deposits"`
	TotalDepositAmount any `json:"total_deposit_amount"`
	TotalWagered       any `json:"total_wagered"`

	TotalBonuses          any `json:"total_bonuses"`
	BonusCancellationRate any `json:"bonus_cancellation_rate"`
	BonusCompletionRate   any `json:"bonus_completion_rate"`
}

// UserID returns the user's identity as a string, or "" when absent.
func (u RawUser) UserID() string {
	if u.ID == nil {
		return ""
	}
	switch id := u.ID.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		// JSON numbers decode as float64; ids are integral.
		return fmt.Sprintf("%.0f", id)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", id))
	}
}

// FullName joins first and last name, tolerating either being empty.
func (u RawUser) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
