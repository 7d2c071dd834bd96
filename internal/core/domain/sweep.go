package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RiskProfile selects the model portfolio swept funds are invested in.
type RiskProfile string

const (
	Conservative RiskProfile = "conservative"
	Balanced     RiskProfile = "balanced"
	Growth       RiskProfile = "growth"
)

// Valid reports whether r is a known risk profile.
func (r RiskProfile) Valid() bool {
	switch r {
	case Conservative, Balanced, Growth:
		return true
	}
	return false
}

const (
	DefaultSweepDay         = 1
	MinSweepDay             = 1
	MaxSweepDay             = 28
	DefaultMonthlyCap       = 50
	DefaultMinimumThreshold = 10
	DefaultMaxMonthlyCap    = 500
)

// SweepSettings is a user's single active sweep configuration.
type SweepSettings struct {
	UserID           string          `json:"userID"`
	IsActive         bool            `json:"isActive"`
	SweepDay         int             `json:"sweepDay"` // 1..28
	MonthlyCap       decimal.Decimal `json:"monthlyCap"`
	MinimumThreshold decimal.Decimal `json:"minimumThreshold"`
	RiskProfile      RiskProfile     `json:"riskProfile"`
	// HaltedAt is set while an integrity hold blocks automated sweeps.
	HaltedAt   *time.Time `json:"haltedAt,omitempty"`
	HaltReason string     `json:"haltReason,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// DefaultSweepSettings returns the settings applied to users who never configured sweeps.
func DefaultSweepSettings(userID string) SweepSettings {
	return SweepSettings{
		UserID:           userID,
		IsActive:         true,
		SweepDay:         DefaultSweepDay,
		MonthlyCap:       decimal.NewFromInt(DefaultMonthlyCap),
		MinimumThreshold: decimal.NewFromInt(DefaultMinimumThreshold),
		RiskProfile:      Balanced,
	}
}

// IsHalted reports whether an integrity hold is in place.
func (s SweepSettings) IsHalted() bool {
	return s.HaltedAt != nil
}

// Validate checks the settings against the configured maximum monthly cap.
func (s SweepSettings) Validate(maxMonthlyCap decimal.Decimal) error {
	if s.SweepDay < MinSweepDay || s.SweepDay > MaxSweepDay {
		return fmt.Errorf("sweep day must be between %d and %d", MinSweepDay, MaxSweepDay)
	}
	if !s.MonthlyCap.IsPositive() {
		return errors.New("monthly cap must be positive")
	}
	if s.MonthlyCap.GreaterThan(maxMonthlyCap) {
		return fmt.Errorf("monthly cap must not exceed %s", maxMonthlyCap.String())
	}
	if s.MinimumThreshold.IsNegative() {
		return errors.New("minimum threshold must not be negative")
	}
	if !s.RiskProfile.Valid() {
		return fmt.Errorf("unknown risk profile %q", s.RiskProfile)
	}
	return nil
}

// SweepStatus is the lifecycle state of a SweepRun.
type SweepStatus string

const (
	SweepPending    SweepStatus = "pending"
	SweepProcessing SweepStatus = "processing"
	SweepCompleted  SweepStatus = "completed"
	SweepFailed     SweepStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s SweepStatus) IsTerminal() bool {
	return s == SweepCompleted || s == SweepFailed
}

// SweepRun records one scheduled investment attempt.
type SweepRun struct {
	SweepRunID     string          `json:"sweepRunID"`
	UserID         string          `json:"userID"`
	ScheduledFor   time.Time       `json:"scheduledFor"` // midnight of the sweep-day occurrence
	ScheduledAt    time.Time       `json:"scheduledAt"`
	Amount         decimal.Decimal `json:"amount"`
	InvestedAmount decimal.Decimal `json:"investedAmount"`
	CurrencyCode   string          `json:"currencyCode"`
	RiskProfile    RiskProfile     `json:"riskProfile"`
	Status         SweepStatus     `json:"status"`
	ErrorDetail    string          `json:"errorDetail,omitempty"`
	ExecutedAt     *time.Time      `json:"executedAt,omitempty"`
}

// SweepState is the outcome of evaluating one user on one trigger.
type SweepState string

const (
	SweepStateIdle             SweepState = "idle"
	SweepStateSkipped          SweepState = "skipped"
	SweepStateRunCreated       SweepState = "run-created"
	SweepStateAlreadyScheduled SweepState = "already-scheduled"
)

// SweepEvaluation describes what a trigger did for one user.
type SweepEvaluation struct {
	UserID     string     `json:"userID"`
	State      SweepState `json:"state"`
	SkipReason string     `json:"skipReason,omitempty"`
	Run        *SweepRun  `json:"run,omitempty"`
}

// SweepDate returns the sweep-day occurrence for the given month, clamped to the month's last day.
func SweepDate(year int, month time.Month, sweepDay int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	day := sweepDay
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// SweepDue reports whether now falls on the user's sweep day, and returns the occurrence date.
func SweepDue(now time.Time, sweepDay int, loc *time.Location) (bool, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	lt := now.In(loc)
	occurrence := SweepDate(lt.Year(), lt.Month(), sweepDay, loc)
	return lt.Day() == occurrence.Day(), occurrence
}
