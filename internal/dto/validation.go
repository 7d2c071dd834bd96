package dto

import (
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the request validation tags used by the DTOs to v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("sweepday", validateSweepDay)
}

func validateSweepDay(fl validator.FieldLevel) bool {
	day := fl.Field().Int()
	return day >= domain.MinSweepDay && day <= domain.MaxSweepDay
}
