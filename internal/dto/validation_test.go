package dto_test

import (
	"testing"

	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepDayValidation(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, dto.RegisterValidators(v))

	day := func(d int) *int { return &d }
	profile := "growth"
	bad := "yolo"

	assert.NoError(t, v.Struct(dto.UpdateSweepSettingsRequest{SweepDay: day(1)}))
	assert.NoError(t, v.Struct(dto.UpdateSweepSettingsRequest{SweepDay: day(28), RiskProfile: &profile}))
	assert.NoError(t, v.Struct(dto.UpdateSweepSettingsRequest{}))
	assert.Error(t, v.Struct(dto.UpdateSweepSettingsRequest{SweepDay: day(0)}))
	assert.Error(t, v.Struct(dto.UpdateSweepSettingsRequest{SweepDay: day(29)}))
	assert.Error(t, v.Struct(dto.UpdateSweepSettingsRequest{RiskProfile: &bad}))
}
