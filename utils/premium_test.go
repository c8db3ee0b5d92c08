package utils

import (
	"testing"

	"insureflow/models"

	"github.com/stretchr/testify/assert"
)

func TestSumPremiumsEmpty(t *testing.T) {
	assert.Equal(t, "0.00", SumPremiums(nil))
	assert.Equal(t, "0.00", SumPremiums([]models.Coverage{}))
}

func TestSumPremiums(t *testing.T) {
	coverages := []models.Coverage{
		{Name: "A", Premium: "100.00"},
		{Name: "B", Premium: "50.00"},
	}
	assert.Equal(t, "150.00", SumPremiums(coverages))
}

func TestSumPremiumsSkipsUnparseable(t *testing.T) {
	coverages := []models.Coverage{
		{Premium: "100.00"},
		{Premium: "abc"},
		{Premium: ""},
		{Premium: "0.5"},
	}
	assert.Equal(t, "100.50", SumPremiums(coverages))
}

func TestRecalcPremiumOverwritesManualValue(t *testing.T) {
	rec := &models.InsuranceRecord{
		Project: models.Project{
			Premium: "999.99",
			Coverages: []models.Coverage{
				{Premium: "100.00"},
			},
		},
	}
	RecalcPremium(rec)
	assert.Equal(t, "100.00", rec.Project.Premium)

	rec.Project.Coverages = append(rec.Project.Coverages, models.Coverage{Premium: "50.00"})
	RecalcPremium(rec)
	assert.Equal(t, "150.00", rec.Project.Premium)
}
