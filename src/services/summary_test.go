package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/username/folioledger/src/models"
)

func TestSummarizeEmptyLedger(t *testing.T) {
	t.Parallel()

	summary := Summarize(nil)
	assert.Zero(t, summary.TotalCount)
	assert.Empty(t, summary.CountByKind)
	assert.True(t, summary.GrossVolume.IsZero())
	assert.Empty(t, summary.VolumeByCurrency)
}

func TestSummarizeCountsAndVolume(t *testing.T) {
	t.Parallel()

	summary := Summarize(sampleLedger())

	assert.Equal(t, 4, summary.TotalCount)
	assert.Equal(t, 2, summary.CountByKind[models.KindTrade])
	assert.Equal(t, 1, summary.CountByKind[models.KindCashFlow])
	assert.Equal(t, 1, summary.CountByKind[models.KindFundUnit])

	// Gross volume uses absolute amounts; the -200 redemption contributes 200.
	assert.True(t, summary.GrossVolume.Equal(decimal.NewFromInt(2000)), "gross volume %s", summary.GrossVolume)
	assert.True(t, summary.VolumeByCurrency["EUR"].Equal(decimal.NewFromInt(1700)))
	assert.True(t, summary.VolumeByCurrency["USD"].Equal(decimal.NewFromInt(300)))
}

func TestSummarizeComposesWithFilter(t *testing.T) {
	t.Parallel()

	filtered := FilterTransactions(sampleLedger(), FilterCriteria{Kind: models.KindTrade})
	summary := Summarize(filtered)

	assert.Equal(t, 2, summary.TotalCount)
	assert.True(t, summary.GrossVolume.Equal(decimal.NewFromInt(1300)))
	assert.Equal(t, 0, summary.CountByKind[models.KindCashFlow])
}
