package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailyResultsKey(t *testing.T) {
	// 01:30 UTC is still the previous day at UTC-3.
	now := time.Date(2025, 10, 9, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, "outputs/2025-10-08/omqb_results.csv", DailyResultsKey(now, -3, "omqb_results.csv"))

	now = time.Date(2025, 10, 9, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "outputs/2025-10-09/omqb_results.csv", DailyResultsKey(now, -3, "omqb_results.csv"))

	assert.Equal(t, "2025-10-09", LocalDate(time.Date(2025, 10, 9, 1, 30, 0, 0, time.UTC), 0))
}
