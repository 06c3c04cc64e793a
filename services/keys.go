package services

import (
	"fmt"
	"time"
)

// DailyResultsKey is outputs/<YYYY-MM-DD>/<file>, where the date is now in a
// fixed UTC offset. The producer writes one folder per local day.
func DailyResultsKey(now time.Time, offsetHours int, file string) string {
	return fmt.Sprintf("outputs/%s/%s", LocalDate(now, offsetHours), file)
}

// LocalDate formats now as YYYY-MM-DD in the fixed offset zone.
func LocalDate(now time.Time, offsetHours int) string {
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
	return now.In(zone).Format("2006-01-02")
}
