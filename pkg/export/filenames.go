package export

import (
	"time"

	"github.com/tiffintracker/tiffin/pkg/date_range"
)

func ReportFilename(start, end string) string {
	return "TiffinTracker_" + start + "_to_" + end + ".csv"
}

func XlsxReportFilename(start, end string) string {
	return "TiffinTracker_" + start + "_to_" + end + ".xlsx"
}

// BackupFilename names a backup after the day it was taken, in now's location.
func BackupFilename(now time.Time) string {
	return "TiffinTracker_Backup_" + date_range.FormatDate(now) + ".json"
}
