package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bikepulse/pkg/contracts/domain"
)

// CSVHeader is the column layout of the rental dataset, in source order.
const CSVHeader = "instant,dteday,season_label,hr,casual_day,registered_day,cnt_day,cnt_hour\n"

// RentalsCSV holds the same rows as Records.
const RentalsCSV = CSVHeader +
	"1,2011-01-01,Springer,0,331,654,985,16\n" +
	"2,2011-01-01,Springer,1,331,654,985,40\n" +
	"3,2011-01-02,Springer,0,131,670,801,17\n" +
	"4,2011-01-05,Winter,5,100,1500,1600,3\n"

// MalformedRow has an unparseable date.
const MalformedRow = "5,not-a-date,Winter,5,100,1500,1600,3\n"

// Day parses a YYYY-MM-DD date and panics on bad input.
func Day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Records returns two hourly rows on Jan 1, one on Jan 2 and one on Jan 5
// in a different season. Jan 3 and 4 are gaps.
func Records() []domain.RentalRecord {
	return []domain.RentalRecord{
		{Date: Day("2011-01-01"), TotalCount: 985, CasualCount: 331, RegisteredCount: 654, SeasonLabel: "Springer", Hour: 0, HourlyCount: 16},
		{Date: Day("2011-01-01"), TotalCount: 985, CasualCount: 331, RegisteredCount: 654, SeasonLabel: "Springer", Hour: 1, HourlyCount: 40},
		{Date: Day("2011-01-02"), TotalCount: 801, CasualCount: 131, RegisteredCount: 670, SeasonLabel: "Springer", Hour: 0, HourlyCount: 17},
		{Date: Day("2011-01-05"), TotalCount: 1600, CasualCount: 100, RegisteredCount: 1500, SeasonLabel: "Winter", Hour: 5, HourlyCount: 3},
	}
}

// WriteCSV writes content to all_data.csv in a fresh temp dir and returns
// the path.
func WriteCSV(t testing.TB, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "all_data.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
