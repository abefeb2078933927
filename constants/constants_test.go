package constants

import (
	"regexp"
	"testing"
	"time"
)

func TestTimeFormat(t *testing.T) {
	// Check that file name timestamps contain no characters that break Windows paths.
	s := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(TimeFormatYearSeconds)
	re := regexp.MustCompile(`^[0-9]{8}_[0-9]{6}$`)
	if !re.MatchString(s) {
		t.Fatalf("Unexpected time format %q.", s)
	}
}

func TestProgressOrder(t *testing.T) {
	// Check that progress milestones only go up.
	p := []int{ProgressStart, ProgressPreflightDone, ProgressStepOneDone, ProgressComplete}
	for i := 1; i < len(p); i++ {
		if p[i] <= p[i-1] {
			t.Fatalf("Progress milestone %v is not greater than %v.", p[i], p[i-1])
		}
	}
}
