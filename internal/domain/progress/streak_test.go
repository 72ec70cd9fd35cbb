package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordStudyDay(t *testing.T) {
	tests := []struct {
		name       string
		lastDate   string
		streak     int
		today      string
		wantStreak int
		wantDate   string
	}{
		{"first lesson ever", "", 0, "2024-01-01", 1, "2024-01-01"},
		{"consecutive day", "2024-01-01", 1, "2024-01-02", 2, "2024-01-02"},
		{"same day", "2024-01-02", 2, "2024-01-02", 2, "2024-01-02"},
		{"gap resets", "2024-01-02", 2, "2024-01-10", 1, "2024-01-10"},
		{"month boundary", "2024-01-31", 4, "2024-02-01", 5, "2024-02-01"},
		{"clock moved back", "2024-01-10", 3, "2024-01-09", 3, "2024-01-10"},
		{"unreadable date restarts", "01/02/2024", 7, "2024-01-03", 1, "2024-01-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewUserProgress()
			p.LastStudyDate = tt.lastDate
			p.DailyStreak = tt.streak

			change := p.RecordStudyDay(tt.today)

			assert.Equal(t, tt.wantStreak, p.DailyStreak)
			assert.Equal(t, tt.wantDate, p.LastStudyDate)
			assert.Equal(t, tt.streak, change.Old)
			assert.Equal(t, tt.wantStreak, change.New)
			assert.Equal(t, tt.streak != tt.wantStreak, change.Changed())
		})
	}
}

func TestRecordStudyDay_Sequence(t *testing.T) {
	p := NewUserProgress()
	p.LastStudyDate = "2024-01-01"
	p.DailyStreak = 1

	p.RecordStudyDay("2024-01-02")
	assert.Equal(t, 2, p.DailyStreak)

	p.RecordStudyDay("2024-01-10")
	assert.Equal(t, 1, p.DailyStreak)
}
