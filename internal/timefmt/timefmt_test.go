package timefmt

import (
	"testing"
	"time"

	"github.com/JonMunkholm/tableload/internal/schema"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		custom  string
		hasZone bool
		wantErr bool
	}{
		{"rfc3339", "2024-03-15T10:30:00Z", "", true, false},
		{"offset", "2024-03-15T10:30:00+08:00", "", true, false},
		{"local iso", "2024-03-15T10:30:00", "", false, false},
		{"space separated", "2024-03-15 10:30:00", "", false, false},
		{"twelve hour", "2024-03-15 10:30:00 PM", "", false, false},
		{"custom", "15/03/2024 10:30", "02/01/2006 15:04", false, false},
		{"garbage", "not a date", "", false, true},
		{"empty", "", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input, tt.custom)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got.HasZone != tt.hasZone {
				t.Errorf("HasZone = %v, want %v", got.HasZone, tt.hasZone)
			}
		})
	}
}

func TestParseTimestampHonorsOffset(t *testing.T) {
	got, err := ParseTimestamp("2024-03-15T10:30:00+08:00", "")
	if err != nil {
		t.Fatal(err)
	}
	_, offset := got.Value.Zone()
	if offset != 8*3600 {
		t.Errorf("offset = %d, want %d", offset, 8*3600)
	}
}

func TestParseTimestampDefaultsToLocal(t *testing.T) {
	got, err := ParseTimestamp("2024-03-15 10:30:00", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Value.Location() != time.Local {
		t.Errorf("location = %v, want Local", got.Value.Location())
	}
}

func TestParseDateAndTime(t *testing.T) {
	d, err := ParseDate("2024-02-29", "")
	if err != nil {
		t.Fatal(err)
	}
	if d.Value.Hour() != 0 || d.Value.Day() != 29 {
		t.Errorf("ParseDate = %v", d.Value)
	}

	if IsDate("2023-02-29") {
		t.Error("2023-02-29 is not a valid date")
	}

	tm, err := ParseTime("13:45:10", "")
	if err != nil {
		t.Fatal(err)
	}
	if tm.Value.Hour() != 13 || tm.Value.Second() != 10 {
		t.Errorf("ParseTime = %v", tm.Value)
	}
	if IsTime("2024-01-01") {
		t.Error("a date is not a time")
	}
}

func TestMaxFormattedLength(t *testing.T) {
	var l Layouts
	tests := []struct {
		typ  schema.LogicalType
		want int
	}{
		{schema.Date, 10},
		{schema.Time, 18},
		{schema.TimeWithZone, 24},
		{schema.Timestamp, 29},
		{schema.TimestampWithZone, 35},
	}
	for _, tt := range tests {
		if got := l.MaxFormattedLength(tt.typ); got != tt.want {
			t.Errorf("MaxFormattedLength(%s) = %d, want %d", tt.typ, got, tt.want)
		}
	}

	custom := Layouts{Date: "Monday, January 2, 2006"}
	if got := custom.MaxFormattedLength(schema.Date); got != len("Wednesday, September 27, 2006") {
		t.Errorf("custom MaxFormattedLength = %d", got)
	}
}
