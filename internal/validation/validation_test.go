package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/surfsup-climate-api/internal/models"
)

var bounds = models.DateBounds{Oldest: "2010-01-01", MostRecent: "2017-08-23", OneYearCutoff: "2016-08-23"}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2017-08-23", "2017-08-23", false},
		{"2017-8-3", "2017-08-03", false},
		{"2016-02-29", "2016-02-29", false},
		{"2017-02-29", "", true},
		{"2020-13-40", "", true},
		{"notadate", "", true},
		{"bad-date", "", true},
		{"", "", true},
		{"2017-08-23T00:00:00", "", true},
		{"17-08-23", "", true},
		{" 2017-08-23", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		want    DateRange
		wantErr error
	}{
		{"start only defaults end", "2017-01-01", "", DateRange{"2017-01-01", "2017-08-23"}, nil},
		{"explicit range", "2016-08-23", "2017-08-22", DateRange{"2016-08-23", "2017-08-22"}, nil},
		{"single day at bounds", "2017-08-23", "2017-08-23", DateRange{"2017-08-23", "2017-08-23"}, nil},
		{"inclusive oldest", "2010-01-01", "2010-01-01", DateRange{"2010-01-01", "2010-01-01"}, nil},
		{"unpadded normalized", "2017-1-2", "2017-2-3", DateRange{"2017-01-02", "2017-02-03"}, nil},
		{"bad start", "bad-date", "", DateRange{}, ErrInvalidStartDate},
		{"bad start wins over bad end", "2020-13-40", "nope", DateRange{}, ErrInvalidStartDate},
		{"bad end", "2017-01-01", "nope", DateRange{}, ErrInvalidEndDate},
		{"bad end wins over start out of range", "1999-01-01", "nope", DateRange{}, ErrInvalidEndDate},
		{"start before oldest", "2009-12-31", "", DateRange{}, ErrStartOutOfRange},
		{"start after latest", "2017-08-24", "", DateRange{}, ErrStartOutOfRange},
		{"start out of range wins over end", "2009-12-31", "2018-01-01", DateRange{}, ErrStartOutOfRange},
		{"end after latest", "2017-01-01", "2017-08-24", DateRange{}, ErrEndOutOfRange},
		{"end before oldest", "2017-01-01", "2009-01-01", DateRange{}, ErrEndOutOfRange},
		{"inverted", "2017-08-23", "2017-08-22", DateRange{}, ErrEndBeforeStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateRange(tt.start, tt.end, bounds)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateRange(%q, %q) error = %v, want %v", tt.start, tt.end, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateRange(%q, %q) = %+v, want %+v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

// TestValidateRange_StartOnlyMatchesExplicitEnd checks that omitting end behaves like
// passing the most recent date.
func TestValidateRange_StartOnlyMatchesExplicitEnd(t *testing.T) {
	for _, start := range []string{"2010-01-01", "2015-06-30", "2017-08-23", "2017-08-24", "garbage"} {
		r1, err1 := ValidateRange(start, "", bounds)
		r2, err2 := ValidateRange(start, bounds.MostRecent, bounds)
		if r1 != r2 || !errors.Is(err1, err2) {
			t.Errorf("start %q: (%+v, %v) != (%+v, %v)", start, r1, err1, r2, err2)
		}
	}
}

func TestRangeError_Body(t *testing.T) {
	tests := []struct {
		err  *RangeError
		want string
	}{
		{ErrInvalidStartDate, `[{"error":"Invalid date format for start date"}]`},
		{ErrInvalidEndDate, `[{"error":"Invalid date format for end date"}]`},
		{ErrStartOutOfRange, `[{"Error":"Start date outside of dataset range"}]`},
		{ErrEndOutOfRange, `[{"Error":"End date outside of dataset range"}]`},
		{ErrEndBeforeStart, `[{"Error":"End date must occur after the start date"}]`},
	}
	for _, tt := range tests {
		raw, err := json.Marshal(tt.err.Body())
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(raw) != tt.want {
			t.Errorf("Body() = %s, want %s", raw, tt.want)
		}
	}
}

func TestAsRangeError(t *testing.T) {
	wrapped := fmt.Errorf("temperature stats: %w", ErrEndBeforeStart)
	re, ok := AsRangeError(wrapped)
	if !ok || re != ErrEndBeforeStart {
		t.Fatalf("AsRangeError(wrapped) = (%v, %v), want ErrEndBeforeStart", re, ok)
	}
	if re.Reason() != "end_before_start" {
		t.Errorf("Reason() = %q, want end_before_start", re.Reason())
	}
	if _, ok := AsRangeError(errors.New("boom")); ok {
		t.Error("AsRangeError(plain error) ok = true, want false")
	}
}
