package gantt

import (
	"time"

	"ganttservice/internal/model"
)

// DateLayout is the wire format of chart dates.
const DateLayout = "2006-01-02"

// DateInput is the raw date information of one task. Nil means absent.
type DateInput struct {
	Start    *time.Time
	End      *time.Time
	Duration *int
}

// Normalized is a concrete start/end pair plus the provenance flags.
type Normalized struct {
	Start time.Time
	End   time.Time
	Flags model.DateFlags
}

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// Normalize derives a renderable start/end pair. Persisted timestamps are
// truncated to calendar days in today's location. A duration counts as
// persisted only when positive.
//
//	start end dur | rule
//	  T    T   *  | both as-is
//	  F    T   T  | start = end - dur
//	  T    F   T  | end = start + dur
//	  F    F   T  | start = today, end = today + dur
//	  T    F   F  | end = start + 1
//	  F    T   F  | start = today
//	  F    F   F  | start = today, end = today + 1
//
// Afterwards end <= start is bumped to start + 1 day.
func Normalize(in DateInput, today time.Time) Normalized {
	loc := today.Location()
	today = Day(today, loc)

	hadStart := in.Start != nil && !in.Start.IsZero()
	hadEnd := in.End != nil && !in.End.IsZero()
	hadDur := in.Duration != nil && *in.Duration > 0

	var start, end time.Time
	if hadStart {
		start = Day(*in.Start, loc)
	}
	if hadEnd {
		end = Day(*in.End, loc)
	}

	switch {
	case hadStart && hadEnd:
	case !hadStart && hadEnd && hadDur:
		start = addDays(end, -*in.Duration)
	case hadStart && !hadEnd && hadDur:
		end = addDays(start, *in.Duration)
	case !hadStart && !hadEnd && hadDur:
		start = today
		end = addDays(today, *in.Duration)
	case hadStart && !hadEnd:
		end = addDays(start, 1)
	case !hadStart && hadEnd:
		start = today
	default:
		start = today
		end = addDays(today, 1)
	}

	if !end.After(start) {
		end = addDays(start, 1)
	}

	return Normalized{
		Start: start,
		End:   end,
		Flags: model.DateFlags{
			HadStartDB:        hadStart,
			HadEndDB:          hadEnd,
			HadDurDB:          hadDur,
			OriginallyNoDates: !hadStart && !hadEnd,
		},
	}
}

// PersistedFacts counts how many of start, end and duration were persisted.
func (f Normalized) PersistedFacts() int {
	n := 0
	for _, had := range []bool{f.Flags.HadStartDB, f.Flags.HadEndDB, f.Flags.HadDurDB} {
		if had {
			n++
		}
	}
	return n
}

// FormatDay renders t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDay parses YYYY-MM-DD at midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}
