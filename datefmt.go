package gridview

import (
	"strings"
	"time"
)

// Default display patterns per date type
const (
	PatternDate          = "MM/dd/yyyy"
	PatternLocalDateTime = "MM/dd/yyyy HH:mm:ss"
	PatternZonedDateTime = "MM/dd/yyyy HH:mm:ss Z"
)

// DefaultPattern returns the display pattern for a declared date type, or
// "" when the type is not a date.
func DefaultPattern(typeName string) string {
	switch normalizeType(typeName) {
	case "date", "localdate":
		return PatternDate
	case "localdatetime":
		return PatternLocalDateTime
	case "zoneddatetime":
		return PatternZonedDateTime
	}
	return ""
}

// Longest tokens first so "MMMM" is not consumed as "MM" + "MM". loose is
// the variant used when parsing accepts one or two digits.
var patternTokens = []struct {
	token  string
	layout string
	loose  string
}{
	{"yyyy", "2006", ""}, {"YYYY", "2006", ""},
	{"EEEE", "Monday", ""},
	{"MMMM", "January", ""},
	{"SSS", "000", ""},
	{"MMM", "Jan", ""},
	{"EEE", "Mon", ""},
	{"yy", "06", ""}, {"YY", "06", ""},
	{"MM", "01", "1"},
	{"dd", "02", "2"}, {"DD", "02", "2"},
	{"HH", "15", ""},
	{"hh", "03", "3"},
	{"mm", "04", "4"},
	{"ss", "05", "5"},
	{"E", "Mon", ""},
	{"M", "1", ""},
	{"d", "2", ""}, {"D", "2", ""},
	{"h", "3", ""},
	{"m", "4", ""},
	{"s", "5", ""},
	{"a", "PM", ""}, {"A", "PM", ""},
	{"Z", "-07:00", ""},
	{"z", "MST", ""},
}

// Layout translates a Java/moment style date pattern such as "MM/dd/yyyy"
// into a Go time layout. Text between single quotes is copied literally.
func Layout(pattern string) string {
	return layout(pattern, false)
}

func layout(pattern string, loose bool) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				b.WriteString(pattern[i+1:])
				break
			}
			b.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, t := range patternTokens {
			if strings.HasPrefix(pattern[i:], t.token) {
				if loose && t.loose != "" {
					b.WriteString(t.loose)
				} else {
					b.WriteString(t.layout)
				}
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

// FormatDate renders t with a Java/moment style pattern.
func FormatDate(t time.Time, pattern string) string {
	return t.Format(Layout(pattern))
}

// ParseDate parses s with a Java/moment style pattern in loc. Two-digit
// fields also accept a single digit, so "1/5/2024" reads as MM/dd/yyyy.
func ParseDate(s, pattern string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(layout(pattern, false), s, loc)
	if err == nil {
		return t, nil
	}
	if loose := layout(pattern, true); loose != layout(pattern, false) {
		if t, lerr := time.ParseInLocation(loose, s, loc); lerr == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// truncateDay drops the time-of-day component, keeping the location.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameDay reports whether a and b show the same calendar date, each read in
// its own location.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
