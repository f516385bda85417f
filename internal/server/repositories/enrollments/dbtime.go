package enrollments

import (
	"fmt"
	"time"
)

// sqliteTimeLayout has a fixed width so that text timestamps sort in
// chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

var parseLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// dbTime scans a timestamp stored either natively or as text.
type dbTime struct {
	Time time.Time
}

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time = time.Time{}
		return nil
	case time.Time:
		d.Time = v.UTC()
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (d *dbTime) parse(s string) error {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func sqliteTime(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

func nativeTime(t time.Time) any {
	return t.UTC()
}
