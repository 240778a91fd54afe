package repository

import "time"

// dbTimeLayout is the DATETIME format shared by MySQL in production and
// SQLite in tests. All values are stored and compared in UTC; timestamps
// are always written from Go rather than by database functions so the
// same queries run against either engine.
const dbTimeLayout = "2006-01-02 15:04:05"

// fmtTime renders a timestamp for storage.
func fmtTime(t time.Time) string { return t.UTC().Format(dbTimeLayout) }

// nowUTC returns the current time truncated to the stored precision so
// a value written and read back compares equal.
func nowUTC() time.Time { return time.Now().UTC().Truncate(time.Second) }

// parseTime converts a stored DATETIME string back to a UTC time.Time.
// Malformed values yield the zero time rather than an error; callers
// treat the zero time as "unset".
func parseTime(s string) time.Time {
    t, err := time.Parse(dbTimeLayout, s)
    if err != nil {
        return time.Time{}
    }
    return t.UTC()
}
