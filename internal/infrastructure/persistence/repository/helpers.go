package repository

import (
	"database/sql"
	"time"
)

// nullableTime maps an optional time to a column value. Stored times are UTC so that
// text ordering in sqlite matches time ordering.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
