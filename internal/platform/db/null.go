package db

import (
	"database/sql"
	"strings"
	"time"
)

// Conversions between optional request/response fields and sql.Null* columns.

func NullString(s *string) (ns sql.NullString) {
	if s != nil && strings.TrimSpace(*s) != "" {
		ns.Valid, ns.String = true, *s
	}
	return
}

func StringPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}

func NullInt32(i *int) (ni sql.NullInt32) {
	if i != nil {
		ni.Valid, ni.Int32 = true, int32(*i)
	}
	return
}

func IntPtr(ni sql.NullInt32) *int {
	if ni.Valid {
		v := int(ni.Int32)
		return &v
	}
	return nil
}

func NullFloat64(f *float64) (nf sql.NullFloat64) {
	if f != nil {
		nf.Valid, nf.Float64 = true, *f
	}
	return
}

func FloatPtr(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		v := nf.Float64
		return &v
	}
	return nil
}

// DatePtr formats a nullable DATE column as YYYY-MM-DD.
func DatePtr(nt sql.NullTime) *string {
	if nt.Valid {
		v := nt.Time.Format("2006-01-02")
		return &v
	}
	return nil
}

func NullTime(t *time.Time) (nt sql.NullTime) {
	if t != nil {
		nt.Valid, nt.Time = true, *t
	}
	return
}
