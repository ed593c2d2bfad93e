package executor

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/pingcap/errors"
	"github.com/siddontang/go/hack"
	"go.uber.org/zap"

	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

// TimeType mirrors the temporal column family a TimeValue represents.
type TimeType int

const (
	TypeTime TimeType = iota
	TypeDate
	TypeDatetime
	TypeTimestamp
)

// TimeValue is the calendar value bound to DATETIME/TIMESTAMP/DATE/TIME
// columns. The zero-ish default is 2024-01-01 00:00:00 DATETIME.
type TimeValue struct {
	year       uint
	month      uint
	day        uint
	hour       uint
	minute     uint
	second     uint
	secondPart uint
	timeType   TimeType
	neg        bool
}

func NewTimeValue() TimeValue {
	return TimeValue{
		year:     2024,
		month:    1,
		day:      1,
		timeType: TypeDatetime,
	}
}

// Out-of-range setters are rejected and logged, leaving the previous value
// intact.

func (t *TimeValue) SetYear(year uint) *TimeValue {
	t.year = year
	return t
}

func (t *TimeValue) SetMonth(month uint) *TimeValue {
	if month >= 1 && month <= 12 {
		t.month = month
	} else {
		logutil.BgLogger().Error("TimeValue.SetMonth failed", zap.Uint("month", month))
	}
	return t
}

func (t *TimeValue) SetDay(day uint) *TimeValue {
	if day >= 1 && day <= 31 {
		t.day = day
	} else {
		logutil.BgLogger().Error("TimeValue.SetDay failed", zap.Uint("day", day))
	}
	return t
}

func (t *TimeValue) SetHour(hour uint) *TimeValue {
	if hour <= 24 {
		t.hour = hour
	} else {
		logutil.BgLogger().Error("TimeValue.SetHour failed", zap.Uint("hour", hour))
	}
	return t
}

func (t *TimeValue) SetMinute(minute uint) *TimeValue {
	if minute <= 60 {
		t.minute = minute
	} else {
		logutil.BgLogger().Error("TimeValue.SetMinute failed", zap.Uint("minute", minute))
	}
	return t
}

func (t *TimeValue) SetSecond(second uint) *TimeValue {
	if second <= 60 {
		t.second = second
	} else {
		logutil.BgLogger().Error("TimeValue.SetSecond failed", zap.Uint("second", second))
	}
	return t
}

func (t *TimeValue) SetSecondPart(secondPart uint) *TimeValue {
	t.secondPart = secondPart
	return t
}

func (t *TimeValue) SetTimeType(timeType TimeType) *TimeValue {
	t.timeType = timeType
	return t
}

func (t *TimeValue) SetNeg(neg bool) *TimeValue {
	t.neg = neg
	return t
}

func (t TimeValue) Year() uint         { return t.year }
func (t TimeValue) Month() uint        { return t.month }
func (t TimeValue) Day() uint          { return t.day }
func (t TimeValue) Hour() uint         { return t.hour }
func (t TimeValue) Minute() uint       { return t.minute }
func (t TimeValue) Second() uint       { return t.second }
func (t TimeValue) SecondPart() uint   { return t.secondPart }
func (t TimeValue) TimeType() TimeType { return t.timeType }
func (t TimeValue) Neg() bool          { return t.neg }

// String renders the canonical textual form "YYYY-MM-DD HH:MM:SS".
func (t TimeValue) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		t.year, t.month, t.day, t.hour, t.minute, t.second)
}

// TimeFromString parses the canonical textual form. A fractional second
// suffix is accepted and kept in SecondPart.
func TimeFromString(s string) (TimeValue, error) {
	frac := uint(0)
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		parsed, err := time.Parse("2006-01-02 15:04:05.999999", s)
		if err != nil {
			return TimeValue{}, errors.Errorf("invalid time literal %q", s)
		}
		frac = uint(parsed.Nanosecond() / 1000)
		s = s[:idx]
	}

	parsed, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return TimeValue{}, errors.Errorf("invalid time literal %q", s)
	}

	tv := NewTimeValue()
	tv.year = uint(parsed.Year())
	tv.month = uint(parsed.Month())
	tv.day = uint(parsed.Day())
	tv.hour = uint(parsed.Hour())
	tv.minute = uint(parsed.Minute())
	tv.second = uint(parsed.Second())
	tv.secondPart = frac
	return tv, nil
}

// Blob is an owned byte sequence bound to BLOB columns. Equality is
// bytewise.
type Blob struct {
	data []byte
}

// NewBlob copies b into an owned buffer.
func NewBlob(b []byte) Blob {
	owned := make([]byte, len(b))
	copy(owned, b)
	return Blob{data: owned}
}

// NewBlobFromString aliases the string bytes without copying them.
func NewBlobFromString(s string) Blob {
	return Blob{data: hack.Slice(s)}
}

// Data returns the raw byte view. Callers must not mutate it.
func (b Blob) Data() []byte {
	return b.data
}

// AsString is a zero-copy string view of the blob bytes.
func (b Blob) AsString() string {
	return hack.String(b.data)
}

func (b Blob) Size() int {
	return len(b.data)
}

func (b Blob) Equal(other Blob) bool {
	return bytes.Equal(b.data, other.data)
}
