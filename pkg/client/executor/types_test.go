package executor

import (
	"testing"

	. "github.com/pingcap/check"
)

func TestT(t *testing.T) {
	TestingT(t)
}

type testTypesSuite struct{}

var _ = Suite(&testTypesSuite{})

func (s *testTypesSuite) TestTimeValueDefault(c *C) {
	tv := NewTimeValue()
	c.Assert(tv.Year(), Equals, uint(2024))
	c.Assert(tv.Month(), Equals, uint(1))
	c.Assert(tv.Day(), Equals, uint(1))
	c.Assert(tv.TimeType(), Equals, TypeDatetime)
	c.Assert(tv.String(), Equals, "2024-01-01 00:00:00")
}

func (s *testTypesSuite) TestTimeValueSetters(c *C) {
	tv := NewTimeValue()
	tv.SetYear(2024).SetMonth(9).SetDay(10).SetHour(13).SetMinute(5).SetSecond(59)
	c.Assert(tv.String(), Equals, "2024-09-10 13:05:59")
}

func (s *testTypesSuite) TestTimeValueRejectsOutOfRange(c *C) {
	tv := NewTimeValue()
	tv.SetMonth(6)

	tv.SetMonth(13)
	c.Assert(tv.Month(), Equals, uint(6))
	tv.SetMonth(0)
	c.Assert(tv.Month(), Equals, uint(6))

	tv.SetDay(15)
	tv.SetDay(32)
	c.Assert(tv.Day(), Equals, uint(15))

	tv.SetHour(23)
	tv.SetHour(25)
	c.Assert(tv.Hour(), Equals, uint(23))

	tv.SetMinute(59)
	tv.SetMinute(61)
	c.Assert(tv.Minute(), Equals, uint(59))

	tv.SetSecond(58)
	tv.SetSecond(61)
	c.Assert(tv.Second(), Equals, uint(58))
}

func (s *testTypesSuite) TestTimeValueRoundTrip(c *C) {
	tv := NewTimeValue()
	tv.SetYear(2024).SetMonth(9).SetDay(10).SetHour(0).SetMinute(0).SetSecond(0)

	parsed, err := TimeFromString(tv.String())
	c.Assert(err, IsNil)
	c.Assert(parsed.String(), Equals, tv.String())
	c.Assert(parsed, DeepEquals, tv)
}

func (s *testTypesSuite) TestTimeValueFromStringFraction(c *C) {
	tv, err := TimeFromString("2024-09-10 01:02:03.250000")
	c.Assert(err, IsNil)
	c.Assert(tv.Second(), Equals, uint(3))
	c.Assert(tv.SecondPart(), Equals, uint(250000))
}

func (s *testTypesSuite) TestTimeValueFromStringInvalid(c *C) {
	_, err := TimeFromString("2024/09/10")
	c.Assert(err, NotNil)
	_, err = TimeFromString("not a time")
	c.Assert(err, NotNil)
}

func (s *testTypesSuite) TestBlobEquality(c *C) {
	raw := []byte{0x00, 0x01, 0xfe, 0xff}
	b1 := NewBlob(raw)
	b2 := NewBlob(raw)
	c.Assert(b1.Equal(b2), IsTrue)
	c.Assert(b1.Size(), Equals, 4)

	raw[0] = 0x42
	// NewBlob copies, so mutating the source must not leak in.
	c.Assert(b1.Equal(b2), IsTrue)
	c.Assert(b1.Data()[0], Equals, byte(0x00))

	c.Assert(b1.Equal(NewBlob([]byte{1})), IsFalse)
}

func (s *testTypesSuite) TestBlobRoundTripThroughBytes(c *C) {
	b := NewBlobFromString("hello\x00world")
	c.Assert(NewBlob(b.Data()).Equal(b), IsTrue)
	c.Assert(b.AsString(), Equals, "hello\x00world")
}
