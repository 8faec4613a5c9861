package sntp

import "time"

// Instant is a point in wall-clock time. It is a thin alias over time.Time
// rather than a hand-rolled (epoch_second, nano) pair: time.Time already
// normalizes its nanosecond-of-second component to [0, 1e9) and its Unix
// seconds cover every NTP era with room to spare, which is exactly the
// external Instant contract this library needs, so it's exposed directly
// at the boundary instead of reinventing it.
type Instant = time.Time

// Duration is a span of time at the library boundary. Like Instant, this
// is the stdlib type: time.Duration already supports Between (via
// time.Time.Sub), +, -, and truncating integer division, and its
// nanosecond-resolution int64 range comfortably covers anything this
// protocol produces (round trips, offsets, and era spans are all well
// under a year in practice, and even a full 68-year era wrap fits inside
// time.Duration's ~292-year range once expressed as a span rather than an
// absolute instant).
type Duration = time.Duration

// DurationBetween returns the signed Duration from a to b (b - a).
func DurationBetween(a, b Instant) Duration {
	return b.Sub(a)
}

// absUint64 returns the unsigned magnitude of a signed 64-bit value,
// careful not to overflow when d is math.MinInt64.
func absUint64(d int64) uint64 {
	if d >= 0 {
		return uint64(d)
	}
	return uint64(-(d + 1)) + 1
}

// Duration64 is NTP's 64-bit signed duration: the result of subtracting
// two Timestamp64 values modulo 2^64 and reinterpreting the bit pattern as
// signed. It is the type that makes offset math correct across era
// boundaries: the wraparound is the point, not a bug to be avoided by
// widening to arbitrary precision.
type Duration64 int64

// Timestamp64Between computes (b - a) mod 2^64, reinterpreted as a signed
// 64-bit duration. This is the sole source of NTP's ~136-year wraparound
// behavior: as long as the true difference between a and b is less than
// 2^31 seconds (~68 years), the modular subtraction recovers the correct
// signed answer even when a and b fall in neighbouring NTP eras.
func Timestamp64Between(a, b Timestamp64) Duration64 {
	ua := a.combined()
	ub := b.combined()
	return Duration64(ub - ua)
}

// Add returns d+o, wrapping modulo 2^64 like the subtraction that produces
// Duration64 values in the first place.
func (d Duration64) Add(o Duration64) Duration64 {
	return d + o
}

// DivInt64 performs truncating (toward zero) integer division.
func (d Duration64) DivInt64(n int64) Duration64 {
	return Duration64(int64(d) / n)
}

// ToDuration converts the Q32.32 fixed-point duration to a Duration,
// truncating the fractional part toward zero (equivalently, rounding
// toward negative infinity for the magnitude).
func (d Duration64) ToDuration() Duration {
	neg := d < 0
	u := absUint64(int64(d))
	sec := int64(u >> 32)
	frac := u & 0xffffffff
	nanos := (frac * 1e9) >> 32
	total := time.Duration(sec)*time.Second + time.Duration(nanos)
	if neg {
		total = -total
	}
	return total
}
