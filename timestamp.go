package sntp

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// OffsetUnixToNTP is the number of seconds between the NTP epoch
	// (1900-01-01 00:00:00 UTC) and the Unix epoch (1970-01-01 00:00:00 UTC).
	OffsetUnixToNTP int64 = 2208988800

	// SecondsInEra is the width of one NTP era: 2^32 seconds, ~136 years.
	SecondsInEra int64 = 1 << 32
)

// Timestamp64 is NTP's 64-bit era-relative timestamp: era_seconds is the
// whole-second count since the start of the (unspecified) current era and
// fraction is a Q0.32 fixed-point fraction of a second. Era number is
// never stored in the value itself; see NtpEra and Timestamp64.InstantNear
// for how callers disambiguate it.
type Timestamp64 struct {
	eraSeconds uint32
	fraction   uint32
}

// Timestamp64Zero is the zero value, era_seconds=0, fraction=0.
var Timestamp64Zero = Timestamp64{}

// NewTimestamp64 builds a Timestamp64 from its raw wire components. This
// constructor is infallible: every (eraSeconds, fraction) pair is a valid
// Timestamp64.
func NewTimestamp64(eraSeconds, fraction uint32) Timestamp64 {
	return Timestamp64{eraSeconds: eraSeconds, fraction: fraction}
}

// EraSeconds returns the raw whole-seconds component.
func (t Timestamp64) EraSeconds() uint32 { return t.eraSeconds }

// Fraction returns the raw Q0.32 fractional-second component.
func (t Timestamp64) Fraction() uint32 { return t.fraction }

func (t Timestamp64) combined() uint64 {
	return uint64(t.eraSeconds)<<32 | uint64(t.fraction)
}

// Equal reports whether t and o have identical bit patterns.
func (t Timestamp64) Equal(o Timestamp64) bool {
	return t.eraSeconds == o.eraSeconds && t.fraction == o.fraction
}

// IsZero reports whether t is the all-zero timestamp. The protocol uses
// this to mean "field not set" (e.g. an unset reference or transmit
// timestamp).
func (t Timestamp64) IsZero() bool {
	return t.eraSeconds == 0 && t.fraction == 0
}

// Compare returns -1, 0 or +1 as t is unsigned-lexicographically less
// than, equal to, or greater than o, comparing era_seconds first and then
// fraction.
func (t Timestamp64) Compare(o Timestamp64) int {
	if t.eraSeconds != o.eraSeconds {
		if t.eraSeconds < o.eraSeconds {
			return -1
		}
		return 1
	}
	switch {
	case t.fraction < o.fraction:
		return -1
	case t.fraction > o.fraction:
		return 1
	default:
		return 0
	}
}

// Less reports whether t sorts before o.
func (t Timestamp64) Less(o Timestamp64) bool { return t.Compare(o) < 0 }

// String renders t as the canonical "HHHHHHHH.HHHHHHHH" 17-character
// lowercase-hex form.
func (t Timestamp64) String() string {
	return fmt.Sprintf("%08x.%08x", t.eraSeconds, t.fraction)
}

// ParseTimestamp64 parses the canonical 17-character string form produced
// by String. It fails with an *InvalidArgumentError if the length isn't
// 17, the character at index 8 isn't '.', or either half isn't valid hex.
func ParseTimestamp64(s string) (Timestamp64, error) {
	if len(s) != 17 {
		return Timestamp64{}, &InvalidArgumentError{Message: fmt.Sprintf("timestamp string must be 17 characters, got %d", len(s))}
	}
	if s[8] != '.' {
		return Timestamp64{}, &InvalidArgumentError{Message: "timestamp string must have '.' at index 8"}
	}
	era, err := strconv.ParseUint(s[:8], 16, 32)
	if err != nil {
		return Timestamp64{}, &InvalidArgumentError{Message: "invalid era_seconds hex: " + err.Error()}
	}
	frac, err := strconv.ParseUint(s[9:], 16, 32)
	if err != nil {
		return Timestamp64{}, &InvalidArgumentError{Message: "invalid fraction hex: " + err.Error()}
	}
	return Timestamp64{eraSeconds: uint32(era), fraction: uint32(frac)}, nil
}

// checkedAddInt64 adds a and b, reporting overflow instead of wrapping.
func checkedAddInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// checkedMulInt64 multiplies a and b, reporting overflow instead of
// wrapping. Only used with small, bounded inputs (era numbers), so the
// simple division-based check is sufficient.
func checkedMulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

// floorDivInt64 performs floor (Euclidean-adjacent) integer division.
func floorDivInt64(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// euclideanModUint32 reduces s modulo m (m > 0), returning the unique
// result in [0, m).
func euclideanModUint32(s, m int64) uint32 {
	r := s % m
	if r < 0 {
		r += m
	}
	return uint32(r)
}

// Timestamp64FromInstant converts a wall-clock Instant into an
// era-relative Timestamp64. The whole-seconds component is folded into
// [0, SecondsInEra) using Euclidean (always non-negative) reduction; the
// era number itself is discarded, recoverable later via NtpEra. Fails if
// converting to NTP's 1900 epoch overflows an int64.
func Timestamp64FromInstant(i Instant) (Timestamp64, error) {
	s, ok := checkedAddInt64(i.Unix(), OffsetUnixToNTP)
	if !ok {
		return Timestamp64{}, &InvalidArgumentError{Message: "instant overflows NTP 1900 epoch"}
	}
	eraSeconds := euclideanModUint32(s, SecondsInEra)
	fraction := uint32((uint64(i.Nanosecond()) << 32) / 1e9)
	return Timestamp64{eraSeconds: eraSeconds, fraction: fraction}, nil
}

// ToInstant interprets t as belonging to the given NTP era (era 0 starts
// 1900-01-01, era 1 starts 2036-02-07, etc.) and returns the corresponding
// wall-clock Instant. Fails on checked-arithmetic overflow. The fractional
// part is truncated toward zero when converted to nanoseconds, so this is
// the lossy (sub-nanosecond) inverse of Timestamp64FromInstant within a
// single era.
func (t Timestamp64) ToInstant(ntpEra int32) (Instant, error) {
	eraBase, ok := checkedMulInt64(int64(ntpEra), SecondsInEra)
	if !ok {
		return time.Time{}, &InvalidArgumentError{Message: "ntp era overflows era base offset"}
	}
	unixSeconds, ok := checkedAddInt64(int64(t.eraSeconds), -OffsetUnixToNTP)
	if !ok {
		return time.Time{}, &InvalidArgumentError{Message: "timestamp overflows unix epoch"}
	}
	unixSeconds, ok = checkedAddInt64(unixSeconds, eraBase)
	if !ok {
		return time.Time{}, &InvalidArgumentError{Message: "timestamp overflows unix epoch after era offset"}
	}
	nanos := uint32((uint64(t.fraction) * 1e9) >> 32)
	return time.Unix(unixSeconds, int64(nanos)).UTC(), nil
}

// NtpEra returns the NTP era number containing the given Instant: era 0
// runs 1900-01-01..2036-02-07, era 1 runs 2036-02-07..2172-03-15, etc.
func NtpEra(i Instant) int32 {
	s, _ := checkedAddInt64(i.Unix(), OffsetUnixToNTP)
	return int32(floorDivInt64(s, SecondsInEra))
}

// InstantNear resolves t's era ambiguity by choosing whichever of the
// eras adjacent to threshold's own era yields an Instant closest to
// threshold. This is how a received ReferenceTimestamp (which carries no
// era number) is interpreted unambiguously near "now": if t's value is
// just past an era boundary relative to threshold, this picks the era on
// the correct side of that boundary instead of always assuming era 0.
func (t Timestamp64) InstantNear(threshold Instant) (Instant, error) {
	base := NtpEra(threshold)
	var best Instant
	haveBest := false
	var bestDiff time.Duration
	for _, era := range [3]int32{base - 1, base, base + 1} {
		cand, err := t.ToInstant(era)
		if err != nil {
			continue
		}
		diff := cand.Sub(threshold)
		if diff < 0 {
			diff = -diff
		}
		if !haveBest || diff < bestDiff {
			haveBest = true
			bestDiff = diff
			best = cand
		}
	}
	if !haveBest {
		return time.Time{}, &InvalidArgumentError{Message: "no era candidate could be resolved"}
	}
	return best, nil
}

// RandomizeSubMillis XORs the low 22 bits of the fraction with a random
// 22-bit value supplied by rng, leaving the top 10 bits (which carry any
// integer-millisecond value, since 2^10 > 1000) untouched. Used to strip
// sub-millisecond fingerprinting information from a nominal transmit
// timestamp per draft-ietf-ntp-data-minimization, see
func (t Timestamp64) RandomizeSubMillis(rng Random) Timestamp64 {
	const subMillisMask = 1<<22 - 1
	r := rng.Uint32() & subMillisMask
	return Timestamp64{eraSeconds: t.eraSeconds, fraction: t.fraction ^ r}
}
