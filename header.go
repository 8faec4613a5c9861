package sntp

import "fmt"

// headerSize is the fixed NTPv3/v4 wire header length. No extensions, no
// MAC, no NTS: every message this library sends or accepts is exactly
// this many bytes.
const headerSize = 48

// Byte offsets of each header field.
const (
	offLiVnMode       = 0
	offStratum        = 1
	offPoll           = 2
	offPrecision      = 3
	offRootDelay      = 4
	offRootDispersion = 8
	offReferenceID    = 12
	offReferenceTime  = 16
	offOriginateTime  = 24
	offReceiveTime    = 32
	offTransmitTime   = 40
)

// Poll-exponent ranges. RFC 4330 specifies the strict
// range, but several deployed servers use smaller values; this library
// accepts the lenient range by default and exposes the strict one as a
// constant for callers who want to enforce it themselves.
const (
	PollExponentLenientMin = 0
	PollExponentLenientMax = 17
	PollExponentStrictMin  = 4
	PollExponentStrictMax  = 17
)

// NtpHeader is an immutable view over a 48-byte NTP header. It has no
// identity beyond its bytes: two headers with the same bytes are Equal.
type NtpHeader struct {
	buf [headerSize]byte
}

// Bytes returns a copy of the header's 48-byte wire representation.
func (h *NtpHeader) Bytes() []byte {
	out := make([]byte, headerSize)
	copy(out, h.buf[:])
	return out
}

// NtpHeaderFromBytes parses a 48-byte buffer into an NtpHeader. It fails
// if data is not exactly 48 bytes long; no other field is validated at
// parse time (see the individual accessors for read-time validation, e.g.
// PollInterval).
func NtpHeaderFromBytes(data []byte) (*NtpHeader, error) {
	if len(data) != headerSize {
		return nil, &InvalidArgumentError{Message: fmt.Sprintf("ntp header must be %d bytes, got %d", headerSize, len(data))}
	}
	h := &NtpHeader{}
	copy(h.buf[:], data)
	return h, nil
}

// Equal reports whether h and o have bitwise identical wire representations.
func (h *NtpHeader) Equal(o *NtpHeader) bool {
	return h.buf == o.buf
}

func (h *NtpHeader) Leap() uint8      { return (h.buf[offLiVnMode] >> 6) & 0x03 }
func (h *NtpHeader) Version() uint8   { return (h.buf[offLiVnMode] >> 3) & 0x07 }
func (h *NtpHeader) Mode() uint8      { return h.buf[offLiVnMode] & 0x07 }
func (h *NtpHeader) Stratum() uint8   { return readUint8(h.buf[:], offStratum) }

// PollExponent returns the raw poll-exponent byte, unvalidated.
func (h *NtpHeader) PollExponent() int8 { return readInt8(h.buf[:], offPoll) }

// PollInterval interprets the poll exponent as 2^poll seconds, validating
// it against the lenient range [0,17] at access time. Returns
// *InvalidNtpValueError if out of range read-time
// taxonomy.
func (h *NtpHeader) PollInterval() (Duration, error) {
	p := int(h.PollExponent())
	if p < PollExponentLenientMin || p > PollExponentLenientMax {
		return 0, &InvalidNtpValueError{Field: "poll", Message: "outside lenient range [0,17]"}
	}
	return pow2ToDuration(p)
}

func (h *NtpHeader) PrecisionExponent() int8 { return readInt8(h.buf[:], offPrecision) }

func (h *NtpHeader) RootDelay() Duration {
	return read32SignedFixedPointDuration(h.buf[:], offRootDelay)
}

func (h *NtpHeader) RootDispersion() Duration {
	return read32UnsignedFixedPointDuration(h.buf[:], offRootDispersion)
}

// ReferenceID returns the raw 4-byte reference identifier field.
func (h *NtpHeader) ReferenceID() [4]byte {
	var id [4]byte
	copy(id[:], h.buf[offReferenceID:offReferenceID+4])
	return id
}

// ReferenceIDASCII interprets the reference identifier as a NUL-terminated,
// non-printable-substituted ASCII string, for kiss codes (stratum 0) and
// stratum-1 clock names.
func (h *NtpHeader) ReferenceIDASCII() string {
	return readASCII(h.buf[:], offReferenceID, 4)
}

// ReferenceIDString renders the reference identifier the way a human
// would expect it printed: the ASCII form for stratum 0/1, dotted-decimal
// for stratum 2-15.
func (h *NtpHeader) ReferenceIDString() string {
	id := h.ReferenceID()
	if h.Stratum() <= 1 {
		return h.ReferenceIDASCII()
	}
	return fmt.Sprintf("%d.%d.%d.%d", id[0], id[1], id[2], id[3])
}

func (h *NtpHeader) ReferenceTimestamp() Timestamp64 {
	return readTimestamp64(h.buf[:], offReferenceTime)
}

func (h *NtpHeader) OriginateTimestamp() Timestamp64 {
	return readTimestamp64(h.buf[:], offOriginateTime)
}

func (h *NtpHeader) ReceiveTimestamp() Timestamp64 {
	return readTimestamp64(h.buf[:], offReceiveTime)
}

func (h *NtpHeader) TransmitTimestamp() Timestamp64 {
	return readTimestamp64(h.buf[:], offTransmitTime)
}

// HeaderBuilder mutates an owned 48-byte buffer in place; Build hands
// ownership of a copy to an immutable NtpHeader. Setters validate their
// argument ranges and panic on violation: these are write-time
// (programmer) errors, not recoverable conditions.
type HeaderBuilder struct {
	buf [headerSize]byte
}

// NewHeaderBuilder returns a builder initialized to an all-zero header
// (leap=0, version=0, mode=0, ...).
func NewHeaderBuilder() *HeaderBuilder {
	return &HeaderBuilder{}
}

// NewHeaderBuilderFrom returns a builder seeded with a clone of h's bytes,
// so individual fields can be overridden without re-specifying the rest.
func NewHeaderBuilderFrom(h *NtpHeader) *HeaderBuilder {
	b := &HeaderBuilder{}
	b.buf = h.buf
	return b
}

func mustRangeU8(name string, v, lo, hi uint8) {
	if v < lo || v > hi {
		panic(fmt.Sprintf("sntp: %s value %d outside valid range [%d,%d]", name, v, lo, hi))
	}
}

func mustNoErr(err error) {
	if err != nil {
		panic("sntp: " + err.Error())
	}
}

// SetLeap sets the 2-bit leap indicator; li must be in [0,3].
func (b *HeaderBuilder) SetLeap(li uint8) *HeaderBuilder {
	mustRangeU8("leap indicator", li, 0, 3)
	b.buf[offLiVnMode] = (b.buf[offLiVnMode] & 0x3f) | li<<6
	return b
}

// SetVersion sets the 3-bit protocol version; v must be in [0,7].
func (b *HeaderBuilder) SetVersion(v uint8) *HeaderBuilder {
	mustRangeU8("version", v, 0, 7)
	b.buf[offLiVnMode] = (b.buf[offLiVnMode] & 0xc7) | v<<3
	return b
}

// SetMode sets the 3-bit association mode; m must be in [0,7].
func (b *HeaderBuilder) SetMode(m uint8) *HeaderBuilder {
	mustRangeU8("mode", m, 0, 7)
	b.buf[offLiVnMode] = (b.buf[offLiVnMode] & 0xf8) | m
	return b
}

// SetStratum sets the stratum byte; every uint8 value is valid.
func (b *HeaderBuilder) SetStratum(s uint8) *HeaderBuilder {
	writeUint8(b.buf[:], offStratum, s)
	return b
}

// SetPollExponent sets the poll exponent, validated against the lenient
// range [0,17].
func (b *HeaderBuilder) SetPollExponent(p int8) *HeaderBuilder {
	if int(p) < PollExponentLenientMin || int(p) > PollExponentLenientMax {
		panic(fmt.Sprintf("sntp: poll exponent %d outside lenient range [0,17]", p))
	}
	writeInt8(b.buf[:], offPoll, p)
	return b
}

// SetPrecisionExponent sets the precision exponent; it must be negative.
func (b *HeaderBuilder) SetPrecisionExponent(p int8) *HeaderBuilder {
	if p >= 0 {
		panic(fmt.Sprintf("sntp: precision exponent %d must be negative", p))
	}
	writeInt8(b.buf[:], offPrecision, p)
	return b
}

// SetRootDelay encodes d as a signed Q16.16 seconds value; d's whole
// seconds must be in [-2^15, 2^15).
func (b *HeaderBuilder) SetRootDelay(d Duration) *HeaderBuilder {
	mustNoErr(write32SignedFixedPointDuration(b.buf[:], offRootDelay, d))
	return b
}

// SetRootDispersion encodes d as an unsigned Q16.16 seconds value; d must
// be non-negative with whole seconds in [0, 2^16).
func (b *HeaderBuilder) SetRootDispersion(d Duration) *HeaderBuilder {
	mustNoErr(write32UnsignedFixedPointDuration(b.buf[:], offRootDispersion, d))
	return b
}

// SetReferenceID copies id into the 4-byte reference-identifier field
// verbatim (used for IPv4-derived identifiers, stratum 2-15).
func (b *HeaderBuilder) SetReferenceID(id [4]byte) *HeaderBuilder {
	copy(b.buf[offReferenceID:offReferenceID+4], id[:])
	return b
}

// SetReferenceIDASCII encodes s as the 4-byte ASCII reference identifier
// (kiss codes, stratum-1 clock names). s must be at most 4 printable-ASCII
// bytes.
func (b *HeaderBuilder) SetReferenceIDASCII(s string) *HeaderBuilder {
	mustNoErr(writeASCII(b.buf[:], offReferenceID, 4, s))
	return b
}

func (b *HeaderBuilder) SetReferenceTimestamp(t Timestamp64) *HeaderBuilder {
	writeTimestamp64(b.buf[:], offReferenceTime, t)
	return b
}

func (b *HeaderBuilder) SetOriginateTimestamp(t Timestamp64) *HeaderBuilder {
	writeTimestamp64(b.buf[:], offOriginateTime, t)
	return b
}

func (b *HeaderBuilder) SetReceiveTimestamp(t Timestamp64) *HeaderBuilder {
	writeTimestamp64(b.buf[:], offReceiveTime, t)
	return b
}

func (b *HeaderBuilder) SetTransmitTimestamp(t Timestamp64) *HeaderBuilder {
	writeTimestamp64(b.buf[:], offTransmitTime, t)
	return b
}

// Build finalizes the builder into an immutable NtpHeader. The buffer is
// always exactly 48 bytes by construction (it's a Go array, not a slice),
// so the "length check" describes is a compile-time property
// here rather than a runtime one.
func (b *HeaderBuilder) Build() *NtpHeader {
	h := &NtpHeader{}
	h.buf = b.buf
	return h
}
