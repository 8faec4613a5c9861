// Package sntp implements a Simple NTP (SNTP) client as described in
// RFC 4330 and the relevant subset of RFC 5905. Given a hostname that
// resolves to a pool or cluster of NTP servers, it produces a time signal:
// an estimate of the offset between the local clock and the server's
// clock, the round-trip delay, and enough metadata to discipline a local
// clock or timestamp events.
//
// The package is stateless per query. It does not act as an NTP server,
// does not implement NTPv4 associations, has no cryptographic
// authentication (Autokey/NTS), and never touches the system clock itself:
// callers apply TimeSignal.ClientOffset however they see fit.
package sntp
