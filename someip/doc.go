// Package someip implements the wire codec and session-correlated
// request/response engine for the AUTOSAR SOME/IP protocol: the fixed
// 16-byte header, the message builder, TCP framing over a byte stream,
// UDP datagram transport, and the client/server types built on top of
// them.
//
// Ownership boundary:
// - header/message codec primitives
// - stream and datagram transports
// - session correlation (counters, TCP/UDP client and server)
package someip
