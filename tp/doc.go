// Package tp implements SOME/IP-TP: the 4-byte transport-protocol header,
// the segmenter that splits an oversized someip.Message into a sequence of
// TP segments, and the reassembler that recovers the original payload from
// segments arriving out of order, with duplicates, or with gaps.
package tp
