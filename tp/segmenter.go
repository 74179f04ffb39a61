package tp

import (
	"fmt"

	"github.com/go-someip/someip/someip"
)

// DefaultMaxSegmentPayload is the default per-segment payload ceiling:
// 1392 bytes (87 * 16). With the 16-byte SOME/IP header and the 4-byte TP
// header, a full segment is 1412 bytes on the wire.
const DefaultMaxSegmentPayload = 1392

// Segment splits msg's payload into a sequence of TP segments. Each
// segment is a complete someip.Message whose message_type carries the TP
// bit and whose payload is a 4-byte TP header followed by up to
// maxSegmentPayload bytes of the original payload. Only the final segment
// has more_segments=false. maxSegmentPayload must be a positive multiple
// of 16.
func Segment(msg someip.Message, maxSegmentPayload int) ([]someip.Message, error) {
	if maxSegmentPayload <= 0 || maxSegmentPayload%16 != 0 {
		return nil, fmt.Errorf("%w: max_segment_payload %d is not a positive multiple of 16", ErrSegmentation, maxSegmentPayload)
	}

	payload := msg.Payload
	if len(payload) == 0 {
		return []someip.Message{buildSegment(msg, 0, nil, false)}, nil
	}

	segments := make([]someip.Message, 0, (len(payload)+maxSegmentPayload-1)/maxSegmentPayload)
	for offset := 0; offset < len(payload); offset += maxSegmentPayload {
		end := offset + maxSegmentPayload
		if end > len(payload) {
			end = len(payload)
		}
		more := end < len(payload)
		segments = append(segments, buildSegment(msg, uint32(offset), payload[offset:end], more))
	}
	return segments, nil
}

func buildSegment(msg someip.Message, offset uint32, chunk []byte, more bool) someip.Message {
	tpHeader := EncodeHeader(Header{Offset: offset, MoreSegments: more})
	body := make([]byte, 0, len(tpHeader)+len(chunk))
	body = append(body, tpHeader...)
	body = append(body, chunk...)

	h := msg.Header
	h.MessageType |= someip.TPFlag
	h.Length = uint32(8 + len(body))
	return someip.Message{Header: h, Payload: body}
}
