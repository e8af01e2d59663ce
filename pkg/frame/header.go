package frame

import (
	"bytes"
	"strconv"
)

// Params carries the wire-level parameters a TR header needs: the fixed
// packet size for every TR-family packet, the protocol tag placed as the
// first header field, and the single-byte field delimiter.
//
// These are exactly the negotiated session parameters from the handshake
// (frame_size, proto_name, split) minus everything the frame codec itself
// has no opinion about (text_encoding, key_size).
type Params struct {
	FrameSize int
	ProtoName string
	Split     byte
}

// p0Delim is the field delimiter used inside the P0 (config) header.
// It is hard-coded to '$' regardless of the negotiated split byte — see
// spec.md Open Questions: preserved as-is for wire compatibility.
const p0Delim = '$'

// buildTRHeader constructs the TR header for a payload of the given
// length, including the trailing split byte that marks "payload begins
// here".
func buildTRHeader(p Params, payloadLen int) []byte {
	var buf bytes.Buffer
	buf.WriteString(p.ProtoName)
	buf.WriteByte(p.Split)
	buf.WriteString("tr")
	buf.WriteByte(p.Split)
	buf.WriteString(strconv.Itoa(payloadLen))
	buf.WriteByte(p.Split)
	return buf.Bytes()
}

// splitTRHeader parses a raw TR packet's fields. It returns the declared
// payload length and the bytes of the packet that belong to the payload
// (everything after the third split byte, undisturbed even if it contains
// further split bytes).
func splitTRHeader(pkt []byte, split byte) (payloadLen int, rest []byte, err error) {
	fields := bytes.SplitN(pkt, []byte{split}, 4)
	if len(fields) < 4 {
		return 0, nil, ErrMalformedHeader
	}
	if string(fields[1]) != "tr" {
		return 0, nil, ErrProtocolDesync
	}
	n, convErr := strconv.Atoi(string(fields[2]))
	if convErr != nil || n < 0 {
		return 0, nil, ErrMalformedHeader
	}
	return n, fields[3], nil
}

// buildP0Header constructs the P0 header. The delimiter is always '$',
// independent of the negotiated split byte.
func buildP0Header(protoName string, jsonLen int) []byte {
	var buf bytes.Buffer
	buf.WriteString(protoName)
	buf.WriteByte(p0Delim)
	buf.WriteString("co")
	buf.WriteByte(p0Delim)
	buf.WriteString(strconv.Itoa(jsonLen))
	return buf.Bytes()
}

// splitP0Header parses a decoded (space-trimmed) P0 header into its
// proto name and declared JSON config length.
func splitP0Header(pkt []byte) (protoName string, configLen int, err error) {
	header := bytes.TrimRight(pkt, " ")
	fields := bytes.SplitN(header, []byte{p0Delim}, 3)
	if len(fields) != 3 {
		return "", 0, ErrMalformedHeader
	}
	if string(fields[1]) != "co" {
		return "", 0, ErrProtocolDesync
	}
	n, convErr := strconv.Atoi(string(fields[2]))
	if convErr != nil || n < 0 {
		return "", 0, ErrMalformedHeader
	}
	return string(fields[0]), n, nil
}
