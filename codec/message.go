package codec

// HeaderSize is the fixed size of the wire header that precedes every
// transaction message: network_id(1) | version(1) | message_type(2) |
// service_id(2) | payload_length(4).
const HeaderSize = 10

// ServiceID is the constant service identifier for this currency service.
const ServiceID = 2

// ProtocolVersion is the single supported wire version for this release.
const ProtocolVersion = 1

// Header is the 10-byte wire header carried by every transaction message.
type Header struct {
	NetworkID     uint8
	Version       uint8
	MessageType   uint16
	ServiceID     uint16
	PayloadLength uint32
}

// EncodeHeader serializes h into its 10-byte wire form.
func EncodeHeader(h Header) []byte {
	w := NewWriter(HeaderSize)
	w.PutU8(0, h.NetworkID)
	w.PutU8(1, h.Version)
	w.PutU16(2, h.MessageType)
	w.PutU16(4, h.ServiceID)
	w.PutU32(6, h.PayloadLength)
	return w.Bytes()
}

// DecodeHeader parses the first HeaderSize bytes of buf as a Header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrUnexpectedlyShortPayload
	}
	r, err := NewReader(buf, HeaderSize)
	if err != nil {
		return Header{}, err
	}
	return Header{
		NetworkID:     r.U8(0),
		Version:       r.U8(1),
		MessageType:   r.U16(2),
		ServiceID:     r.U16(4),
		PayloadLength: r.U32(6),
	}, nil
}

// SigningBytes returns header||payload, the exact byte sequence the
// author's signature is computed over — everything in the wire message
// except the trailing signature itself.
func SigningBytes(networkID uint8, messageType uint16, payload []byte) []byte {
	h := Header{
		NetworkID:     networkID,
		Version:       ProtocolVersion,
		MessageType:   messageType,
		ServiceID:     ServiceID,
		PayloadLength: uint32(len(payload)),
	}
	out := make([]byte, 0, HeaderSize+len(payload))
	out = append(out, EncodeHeader(h)...)
	out = append(out, payload...)
	return out
}

// EncodeMessage assembles network_id|version|message_type|service_id|
// payload_length|payload|signature into the complete wire image.
func EncodeMessage(networkID uint8, messageType uint16, payload []byte, signature [SignatureSize]byte) []byte {
	out := SigningBytes(networkID, messageType, payload)
	out = append(out, signature[:]...)
	return out
}

// DecodeMessage validates the wire header against the expected network id
// and message type for this service, and splits buf into its payload and
// trailing author signature. Checks run in the order named by spec section
// 4.1: length, version, network id, message type, service id, then the
// total-length cross-check once payload_length is known to be trustworthy.
func DecodeMessage(buf []byte, wantNetworkID uint8, wantMessageType uint16) (payload []byte, signature [SignatureSize]byte, err error) {
	if len(buf) < HeaderSize+SignatureSize {
		return nil, signature, ErrUnexpectedlyShortPayload
	}
	h, err := DecodeHeader(buf[:HeaderSize])
	if err != nil {
		return nil, signature, err
	}
	if h.Version != ProtocolVersion {
		return nil, signature, ErrUnsupportedProtocolVersion
	}
	if h.NetworkID != wantNetworkID {
		return nil, signature, ErrIncorrectNetworkId
	}
	if h.MessageType != wantMessageType {
		return nil, signature, ErrIncorrectMessageType
	}
	if h.ServiceID != ServiceID {
		return nil, signature, ErrIncorrectServiceId
	}
	want := HeaderSize + int(h.PayloadLength) + SignatureSize
	if len(buf) != want {
		return nil, signature, ErrIncorrectMessageLength
	}
	payload = make([]byte, h.PayloadLength)
	copy(payload, buf[HeaderSize:HeaderSize+int(h.PayloadLength)])
	copy(signature[:], buf[HeaderSize+int(h.PayloadLength):])
	return payload, signature, nil
}

// MessageType enumerates the fixed (service_id, message_type) pairs used by
// this release's message namespace (spec section 9 REDESIGN FLAGS: the
// extended 3-digit scheme, not the legacy 1..7 numbering).
type MessageType uint16

const (
	MessageTrade               MessageType = 501
	MessageTradeIntermediary   MessageType = 502
	MessageExchange            MessageType = 601
	MessageExchangeIntermediary MessageType = 602
	MessageTransfer            MessageType = 701
	MessageDeleteAssets        MessageType = 702
	MessageAddAssets           MessageType = 703
	MessageBid                 MessageType = 704
	MessageAsk                 MessageType = 705
)
