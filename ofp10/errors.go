package ofp10

import "errors"

// ErrTooLarge is returned when constructing a message whose encoded length
// would exceed the 16-bit OpenFlow length field.
var ErrTooLarge = errors.New("ofp10: message too large")

// ErrShort is returned when unmarshaling a buffer too short for its
// expected fixed-size structure.
var ErrShort = errors.New("ofp10: short buffer")

// ErrType is an OpenFlow ERROR message type code (ofp_error_type).
type ErrType uint16

// Error type codes used by the core.
const (
	ErrTypeHelloFailed    ErrType = 0
	ErrTypeBadRequest     ErrType = 1
	ErrTypeBadAction      ErrType = 2
	ErrTypeFlowModFailed  ErrType = 3
	ErrTypePortModFailed  ErrType = 4
	ErrTypeQueueOpFailed  ErrType = 5
)

// Error codes for ErrTypeHelloFailed.
const (
	HelloFailedIncompatible uint16 = 0
	HelloFailedEPerm        uint16 = 1
)

// Error codes for ErrTypeBadRequest.
const (
	BadRequestBadVersion   uint16 = 0
	BadRequestBadType      uint16 = 1
	BadRequestBadStat      uint16 = 2
	BadRequestBadVendor    uint16 = 3
	BadRequestBadSubtype   uint16 = 4
	BadRequestEPerm        uint16 = 5
	BadRequestBadLen       uint16 = 6
	BadRequestBufferEmpty  uint16 = 7
	BadRequestBufferUnknow uint16 = 8
)

// ErrorMsg is the body of a TypeError message (spec.md §6.1): the failing
// request's type and code, plus up to 64 bytes of the offending request.
type ErrorMsg struct {
	Type ErrType
	Code uint16
	Data []byte
}

const maxErrorData = 64

// Marshal appends the ErrorMsg body to a fresh message buffer for xid and
// returns the finished, length-prefixed message.
func (m ErrorMsg) Marshal(xid uint32) ([]byte, error) {
	data := m.Data
	if len(data) > maxErrorData {
		data = data[:maxErrorData]
	}

	b, err := NewMessage(TypeError, xid, 4+len(data))
	if err != nil {
		return nil, err
	}

	var hdr [4]byte
	putUint16(hdr[0:2], uint16(m.Type))
	putUint16(hdr[2:4], m.Code)
	b = append(b, hdr[:]...)
	b = append(b, data...)

	return Finish(b)
}

// UnmarshalErrorMsg parses the body (post-header) of a TypeError message.
func UnmarshalErrorMsg(b []byte) (ErrorMsg, error) {
	if len(b) < 4 {
		return ErrorMsg{}, ErrShort
	}
	return ErrorMsg{
		Type: ErrType(getUint16(b[0:2])),
		Code: getUint16(b[2:4]),
		Data: append([]byte(nil), b[4:]...),
	}, nil
}
