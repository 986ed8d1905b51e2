package ofp10

// Reason codes for PACKET_IN (ofp_packet_in_reason).
const (
	PacketInReasonNoMatch uint8 = 0
	PacketInReasonAction  uint8 = 1
)

// NoBuffer is the buffer id sentinel meaning "packet not buffered; full
// payload attached" (spec.md §6.1).
const NoBuffer uint32 = 0xffffffff

// HelloMarshal builds a HELLO message. The OFP 1.0 HELLO body is empty.
func HelloMarshal(xid uint32) ([]byte, error) {
	b, err := NewMessage(TypeHello, xid, 0)
	if err != nil {
		return nil, err
	}
	return Finish(b)
}

// EchoMarshal builds an ECHO_REQUEST or ECHO_REPLY message, echoing data
// back verbatim.
func EchoMarshal(reply bool, xid uint32, data []byte) ([]byte, error) {
	t := TypeEchoRequest
	if reply {
		t = TypeEchoReply
	}
	b, err := NewMessage(t, xid, len(data))
	if err != nil {
		return nil, err
	}
	b = append(b, data...)
	return Finish(b)
}

// BarrierReplyMarshal builds a BARRIER_REPLY message for xid.
func BarrierReplyMarshal(xid uint32) ([]byte, error) {
	b, err := NewMessage(TypeBarrierReply, xid, 0)
	if err != nil {
		return nil, err
	}
	return Finish(b)
}

// Capabilities bits (ofp_capabilities) advertised in FEATURES_REPLY.
const (
	CapFlowStats   uint32 = 1 << 0
	CapTableStats  uint32 = 1 << 1
	CapPortStats   uint32 = 1 << 2
	CapStp         uint32 = 1 << 3
	CapIPReasm     uint32 = 1 << 5
	CapQueueStats  uint32 = 1 << 6
	CapArpMatchIP  uint32 = 1 << 7
)

// Supported actions bitmap (ofp_action_type bit position == value).
const (
	ActionsOutput   uint32 = 1 << ActionTypeOutput
	ActionsSetVlan  uint32 = 1 << ActionTypeSetVlanVid
	ActionsStripVlan uint32 = 1 << ActionTypeStripVlan
)

// FeaturesReply is the body of a FEATURES_REPLY message.
type FeaturesReply struct {
	DatapathID   uint64
	NBuffers     uint32
	NTables      uint8
	Capabilities uint32
	Actions      uint32
	Ports        []PhyPort
}

const featuresReplyFixedLen = 8 + 4 + 1 + 3 + 4 + 4

// Marshal builds a FEATURES_REPLY message.
func (f FeaturesReply) Marshal(xid uint32) ([]byte, error) {
	bodyLen := featuresReplyFixedLen + len(f.Ports)*PhyPortLen
	b, err := NewMessage(TypeFeaturesReply, xid, bodyLen)
	if err != nil {
		return nil, err
	}

	var fixed [featuresReplyFixedLen]byte
	putUint64(fixed[0:8], f.DatapathID)
	putUint32(fixed[8:12], f.NBuffers)
	fixed[12] = f.NTables
	putUint32(fixed[16:20], f.Capabilities)
	putUint32(fixed[20:24], f.Actions)
	b = append(b, fixed[:]...)

	for _, p := range f.Ports {
		b = p.Marshal(b)
	}

	return Finish(b)
}

// SwitchConfig is the body shared by GET_CONFIG_REPLY and SET_CONFIG.
type SwitchConfig struct {
	Flags       uint16
	MissSendLen uint16
}

// Marshal builds a GET_CONFIG_REPLY message.
func (c SwitchConfig) Marshal(xid uint32) ([]byte, error) {
	b, err := NewMessage(TypeGetConfigReply, xid, 4)
	if err != nil {
		return nil, err
	}
	var body [4]byte
	putUint16(body[0:2], c.Flags)
	putUint16(body[2:4], c.MissSendLen)
	b = append(b, body[:]...)
	return Finish(b)
}

// UnmarshalSwitchConfig parses the body of a SET_CONFIG message.
func UnmarshalSwitchConfig(b []byte) (SwitchConfig, error) {
	if len(b) < 4 {
		return SwitchConfig{}, ErrShort
	}
	return SwitchConfig{
		Flags:       getUint16(b[0:2]),
		MissSendLen: getUint16(b[2:4]),
	}, nil
}

// PacketIn is the body of a PACKET_IN message.
type PacketIn struct {
	BufferID uint32
	TotalLen uint16
	InPort   uint16
	Reason   uint8
	Data     []byte
}

const packetInFixedLen = 4 + 2 + 2 + 1 + 1

// Marshal builds a PACKET_IN message.
func (p PacketIn) Marshal(xid uint32) ([]byte, error) {
	b, err := NewMessage(TypePacketIn, xid, packetInFixedLen+len(p.Data))
	if err != nil {
		return nil, err
	}

	var fixed [packetInFixedLen]byte
	putUint32(fixed[0:4], p.BufferID)
	putUint16(fixed[4:6], p.TotalLen)
	putUint16(fixed[6:8], p.InPort)
	fixed[8] = p.Reason
	b = append(b, fixed[:]...)
	b = append(b, p.Data...)

	return Finish(b)
}

// Reason codes for FLOW_REMOVED (ofp_flow_removed_reason).
const (
	FlowRemovedReasonIdleTimeout uint8 = 0
	FlowRemovedReasonHardTimeout uint8 = 1
	FlowRemovedReasonDelete      uint8 = 2
)

// FlowRemoved is the body of a FLOW_REMOVED message.
type FlowRemoved struct {
	Match       Match
	Cookie      uint64
	Priority    uint16
	Reason      uint8
	DurationSec uint32
	DurationNs  uint32
	IdleTimeout uint16
	PacketCount uint64
	ByteCount   uint64
}

const flowRemovedFixedLen = MatchLen + 8 + 2 + 1 + 1 + 4 + 4 + 2 + 2 + 8 + 8

// Marshal builds a FLOW_REMOVED message.
func (f FlowRemoved) Marshal(xid uint32) ([]byte, error) {
	b, err := NewMessage(TypeFlowRemoved, xid, flowRemovedFixedLen)
	if err != nil {
		return nil, err
	}

	b = f.Match.Marshal(b)

	var fixed [8 + 2 + 1 + 1 + 4 + 4 + 2 + 2 + 8 + 8]byte
	putUint64(fixed[0:8], f.Cookie)
	putUint16(fixed[8:10], f.Priority)
	fixed[10] = f.Reason
	putUint32(fixed[12:16], f.DurationSec)
	putUint32(fixed[16:20], f.DurationNs)
	putUint16(fixed[20:22], f.IdleTimeout)
	putUint64(fixed[24:32], f.PacketCount)
	putUint64(fixed[32:40], f.ByteCount)
	b = append(b, fixed[:]...)

	return Finish(b)
}

// Reason codes for PORT_STATUS (ofp_port_reason).
const (
	PortReasonAdd    uint8 = 0
	PortReasonDelete uint8 = 1
	PortReasonModify uint8 = 2
)

// PortStatus is the body of a PORT_STATUS message.
type PortStatus struct {
	Reason uint8
	Desc   PhyPort
}

const portStatusFixedLen = 1 + 7 + PhyPortLen

// Marshal builds a PORT_STATUS message.
func (p PortStatus) Marshal(xid uint32) ([]byte, error) {
	b, err := NewMessage(TypePortStatus, xid, portStatusFixedLen)
	if err != nil {
		return nil, err
	}

	var head [8]byte
	head[0] = p.Reason
	b = append(b, head[:]...)
	b = p.Desc.Marshal(b)

	return Finish(b)
}

// PacketOut is the body of a controller-originated PACKET_OUT message.
type PacketOut struct {
	BufferID uint32
	InPort   uint16
	Actions  []Action
	Data     []byte
}

// UnmarshalPacketOut parses the body of a PACKET_OUT message.
func UnmarshalPacketOut(b []byte) (PacketOut, error) {
	if len(b) < 8 {
		return PacketOut{}, ErrShort
	}
	bufferID := getUint32(b[0:4])
	inPort := getUint16(b[4:6])
	actionsLen := int(getUint16(b[6:8]))
	if 8+actionsLen > len(b) {
		return PacketOut{}, ErrShort
	}

	actions, err := UnmarshalActions(b[8 : 8+actionsLen])
	if err != nil {
		return PacketOut{}, err
	}

	return PacketOut{
		BufferID: bufferID,
		InPort:   inPort,
		Actions:  actions,
		Data:     append([]byte(nil), b[8+actionsLen:]...),
	}, nil
}

// FlowModCommand is the command field of a FLOW_MOD message
// (ofp_flow_mod_command).
type FlowModCommand uint16

// FlowMod commands.
const (
	FlowModCommandAdd          FlowModCommand = 0
	FlowModCommandModify       FlowModCommand = 1
	FlowModCommandModifyStrict FlowModCommand = 2
	FlowModCommandDelete       FlowModCommand = 3
	FlowModCommandDeleteStrict FlowModCommand = 4
)

// FlowMod flag bits.
const (
	FlowModFlagSendFlowRem uint16 = 1 << 0
	FlowModFlagCheckOverlap uint16 = 1 << 1
	FlowModFlagEmergency   uint16 = 1 << 2
)

// FlowMod is the body of a controller-originated FLOW_MOD message.
type FlowMod struct {
	Match       Match
	Cookie      uint64
	Command     FlowModCommand
	IdleTimeout uint16
	HardTimeout uint16
	Priority    uint16
	BufferID    uint32
	OutPort     Port
	Flags       uint16
	Actions     []Action
}

const flowModFixedLen = MatchLen + 8 + 2 + 2 + 2 + 2 + 4 + 2 + 2

// UnmarshalFlowMod parses the body of a FLOW_MOD message.
func UnmarshalFlowMod(b []byte) (FlowMod, error) {
	if len(b) < flowModFixedLen {
		return FlowMod{}, ErrShort
	}
	match, err := UnmarshalMatch(b)
	if err != nil {
		return FlowMod{}, err
	}
	b = b[MatchLen:]

	fm := FlowMod{
		Match:       match,
		Cookie:      getUint64(b[0:8]),
		Command:     FlowModCommand(getUint16(b[8:10])),
		IdleTimeout: getUint16(b[10:12]),
		HardTimeout: getUint16(b[12:14]),
		Priority:    getUint16(b[14:16]),
		BufferID:    getUint32(b[16:20]),
		OutPort:     Port(getUint16(b[20:22])),
		Flags:       getUint16(b[22:24]),
	}

	actions, err := UnmarshalActions(b[24:])
	if err != nil {
		return FlowMod{}, err
	}
	fm.Actions = actions

	return fm, nil
}

// PortMod is the body of a controller-originated PORT_MOD message.
type PortMod struct {
	PortNo uint16
	HWAddr [6]byte
	Config uint32
	Mask   uint32
}

const portModLen = 2 + 6 + 4 + 4 + 4

// UnmarshalPortMod parses the body of a PORT_MOD message.
func UnmarshalPortMod(b []byte) (PortMod, error) {
	if len(b) < portModLen {
		return PortMod{}, ErrShort
	}
	var p PortMod
	p.PortNo = getUint16(b[0:2])
	copy(p.HWAddr[:], b[2:8])
	p.Config = getUint32(b[8:12])
	p.Mask = getUint32(b[12:16])
	return p, nil
}
