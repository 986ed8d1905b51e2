package ofp10

// StatsType selects a statistics category (spec.md §4.7).
type StatsType uint16

// Statistics categories.
const (
	StatsTypeDesc      StatsType = 0
	StatsTypeFlow      StatsType = 1
	StatsTypeAggregate StatsType = 2
	StatsTypeTable     StatsType = 3
	StatsTypePort      StatsType = 4
	StatsTypeVendor    StatsType = 0xffff
)

// StatsReplyFlagMore marks a STATS_REPLY fragment as non-final.
const StatsReplyFlagMore uint16 = 1 << 0

const statsHeaderLen = 4

// StatsRequest is the common STATS_REQUEST envelope; Body holds the
// category-specific payload (FlowStatsRequest, PortStatsRequest, ...).
type StatsRequest struct {
	Type  StatsType
	Flags uint16
	Body  []byte
}

// UnmarshalStatsRequest parses the body (post-header) of a STATS_REQUEST
// message.
func UnmarshalStatsRequest(b []byte) (StatsRequest, error) {
	if len(b) < statsHeaderLen {
		return StatsRequest{}, ErrShort
	}
	return StatsRequest{
		Type:  StatsType(getUint16(b[0:2])),
		Flags: getUint16(b[2:4]),
		Body:  append([]byte(nil), b[statsHeaderLen:]...),
	}, nil
}

// StatsReplyMarshal builds one STATS_REPLY fragment carrying body for the
// given category, setting StatsReplyFlagMore when more is true.
func StatsReplyMarshal(xid uint32, t StatsType, more bool, body []byte) ([]byte, error) {
	b, err := NewMessage(TypeStatsReply, xid, statsHeaderLen+len(body))
	if err != nil {
		return nil, err
	}

	var flags uint16
	if more {
		flags = StatsReplyFlagMore
	}

	var head [statsHeaderLen]byte
	putUint16(head[0:2], uint16(t))
	putUint16(head[2:4], flags)
	b = append(b, head[:]...)
	b = append(b, body...)

	return Finish(b)
}

// FlowStatsRequest is the body of a STATS_REQUEST for StatsTypeFlow or
// StatsTypeAggregate.
type FlowStatsRequest struct {
	Match   Match
	TableID uint8
	OutPort Port
}

const flowStatsRequestLen = MatchLen + 1 + 1 + 2

// UnmarshalFlowStatsRequest parses a FlowStatsRequest.
func UnmarshalFlowStatsRequest(b []byte) (FlowStatsRequest, error) {
	if len(b) < flowStatsRequestLen {
		return FlowStatsRequest{}, ErrShort
	}
	m, err := UnmarshalMatch(b)
	if err != nil {
		return FlowStatsRequest{}, err
	}
	return FlowStatsRequest{
		Match:   m,
		TableID: b[MatchLen],
		OutPort: Port(getUint16(b[MatchLen+2 : MatchLen+4])),
	}, nil
}

// TableIDAll requests flow statistics across every table, including the
// emergency table.
const TableIDAll uint8 = 0xff

// TableIDEmergency is the reserved table id of the emergency table
// (spec.md §4.7).
const TableIDEmergency uint8 = 0xfe

// FlowStats is one record of a StatsTypeFlow reply (spec.md §4.7).
type FlowStats struct {
	TableID     uint8
	Match       Match
	DurationSec uint32
	DurationNs  uint32
	Priority    uint16
	IdleTimeout uint16
	HardTimeout uint16
	Cookie      uint64
	PacketCount uint64
	ByteCount   uint64
	Actions     []Action
}

const flowStatsFixedLen = 2 + 1 + 1 + MatchLen + 4 + 4 + 2 + 2 + 2 + 6 + 8 + 8 + 8

// Marshal appends the wire encoding of one FlowStats record to b, returning
// the new slice. Length is filled from the actual encoded size.
func (f FlowStats) Marshal(b []byte) []byte {
	start := len(b)
	var head [2 + 1 + 1]byte // length, table_id, pad
	head[2] = f.TableID
	b = append(b, head[:]...)
	b = f.Match.Marshal(b)

	var fixed [4 + 4 + 2 + 2 + 2 + 6 + 8 + 8 + 8]byte
	putUint32(fixed[0:4], f.DurationSec)
	putUint32(fixed[4:8], f.DurationNs)
	putUint16(fixed[8:10], f.Priority)
	putUint16(fixed[10:12], f.IdleTimeout)
	putUint16(fixed[12:14], f.HardTimeout)
	putUint64(fixed[20:28], f.Cookie)
	putUint64(fixed[28:36], f.PacketCount)
	putUint64(fixed[36:44], f.ByteCount)
	b = append(b, fixed[:]...)

	b = MarshalActions(b, f.Actions)

	putUint16(b[start:start+2], uint16(len(b)-start))
	return b
}

// Len reports the marshaled size of f, used by the stats dump engine to
// decide whether a record still fits the remaining buffer budget.
func (f FlowStats) Len() int {
	n := flowStatsFixedLen
	for _, a := range f.Actions {
		body := len(a.Raw)
		if a.Type == ActionTypeOutput && a.Raw == nil {
			body = 4 // MarshalAction synthesizes the port/max_len body
		}
		n += actionHeaderLen + body
	}
	return n
}

// AggregateStats is the body of a StatsTypeAggregate reply.
type AggregateStats struct {
	PacketCount uint64
	ByteCount   uint64
	FlowCount   uint32
}

// Marshal builds the AggregateStats body.
func (a AggregateStats) Marshal() []byte {
	var b [8 + 8 + 4 + 4]byte
	putUint64(b[0:8], a.PacketCount)
	putUint64(b[8:16], a.ByteCount)
	putUint32(b[16:20], a.FlowCount)
	return b[:]
}

// TableStats is one record of a StatsTypeTable reply.
type TableStats struct {
	TableID      uint8
	Name         [16]byte
	Wildcards    uint32
	MaxEntries   uint32
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

// Marshal appends the wire encoding of one TableStats record to b.
func (t TableStats) Marshal(b []byte) []byte {
	var buf [1 + 3 + 16 + 4 + 4 + 4 + 8 + 8]byte
	buf[0] = t.TableID
	copy(buf[4:20], t.Name[:])
	putUint32(buf[20:24], t.Wildcards)
	putUint32(buf[24:28], t.MaxEntries)
	putUint32(buf[28:32], t.ActiveCount)
	putUint64(buf[32:40], t.LookupCount)
	putUint64(buf[40:48], t.MatchedCount)
	return append(b, buf[:]...)
}

// TableStatsLen is the marshaled size of one TableStats record.
const TableStatsLen = 1 + 3 + 16 + 4 + 4 + 4 + 8 + 8

// PortStatsRequest is the body of a STATS_REQUEST for StatsTypePort.
type PortStatsRequest struct {
	PortNo Port
}

// UnmarshalPortStatsRequest parses a PortStatsRequest.
func UnmarshalPortStatsRequest(b []byte) (PortStatsRequest, error) {
	if len(b) < 8 {
		return PortStatsRequest{}, ErrShort
	}
	return PortStatsRequest{PortNo: Port(getUint16(b[0:2]))}, nil
}

// PortStats is one record of a StatsTypePort reply.
type PortStats struct {
	PortNo     uint16
	RxPackets  uint64
	TxPackets  uint64
	RxBytes    uint64
	TxBytes    uint64
	RxDropped  uint64
	TxDropped  uint64
	RxErrors   uint64
	TxErrors   uint64
	RxFrameErr uint64
	RxOverErr  uint64
	RxCRCErr   uint64
	Collisions uint64
}

// PortStatsLen is the marshaled size of one PortStats record.
const PortStatsLen = 2 + 6 + 8*12

// Marshal appends the wire encoding of one PortStats record to b.
func (p PortStats) Marshal(b []byte) []byte {
	var buf [PortStatsLen]byte
	putUint16(buf[0:2], p.PortNo)
	off := 8
	put := func(v uint64) {
		putUint64(buf[off:off+8], v)
		off += 8
	}
	put(p.RxPackets)
	put(p.TxPackets)
	put(p.RxBytes)
	put(p.TxBytes)
	put(p.RxDropped)
	put(p.TxDropped)
	put(p.RxErrors)
	put(p.TxErrors)
	put(p.RxFrameErr)
	put(p.RxOverErr)
	put(p.RxCRCErr)
	put(p.Collisions)
	return append(b, buf[:]...)
}
