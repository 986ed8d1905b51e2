package ofp10

// ActionType is an OpenFlow action type (ofp_action_type).
type ActionType uint16

// Action type codes used by the core. Only Output is interpreted by the
// Forwarding Engine (spec.md §4.4); the rest round-trip as opaque bytes.
const (
	ActionTypeOutput      ActionType = 0
	ActionTypeSetVlanVid  ActionType = 1
	ActionTypeSetVlanPcp  ActionType = 2
	ActionTypeStripVlan   ActionType = 3
	ActionTypeSetDlSrc    ActionType = 4
	ActionTypeSetDlDst    ActionType = 5
	ActionTypeSetNwSrc    ActionType = 6
	ActionTypeSetNwDst    ActionType = 7
	ActionTypeSetNwTos    ActionType = 8
	ActionTypeSetTpSrc    ActionType = 9
	ActionTypeSetTpDst    ActionType = 10
	ActionTypeEnqueue     ActionType = 11
	ActionTypeVendor      ActionType = 0xffff
)

// actionHeaderLen is the size of the common ofp_action_header
// (type, length).
const actionHeaderLen = 4

// Action is a single OpenFlow action. Output is the only variant the core
// interprets directly; Raw preserves any other action type byte-for-byte
// so it can be round-tripped through flow-mod/flow-removed without the core
// needing to understand it.
type Action struct {
	Type ActionType
	// Output holds the output port and max_len; valid when Type ==
	// ActionTypeOutput.
	Output OutputAction
	// Raw holds the type-specific body (everything after the 4-byte
	// action header) for any action type, including Output, so that
	// re-marshaling an action the core did not originate is lossless.
	Raw []byte
}

// OutputAction is the body of an ActionTypeOutput action.
type OutputAction struct {
	Port   Port
	MaxLen uint16
}

// MarshalAction returns the wire encoding of a in a newly allocated slice.
func MarshalAction(a Action) []byte {
	body := a.Raw
	if a.Type == ActionTypeOutput && body == nil {
		var ob [4]byte
		putUint16(ob[0:2], uint16(a.Output.Port))
		putUint16(ob[2:4], a.Output.MaxLen)
		body = ob[:]
	}

	total := actionHeaderLen + len(body)
	b := make([]byte, actionHeaderLen, total)
	putUint16(b[0:2], uint16(a.Type))
	putUint16(b[2:4], uint16(total))
	return append(b, body...)
}

// UnmarshalActions parses a sequence of back-to-back actions from b, as
// found in a FlowMod, PacketOut, or FlowStats/Action list.
func UnmarshalActions(b []byte) ([]Action, error) {
	var actions []Action
	for len(b) > 0 {
		if len(b) < actionHeaderLen {
			return nil, ErrShort
		}
		typ := ActionType(getUint16(b[0:2]))
		length := int(getUint16(b[2:4]))
		if length < actionHeaderLen || length > len(b) {
			return nil, ErrShort
		}

		a := Action{Type: typ, Raw: append([]byte(nil), b[actionHeaderLen:length]...)}
		if typ == ActionTypeOutput {
			if len(a.Raw) < 4 {
				return nil, ErrShort
			}
			a.Output = OutputAction{
				Port:   Port(getUint16(a.Raw[0:2])),
				MaxLen: getUint16(a.Raw[2:4]),
			}
		}

		actions = append(actions, a)
		b = b[length:]
	}
	return actions, nil
}

// MarshalActions appends the wire encoding of every action in actions to b.
func MarshalActions(b []byte, actions []Action) []byte {
	for _, a := range actions {
		b = append(b, MarshalAction(a)...)
	}
	return b
}
