package dp

import "github.com/ofswitchd/go-ofswitch/ofp10"

// ConvertActions translates a decoded OpenFlow action list into the
// Forwarding Engine's vocabulary (spec.md §4.4): only ActionTypeOutput
// carries forwarding semantics, so every other action type becomes an
// empty no-op entry: the list keeps its length, but the entry carries
// none of the original action's type or bytes.
func ConvertActions(actions []ofp10.Action) []Action {
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		if a.Type == ofp10.ActionTypeOutput {
			out = append(out, Action{Output: &ActionOutput{
				Port:   uint16(a.Output.Port),
				MaxLen: a.Output.MaxLen,
			}})
			continue
		}
		out = append(out, Action{})
	}
	return out
}
