// Package util holds internal helpers that have not earned a public API.
package util

import (
	"fmt"
	"strings"

	"github.com/hupe1980/causemesh/core"
)

// Fingerprint renders a normalized cause sequence as a canonical string so
// the dedup registry can key on value equality of cause lists. Live nodes
// (causables, chain breaks) contribute their pointer identity, so two
// distinct chains never collapse, while plain values contribute their
// dynamic type and formatted value. Plain components are length-prefixed,
// keeping the encoding injective: a value carrying delimiter bytes cannot
// forge the structure of a different sequence.
func Fingerprint(refs []core.CauseRef) string {
	var sb strings.Builder
	writeRefs(&sb, refs)
	return sb.String()
}

func writeRefs(sb *strings.Builder, refs []core.CauseRef) {
	sb.WriteByte('[')
	for i, ref := range refs {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeRef(sb, ref)
	}
	sb.WriteByte(']')
}

func writeRef(sb *strings.Builder, ref core.CauseRef) {
	switch ref.Kind() {
	case core.NestedRef:
		fmt.Fprintf(sb, "c:%p", ref.Causable())
	case core.BrokenRef:
		fmt.Fprintf(sb, "b:%p", ref.Break())
	case core.GroupRef:
		sb.WriteString("g:")
		writeRefs(sb, ref.Group())
	default:
		typ := fmt.Sprintf("%T", ref.Raw())
		val := fmt.Sprint(ref.Raw())
		fmt.Fprintf(sb, "p:%d:%s:%d:%s", len(typ), typ, len(val), val)
	}
}
