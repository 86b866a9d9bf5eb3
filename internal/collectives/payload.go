package collectives

import "github.com/ashwin1596/gclabel/internal/tuple"

// PayloadKind tags which field of Payload carries the value being
// exchanged in a collective call. A concrete tagged union, rather than
// an interface{}, keeps the RPC transport's wire format a plain
// JSON-RPC-friendly struct.
type PayloadKind int

const (
	KindTuple PayloadKind = iota
	KindTuples
	KindBool
)

// Payload is the single value type every collective in this package
// exchanges between peers.
type Payload struct {
	Kind   PayloadKind
	Tuple  tuple.T
	Tuples []tuple.T
	Counts []int
	Bool   bool
}
