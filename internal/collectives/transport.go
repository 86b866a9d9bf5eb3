package collectives

// transport is the low-level primitive every Group is built on: a single
// blocking all-gather of one Payload per member, plus the ability to
// split off a scoped child transport. Everything else in Group
// (sort, scans, shifts, all-to-all, gather-v, block decompose) is
// derived from allgather by having every member compute the same
// reduction locally over the same gathered picture.
type transport interface {
	rank() int
	size() int

	// allgather blocks until every member of this transport has called
	// it once for the current round, then returns every member's
	// contribution indexed by local rank. A non-nil error means the
	// transport could not complete the round (dial/accept failure on
	// the RPC transport); it is always fatal.
	allgather(p Payload) ([]Payload, error)

	// subset splits the transport, scoping a child to the local ranks
	// listed in members (ascending, a subsequence of 0..size()-1).
	// Every member of the parent transport must call subset with the
	// same members slice in the same relative call order, including
	// members that end up excluded — subset always advances the
	// parent's internal subgroup sequence so peers agree on the child's
	// identity even when they are not part of it. Returns (nil, -1) for
	// a peer not present in members.
	subset(members []int) (transport, int)

	close() error
}
