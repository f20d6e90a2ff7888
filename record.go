package lab

// Record is one view entry: a pointer at a remote peer by stable index,
// aged by the number of merges it has survived. Identity is index-only;
// hop orders records by freshness but never distinguishes them.
type Record struct {
	Index int
	Hop   int
}

// Matches reports whether two records point at the same peer.
func (r Record) Matches(other Record) bool {
	return r.Index == other.Index
}

// CloneRecords deep-copies a record slice. Push buffers must be private
// copies: the sender's hop counters must never alias the receiver's.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
