package raft

// Log is the owned, single-writer command log. It uses spec.md §3's
// 1-indexed "length prefix" convention throughout: a length L means
// "the first L entries are present"; index 0 means "before the log".
//
// Log is not safe for concurrent use; callers (Replica) serialize
// access with their own mutex.
type Log struct {
	entries []LogEntry
}

// Len returns the number of entries in the log.
func (l *Log) Len() int {
	return len(l.entries)
}

// TermAt returns the term of the entry at 1-based length L, or 0 when
// L == 0 (spec.md §3).
func (l *Log) TermAt(length int) uint64 {
	if length <= 0 {
		return 0
	}
	return l.entries[length-1].Term
}

// LastTerm returns the term of the last entry, or 0 if the log is
// empty.
func (l *Log) LastTerm() uint64 {
	return l.TermAt(l.Len())
}

// EntryAt returns the entry at 1-based index i.
func (l *Log) EntryAt(i int) LogEntry {
	return l.entries[i-1]
}

// Suffix returns a copy of the entries after 1-based length
// `fromLength` (i.e. indices fromLength+1..end).
func (l *Log) Suffix(fromLength int) []LogEntry {
	if fromLength >= len(l.entries) {
		return nil
	}
	if fromLength < 0 {
		fromLength = 0
	}
	out := make([]LogEntry, len(l.entries)-fromLength)
	copy(out, l.entries[fromLength:])
	return out
}

// Append appends a single entry, used by the Leader's own
// handle_command path. The Leader never overwrites or deletes entries
// in its own log (invariant I2).
func (l *Log) Append(e LogEntry) {
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the full log, for the status snapshot and
// tests.
func (l *Log) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// AppendFrom implements spec.md §4.5's Follower log-update algorithm:
// conflict truncation followed by appending the suffix of entries that
// extends beyond the current log. `fromLength` is L, the leader's
// assumed-replicated prefix length, which the caller has already
// validated via a prior TermAt(L)-match check (log_ok).
func (l *Log) AppendFrom(fromLength int, entries []LogEntry) {
	if len(entries) > 0 && len(l.entries) > fromLength {
		if l.entries[fromLength].Term != entries[0].Term {
			l.entries = l.entries[:fromLength]
		}
	}
	if fromLength+len(entries) > len(l.entries) {
		newFrom := len(l.entries) - fromLength
		if newFrom < 0 {
			newFrom = 0
		}
		l.entries = append(l.entries, entries[newFrom:]...)
	}
}
