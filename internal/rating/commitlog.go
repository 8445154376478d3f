package rating

// CommitLogEntry records one commit.
type CommitLogEntry struct {
	TimeOffsetMs int64  `json:"timeOffsetMs"`
	Item         string `json:"item"`
	Value        Rating `json:"value"`
}

// CommitLog is an append-only, chronologically ordered list of commits.
type CommitLog struct {
	entries []CommitLogEntry
}

func (l *CommitLog) append(e CommitLogEntry) {
	if n := len(l.entries); n > 0 && e.TimeOffsetMs < l.entries[n-1].TimeOffsetMs {
		// clocks can step backwards; keep offsets non-decreasing
		e.TimeOffsetMs = l.entries[n-1].TimeOffsetMs
	}
	l.entries = append(l.entries, e)
}

func (l *CommitLog) Len() int { return len(l.entries) }

// Entries returns a copy of the log.
func (l *CommitLog) Entries() []CommitLogEntry {
	return append([]CommitLogEntry(nil), l.entries...)
}
