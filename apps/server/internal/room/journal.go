package room

import (
	"time"

	"liap-tui/castellan"
)

// ChangeRecord is one committed journal entry. Frame holds the encoded
// public broadcast so resync can replay the exact bytes every seat saw.
// Private hand contents never enter the journal.
type ChangeRecord struct {
	Version   uint64
	Phase     castellan.Phase
	Reason    string
	Changes   map[string]any
	AppliedAt time.Time
	ActionID  string
	Frame     []byte
}

// Journal is the per-room append-only change log. It is a ring buffer:
// once capacity is reached the retention floor rises and clients below it
// get a full resync instead of incremental replay.
type Journal struct {
	records []ChangeRecord
	version uint64
	cap     int
}

const defaultJournalCap = 4096

func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = defaultJournalCap
	}
	return &Journal{cap: capacity}
}

// Version returns the last committed version (0 before any append).
func (j *Journal) Version() uint64 { return j.version }

// Floor returns the oldest retained version, or 0 when empty.
func (j *Journal) Floor() uint64 {
	if len(j.records) == 0 {
		return 0
	}
	return j.records[0].Version
}

// Append commits a record at the next version and returns it.
func (j *Journal) Append(rec ChangeRecord) ChangeRecord {
	j.version++
	rec.Version = j.version
	if len(j.records) == j.cap {
		copy(j.records, j.records[1:])
		j.records = j.records[:j.cap-1]
	}
	j.records = append(j.records, rec)
	return rec
}

// Since returns all records with version > after, in order. ok is false
// when "after" has fallen below the retention floor, in which case the
// caller must issue a full resync.
func (j *Journal) Since(after uint64) (records []ChangeRecord, ok bool) {
	if after >= j.version {
		return nil, true
	}
	if len(j.records) > 0 && after+1 < j.records[0].Version {
		return nil, false
	}
	for _, rec := range j.records {
		if rec.Version > after {
			records = append(records, rec)
		}
	}
	return records, true
}

// Last returns the most recent record, if any is retained.
func (j *Journal) Last() (ChangeRecord, bool) {
	if len(j.records) == 0 {
		return ChangeRecord{}, false
	}
	return j.records[len(j.records)-1], true
}

// Len reports how many records are retained.
func (j *Journal) Len() int { return len(j.records) }
