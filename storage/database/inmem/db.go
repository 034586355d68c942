// Package inmemdb keeps every repository in process memory. It backs tests and debug runs.
package inmemdb

import (
	"sync"

	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
	"github.com/nocheto/libretas/core/rubric"
)

type (
	DB struct {
		// ledger is read-locked by grade and exam writes and write-locked by close and reopen,
		// so a write and the closed check it depends on are atomic.
		ledger sync.RWMutex

		consolidation *consolidationTable
		grade         *gradeTable
		exam          *examTable
		sheet         *sheetTable
	}

	consolidationTable struct {
		sync.RWMutex
		table map[consolidation.Period]*consolidation.Consolidation
	}

	gradeTable struct {
		sync.RWMutex
		table map[grade.Key]*grade.Entry
	}

	examTable struct {
		sync.RWMutex
		table map[grade.Key]*grade.Exam
	}

	sheetTable struct {
		sync.RWMutex
		table map[rubric.Key]*rubric.Sheet
	}
)

func Open() *DB {
	return &DB{
		consolidation: &consolidationTable{table: make(map[consolidation.Period]*consolidation.Consolidation)},
		grade:         &gradeTable{table: make(map[grade.Key]*grade.Entry)},
		exam:          &examTable{table: make(map[grade.Key]*grade.Exam)},
		sheet:         &sheetTable{table: make(map[rubric.Key]*rubric.Sheet)},
	}
}

// isClosed must be called with db.ledger held.
func (db *DB) isClosed(section, bimester string) bool {
	db.consolidation.RLock()
	defer db.consolidation.RUnlock()

	c, ok := db.consolidation.table[consolidation.Period{Section: section, Bimester: bimester}]
	return ok && c.IsClosed
}
