package consolidation

import "time"

// Consolidation is the lock state of a (section, bimester) period.
// ClosedBy and ClosedAt are only set while the period is closed.
type Consolidation struct {
	Section  string     `json:"section"`
	Bimester string     `json:"bimester"`
	IsClosed bool       `json:"is_closed"`
	ClosedBy string     `json:"closed_by,omitempty"`
	ClosedAt *time.Time `json:"closed_at,omitempty"` // UTC
}

// Period identifies a grading period of a section.
type Period struct {
	Section  string `json:"section" param:"section" validate:"required"`
	Bimester string `json:"bimester" param:"bimester" validate:"required"`
}

// Open returns the implicit state of a period with no record.
func Open(p Period) Consolidation {
	return Consolidation{Section: p.Section, Bimester: p.Bimester}
}
