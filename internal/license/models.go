package license

import "errors"

// ScopeType names the single content level a license is scoped to.
type ScopeType string

const (
	ScopeStudyYear ScopeType = "STUDY_YEAR"
	ScopeSemester  ScopeType = "SEMESTER"
	ScopeModule    ScopeType = "MODULE"
)

// License grants one learner time-bounded access to one content node.
// Coverage inherits downward: a study-year license covers every semester and
// module beneath it, a semester license every module beneath it.
type License struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	StudyYearID string `json:"study_year_id,omitempty"`
	SemesterID  string `json:"semester_id,omitempty"`
	ModuleID    string `json:"module_id,omitempty"`
	StartDate   int64  `json:"start_date"` // unix seconds
	EndDate     int64  `json:"end_date"`   // unix seconds
	IsActive    bool   `json:"is_active"`
}

var ErrBadScope = errors.New("license must target exactly one of study year, semester, module")

// Scope returns the license's scope level and node id.
func (l License) Scope() (ScopeType, string, error) {
	set := 0
	var st ScopeType
	var id string
	if l.StudyYearID != "" {
		set++
		st, id = ScopeStudyYear, l.StudyYearID
	}
	if l.SemesterID != "" {
		set++
		st, id = ScopeSemester, l.SemesterID
	}
	if l.ModuleID != "" {
		set++
		st, id = ScopeModule, l.ModuleID
	}
	if set != 1 {
		return "", "", ErrBadScope
	}
	return st, id, nil
}

// EffectiveAt reports whether the license is usable at the given unix time.
func (l License) EffectiveAt(now int64) bool {
	return l.IsActive && l.StartDate <= now && now <= l.EndDate
}
