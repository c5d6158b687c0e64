package content

// The content hierarchy is StudyYear -> Semester -> Module -> Lesson.
// Licensing and pool sampling both walk it: licenses inherit downward,
// sampling sources expand downward.

type StudyYear struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Semesters []Semester `json:"semesters,omitempty"`
}

type Semester struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	StudyYearID string   `json:"study_year_id"`
	Modules     []Module `json:"modules,omitempty"`
}

type Module struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	SemesterID string   `json:"semester_id"`
	Lessons    []Lesson `json:"lessons,omitempty"`
}

type Lesson struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ModuleID string `json:"module_id"`
	Position int    `json:"position"`
}

// Sources names the content nodes a revision quiz draws from. Any level may
// be used; higher levels are expanded to the modules beneath them.
type Sources struct {
	StudyYears []string `json:"study_years,omitempty"`
	Semesters  []string `json:"semesters,omitempty"`
	Modules    []string `json:"modules,omitempty"`
	Lessons    []string `json:"lessons,omitempty"`
}

func (s Sources) Empty() bool {
	return len(s.StudyYears) == 0 && len(s.Semesters) == 0 &&
		len(s.Modules) == 0 && len(s.Lessons) == 0
}
