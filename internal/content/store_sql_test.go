package content

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/medlearn/platform-api/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

// seeds y1 -> (s1 -> m1, m2; s2 -> m3) and y2 -> s3 -> m4, lessons le1, le2
// under m1.
func seedTree(t *testing.T, s *SQLStore) {
	t.Helper()
	ctx := context.Background()
	for _, y := range []StudyYear{{ID: "y1", Name: "Year 1"}, {ID: "y2", Name: "Year 2"}} {
		if err := s.PutStudyYear(ctx, y); err != nil {
			t.Fatalf("put year: %v", err)
		}
	}
	for _, sem := range []Semester{
		{ID: "s1", Name: "S1", StudyYearID: "y1"},
		{ID: "s2", Name: "S2", StudyYearID: "y1"},
		{ID: "s3", Name: "S3", StudyYearID: "y2"},
	} {
		if err := s.PutSemester(ctx, sem); err != nil {
			t.Fatalf("put semester: %v", err)
		}
	}
	for _, m := range []Module{
		{ID: "m1", Name: "Anatomy", SemesterID: "s1"},
		{ID: "m2", Name: "Physiology", SemesterID: "s1"},
		{ID: "m3", Name: "Biochem", SemesterID: "s2"},
		{ID: "m4", Name: "Histology", SemesterID: "s3"},
	} {
		if err := s.PutModule(ctx, m); err != nil {
			t.Fatalf("put module: %v", err)
		}
	}
	for _, l := range []Lesson{
		{ID: "le1", Title: "Bones", ModuleID: "m1", Position: 1},
		{ID: "le2", Title: "Joints", ModuleID: "m1", Position: 2},
	} {
		if err := s.PutLesson(ctx, l); err != nil {
			t.Fatalf("put lesson: %v", err)
		}
	}
}

func TestExpandSources(t *testing.T) {
	s := NewSQLStore(newTestDB(t))
	seedTree(t, s)
	ctx := context.Background()

	cases := []struct {
		name    string
		src     Sources
		modules []string
		lessons []string
	}{
		{"study year expands to all its modules",
			Sources{StudyYears: []string{"y1"}}, []string{"m1", "m2", "m3"}, nil},
		{"semester expands to its modules",
			Sources{Semesters: []string{"s1"}}, []string{"m1", "m2"}, nil},
		{"modules pass through",
			Sources{Modules: []string{"m4"}}, []string{"m4"}, nil},
		{"lessons pass through",
			Sources{Lessons: []string{"le1"}}, nil, []string{"le1"}},
		{"overlapping levels deduplicate",
			Sources{Semesters: []string{"s1"}, Modules: []string{"m1"}}, []string{"m1", "m2"}, nil},
		{"mixed levels combine",
			Sources{StudyYears: []string{"y2"}, Lessons: []string{"le2"}}, []string{"m4"}, []string{"le2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mods, lessons, err := s.ExpandSources(ctx, tc.src)
			if err != nil {
				t.Fatalf("expand: %v", err)
			}
			sort.Strings(mods)
			if !equalStrings(mods, tc.modules) {
				t.Fatalf("modules = %v, want %v", mods, tc.modules)
			}
			if !equalStrings(lessons, tc.lessons) {
				t.Fatalf("lessons = %v, want %v", lessons, tc.lessons)
			}
		})
	}
}

func TestHierarchyLookups(t *testing.T) {
	s := NewSQLStore(newTestDB(t))
	seedTree(t, s)
	ctx := context.Background()

	semID, yearID, err := s.ModuleChain(ctx, "m3")
	if err != nil || semID != "s2" || yearID != "y1" {
		t.Fatalf("ModuleChain(m3) = %q %q %v", semID, yearID, err)
	}
	if _, _, err := s.ModuleChain(ctx, "nope"); err != ErrNotFound {
		t.Fatalf("ModuleChain missing = %v, want ErrNotFound", err)
	}

	modID, err := s.LessonModule(ctx, "le2")
	if err != nil || modID != "m1" {
		t.Fatalf("LessonModule(le2) = %q %v", modID, err)
	}
	if _, err := s.LessonModule(ctx, "nope"); err != ErrNotFound {
		t.Fatalf("LessonModule missing = %v, want ErrNotFound", err)
	}
}

func TestTree(t *testing.T) {
	s := NewSQLStore(newTestDB(t))
	seedTree(t, s)

	tree, err := s.Tree(context.Background())
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("tree has %d years, want 2", len(tree))
	}
	var y1 StudyYear
	for _, y := range tree {
		if y.ID == "y1" {
			y1 = y
		}
	}
	if len(y1.Semesters) != 2 {
		t.Fatalf("y1 has %d semesters, want 2", len(y1.Semesters))
	}
	for _, sem := range y1.Semesters {
		if sem.ID == "s1" {
			if len(sem.Modules) != 2 {
				t.Fatalf("s1 has %d modules, want 2", len(sem.Modules))
			}
			for _, m := range sem.Modules {
				if m.ID == "m1" && len(m.Lessons) != 2 {
					t.Fatalf("m1 has %d lessons, want 2", len(m.Lessons))
				}
			}
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
