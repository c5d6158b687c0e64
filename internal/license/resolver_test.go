package license

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/medlearn/platform-api/internal/content"
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

// seedHierarchy builds year y1 -> semesters s1,s2 -> modules m1 (under s1),
// m2 (under s2), plus an unrelated year y2 -> s3 -> m3.
func seedHierarchy(t *testing.T, dbh *sql.DB) {
	t.Helper()
	ctx := context.Background()
	cs := content.NewSQLStore(dbh)

	years := []content.StudyYear{{ID: "y1", Name: "Year 1"}, {ID: "y2", Name: "Year 2"}}
	sems := []content.Semester{
		{ID: "s1", Name: "S1", StudyYearID: "y1"},
		{ID: "s2", Name: "S2", StudyYearID: "y1"},
		{ID: "s3", Name: "S3", StudyYearID: "y2"},
	}
	mods := []content.Module{
		{ID: "m1", Name: "Anatomy", SemesterID: "s1"},
		{ID: "m2", Name: "Physiology", SemesterID: "s2"},
		{ID: "m3", Name: "Histology", SemesterID: "s3"},
	}
	for _, y := range years {
		if err := cs.PutStudyYear(ctx, y); err != nil {
			t.Fatalf("put year: %v", err)
		}
	}
	for _, s := range sems {
		if err := cs.PutSemester(ctx, s); err != nil {
			t.Fatalf("put semester: %v", err)
		}
	}
	for _, m := range mods {
		if err := cs.PutModule(ctx, m); err != nil {
			t.Fatalf("put module: %v", err)
		}
	}
}

func putLicense(t *testing.T, store *SQLStore, l License) License {
	t.Helper()
	saved, err := store.Put(context.Background(), l)
	if err != nil {
		t.Fatalf("put license: %v", err)
	}
	return saved
}

func TestHasAccessYearScopeInherits(t *testing.T) {
	dbh := newTestDB(t)
	seedHierarchy(t, dbh)
	store := NewSQLStore(dbh)
	resolver := NewResolver(dbh)

	now := time.Now()
	putLicense(t, store, License{
		UserID:      "u1",
		StudyYearID: "y1",
		StartDate:   now.Add(-24 * time.Hour).Unix(),
		EndDate:     now.Add(24 * time.Hour).Unix(),
		IsActive:    true,
	})

	ctx := context.Background()
	cases := []struct {
		name   string
		scope  ScopeType
		nodeID string
		want   bool
	}{
		{"year itself", ScopeStudyYear, "y1", true},
		{"semester beneath", ScopeSemester, "s1", true},
		{"other semester beneath", ScopeSemester, "s2", true},
		{"module beneath", ScopeModule, "m1", true},
		{"module in sibling semester", ScopeModule, "m2", true},
		{"module in other year", ScopeModule, "m3", false},
		{"other year", ScopeStudyYear, "y2", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.HasAccess(ctx, "u1", tc.scope, tc.nodeID, now)
			if err != nil {
				t.Fatalf("HasAccess: %v", err)
			}
			if got != tc.want {
				t.Fatalf("HasAccess(%s %s) = %v, want %v", tc.scope, tc.nodeID, got, tc.want)
			}
		})
	}
}

func TestHasAccessModuleScopeDoesNotClimb(t *testing.T) {
	dbh := newTestDB(t)
	seedHierarchy(t, dbh)
	store := NewSQLStore(dbh)
	resolver := NewResolver(dbh)

	now := time.Now()
	putLicense(t, store, License{
		UserID:    "u1",
		ModuleID:  "m1",
		StartDate: now.Add(-time.Hour).Unix(),
		EndDate:   now.Add(time.Hour).Unix(),
		IsActive:  true,
	})

	ctx := context.Background()
	if ok, _ := resolver.HasAccess(ctx, "u1", ScopeModule, "m1", now); !ok {
		t.Fatal("licensed module should be accessible")
	}
	if ok, _ := resolver.HasAccess(ctx, "u1", ScopeModule, "m2", now); ok {
		t.Fatal("sibling module should not be accessible")
	}
	if ok, _ := resolver.HasAccess(ctx, "u1", ScopeSemester, "s1", now); ok {
		t.Fatal("a module license must not grant its parent semester")
	}
}

func TestHasAccessWindowAndActivation(t *testing.T) {
	dbh := newTestDB(t)
	seedHierarchy(t, dbh)
	store := NewSQLStore(dbh)
	resolver := NewResolver(dbh)
	ctx := context.Background()

	now := time.Now()
	expired := putLicense(t, store, License{
		UserID:    "u1",
		ModuleID:  "m1",
		StartDate: now.Add(-48 * time.Hour).Unix(),
		EndDate:   now.Add(-24 * time.Hour).Unix(),
		IsActive:  true,
	})
	_ = expired
	if ok, _ := resolver.HasAccess(ctx, "u1", ScopeModule, "m1", now); ok {
		t.Fatal("expired license granted access")
	}

	notYet := License{
		UserID:    "u2",
		ModuleID:  "m1",
		StartDate: now.Add(24 * time.Hour).Unix(),
		EndDate:   now.Add(48 * time.Hour).Unix(),
		IsActive:  true,
	}
	putLicense(t, store, notYet)
	if ok, _ := resolver.HasAccess(ctx, "u2", ScopeModule, "m1", now); ok {
		t.Fatal("future license granted access")
	}

	active := putLicense(t, store, License{
		UserID:    "u3",
		ModuleID:  "m1",
		StartDate: now.Add(-time.Hour).Unix(),
		EndDate:   now.Add(time.Hour).Unix(),
		IsActive:  true,
	})
	if ok, _ := resolver.HasAccess(ctx, "u3", ScopeModule, "m1", now); !ok {
		t.Fatal("active in-window license denied")
	}

	// Revocation takes effect on the next check, with no caching in between.
	if err := store.Revoke(ctx, active.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := resolver.HasAccess(ctx, "u3", ScopeModule, "m1", now); ok {
		t.Fatal("revoked license still granted access")
	}
}

func TestHasAccessBoundaryInclusive(t *testing.T) {
	dbh := newTestDB(t)
	seedHierarchy(t, dbh)
	store := NewSQLStore(dbh)
	resolver := NewResolver(dbh)
	ctx := context.Background()

	start := time.Unix(1_700_000_000, 0)
	end := start.Add(30 * 24 * time.Hour)
	putLicense(t, store, License{
		UserID: "u1", ModuleID: "m1",
		StartDate: start.Unix(), EndDate: end.Unix(), IsActive: true,
	})

	for _, now := range []time.Time{start, end} {
		if ok, _ := resolver.HasAccess(ctx, "u1", ScopeModule, "m1", now); !ok {
			t.Fatalf("boundary instant %v should be inside the window", now.Unix())
		}
	}
	if ok, _ := resolver.HasAccess(ctx, "u1", ScopeModule, "m1", end.Add(time.Second)); ok {
		t.Fatal("one second past end date should deny")
	}
}

func TestScopeValidation(t *testing.T) {
	if _, _, err := (License{}).Scope(); err != ErrBadScope {
		t.Fatalf("empty scope err = %v, want ErrBadScope", err)
	}
	if _, _, err := (License{StudyYearID: "y1", ModuleID: "m1"}).Scope(); err != ErrBadScope {
		t.Fatalf("double scope err = %v, want ErrBadScope", err)
	}
	st, id, err := (License{SemesterID: "s1"}).Scope()
	if err != nil || st != ScopeSemester || id != "s1" {
		t.Fatalf("scope = %v %q %v", st, id, err)
	}
}
