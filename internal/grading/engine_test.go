package grading

import (
	"math"
	"testing"

	"github.com/medlearn/platform-api/internal/pool"
)

func choiceQuestion(t pool.QuestionType, correct, incorrect int) pool.Question {
	q := pool.Question{ID: "q1", Text: "pick", Type: t}
	for i := 0; i < correct; i++ {
		q.Options = append(q.Options, pool.Option{ID: optID("c", i), Text: "right", IsCorrect: true})
	}
	for i := 0; i < incorrect; i++ {
		q.Options = append(q.Options, pool.Option{ID: optID("w", i), Text: "wrong"})
	}
	return q
}

func optID(prefix string, i int) string {
	return prefix + string(rune('0'+i))
}

func TestScoreQCS(t *testing.T) {
	q := choiceQuestion(pool.TypeQCS, 1, 3)

	cases := []struct {
		name     string
		resp     *Response
		points   float64
		correct  bool
	}{
		{"correct option", &Response{SelectedOptionIDs: []string{"c0"}}, 1, true},
		{"wrong option", &Response{SelectedOptionIDs: []string{"w1"}}, 0, false},
		{"multiple selections", &Response{SelectedOptionIDs: []string{"c0", "w0"}}, 0, false},
		{"unanswered", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Score(q, tc.resp)
			if res.MaxPoints != 1 {
				t.Fatalf("max = %v, want 1", res.MaxPoints)
			}
			if res.Points != tc.points || res.Correct != tc.correct {
				t.Fatalf("got points=%v correct=%v, want %v/%v", res.Points, res.Correct, tc.points, tc.correct)
			}
		})
	}
}

func TestScoreQCMA(t *testing.T) {
	q := choiceQuestion(pool.TypeQCMA, 2, 2)

	cases := []struct {
		name   string
		resp   *Response
		points float64
	}{
		{"exact set", &Response{SelectedOptionIDs: []string{"c1", "c0"}}, 1},
		{"strict subset", &Response{SelectedOptionIDs: []string{"c0"}}, 0},
		{"strict superset", &Response{SelectedOptionIDs: []string{"c0", "c1", "w0"}}, 0},
		{"partial overlap", &Response{SelectedOptionIDs: []string{"c0", "w1"}}, 0},
		{"unanswered", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Score(q, tc.resp)
			if res.MaxPoints != 1 {
				t.Fatalf("max = %v, want 1", res.MaxPoints)
			}
			if res.Points != tc.points {
				t.Fatalf("points = %v, want %v", res.Points, tc.points)
			}
		})
	}
}

func TestScoreQCMP(t *testing.T) {
	// 3 correct options out of 5.
	q := choiceQuestion(pool.TypeQCMP, 3, 2)

	cases := []struct {
		name   string
		resp   *Response
		points float64
	}{
		{"all correct", &Response{SelectedOptionIDs: []string{"c0", "c1", "c2"}}, 3},
		{"two correct one wrong", &Response{SelectedOptionIDs: []string{"c0", "c1", "w0"}}, 1},
		{"one correct two wrong floors at zero", &Response{SelectedOptionIDs: []string{"c0", "w0", "w1"}}, 0},
		{"only wrong", &Response{SelectedOptionIDs: []string{"w0", "w1"}}, 0},
		{"unanswered", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Score(q, tc.resp)
			if res.MaxPoints != 3 {
				t.Fatalf("max = %v, want 3", res.MaxPoints)
			}
			if res.Points != tc.points {
				t.Fatalf("points = %v, want %v", res.Points, tc.points)
			}
			if res.Points < 0 {
				t.Fatalf("points went negative: %v", res.Points)
			}
		})
	}
}

func TestScoreQROC(t *testing.T) {
	q := pool.Question{ID: "q1", Type: pool.TypeQROC, ExpectedAnswer: "paris"}

	cases := []struct {
		name   string
		text   string
		points float64
	}{
		{"exact", "paris", 1},
		{"padded and cased", "  Paris ", 1},
		{"punctuation is significant", "Paris!", 0},
		{"different answer", "lyon", 0},
		{"empty", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Score(q, &Response{Text: tc.text})
			if res.MaxPoints != 1 {
				t.Fatalf("max = %v, want 1", res.MaxPoints)
			}
			if res.Points != tc.points {
				t.Fatalf("points = %v, want %v", res.Points, tc.points)
			}
		})
	}

	if res := Score(q, nil); res.Points != 0 || res.MaxPoints != 1 {
		t.Fatalf("unanswered QROC = %+v, want 0/1", res)
	}
}

func TestAggregate(t *testing.T) {
	results := []Result{
		{Points: 1, MaxPoints: 1},
		{Points: 1, MaxPoints: 3},
		{Points: 0, MaxPoints: 1},
	}
	points, max, pct := Aggregate(results)
	if points != 2 || max != 5 {
		t.Fatalf("sum = %v/%v, want 2/5", points, max)
	}
	if math.Abs(pct-40) > 0.01 {
		t.Fatalf("percentage = %v, want 40", pct)
	}

	if _, _, pct := Aggregate(nil); pct != 0 {
		t.Fatalf("empty aggregate percentage = %v, want 0", pct)
	}
}
