package grading

import (
	"github.com/medlearn/platform-api/internal/pool"
)

// Response is a learner's submitted answer to one question: selected option
// ids for choice kinds, free text for QROC.
type Response struct {
	SelectedOptionIDs []string `json:"selected_option_ids,omitempty"`
	Text              string   `json:"text,omitempty"`
}

// Result is the outcome of scoring a single question.
type Result struct {
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Correct   bool    `json:"correct"`
}

// Score maps a question and a response to points. Pure and deterministic;
// a nil response means the question was left unanswered and scores zero
// credit against the kind's max.
//
// QCS: 1 point iff the single selected option is the correct one.
// QCMA: 1 point iff the selected set equals the correct set exactly.
// QCMP: max = number of correct options; points = correct selections minus
// incorrect selections, floored at 0 and capped at max.
// QROC: 1 point iff the text matches the expected answer after trimming and
// case folding. No fuzzy matching.
func Score(q pool.Question, resp *Response) Result {
	switch q.Type {
	case pool.TypeQCS:
		res := Result{MaxPoints: 1}
		if resp == nil || len(resp.SelectedOptionIDs) != 1 {
			return res
		}
		correct := q.CorrectOptionIDs()
		if len(correct) == 1 && resp.SelectedOptionIDs[0] == correct[0] {
			res.Points, res.Correct = 1, true
		}
		return res

	case pool.TypeQCMA:
		res := Result{MaxPoints: 1}
		if resp == nil {
			return res
		}
		if setEqual(toSet(resp.SelectedOptionIDs), toSet(q.CorrectOptionIDs())) {
			res.Points, res.Correct = 1, true
		}
		return res

	case pool.TypeQCMP:
		correct := toSet(q.CorrectOptionIDs())
		res := Result{MaxPoints: float64(len(correct))}
		if resp == nil {
			return res
		}
		good, bad := 0, 0
		for id := range toSet(resp.SelectedOptionIDs) {
			if _, ok := correct[id]; ok {
				good++
			} else {
				bad++
			}
		}
		pts := float64(good - bad)
		if pts < 0 {
			pts = 0
		}
		if pts > res.MaxPoints {
			pts = res.MaxPoints
		}
		res.Points = pts
		res.Correct = pts == res.MaxPoints && bad == 0 && good == len(correct)
		return res

	case pool.TypeQROC:
		res := Result{MaxPoints: 1}
		if resp == nil {
			return res
		}
		if normalize(resp.Text) != "" && normalize(resp.Text) == normalize(q.ExpectedAnswer) {
			res.Points, res.Correct = 1, true
		}
		return res
	}

	// Unknown kinds cannot be stored (Question.Validate rejects them).
	return Result{}
}

// Aggregate sums per-question results into an attempt score. The percentage
// is sum(points)/sum(max)*100; an empty set yields zero.
func Aggregate(results []Result) (points, maxPoints, percentage float64) {
	for _, r := range results {
		points += r.Points
		maxPoints += r.MaxPoints
	}
	if maxPoints > 0 {
		percentage = points / maxPoints * 100
	}
	return
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
