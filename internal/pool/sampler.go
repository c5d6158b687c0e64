package pool

import (
	"context"
	"math/rand"

	"github.com/medlearn/platform-api/internal/content"
)

// Sampler draws random, non-repeating question subsets from the bank. The
// eligible pool is snapshotted in memory per call, then shuffled, so
// concurrent draws neither skew selection nor hit the store per candidate.
// Draws are deliberately not reproducible.
type Sampler struct {
	questions *SQLStore
	content   *content.SQLStore
}

func NewSampler(questions *SQLStore, contentStore *content.SQLStore) *Sampler {
	return &Sampler{questions: questions, content: contentStore}
}

// CountAvailable reports how many active questions match the sources and
// filters, broken down by difficulty and type. Callers use it to validate a
// question count before sampling.
func (s *Sampler) CountAvailable(ctx context.Context, src content.Sources, f Filters) (Availability, error) {
	eligible, err := s.loadEligible(ctx, src, f)
	if err != nil {
		return Availability{}, err
	}
	av := Availability{
		Total:        len(eligible),
		ByDifficulty: map[Difficulty]int{},
		ByType:       map[QuestionType]int{},
	}
	for _, q := range eligible {
		if q.Difficulty != "" {
			av.ByDifficulty[q.Difficulty]++
		}
		av.ByType[q.Type]++
	}
	return av, nil
}

// Sample returns exactly count distinct questions drawn uniformly from the
// eligible pool, answer keys included. Fails with *InsufficientPoolError if
// the pool is smaller than count.
func (s *Sampler) Sample(ctx context.Context, src content.Sources, f Filters, count int) ([]Question, error) {
	eligible, err := s.loadEligible(ctx, src, f)
	if err != nil {
		return nil, err
	}
	if count > len(eligible) {
		return nil, &InsufficientPoolError{Requested: count, Available: len(eligible)}
	}
	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	return eligible[:count], nil
}

func (s *Sampler) loadEligible(ctx context.Context, src content.Sources, f Filters) ([]Question, error) {
	moduleIDs, lessonIDs, err := s.content.ExpandSources(ctx, src)
	if err != nil {
		return nil, err
	}
	return s.questions.eligible(ctx, moduleIDs, lessonIDs, f)
}
