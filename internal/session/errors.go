package session

import "errors"

var (
	// ErrForbidden: no effective license covers the quiz's content node.
	ErrForbidden = errors.New("no effective license covers this content")

	ErrQuizNotFound    = errors.New("quiz not found")
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrUnknownQuestion: the answered question is not in the attempt's set.
	ErrUnknownQuestion = errors.New("question is not part of this attempt")

	// ErrSessionClosed: mutation attempted on a finished attempt.
	ErrSessionClosed = errors.New("attempt is already finished")

	// ErrNotFinished: results requested for an attempt still open.
	ErrNotFinished = errors.New("attempt is not finished yet")

	// ErrSessionActive is part of the taxonomy for stores that refuse to
	// resume an open attempt. The SQL store resumes instead and never
	// returns it.
	ErrSessionActive = errors.New("an open attempt already exists for this quiz")
)
