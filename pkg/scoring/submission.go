package scoring

import (
	"errors"
	"fmt"
	"time"
)

// Stage is the lifecycle position of a submission.
type Stage int

const (
	StageCollecting Stage = iota
	StageScored
	StageClassified
	StageFinalized
)

func (s Stage) String() string {
	switch s {
	case StageCollecting:
		return "collecting"
	case StageScored:
		return "scored"
	case StageClassified:
		return "classified"
	case StageFinalized:
		return "finalized"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ErrAborted is returned by any transition attempted after a failed one.
var ErrAborted = errors.New("submission aborted")

// Submission walks one response set through Collecting → Scored →
// Classified → Finalized. A failed transition aborts it for good: the
// stage stays where it was, Err reports the cause, and the caller has to
// start a new submission with corrected input.
type Submission struct {
	def       *TestDefinition
	responses ResponseSet

	stage Stage
	err   error

	score float64
	class Classification
}

// NewSubmission starts collecting. The response set is copied.
func NewSubmission(def *TestDefinition, responses ResponseSet) *Submission {
	rs := make(ResponseSet, len(responses))
	copy(rs, responses)
	return &Submission{def: def, responses: rs}
}

func (s *Submission) Stage() Stage { return s.stage }

func (s *Submission) Err() error { return s.err }

// Score moves Collecting → Scored.
func (s *Submission) Score() error {
	if err := s.expect(StageCollecting); err != nil {
		return err
	}
	score, err := Score(s.def, s.responses)
	if err != nil {
		return s.abort(err)
	}
	s.score = score
	s.stage = StageScored
	return nil
}

// Classify moves Scored → Classified.
func (s *Submission) Classify() error {
	if err := s.expect(StageScored); err != nil {
		return err
	}
	c, err := classify(s.def.Code, s.score, s.def.ScoringRanges)
	if err != nil {
		return s.abort(err)
	}
	s.class = c
	s.stage = StageClassified
	return nil
}

// Finalize moves Classified → Finalized and returns the immutable result.
func (s *Submission) Finalize(at time.Time) (*ScoredResult, error) {
	if err := s.expect(StageClassified); err != nil {
		return nil, err
	}
	s.stage = StageFinalized
	return &ScoredResult{
		TestCode:       s.def.Code,
		Category:       s.def.Category,
		RawScore:       s.score,
		MaxScore:       MaxScore(s.def),
		SeverityLevel:  s.class.SeverityLevel,
		SeverityLabel:  s.class.SeverityLabel,
		Interpretation: s.class.Interpretation,
		ColorCode:      s.class.ColorCode,
		RiskLevel:      s.class.Risk,
		Baseline:       s.class.Baseline,
		Responses:      s.responses,
		ComputedAt:     at,
	}, nil
}

func (s *Submission) expect(want Stage) error {
	if s.err != nil {
		return fmt.Errorf("%w: %v", ErrAborted, s.err)
	}
	if s.stage != want {
		return fmt.Errorf("submission is %s, expected %s", s.stage, want)
	}
	return nil
}

func (s *Submission) abort(err error) error {
	s.err = err
	return err
}
