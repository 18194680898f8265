// Package model defines shared data structures.
package model

import "time"

// Symbol is one letter of the manual alphabet, stored upper-case ("A".."Z").
type Symbol string

// AlphabetSize is the number of symbols in the manual alphabet.
const AlphabetSize = 26

// DetectionResult is the detector service response for a single capture.
// Label is the raw service label (e.g. "ASL_A"); see signs.Decode.
type DetectionResult struct {
	Success    bool
	Label      string
	Confidence float64
	Landmarks  string
	Error      string
}

// VerificationRequest is sent to the AI verification service.
type VerificationRequest struct {
	Image     []byte
	Landmarks string
	Predicted Symbol
}

// VerificationResult is the AI verification service response.
type VerificationResult struct {
	Success    bool
	Letter     Symbol
	Confidence float64
	Agreed     bool
	Error      string
}

// LetterStatus is the per-letter outcome within a testing session.
type LetterStatus string

const (
	StatusPending      LetterStatus = "pending"
	StatusCorrect      LetterStatus = "correct"
	StatusSecondChance LetterStatus = "second-chance"
	StatusFailed       LetterStatus = "failed"
)

// Terminal reports whether the status ends work on the letter for the session.
func (s LetterStatus) Terminal() bool {
	return s != StatusPending && s != ""
}

// LetterProgress tracks one letter of the active lesson.
type LetterProgress struct {
	Letter   Symbol
	Status   LetterStatus
	Attempts int
}

// Attempt is a persisted capture attempt.
type Attempt struct {
	ID            int64
	UserID        string
	ModuleID      int
	Letter        Symbol
	Detected      Symbol
	IsCorrect     bool
	AttemptNumber int
	CreatedAt     time.Time
}

// Module is a lesson in the catalog.
type Module struct {
	ID          int
	Title       string
	Description string
	LetterSet   []Symbol
	Completed   bool
}

// Insights summarizes a user's attempt history.
type Insights struct {
	VocabularyPercentage int
	VocabularyCount      int
	AvgAccuracy          int
	TotalTries           int
}

// LetterAggregate aggregates attempts for one letter.
type LetterAggregate struct {
	Letter        Symbol
	Tries         int
	FirstAttempts int
	FirstCorrect  int
	Correct       int
}

// CompletionStats is the report shown when a testing session finishes.
type CompletionStats struct {
	Accuracy       int
	CorrectLetters int
	TotalLetters   int
	TotalTries     int
	TimeSpent      int
	Stars          int
}
