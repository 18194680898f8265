package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/signdrill/internal/catalog"
	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/pipeline"
	"github.com/verte-zerg/signdrill/internal/signs"
	"github.com/verte-zerg/signdrill/internal/stats"
)

const weakTop = 5

type moduleJSON struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Letters     []string `json:"letter_set"`
	Completed   bool     `json:"completed"`
}

type modulesJSON struct {
	Modules           []moduleJSON `json:"modules"`
	CompletionPercent int          `json:"completion_percentage"`
}

type attemptJSON struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	ModuleID      int       `json:"module_id"`
	Letter        string    `json:"letter"`
	Detected      string    `json:"detected,omitempty"`
	IsCorrect     bool      `json:"is_correct"`
	AttemptNumber int       `json:"attempt_number"`
	CreatedAt     time.Time `json:"created_at"`
}

type attemptInput struct {
	ModuleID      int    `json:"module_id"`
	Letter        string `json:"letter"`
	Detected      string `json:"detected"`
	IsCorrect     *bool  `json:"is_correct"`
	AttemptNumber int    `json:"attempt_number"`
}

type letterJSON struct {
	Letter        string `json:"letter"`
	Tries         int    `json:"tries"`
	FirstAttempts int    `json:"first_attempts"`
	FirstCorrect  int    `json:"first_correct"`
	Correct       int    `json:"correct"`
}

type insightsJSON struct {
	VocabularyPercentage int          `json:"vocabulary_percentage"`
	VocabularyCount      int          `json:"vocabulary_count"`
	AvgAccuracy          int          `json:"avg_accuracy"`
	TotalTries           int          `json:"total_tries"`
	ModuleCompletion     int          `json:"module_completion"`
	WeakLetters          []string     `json:"weak_letters"`
	Letters              []letterJSON `json:"letters"`
}

type outcomeJSON struct {
	Expected   string  `json:"expected"`
	Detected   string  `json:"detected"`
	IsCorrect  bool    `json:"is_correct"`
	Confidence float64 `json:"confidence"`
	Verified   bool    `json:"verified"`
	Persisted  bool    `json:"persisted"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	mods := catalog.Modules()
	if user := r.URL.Query().Get("user"); user != "" {
		done, err := s.store.CompletedModules(r.Context(), user)
		if err != nil {
			s.internalError(w, "load completed modules", err)
			return
		}
		mods = catalog.WithCompletion(mods, done)
	}
	out := modulesJSON{CompletionPercent: catalog.CompletionPercent(mods)}
	for _, m := range mods {
		out.Modules = append(out.Modules, toModuleJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.store.ListAttempts(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		s.internalError(w, "list attempts", err)
		return
	}
	out := make([]attemptJSON, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, toAttemptJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAttempt(w http.ResponseWriter, r *http.Request) {
	var in attemptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := catalog.Find(in.ModuleID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	letter, err := signs.Decode(in.Letter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid letter")
		return
	}
	var detected model.Symbol
	if in.Detected != "" {
		if detected, err = signs.Decode(in.Detected); err != nil {
			writeError(w, http.StatusBadRequest, "invalid detected letter")
			return
		}
	}
	if in.AttemptNumber <= 0 {
		writeError(w, http.StatusBadRequest, "attempt_number must be positive")
		return
	}
	var correct bool
	switch {
	case in.IsCorrect != nil:
		correct = *in.IsCorrect
	case detected != "":
		correct = pipeline.Score(letter, detected)
	default:
		writeError(w, http.StatusBadRequest, "is_correct or detected is required")
		return
	}

	a := model.Attempt{
		UserID:        mux.Vars(r)["user"],
		ModuleID:      in.ModuleID,
		Letter:        letter,
		Detected:      detected,
		IsCorrect:     correct,
		AttemptNumber: in.AttemptNumber,
		CreatedAt:     s.now(),
	}
	id, err := s.store.InsertAttempt(r.Context(), a)
	if err != nil {
		s.internalError(w, "append attempt", err)
		return
	}
	a.ID = id
	writeJSON(w, http.StatusCreated, toAttemptJSON(a))
}

func (s *Server) insights(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	var (
		attempts []model.Attempt
		done     map[int]bool
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		attempts, err = s.store.ListAttempts(ctx, user)
		return err
	})
	g.Go(func() error {
		var err error
		done, err = s.store.CompletedModules(ctx, user)
		return err
	})
	if err := g.Wait(); err != nil {
		s.internalError(w, "load insights", err)
		return
	}

	report := stats.NewReport(attempts, 0, weakTop)
	out := insightsJSON{
		VocabularyPercentage: report.Insights.VocabularyPercentage,
		VocabularyCount:      report.Insights.VocabularyCount,
		AvgAccuracy:          report.Insights.AvgAccuracy,
		TotalTries:           report.Insights.TotalTries,
		ModuleCompletion:     catalog.CompletionPercent(catalog.WithCompletion(catalog.Modules(), done)),
		WeakLetters:          []string{},
		Letters:              []letterJSON{},
	}
	for _, l := range report.Weak {
		out.WeakLetters = append(out.WeakLetters, string(l))
	}
	for _, agg := range report.Letters {
		out.Letters = append(out.Letters, letterJSON{
			Letter:        string(agg.Letter),
			Tries:         agg.Tries,
			FirstAttempts: agg.FirstAttempts,
			FirstCorrect:  agg.FirstCorrect,
			Correct:       agg.Correct,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) completeModule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid module id")
		return
	}
	if _, err := catalog.Find(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.store.MarkModuleCompleted(r.Context(), vars["user"], id); err != nil {
		s.internalError(w, "mark module completed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// capture scores a raw JPEG body for the letter in the path. The attempt
// number comes from the "attempt" query parameter and defaults to 1.
func (s *Server) capture(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid module id")
		return
	}
	if _, err := catalog.Find(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	letter, err := signs.Decode(vars["letter"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid letter")
		return
	}
	attempt := 1
	if v := r.URL.Query().Get("attempt"); v != "" {
		if attempt, err = strconv.Atoi(v); err != nil || attempt <= 0 {
			writeError(w, http.StatusBadRequest, "attempt must be a positive integer")
			return
		}
	}
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxImage))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "empty image")
		return
	}

	out, err := s.scorer.Run(r.Context(), pipeline.Request{
		UserID:        vars["user"],
		ModuleID:      id,
		Expected:      letter,
		AttemptNumber: attempt,
		Image:         image,
	})
	if errors.Is(err, pipeline.ErrDetectionFailed) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "score capture", err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeJSON{
		Expected:   string(out.Expected),
		Detected:   string(out.Detected),
		IsCorrect:  out.IsCorrect,
		Confidence: out.Confidence,
		Verified:   out.Verified,
		Persisted:  out.Persisted,
	})
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	s.logger.Error(what, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func toModuleJSON(m model.Module) moduleJSON {
	letters := make([]string, 0, len(m.LetterSet))
	for _, l := range m.LetterSet {
		letters = append(letters, string(l))
	}
	return moduleJSON{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Letters:     letters,
		Completed:   m.Completed,
	}
}

func toAttemptJSON(a model.Attempt) attemptJSON {
	return attemptJSON{
		ID:            a.ID,
		UserID:        a.UserID,
		ModuleID:      a.ModuleID,
		Letter:        string(a.Letter),
		Detected:      string(a.Detected),
		IsCorrect:     a.IsCorrect,
		AttemptNumber: a.AttemptNumber,
		CreatedAt:     a.CreatedAt,
	}
}
