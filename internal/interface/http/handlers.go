package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/empower-sl/learnhub/internal/application/command"
	"github.com/empower-sl/learnhub/internal/application/eventhandler"
	"github.com/empower-sl/learnhub/internal/application/query"
	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// QuizRequest is the body of POST /quizzes.
type QuizRequest struct {
	Score    *int `json:"score" validate:"required,gte=0,lte=10000"`
	MaxScore *int `json:"maxScore" validate:"required,gt=0,lte=10000"`
}

// AddXPRequest is the body of POST /xp.
type AddXPRequest struct {
	Amount *int `json:"amount" validate:"required"`
}

// BadgeView is a badge localized for a response.
type BadgeView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	XPReward    int    `json:"xpReward"`
	Rarity      string `json:"rarity"`
}

// ResultView is the response of every activity recorder.
type ResultView struct {
	XPGained  int         `json:"xpGained"`
	NewBadges []BadgeView `json:"newBadges"`
	LeveledUp bool        `json:"leveledUp"`
	NewLevel  int         `json:"newLevel"`
}

// NotificationView is a notification localized for a response.
type NotificationView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Icon      string    `json:"icon"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Ago       string    `json:"ago"`
}

func toBadgeViews(badges []progress.Badge, lang shared.Lang) []BadgeView {
	out := make([]BadgeView, 0, len(badges))
	for _, b := range badges {
		name, desc := b.Localized(lang)
		out = append(out, BadgeView{
			ID:          b.ID,
			Name:        name,
			Description: desc,
			Icon:        b.Icon,
			XPReward:    b.XPReward,
			Rarity:      string(b.Rarity),
		})
	}
	return out
}

func toResultView(res command.Result, lang shared.Lang) ResultView {
	return ResultView{
		XPGained:  res.XPGained,
		NewBadges: toBadgeViews(res.NewBadges, lang),
		LeveledUp: res.LeveledUp,
		NewLevel:  res.NewLevel,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"service": "learnhub",
		"version": s.config.Version,
	}, nil)
}

// handleHealth returns the full health report; 503 when a check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{"healthy": true}, nil)
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status, nil)
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		if status := s.deps.HealthChecker.Check(r.Context()); !status.Ready {
			writeJSONErrorWithDetails(w, r, http.StatusServiceUnavailable, "not_ready", "Service is not ready", status.Message)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"ready": true}, nil)
}

// handleLive answers as long as the process serves requests.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]bool{"alive": true}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListBadges(w http.ResponseWriter, r *http.Request) {
	badges := s.deps.Badges.ListBadges(langFrom(r))
	writeJSON(w, r, http.StatusOK, badges, &ResponseMeta{TotalCount: len(badges)})
}

func (s *Server) handleCreateLearner(w http.ResponseWriter, r *http.Request) {
	id, p, err := s.deps.Engine.CreateLearner(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/learners/"+id+"/progress")
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"learnerId": id,
		"progress":  p,
	}, nil)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Summary.Handle(r.Context(), query.GetProgressSummaryQuery{
		LearnerID: learnerID(r),
		Lang:      langFrom(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary, nil)
}

func (s *Server) handleGetLearnerBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := s.deps.Badges.GetLearnerBadges(r.Context(), learnerID(r), langFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, badges, nil)
}

func (s *Server) handleJobsAccess(w http.ResponseWriter, r *http.Request) {
	ok, err := s.deps.Engine.HasJobsAccess(r.Context(), learnerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"hasJobsAccess": ok}, nil)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	id := learnerID(r)
	if _, err := shared.NewLearnerID(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := intParam(r, "page")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pageSize, err := intParam(r, "pageSize")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pg := shared.NewPagination(page, pageSize)

	var feed []eventhandler.Notification
	if s.deps.Notifier != nil {
		feed = s.deps.Notifier.Feed(id, 0)
	}
	total := len(feed)
	from := min(pg.Offset(), total)
	to := min(from+pg.Limit(), total)

	lang := langFrom(r)
	now := time.Now()
	views := make([]NotificationView, 0, to-from)
	for _, n := range feed[from:to] {
		title, msg := n.Localized(lang)
		views = append(views, NotificationView{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Icon:      n.Icon,
			Title:     title,
			Message:   msg,
			CreatedAt: n.CreatedAt,
			Ago:       timeutil.FormatRelative(n.CreatedAt, now),
		})
	}
	writeJSON(w, r, http.StatusOK, views, &ResponseMeta{TotalCount: total})
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recorder adapts a parameterless engine recorder to a handler.
func (s *Server) recorder(fn func(*command.Engine, context.Context, string) (command.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := fn(s.deps.Engine, r.Context(), learnerID(r))
		s.writeResult(w, r, res, err)
	}
}

func (s *Server) handleRecordLesson(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Engine.RecordLessonComplete(r.Context(), learnerID(r))
	s.writeResult(w, r, res, err)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Engine.CompleteLesson(r.Context(), learnerID(r), chi.URLParam(r, "lessonId"))
	s.writeResult(w, r, res, err)
}

func (s *Server) handleRecordQuiz(w http.ResponseWriter, r *http.Request) {
	var req QuizRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Engine.RecordQuizComplete(r.Context(), learnerID(r), *req.Score, *req.MaxScore)
	s.writeResult(w, r, res, err)
}

func (s *Server) handleCompleteCourse(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Engine.CompleteCourse(r.Context(), learnerID(r), chi.URLParam(r, "courseId"))
	s.writeResult(w, r, res, err)
}

func (s *Server) handleCheckBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := s.deps.Engine.CheckForNewBadges(r.Context(), learnerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"newBadges": toBadgeViews(badges, langFrom(r)),
	}, nil)
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res command.Result, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toResultView(res, langFrom(r)), nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleAddXP(w http.ResponseWriter, r *http.Request) {
	var req AddXPRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	award, err := s.deps.Engine.AddXP(r.Context(), learnerID(r), *req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, award, nil)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Engine.Reset(r.Context(), learnerID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const maxBodyBytes = 1 << 16

// decode reads a JSON body into dst and validates its struct tags.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.NewDomainError("http", "Decode", shared.ErrInvalidInput, "request body is required")
		}
		return shared.WrapError("http", "Decode", shared.ErrInvalidInput, "malformed JSON body", err)
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return shared.NewDomainError("http", "Validate", shared.ErrValidation, strings.Join(msgs, "; "))
		}
		return shared.WrapError("http", "Validate", shared.ErrValidation, "invalid request", err)
	}
	return nil
}

// intParam reads an optional non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, shared.NewDomainError("http", "Query", shared.ErrInvalidInput, name+" must be a non-negative integer")
	}
	return n, nil
}

func learnerID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func langFrom(r *http.Request) shared.Lang {
	return shared.ParseLang(r.URL.Query().Get("lang"))
}
