package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nextstage/discovery/internal/agent"
	"github.com/nextstage/discovery/internal/events"
	"github.com/nextstage/discovery/internal/extractor"
)

type chatRequest struct {
	SessionID   string `json:"sessionId"`
	UserMessage string `json:"userMessage"`
	// CurrentQuestion is accepted for wire compatibility with older clients;
	// the server tracks its own question index and ignores it.
	CurrentQuestion string `json:"currentQuestion,omitempty"`
}

type questionPayload struct {
	Question    string   `json:"question"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	Reasoning   string   `json:"reasoning,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

type chatResponse struct {
	Complete      bool                       `json:"complete"`
	Reply         string                     `json:"reply"`
	NextQuestion  *questionPayload           `json:"nextQuestion,omitempty"`
	ExtractedInfo map[extractor.Field]string `json:"extractedInfo"`
	Responses     []extractor.UserResponse   `json:"responses,omitempty"`
	Progress      agent.Progress             `json:"progress"`
}

// chat handles one discovery turn: answer in, next question or completion out.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		writeError(w, http.StatusBadRequest, "userMessage is required")
		return
	}

	conv, created := s.sessions.GetOrCreate(req.SessionID)
	if created {
		s.publishAsync(events.SubjectSessionStarted, map[string]string{"session_ref": req.SessionID})
	}

	result, err := conv.SubmitAnswer(r.Context(), req.UserMessage)
	if errors.Is(err, agent.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "userMessage is required")
		return
	}
	if err != nil {
		s.logger.Error("discovery turn failed", "session_ref", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.recordTurnAsync(req.SessionID, result)
	if result.JustCompleted {
		s.recordCompletionAsync(req.SessionID, result)
	}

	resp := chatResponse{
		Complete:      result.Complete,
		Reply:         result.Reply,
		ExtractedInfo: result.Fields,
		Responses:     result.Responses,
		Progress:      result.Progress,
	}
	if q := result.NextQuestion; q != nil {
		resp.NextQuestion = &questionPayload{
			Question:    q.Question,
			Type:        q.Type,
			Options:     q.Options,
			Reasoning:   q.Reasoning,
			Placeholder: q.Placeholder,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type sessionStatusResponse struct {
	Exists        bool                       `json:"exists"`
	Complete      bool                       `json:"complete,omitempty"`
	ExtractedInfo map[extractor.Field]string `json:"extractedInfo,omitempty"`
	Progress      *agent.Progress            `json:"progress,omitempty"`
}

// sessionStatus reports whether a session exists and how far it has come.
// An unknown id is a normal "does not exist yet" response, not an error.
func (s *Server) sessionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	conv, ok := s.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusOK, sessionStatusResponse{Exists: false})
		return
	}
	snap := conv.Snapshot()
	writeJSON(w, http.StatusOK, sessionStatusResponse{
		Exists:        true,
		Complete:      snap.Complete,
		ExtractedInfo: snap.Fields,
		Progress:      &snap.Progress,
	})
}

// resetSession starts the conversation over. Resetting an unknown session is
// a no-op; the acknowledgement is the same either way.
func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if conv, ok := s.sessions.Get(id); ok {
		conv.Reset()
		s.logger.Info("session reset", "session_ref", id)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// sessionBrief returns the strategic brief for a completed session,
// generating and caching it on first request.
func (s *Server) sessionBrief(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	conv, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	snap := conv.Snapshot()
	if !snap.Complete {
		writeError(w, http.StatusConflict, "discovery is not complete yet")
		return
	}

	text, cached := conv.Brief()
	if !cached {
		text = s.briefs.Generate(r.Context(), snap.Fields, conv.History())
		conv.CacheBrief(text)
		s.saveBriefAsync(id, text)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": id,
		"brief":     text,
	})
}

// The persistence and event calls below are fire-and-forget: the turn's
// outcome never depends on them, failures are logged and dropped.

func (s *Server) recordTurnAsync(sessionRef string, result *agent.TurnResult) {
	if s.db == nil || result.Turn == nil {
		return
	}
	turn := *result.Turn
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.db.RecordTurn(ctx, sessionRef, turn); err != nil {
			s.logger.Warn("failed to record turn", "session_ref", sessionRef, "error", err)
		}
	}()
}

func (s *Server) recordCompletionAsync(sessionRef string, result *agent.TurnResult) {
	fields := result.Fields
	turnCount := len(result.Responses)
	if s.db != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if _, err := s.db.RecordCompletion(ctx, sessionRef, fields); err != nil {
				s.logger.Warn("failed to record completion", "session_ref", sessionRef, "error", err)
			}
		}()
	}

	payload := events.SessionCompleted{
		SessionRef:  sessionRef,
		Fields:      make(map[string]string, len(fields)),
		TurnCount:   turnCount,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for f, v := range fields {
		payload.Fields[string(f)] = v
	}
	s.publishAsync(events.SubjectSessionCompleted, payload)
}

func (s *Server) saveBriefAsync(sessionRef, text string) {
	if s.db != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := s.db.SaveBrief(ctx, sessionRef, text); err != nil {
				s.logger.Warn("failed to save brief", "session_ref", sessionRef, "error", err)
			}
		}()
	}
	s.publishAsync(events.SubjectBriefGenerated, map[string]string{"session_ref": sessionRef})
}

func (s *Server) publishAsync(subject string, data any) {
	if s.events == nil {
		return
	}
	go func() {
		if err := s.events.Publish(subject, data); err != nil {
			s.logger.Warn("failed to publish event", "subject", subject, "error", err)
		}
	}()
}
