package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/detective"
	"github.com/kingrea/casefile/internal/evidence"
	"github.com/kingrea/casefile/internal/planner"
	"github.com/kingrea/casefile/internal/session"
)

var validate = validator.New()

type startRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type actionRequest struct {
	SessionID  string `json:"session_id" validate:"required,max=128"`
	EvidenceID *int   `json:"evidence_id" validate:"required"`
}

type guessRequest struct {
	Suspect  string `json:"suspect" validate:"required"`
	Weapon   string `json:"weapon" validate:"required"`
	Location string `json:"location" validate:"required"`
}

type accuseRequest struct {
	SessionID string        `json:"session_id" validate:"required,max=128"`
	Guess     *guessRequest `json:"guess" validate:"required"`
}

type detectiveRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type rootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Lifecycle     string `json:"lifecycle"`
	Port          int    `json:"port"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type snapshotResponse struct {
	Success bool `json:"success"`
	session.Snapshot
}

type actionResponse struct {
	Success          bool                  `json:"success"`
	Evidence         evidence.Action       `json:"evidence"`
	Reasoning        session.Reasoning     `json:"csp_result"`
	GameState        session.GameState     `json:"game_state"`
	AvailableActions []availableActionJSON `json:"available_actions"`
}

type availableActionJSON struct {
	ID     int    `json:"id"`
	Action string `json:"action"`
	Cost   int    `json:"cost"`
}

type verdictResponse struct {
	Success bool `json:"success"`
	session.Verdict
}

type moveResponse struct {
	Success bool `json:"success"`
	detective.Move
}

type autoSolveResponse struct {
	Success bool `json:"success"`
	detective.AutoResult
}

type suggestionJSON struct {
	Action      string `json:"action"`
	Explanation string `json:"explanation"`
	Cost        int    `json:"cost"`
}

type suggestResponse struct {
	Success        bool                 `json:"success"`
	Suggestion     suggestionJSON       `json:"suggestion"`
	AllEvaluations []planner.Evaluation `json:"all_evaluations"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeFailure(w, http.StatusNotFound, "Endpoint not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, rootResponse{Message: "casefile detective API", Status: "running", Version: s.version})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		Lifecycle:     string(s.Status()),
		Port:          s.settings.Port,
		UptimeSeconds: s.uptimeSeconds(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decode(w, r, &req, "Invalid session_id") {
		return
	}
	snap, err := s.game.Start(req.SessionID)
	if err != nil {
		s.fail(w, err, "")
		return
	}
	s.detective.Forget(snap.SessionID)
	writeJSON(w, http.StatusOK, snapshotResponse{Success: true, Snapshot: snap})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !s.decode(w, r, &req, "Missing session_id or evidence_id") {
		return
	}
	outcome, err := s.game.ApplyAction(req.SessionID, *req.EvidenceID)
	if err != nil {
		s.fail(w, err, "Action not found or session invalid")
		return
	}
	available := make([]availableActionJSON, 0, len(outcome.Snapshot.AvailableActions))
	for _, action := range outcome.Snapshot.AvailableActions {
		available = append(available, availableActionJSON{ID: action.ID, Action: action.Description, Cost: action.Cost})
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Success:          true,
		Evidence:         outcome.Evidence,
		Reasoning:        outcome.Reasoning,
		GameState:        outcome.Snapshot.GameState,
		AvailableActions: available,
	})
}

func (s *Server) handleAccuse(w http.ResponseWriter, r *http.Request) {
	var req accuseRequest
	if !s.decode(w, r, &req, "Missing session_id or guess") {
		return
	}
	verdict, err := s.game.Accuse(req.SessionID, deduction.Solution{
		Suspect:  req.Guess.Suspect,
		Weapon:   req.Guess.Weapon,
		Location: req.Guess.Location,
	})
	if err != nil {
		s.fail(w, err, "Game session not found")
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse{Success: true, Verdict: verdict})
}

func (s *Server) handleMakeMove(w http.ResponseWriter, r *http.Request) {
	var req detectiveRequest
	if !s.decode(w, r, &req, "Missing session_id") {
		return
	}
	move, err := s.detective.MakeMove(req.SessionID)
	if err != nil {
		s.fail(w, err, "No active game found")
		return
	}
	if move.Trace == nil {
		move.Trace = []detective.TraceEntry{}
	}
	writeJSON(w, http.StatusOK, moveResponse{Success: true, Move: move})
}

func (s *Server) handleAutoSolve(w http.ResponseWriter, r *http.Request) {
	var req detectiveRequest
	if !s.decode(w, r, &req, "Missing session_id") {
		return
	}
	result, err := s.detective.AutoSolve(req.SessionID)
	if err != nil {
		s.fail(w, err, "No active game found")
		return
	}
	writeJSON(w, http.StatusOK, autoSolveResponse{Success: true, AutoResult: result})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req detectiveRequest
	if !s.decode(w, r, &req, "Missing session_id") {
		return
	}
	suggestion, err := s.detective.Suggest(req.SessionID)
	if err != nil {
		s.fail(w, err, "No active game found")
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{
		Success: true,
		Suggestion: suggestionJSON{
			Action:      suggestion.Action.Description,
			Explanation: suggestion.Explanation,
			Cost:        suggestion.Action.Cost,
		},
		AllEvaluations: suggestion.Evaluations,
	})
}

// decode reads a JSON body into dst and validates it. An empty body decodes
// as {}. It writes the failure response itself and reports whether the
// handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, invalidMessage string) bool {
	var body []byte
	if r.Body != nil {
		reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
		defer reader.Close()
		data, err := io.ReadAll(reader)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeFailure(w, http.StatusRequestEntityTooLarge, "Payload exceeds limit")
				return false
			}
			writeFailure(w, http.StatusBadRequest, "Unable to read body")
			return false
		}
		body = data
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, invalidMessage)
		return false
	}
	return true
}

// fail maps domain errors onto HTTP statuses. missingMessage is the body
// text when the session does not exist.
func (s *Server) fail(w http.ResponseWriter, err error, missingMessage string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		if missingMessage == "" {
			missingMessage = "Game session not found"
		}
		writeFailure(w, http.StatusNotFound, missingMessage)
	case errors.Is(err, session.ErrActionNotFound):
		writeFailure(w, http.StatusNotFound, "Action not found or session invalid")
	case errors.Is(err, detective.ErrNoActions):
		writeFailure(w, http.StatusBadRequest, "No available actions")
	default:
		s.logger.Printf("server: request failed: %v", err)
		writeFailure(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
