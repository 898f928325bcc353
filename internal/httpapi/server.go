// Package httpapi exposes the analysis driver operations over JSON/HTTP.
// It is a thin presentation layer: sequencing, validation, and state all
// live in the colanalysis manager.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/col-analyzer/internal/colanalysis"
	"github.com/joelkehle/col-analyzer/internal/refdata"
)

// PDFRenderer turns a markdown report into a PDF document. Optional: when
// nil the report endpoint serves markdown only.
type PDFRenderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

type Server struct {
	manager  *colanalysis.Manager
	renderer PDFRenderer
	tracer   trace.Tracer
}

func NewServer(manager *colanalysis.Manager, renderer PDFRenderer) http.Handler {
	s := &Server{
		manager:  manager,
		renderer: renderer,
		tracer:   otel.Tracer("col-analyzer/httpapi"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sessions", s.handleStartSession)
	mux.HandleFunc("/v1/sessions/", s.handleSession)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return s.traced(mux)
}

func (s *Server) traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, err error) {
	var ae *colanalysis.Error
	if errors.As(err, &ae) {
		writeJSON(w, ae.Status, map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":    ae.Code,
				"message": ae.Message,
			},
		})
		return
	}
	writeJSON(w, 500, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    "internal",
			"message": err.Error(),
		},
	})
}

func writeInvalidJSON(w http.ResponseWriter, err error) {
	writeJSON(w, 400, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    colanalysis.CodeInvalidInput,
			"message": "invalid json: " + err.Error(),
		},
	})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeJSONBytes(blob []byte, dst any) error {
	return json.Unmarshal(blob, dst)
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeInvalidJSON(w, err)
		return
	}
	var req struct {
		CaseCitation string `json:"case_citation"`
		FullText     string `json:"full_text"`
		Username     string `json:"username"`
		UserEmail    string `json:"user_email"`
		Model        string `json:"model"`
	}
	if err := decodeJSONBytes(blob, &req); err != nil {
		writeInvalidJSON(w, err)
		return
	}
	sess, err := s.manager.Start(r.Context(), colanalysis.StartInput{
		CaseCitation: req.CaseCitation,
		FullText:     req.FullText,
		Username:     req.Username,
		UserEmail:    req.UserEmail,
		Model:        req.Model,
	})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "session": sess})
}

// handleSession routes /v1/sessions/{id} and /v1/sessions/{id}/{action}.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions/"), "/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		s.handleGetSession(w, r, id)
	case "jurisdiction":
		s.handleCommitJurisdiction(w, r, id)
	case "run":
		s.handleRunStage(w, r, id)
	case "score":
		s.handleScore(w, r, id)
	case "feedback":
		s.handleFeedback(w, r, id)
	case "commit":
		s.handleCommitStage(w, r, id)
	case "persist":
		s.handlePersist(w, r, id)
	case "report":
		s.handleReport(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	sess, err := s.manager.GetState(id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "session": sess})
}

func (s *Server) handleCommitJurisdiction(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeInvalidJSON(w, err)
		return
	}
	var req struct {
		Name        string `json:"name"`
		LegalSystem string `json:"legal_system"`
		Score       int    `json:"score"`
	}
	if err := decodeJSONBytes(blob, &req); err != nil {
		writeInvalidJSON(w, err)
		return
	}
	order, err := s.manager.CommitJurisdiction(id, colanalysis.JurisdictionDecision{
		Name:        req.Name,
		LegalSystem: refdata.LegalSystem(req.LegalSystem),
		Score:       req.Score,
	})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "stage_order": order})
}

func (s *Server) handleRunStage(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	sess, err := s.manager.RunStage(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "session": sess})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeInvalidJSON(w, err)
		return
	}
	var req struct {
		Score int `json:"score"`
	}
	if err := decodeJSONBytes(blob, &req); err != nil {
		writeInvalidJSON(w, err)
		return
	}
	if err := s.manager.SubmitFirstScore(id, req.Score); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeInvalidJSON(w, err)
		return
	}
	var req struct {
		Feedback string `json:"feedback"`
	}
	if err := decodeJSONBytes(blob, &req); err != nil {
		writeInvalidJSON(w, err)
		return
	}
	sess, err := s.manager.SubmitFeedback(r.Context(), id, req.Feedback)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "session": sess})
}

func (s *Server) handleCommitStage(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeInvalidJSON(w, err)
		return
	}
	var req struct {
		EditedText string `json:"edited_text"`
	}
	if err := decodeJSONBytes(blob, &req); err != nil {
		writeInvalidJSON(w, err)
		return
	}
	sess, err := s.manager.CommitStage(r.Context(), id, req.EditedText)
	if err != nil {
		// The analysis may be complete with only the final write
		// outstanding. Return the snapshot next to the error so the
		// caller can retry the persist without losing the session.
		var ae *colanalysis.Error
		if errors.As(err, &ae) && ae.Code == colanalysis.CodePersistence && sess != nil {
			writeJSON(w, ae.Status, map[string]any{
				"ok":      false,
				"session": sess,
				"error":   map[string]any{"code": ae.Code, "message": ae.Message},
			})
			return
		}
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "session": sess})
}

func (s *Server) handlePersist(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if err := s.manager.Persist(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	sess, err := s.manager.GetState(id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	report := colanalysis.BuildReport(sess)

	if r.URL.Query().Get("format") == "pdf" {
		if s.renderer == nil {
			writeJSON(w, 501, map[string]any{
				"ok": false,
				"error": map[string]any{
					"code":    "pdf_unavailable",
					"message": "pdf rendering not configured",
				},
			})
			return
		}
		pdf, err := s.renderer.Render(r.Context(), report)
		if err != nil {
			writeJSON(w, 500, map[string]any{
				"ok": false,
				"error": map[string]any{
					"code":    "pdf_render",
					"message": err.Error(),
				},
			})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "service": "col-analyzer"})
}
