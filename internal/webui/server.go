// Package webui exposes a minimal HTTP server with an HTML form that lets
// you paste a pipeline definition plus input records, run it, and step
// through execution one pipe point at a time.
//
// Routes:
//
//	GET  /                       → form
//	POST /run                    → runs the pipeline; renders output inline
//	POST /api/run                → JSON run API
//	POST /api/session            → (re)load the stepping session
//	POST /api/session/step       → advance one pipe point
//	POST /api/session/run        → run to breakpoint or completion
//	POST /api/session/reset      → rewind, keeping watches/breakpoints
//	POST /api/session/watch      → add a watch position
//	POST /api/session/breakpoint → add a breakpoint position
//
// The stepping endpoints drive one session at a time, guarded by a mutex;
// the session debugs the first pipeline of the posted definition.
package webui

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"sync"

	"recpipe/internal/debug"
	"recpipe/internal/dsl"
	"recpipe/internal/exec"
	"recpipe/internal/metrics"
	"recpipe/internal/stage"
	"recpipe/pkg/records"
)

// Config controls server startup.
type Config struct {
	Addr string
}

// Server wraps http.Server for convenience.
type Server struct {
	cfg  Config
	mux  *http.ServeMux
	tmpl *template.Template

	mu      sync.Mutex
	session *debug.Session
}

// NewServer constructs a Server with routes and embedded template.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
		// Parse the embedded template at init time.
		tmpl: template.Must(template.New("index").Parse(indexHTML)),
	}
	s.routes()
	return s
}

// Handler returns the route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.cfg.Addr, s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/run", s.handleRun)
	s.mux.HandleFunc("/api/run", s.handleAPIRun)
	s.mux.HandleFunc("/api/session", s.handleSessionLoad)
	s.mux.HandleFunc("/api/session/step", s.sessionOp((*debug.Session).Step))
	s.mux.HandleFunc("/api/session/run", s.sessionOp((*debug.Session).Run))
	s.mux.HandleFunc("/api/session/reset", s.sessionOp((*debug.Session).Reset))
	s.mux.HandleFunc("/api/session/watch", s.handleSessionMark((*debug.Session).AddWatch))
	s.mux.HandleFunc("/api/session/breakpoint", s.handleSessionMark((*debug.Session).AddBreakpoint))
}

// handleIndex renders the input form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	metrics.IncCounter("pipe_web_requests_total", 1, metrics.Labels{"endpoint": "/"})
	_ = s.tmpl.Execute(w, pageData{})
}

// pageData feeds the embedded template.
type pageData struct {
	Pipe     string
	Input    string
	Executor string
	Error    string
	Result   string
	Summary  string
}

// runRequest is the JSON body (and form shape) of a run.
type runRequest struct {
	Pipe     string `json:"pipe"`
	Input    string `json:"input"`
	Executor string `json:"executor"` // "batch" (default) or "rat"
}

// runResult is what a successful run returns.
type runResult struct {
	Output   []string `json:"output"`
	In       int      `json:"in"`
	Out      int      `json:"out"`
	Checksum string   `json:"checksum"`
}

// execute parses and runs a posted pipeline over posted input text.
func execute(req runRequest) (runResult, error) {
	spec, err := dsl.Parse(req.Pipe)
	if err != nil {
		return runResult{}, err
	}
	in, err := records.FromLines(req.Input)
	if err != nil {
		return runResult{}, err
	}

	mode := exec.ModeBatch
	if req.Executor == "rat" {
		mode = exec.ModeRAT
	}

	// The web form has no filesystem: READ and WRITE fall back to the
	// posted input and the rendered output.
	source := func(cmd dsl.Command) ([]records.Record, error) { return in, nil }
	sink := func(cmd dsl.Command, recs []records.Record) error { return nil }

	out, err := exec.RunSpec(spec, mode, source, sink)
	if err != nil {
		return runResult{}, err
	}

	res := runResult{
		Output:   make([]string, 0, len(out)),
		In:       len(in),
		Out:      len(out),
		Checksum: fmt.Sprintf("%016x", exec.Checksum(out)),
	}
	for _, rec := range out {
		res.Output = append(res.Output, rec.Trimmed())
	}
	return res, nil
}

// handleRun processes the form and renders a results page.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	metrics.IncCounter("pipe_web_requests_total", 1, metrics.Labels{"endpoint": "/run"})

	req := runRequest{
		Pipe:     r.FormValue("pipe"),
		Input:    r.FormValue("input"),
		Executor: r.FormValue("executor"),
	}
	res, err := execute(req)

	data := pageData{
		Pipe:     req.Pipe,
		Input:    req.Input,
		Executor: req.Executor,
	}
	if err != nil {
		data.Error = err.Error()
	} else {
		data.Result = strings.Join(res.Output, "\n")
		data.Summary = fmt.Sprintf("Processed %d -> %d records (checksum %s)", res.In, res.Out, res.Checksum)
	}
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Println("template error:", err)
	}
}

// handleAPIRun is the machine-friendly run endpoint.
func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	metrics.IncCounter("pipe_web_requests_total", 1, metrics.Labels{"endpoint": "/api/run"})

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	res, err := execute(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, res)
}

// sessionState is the JSON rendering of a stepping snapshot.
type sessionState struct {
	Phase       string       `json:"phase"`
	Label       string       `json:"label"`
	RecordIndex int          `json:"record_index"`
	FlushIndex  int          `json:"flush_index"`
	PipePoint   int          `json:"pipe_point"`
	Paused      bool         `json:"paused"`
	Records     []string     `json:"records"`
	Watches     []watchState `json:"watches,omitempty"`
	Stages      int          `json:"stages"`
}

type watchState struct {
	Position int      `json:"position"`
	Reached  bool     `json:"reached"`
	Records  []string `json:"records,omitempty"`
}

func renderState(sess *debug.Session, st debug.State) sessionState {
	out := sessionState{
		Phase:       st.Phase.String(),
		Label:       st.Label,
		RecordIndex: st.RecordIndex,
		FlushIndex:  st.FlushIndex,
		PipePoint:   st.PipePoint,
		Paused:      st.Paused,
		Records:     trimmed(st.Records),
		Stages:      sess.StageCount(),
	}
	for _, wv := range st.Watches {
		out.Watches = append(out.Watches, watchState{
			Position: wv.Position,
			Reached:  wv.Reached,
			Records:  trimmed(wv.Records),
		})
	}
	return out
}

func trimmed(recs []records.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Trimmed())
	}
	return out
}

// handleSessionLoad builds (or rebuilds) the stepping session from a posted
// pipeline and input. Reloading prunes watches and breakpoints that no
// longer fit the new stage count.
func (s *Server) handleSessionLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	metrics.IncCounter("pipe_web_requests_total", 1, metrics.Labels{"endpoint": "/api/session"})

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	spec, err := dsl.Parse(req.Pipe)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(spec.Pipelines) == 0 {
		http.Error(w, "empty pipeline definition", http.StatusBadRequest)
		return
	}
	in, err := records.FromLines(req.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stages, err := stage.BuildChain(spec.Pipelines[0].Stages)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var st debug.State
	if s.session == nil {
		s.session = debug.NewSession(in, stages)
		st = s.session.Initialize()
	} else {
		st = s.session.Reinitialize(in, stages)
	}
	writeJSON(w, renderState(s.session, st))
}

// sessionOp serves the step/run/reset family, which differ only in the
// Session method they invoke.
func (s *Server) sessionOp(op func(*debug.Session) debug.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session == nil {
			http.Error(w, "no session loaded", http.StatusConflict)
			return
		}
		writeJSON(w, renderState(s.session, op(s.session)))
	}
}

// handleSessionMark serves the watch/breakpoint family.
func (s *Server) handleSessionMark(mark func(*debug.Session, int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Position int `json:"position"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session == nil {
			http.Error(w, "no session loaded", http.StatusConflict)
			return
		}
		if err := mark(s.session, req.Position); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, renderState(s.session, s.session.State()))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("encode response:", err)
	}
}

// indexHTML is an embedded, minimal page with vanilla styling.
//
//go:embed index.tmpl.html
var indexHTML string
