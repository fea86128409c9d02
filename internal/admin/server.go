package admin

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"fcc-kernel/internal/cycle"
)

// Server exposes a read-only status surface for one running kernel.
type Server struct {
	Engine *cycle.Engine
	tpl    *template.Template
	srv    *http.Server
}

//go:embed templates/index.html
var content embed.FS

// NewServer wraps a kernel engine with the admin HTTP surface.
func NewServer(engine *cycle.Engine) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Engine: engine, tpl: tpl}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/consensus", s.handleConsensus)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.routes()}
	go func() {
		<-ctx.Done()
		s.srv.Close()
	}()
	return s.srv.ListenAndServe()
}

type partitionView struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	DurationUS uint64 `json:"duration_us"`
	LastExecUS uint64 `json:"last_exec_us"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.Engine.Monitor().Snapshot()
	data := struct {
		RunID      string
		Tick       uint64
		State      string
		Safe       bool
		Violations uint32
		Partitions []partitionView
	}{
		RunID:      s.Engine.RunID(),
		Tick:       s.Engine.Tick(),
		State:      snap.State,
		Safe:       snap.Safe,
		Violations: snap.TotalViolations,
		Partitions: s.partitionViews(),
	}
	s.tpl.Execute(w, data)
}

func (s *Server) partitionViews() []partitionView {
	parts := s.Engine.Table().Partitions()
	views := make([]partitionView, 0, len(parts))
	for _, p := range parts {
		views = append(views, partitionView{
			ID: p.ID, Name: p.Name, DurationUS: p.DurationUS, LastExecUS: p.LastExecUS,
		})
	}
	return views
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":     s.Engine.RunID(),
		"tick":       s.Engine.Tick(),
		"safety":     s.Engine.Monitor().Snapshot(),
		"partitions": s.partitionViews(),
	})
}

func (s *Server) handleConsensus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	out, ok := s.Engine.Voter().Consensus(s.subsystem())
	json.NewEncoder(w).Encode(map[string]any{
		"subsystem": s.subsystem(),
		"valid":     ok,
		"output":    out,
	})
}

func (s *Server) subsystem() uint32 {
	return s.Engine.Subsystem()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !s.Engine.Monitor().IsSafeState() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Write([]byte(s.Engine.Monitor().State().String()))
}
