package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"tvremote/internal/domain"
	"tvremote/internal/infra/ws"
)

type Config struct {
	Addr string
	// DeviceID is reported for /remote connections that do not name one.
	DeviceID string
	Devices  []domain.Device
	// OfflineRate is the chance a device is left out of a discovery scan.
	OfflineRate float64
	RateLimit   int
	RateWindow  time.Duration
}

// DefaultDevices is the discovery result when no devices are configured.
var DefaultDevices = []domain.Device{
	{ID: "android-tv-living-room", Name: "Living Room Android TV", Brand: "Samsung", Model: "QN55Q80T", IPAddress: "192.168.1.100", Port: 6466},
	{ID: "android-tv-bedroom", Name: "Bedroom Android TV", Brand: "Sony", Model: "XBR55X900H", IPAddress: "192.168.1.101", Port: 6466},
	{ID: "android-tv-kitchen", Name: "Kitchen Smart TV", Brand: "LG", Model: "OLED55CX", IPAddress: "192.168.1.102", Port: 6466},
}

// Server simulates a TV and its command execution backend: an HTTP API
// for one-shot commands and discovery, and a websocket control channel.
type Server struct {
	cfg      Config
	executor *Executor
	history  History
	tv       *TV
	logger   *slog.Logger
	router   *mux.Router
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	server  *http.Server
	addr    string
	running bool
	conns   map[*ws.Conn]*controlConn
}

func NewServer(cfg Config, executor *Executor, history History, logger *slog.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 120
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.DeviceID == "" && len(cfg.Devices) > 0 {
		cfg.DeviceID = cfg.Devices[0].ID
	}

	s := &Server{
		cfg:      cfg,
		executor: executor,
		history:  history,
		tv:       NewTV(),
		logger:   logger,
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		now:   time.Now,
		conns: make(map[*ws.Conn]*controlConn),
	}

	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(limiter.Middleware)
	api.HandleFunc("/command", s.handleExecute).Methods(http.MethodPost)
	api.HandleFunc("/command", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/discover", s.handleDiscover).Methods(http.MethodGet)
	api.HandleFunc("/discover", s.handlePing).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}", s.handleDevice).Methods(http.MethodGet)
	api.HandleFunc("/connect", s.handleConnections).Methods(http.MethodGet)
	api.HandleFunc("/connect", s.handleCloseConnection).Methods(http.MethodDelete)

	// No rate limiting on health check or the control channel
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/remote", s.handleRemote).Methods(http.MethodGet)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// TV exposes the simulated device state.
func (s *Server) TV() *TV {
	return s.tv
}

// Addr is the address the server listens on once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	s.addr = ln.Addr().String()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("simulator starting", "addr", s.addr)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	server := s.server
	s.mu.Unlock()

	// hijacked websocket connections are not covered by Shutdown
	s.DropConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

// DropConnections closes every open control channel and reports how many
// were closed.
func (s *Server) DropConnections() int {
	s.mu.Lock()
	conns := make([]*ws.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return len(conns)
}

func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// execute runs cmd and records it in the history.
func (s *Server) execute(ctx context.Context, deviceID string, cmd domain.Command) (Result, domain.CommandRecord, error) {
	start := s.now()
	s.logger.Info("executing command", "command", cmd.String(), "device", deviceID)

	res, err := s.executor.Execute(ctx, deviceID, cmd)
	if err != nil {
		return Result{}, domain.CommandRecord{}, err
	}

	rec := domain.CommandRecord{
		Command:      cmd,
		DeviceID:     deviceID,
		Executed:     res.Success,
		ExecutedAt:   s.now(),
		ResponseTime: s.now().Sub(start).Milliseconds(),
		Error:        res.Error,
	}
	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("recording command history", "error", err)
	}
	return res, rec, nil
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type executeRequest struct {
	Command  *domain.Command `json:"command"`
	DeviceID string          `json:"deviceId"`
}

type executeResponse struct {
	Success      bool           `json:"success"`
	Command      domain.Command `json:"command"`
	DeviceID     string         `json:"deviceId"`
	ExecutedAt   time.Time      `json:"executedAt"`
	ResponseTime int64          `json:"responseTime"`
	Result       map[string]any `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	defer r.Body.Close()

	if req.Command == nil || req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Command and device ID are required"})
		return
	}

	res, rec, err := s.execute(r.Context(), req.DeviceID, *req.Command)
	if err != nil {
		var invalid *ValidationError
		if errors.As(err, &invalid) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalid.Message})
			return
		}
		s.logger.Error("command execution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Command execution failed", Details: err.Error()})
		return
	}

	if res.Success {
		state := s.tv.Apply(rec.Command)
		s.broadcast(r.Context(), domain.StateMessage{Type: domain.MessageDeviceState, State: state})
	}

	writeJSON(w, http.StatusOK, executeResponse{
		Success:      res.Success,
		Command:      rec.Command,
		DeviceID:     rec.DeviceID,
		ExecutedAt:   rec.ExecutedAt,
		ResponseTime: rec.ResponseTime,
		Result:       res.Result,
		Error:        res.Error,
	})
}

type historyResponse struct {
	Success    bool                   `json:"success"`
	Commands   []domain.CommandRecord `json:"commands"`
	TotalCount int                    `json:"totalCount"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	commands, total, err := s.history.Recent(r.Context(), r.URL.Query().Get("deviceId"), limit)
	if err != nil {
		s.logger.Error("reading command history", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to get command history"})
		return
	}
	if commands == nil {
		commands = []domain.CommandRecord{}
	}

	writeJSON(w, http.StatusOK, historyResponse{Success: true, Commands: commands, TotalCount: total})
}

type discoverResponse struct {
	Success      bool            `json:"success"`
	Devices      []domain.Device `json:"devices"`
	DiscoveredAt time.Time       `json:"discoveredAt"`
	NetworkRange string          `json:"networkRange"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	network := r.URL.Query().Get("network")
	if network == "" {
		network = "192.168.1.0/24"
	}
	s.logger.Debug("scanning network", "range", network)

	now := s.now()
	devices := make([]domain.Device, 0, len(s.cfg.Devices))
	for _, d := range s.cfg.Devices {
		if s.executor.random() < s.cfg.OfflineRate {
			continue
		}
		d.LastSeen = now
		devices = append(devices, d)
	}

	writeJSON(w, http.StatusOK, discoverResponse{
		Success:      true,
		Devices:      devices,
		DiscoveredAt: now,
		NetworkRange: network,
	})
}

func (s *Server) findDevice(id string) (domain.Device, bool) {
	for _, d := range s.cfg.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Device{}, false
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := s.findDevice(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Device not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "device": device})
}

type pingRequest struct {
	Action   string `json:"action"`
	DeviceID string `json:"deviceId"`
}

type pingResponse struct {
	Success      bool          `json:"success"`
	Device       domain.Device `json:"device"`
	Reachable    bool          `json:"reachable"`
	ResponseTime int           `json:"responseTime"`
	Timestamp    time.Time     `json:"timestamp"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	defer r.Body.Close()

	if req.Action != "ping" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid action"})
		return
	}

	device, ok := s.findDevice(req.DeviceID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Device not found"})
		return
	}

	writeJSON(w, http.StatusOK, pingResponse{
		Success:      true,
		Device:       device,
		Reachable:    s.executor.random() > 0.2,
		ResponseTime: int(s.executor.random()*50) + 10,
		Timestamp:    s.now(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	conns := len(s.conns)
	s.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{
		"status":      status,
		"running":     running,
		"connections": conns,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
