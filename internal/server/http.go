package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/hcdevice"
	"github.com/muurk/hcat/internal/logging"
	"github.com/muurk/hcat/internal/version"
)

// DeviceResponse is the JSON view of the session.
type DeviceResponse struct {
	State    string `json:"state"`
	Port     string `json:"port,omitempty"`
	Dialect  string `json:"dialect"`
	Model    string `json:"model"`
	BaudRate int    `json:"baud_rate,omitempty"`
	Parity   string `json:"parity"`
	StopBits string `json:"stop_bits"`
	Role     string `json:"role"`
	Version  string `json:"version,omitempty"`
	Name     string `json:"name,omitempty"`
	Summary  string `json:"summary"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
	Code  int    `json:"code"`
	Hint  string `json:"hint,omitempty"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type roleRequest struct {
	Role *int `json:"role"`
}

// uartRequest fields left out keep the module's current value.
type uartRequest struct {
	BaudRate int    `json:"baud_rate"`
	Parity   string `json:"parity"`
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, ErrorResponse{Error: message, Code: status})
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case hcdevice.IsValidationError(err):
		return http.StatusBadRequest
	case hcdevice.IsPreconditionError(err):
		return http.StatusConflict
	case hcdevice.IsNoResponse(err), hcdevice.IsMalformedResponse(err):
		return http.StatusBadGateway
	case hcdevice.IsLinkDesync(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func deviceErrorResponse(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error: hcdevice.GetShortErrorMessage(err),
		Code:  status,
		Hint:  hcdevice.GetTroubleshootingHint(err),
	}
	var de *hcdevice.DeviceError
	if errors.As(err, &de) {
		resp.Type = de.Type.String()
	}
	jsonResponse(w, status, resp)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func newDeviceResponse(state hcdevice.State, cfg hcdevice.DeviceConfig, port string) DeviceResponse {
	return DeviceResponse{
		State:    state.String(),
		Port:     port,
		Dialect:  cfg.Dialect.String(),
		Model:    cfg.Model.String(),
		BaudRate: cfg.UART.BaudRate(),
		Parity:   cfg.UART.Parity.String(),
		StopBits: cfg.UART.StopBits.String(),
		Role:     cfg.Role.String(),
		Version:  cfg.Version,
		Name:     cfg.Name,
		Summary:  cfg.Summary(),
	}
}

// device snapshots the session; callers hold mu.
func (s *Server) device() DeviceResponse {
	return newDeviceResponse(s.session.State(), s.session.Config(), s.config.Port)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "hcat-server",
		"version": version.Version,
		"clients": s.hub.Len(),
		"tls":     GetTLSInfo(s.tlsConfig),
	})
}

func (s *Server) handleDevice(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jsonResponse(w, http.StatusOK, s.device())
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session.Detect(r.Context()); err != nil {
		deviceErrorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s.device())
}

func (s *Server) handleEcho(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.TestEcho(); err != nil {
		deviceErrorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.session.Version()
	if err != nil {
		deviceErrorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"version": v})
}

func (s *Server) handleGetRole(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, err := s.session.Role()
	if err != nil {
		deviceErrorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"role": int(role), "name": role.String()})
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decode(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == nil {
		errorResponse(w, http.StatusBadRequest, "role is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.SetRole(atcmd.Role(*req.Role)); err != nil {
		deviceErrorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s.device())
}

func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session.SetName(req.Name); err != nil {
		deviceErrorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s.device())
}

func (s *Server) handleSetPin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decode(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.SetPin(req.Pin); err != nil {
		deviceErrorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetUART(w http.ResponseWriter, r *http.Request) {
	var req uartRequest
	if err := decode(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.session.Config().UART
	rate, parity := req.BaudRate, cur.Parity
	if rate == 0 {
		rate = cur.BaudRate()
	}
	if req.Parity != "" {
		p, err := atcmd.ParseParity(req.Parity)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		parity = p
	}

	// Legacy parity needs a power cycle nobody can perform over HTTP; the
	// session skips the check echo and the client re-detects afterwards.
	if err := s.session.ConfigureUART(rate, parity); err != nil {
		deviceErrorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s.device())
}

func (s *Server) handlePorts(w http.ResponseWriter, _ *http.Request) {
	ports, err := listPorts()
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, ports)
}

// requestLogger records each request through the package logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws") {
			next.ServeHTTP(w, r) // hijacked; the hub logs the connection
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
