// Package server implements the REST control plane for the connection
// manager daemon. It is a thin adapter between HTTP and the
// Dispatcher's synchronous API; no WCM domain logic lives here.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dvagner-nxp/wcmd/internal/wcm"
)

// Sentinel errors for the server package.
var (
	// ErrMissingProfileName indicates a request omitted the required
	// "name" path parameter.
	ErrMissingProfileName = errors.New("profile name must not be empty")

	// ErrInvalidRequestBody indicates the request body failed to decode
	// as JSON into the expected shape.
	ErrInvalidRequestBody = errors.New("invalid request body")
)

// WCMServer implements the REST control plane for a wcm.Dispatcher.
//
// Each handler delegates to the Dispatcher for actual connection-manager
// operations. The server never touches STA/uAP/power-save state
// directly.
type WCMServer struct {
	dispatcher *wcm.Dispatcher
	logger     *slog.Logger
}

// New creates a WCMServer and returns the configured router.
func New(d *wcm.Dispatcher, logger *slog.Logger) *mux.Router {
	srv := &WCMServer{
		dispatcher: d,
		logger:     logger.With(slog.String("component", "server")),
	}

	r := mux.NewRouter()
	r.Use(LoggingMiddleware(srv.logger))
	r.Use(RecoveryMiddleware(srv.logger))

	r.HandleFunc("/v1/sta/status", srv.handleSTAStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/sta/connect", srv.handleConnect).Methods(http.MethodPost)
	r.HandleFunc("/v1/sta/disconnect", srv.handleDisconnect).Methods(http.MethodPost)
	r.HandleFunc("/v1/sta/scan", srv.handleScan).Methods(http.MethodPost)

	r.HandleFunc("/v1/uap/status", srv.handleUAPStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/uap/start", srv.handleUAPStart).Methods(http.MethodPost)
	r.HandleFunc("/v1/uap/stop", srv.handleUAPStop).Methods(http.MethodPost)

	r.HandleFunc("/v1/profiles", srv.handleAddProfile).Methods(http.MethodPost)
	r.HandleFunc("/v1/profiles/{name}", srv.handleRemoveProfile).Methods(http.MethodDelete)

	r.HandleFunc("/v1/powersave/ieee/enable", srv.handleIEEEPSEnable).Methods(http.MethodPost)
	r.HandleFunc("/v1/powersave/ieee/disable", srv.handleIEEEPSDisable).Methods(http.MethodPost)
	r.HandleFunc("/v1/powersave/deepsleep/enable", srv.handleDeepSleepEnable).Methods(http.MethodPost)
	r.HandleFunc("/v1/powersave/deepsleep/disable", srv.handleDeepSleepDisable).Methods(http.MethodPost)
	r.HandleFunc("/v1/powersave/hostsleep", srv.handleHostSleepConfig).Methods(http.MethodPost)

	return r
}

// -------------------------------------------------------------------------
// Request/response shapes
// -------------------------------------------------------------------------

type statusResponse struct {
	State string `json:"state"`
}

type connectRequest struct {
	Profile string `json:"profile"`
}

type scanResponse struct {
	BSSCount int `json:"bss_count"`
}

type addProfileRequest struct {
	Name       string `json:"name"`
	SSID       string `json:"ssid"`
	BSSID      string `json:"bssid,omitempty"`
	Channel    int    `json:"channel,omitempty"`
	Security   string `json:"security"`
	PSK        string `json:"psk,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
	Role       string `json:"role"`
	Dynamic    bool   `json:"dynamic"`
	Address    string `json:"address,omitempty"`
	Gateway    string `json:"gateway,omitempty"`
	Netmask    string `json:"netmask,omitempty"`
}

type ieeePSEnableRequest struct {
	Mask uint32 `json:"mask"`
}

type hostSleepRequest struct {
	Configured       bool   `json:"configured"`
	WakeupConditions uint32 `json:"wakeup_conditions"`
	GPIO             int    `json:"gpio"`
	GapMillis        int    `json:"gap_millis"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// -------------------------------------------------------------------------
// Handlers
// -------------------------------------------------------------------------

func (s *WCMServer) handleSTAStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{State: s.dispatcher.STAStatus().String()})
}

func (s *WCMServer) handleUAPStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{State: s.dispatcher.UAPStatus().String()})
}

func (s *WCMServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Profile == "" {
		writeError(w, http.StatusBadRequest, ErrMissingProfileName)
		return
	}

	if err := s.dispatcher.Connect(r.Context(), req.Profile); err != nil {
		s.writeWCMError(w, "connect", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *WCMServer) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.Disconnect(r.Context()); err != nil {
		s.writeWCMError(w, "disconnect", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *WCMServer) handleScan(w http.ResponseWriter, r *http.Request) {
	n, err := s.dispatcher.Scan(r.Context())
	if err != nil {
		s.writeWCMError(w, "scan", err)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{BSSCount: n})
}

func (s *WCMServer) handleUAPStart(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Profile == "" {
		writeError(w, http.StatusBadRequest, ErrMissingProfileName)
		return
	}
	if err := s.dispatcher.StartUAP(r.Context(), req.Profile); err != nil {
		s.writeWCMError(w, "uap start", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *WCMServer) handleUAPStop(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.StopUAP(r.Context()); err != nil {
		s.writeWCMError(w, "uap stop", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *WCMServer) handleAddProfile(w http.ResponseWriter, r *http.Request) {
	var req addProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := profileFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.dispatcher.AddProfile(r.Context(), p); err != nil {
		s.writeWCMError(w, "add profile", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *WCMServer) handleRemoveProfile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		writeError(w, http.StatusBadRequest, ErrMissingProfileName)
		return
	}
	if err := s.dispatcher.RemoveProfile(r.Context(), name); err != nil {
		s.writeWCMError(w, "remove profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *WCMServer) handleIEEEPSEnable(w http.ResponseWriter, r *http.Request) {
	var req ieeePSEnableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.dispatcher.EnableIEEEPS(r.Context(), req.Mask); err != nil {
		s.writeWCMError(w, "ieee ps enable", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *WCMServer) handleIEEEPSDisable(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.DisableIEEEPS(r.Context()); err != nil {
		s.writeWCMError(w, "ieee ps disable", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *WCMServer) handleDeepSleepEnable(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.EnableDeepSleep(r.Context()); err != nil {
		s.writeWCMError(w, "deep sleep enable", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *WCMServer) handleDeepSleepDisable(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.DisableDeepSleep(r.Context()); err != nil {
		s.writeWCMError(w, "deep sleep disable", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *WCMServer) handleHostSleepConfig(w http.ResponseWriter, r *http.Request) {
	var req hostSleepRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg := wcm.HostSleepConfig{
		Configured:       req.Configured,
		WakeupConditions: req.WakeupConditions,
		GPIO:             req.GPIO,
		GapMillis:        req.GapMillis,
	}
	if err := s.dispatcher.ConfigureHostSleep(r.Context(), cfg); err != nil {
		s.writeWCMError(w, "host sleep config", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// -------------------------------------------------------------------------
// Internal helpers
// -------------------------------------------------------------------------

// profileFromRequest converts an addProfileRequest into a *wcm.Profile.
func profileFromRequest(req addProfileRequest) (*wcm.Profile, error) {
	role := wcm.RoleSTA
	if req.Role == "uap" {
		role = wcm.RoleUAP
	}

	secType, err := SecurityTypeFromString(req.Security)
	if err != nil {
		return nil, err
	}

	var bssid net.HardwareAddr
	if req.BSSID != "" {
		bssid, err = net.ParseMAC(req.BSSID)
		if err != nil {
			return nil, fmt.Errorf("parse bssid %q: %w", req.BSSID, err)
		}
	}

	ip := wcm.IPConfig{Dynamic: req.Dynamic}
	if !req.Dynamic {
		ip.Address = net.ParseIP(req.Address)
		ip.Gateway = net.ParseIP(req.Gateway)
		ip.Netmask = net.ParseIP(req.Netmask)
	}

	return &wcm.Profile{
		Name:    req.Name,
		Role:    role,
		SSID:    []byte(req.SSID),
		BSSID:   bssid,
		Channel: req.Channel,
		Security: wcm.SecurityDescriptor{
			Type:       secType,
			PSK:        req.PSK,
			Passphrase: req.Passphrase,
		},
		IP:              ip,
		SSIDSpecific:    req.SSID != "",
		BSSIDSpecific:   bssid != nil,
		ChannelSpecific: req.Channel != 0,
	}, nil
}

// SecurityTypeFromString parses the wire-level security vocabulary shared
// by the REST API and by cmd/wcmd's declarative profile loader.
func SecurityTypeFromString(s string) (wcm.SecurityType, error) {
	switch s {
	case "", "none":
		return wcm.SecurityNone, nil
	case "wep":
		return wcm.SecurityWEP, nil
	case "wpa":
		return wcm.SecurityWPA, nil
	case "wpa-wpa2-mixed":
		return wcm.SecurityWPAWPA2Mixed, nil
	case "wpa2":
		return wcm.SecurityWPA2, nil
	case "wpa3-sae":
		return wcm.SecurityWPA3SAE, nil
	case "wpa2-wpa3-mixed":
		return wcm.SecurityWPA2WPA3Mixed, nil
	case "owe":
		return wcm.SecurityOWE, nil
	case "wildcard":
		return wcm.SecurityWildcard, nil
	default:
		return 0, fmt.Errorf("unrecognized security type %q", s)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidRequestBody, err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeWCMError maps a dispatcher error to an HTTP status and writes it as
// a JSON error body. Sentinel errors that are not wrapped in a WCMError
// (profile-store lookups, scan/state conflicts) are mapped explicitly;
// everything else falls back to the WCMError Kind taxonomy.
func (s *WCMServer) writeWCMError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, wcm.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, wcm.ErrNameTaken),
		errors.Is(err, wcm.ErrProfileBusy),
		errors.Is(err, wcm.ErrScanLocked),
		errors.Is(err, wcm.ErrBadSTAState),
		errors.Is(err, wcm.ErrBadUAPState),
		errors.Is(err, wcm.ErrAlreadyConnected):
		status = http.StatusConflict
	case errors.Is(err, wcm.ErrInvalidProfile),
		errors.Is(err, wcm.ErrWrongRole),
		errors.Is(err, wcm.ErrNetworkNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, wcm.ErrStoreFull):
		status = http.StatusInsufficientStorage
	default:
		switch wcm.KindOf(err) {
		case wcm.KindInvalid:
			status = http.StatusBadRequest
		case wcm.KindState, wcm.KindAlreadyConfigured:
			status = http.StatusConflict
		case wcm.KindNoMem:
			status = http.StatusInsufficientStorage
		case wcm.KindNotSupported:
			status = http.StatusNotImplemented
		case wcm.KindFail:
			status = http.StatusInternalServerError
		}
	}
	s.logger.Warn("request failed", slog.String("op", op), slog.String("error", err.Error()))
	writeError(w, status, err)
}
