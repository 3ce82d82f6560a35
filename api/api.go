package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/r3labs/sse/v2"

	"kasa-client/device"
	"kasa-client/kasa"
)

const infoTTL = 5 * time.Second

type Server struct {
	devices device.Devices
	cache   *ttlcache.Cache[device.InternalName, *kasa.SysInfo]
	events  *sse.Server
	router  *mux.Router

	// OnChange is called after a relay change made through the API
	OnChange func(name device.InternalName, state kasa.PowerState)
}

type outletResponse struct {
	Name    device.InternalName `json:"name"`
	Room    string              `json:"room,omitempty"`
	Address string              `json:"address"`
}

type stateResponse struct {
	State string `json:"state"`
}

type errorResponse struct {
	Error   string `json:"error"`
	ErrCode *int   `json:"err_code,omitempty"`
}

func New(devices device.Devices) *Server {
	s := &Server{
		devices: devices,
		cache: ttlcache.New(
			ttlcache.WithTTL[device.InternalName, *kasa.SysInfo](infoTTL),
		),
		events: sse.New(),
		router: mux.NewRouter(),
	}

	go s.cache.Start()

	s.events.AutoReplay = false
	for _, name := range devices.Names() {
		s.events.CreateStream(name.String())
	}

	s.router.Use(requestID)
	s.router.HandleFunc("/outlets", s.listHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/outlets/{name:.+}/info", s.infoHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/outlets/{name:.+}/cloud", s.cloudHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/outlets/{name:.+}/emeter", s.emeterHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/outlets/{name:.+}/relay", s.relayHandler).Methods(http.MethodGet, http.MethodPut)
	s.router.HandleFunc("/outlets/{name:.+}/led", s.ledHandler).Methods(http.MethodGet, http.MethodPut)
	s.router.HandleFunc("/outlets/{name:.+}/reboot", s.rebootHandler).Methods(http.MethodPost)
	s.router.HandleFunc("/outlets/{name:.+}/wifi", s.wifiHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/events", s.events.ServeHTTP)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Close() {
	s.events.Close()
	s.cache.Stop()
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)

		log.Printf("[%s] %s %s\n", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println(err)
	}
}

// writeError maps the kasa error kinds onto gateway style status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	resp := errorResponse{Error: err.Error()}

	var (
		ce *kasa.ConnectError
		te *kasa.TimeoutError
		re *kasa.ResponseError
	)
	switch {
	case errors.Is(err, kasa.ErrConflictingState):
		status = http.StatusBadRequest
	case errors.As(err, &ce), errors.As(err, &te):
		status = http.StatusGatewayTimeout
	case errors.As(err, &re):
		if kasa.Unsupported(err) {
			status = http.StatusNotImplemented
		}
		if re.Kind == kasa.DeviceError {
			resp.ErrCode = &re.Code
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) outlet(w http.ResponseWriter, r *http.Request) (*device.Outlet, bool) {
	name := device.InternalName(mux.Vars(r)["name"])

	outlet, err := device.GetDevice[*device.Outlet](s.devices, name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return nil, false
	}

	return outlet, true
}

// desired reads ?on / ?off or ?state=on|off from a PUT request.
func desired(r *http.Request) (*bool, error) {
	q := r.URL.Query()

	switch q.Get("state") {
	case "on", "ON", "1", "true":
		return kasa.Desired(true, q.Has("off"))
	case "off", "OFF", "0", "false":
		return kasa.Desired(q.Has("on"), true)
	}

	return kasa.Desired(q.Has("on"), q.Has("off"))
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	resp := []outletResponse{}
	for _, name := range s.devices.Names() {
		outlet, err := device.GetDevice[*device.Outlet](s.devices, name)
		if err != nil {
			continue
		}
		resp = append(resp, outletResponse{Name: name, Room: name.Room(), Address: outlet.Client().Addr().String()})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	outlet, ok := s.outlet(w, r)
	if !ok {
		return
	}

	if item := s.cache.Get(outlet.GetID()); item != nil {
		writeJSON(w, http.StatusOK, item.Value())
		return
	}

	info, err := outlet.Client().SystemInfo()
	if err != nil {
		writeError(w, err)
		return
	}

	s.cache.Set(outlet.GetID(), info, ttlcache.DefaultTTL)
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) cloudHandler(w http.ResponseWriter, r *http.Request) {
	outlet, ok := s.outlet(w, r)
	if !ok {
		return
	}

	info, err := outlet.Client().CloudInfo()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *Server) emeterHandler(w http.ResponseWriter, r *http.Request) {
	outlet, ok := s.outlet(w, r)
	if !ok {
		return
	}

	e, err := outlet.Emeter()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (s *Server) relayHandler(w http.ResponseWriter, r *http.Request) {
	outlet, ok := s.outlet(w, r)
	if !ok {
		return
	}

	var on *bool
	if r.Method == http.MethodPut {
		var err error
		if on, err = desired(r); err != nil {
			writeError(w, err)
			return
		}
	}

	before, err := outlet.GetOnOff()
	if err != nil {
		writeError(w, err)
		return
	}

	state := before
	if on != nil {
		s.cache.Delete(outlet.GetID())
		if state, err = outlet.SetOnOff(*on); err != nil {
			writeError(w, err)
			return
		}

		s.State(outlet.GetID(), state)
		if state != before && s.OnChange != nil {
			s.OnChange(outlet.GetID(), state)
		}
	}

	writeJSON(w, http.StatusOK, stateResponse{State: state.String()})
}

func (s *Server) ledHandler(w http.ResponseWriter, r *http.Request) {
	outlet, ok := s.outlet(w, r)
	if !ok {
		return
	}

	var on *bool
	if r.Method == http.MethodPut {
		var err error
		if on, err = desired(r); err != nil {
			writeError(w, err)
			return
		}
		s.cache.Delete(outlet.GetID())
	}

	state, err := outlet.Client().Led(on)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{State: state.String()})
}

func (s *Server) rebootHandler(w http.ResponseWriter, r *http.Request) {
	outlet, ok := s.outlet(w, r)
	if !ok {
		return
	}

	var delay *uint
	if d := r.URL.Query().Get("delay"); d != "" {
		n, err := strconv.ParseUint(d, 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid delay"})
			return
		}
		seconds := uint(n)
		delay = &seconds
	}

	s.cache.Delete(outlet.GetID())
	if err := outlet.Client().Reboot(delay); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) wifiHandler(w http.ResponseWriter, r *http.Request) {
	outlet, ok := s.outlet(w, r)
	if !ok {
		return
	}

	var (
		aps []kasa.AccessPoint
		err error
	)
	if scan, _ := strconv.ParseBool(r.URL.Query().Get("scan")); scan {
		aps, err = outlet.Client().WifiScan()
	} else {
		aps, err = outlet.Client().WifiList()
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, aps)
}

func (s *Server) publish(name device.InternalName, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Println(err)
		return
	}

	s.events.Publish(name.String(), &sse.Event{Event: []byte(event), Data: data})
}

// monitor.Sink
func (s *Server) State(name device.InternalName, state kasa.PowerState) {
	s.publish(name, "state", stateResponse{State: state.String()})
}

// monitor.Sink
func (s *Server) Emeter(name device.InternalName, e *kasa.Emeter) {
	s.publish(name, "emeter", e)
}
