package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/heatpump-ir/internal/config"
	"github.com/thatsimonsguy/heatpump-ir/internal/datadog"
	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
	"github.com/thatsimonsguy/heatpump-ir/internal/state"
)

// Transmitter sends an encoded pulse train to the unit, typically the lirc
// device.
type Transmitter interface {
	Send(protocol.Pulses) error
}

type Server struct {
	state  *state.Manager
	tx     Transmitter
	config *config.Config
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SetResponse struct {
	Prev map[string]any `json:"prev"`
	New  map[string]any `json:"new"`
}

type UpdateRequest struct {
	Data []int `json:"data"`
}

func NewServer(st *state.Manager, tx Transmitter, cfg *config.Config) *Server {
	return &Server{
		state:  st,
		tx:     tx,
		config: cfg,
	}
}

// Handler builds the route table; separate from Start so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/set", s.handleSet)
	mux.HandleFunc("/api/update", s.handleUpdate)
	mux.HandleFunc("/api/stream", s.handleStream)

	// CORS middleware for the web UI
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")

	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// setRequest is a partial update: only present keys are applied.
// Temperature accepts a plain number or a ["+"|"-", n] delta pair; fan
// speed accepts "auto" or an integer.
type setRequest struct {
	On        *bool           `json:"on"`
	Mode      *string         `json:"hvac_mode"`
	ISee      *bool           `json:"isee"`
	Temp      json.RawMessage `json:"temp"`
	WideVane  *string         `json:"wide_vane"`
	FanSpeed  json.RawMessage `json:"fan_speed"`
	Vane      *string         `json:"vane"`
	Clock     *protocol.Clock `json:"clock"`
	EndTime   *int            `json:"end_time"`
	StartTime *int            `json:"start_time"`
	Prog      *string         `json:"prog"`
	EconoCool *bool           `json:"econo_cool"`
	CleanMode *bool           `json:"clean_mode"`
	Plasma    *bool           `json:"plasma"`
	LongMode  *bool           `json:"long_mode"`
	Apply     *bool           `json:"apply"`
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Apply == nil {
		s.writeError(w, http.StatusBadRequest, "Missing required field: apply")
		return
	}

	prev := s.state.Snapshot()

	var pulses protocol.Pulses
	err := s.state.Update(func(st *protocol.OperatingState) error {
		if err := applyPartial(&req, st); err != nil {
			return err
		}
		if *req.Apply {
			frame, err := protocol.Encode(st)
			if err != nil {
				return err
			}
			pulses = protocol.EncodePulses(frame)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Rejected state update")
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if pulses != nil {
		if err := s.tx.Send(pulses); err != nil {
			log.Error().Err(err).Msg("Failed to transmit pulse train")
			s.writeError(w, http.StatusInternalServerError, "Transmission failed: "+err.Error())
			return
		}
		datadog.Count("api.transmissions", 1)
		log.Info().Msg("Transmitted state to unit")
	}

	s.writeJSON(w, http.StatusOK, SetResponse{Prev: prev, New: s.state.Snapshot()})
}

func applyPartial(req *setRequest, st *protocol.OperatingState) error {
	if req.On != nil {
		st.On = *req.On
	}
	if req.Mode != nil {
		mode := protocol.Mode(*req.Mode)
		if !mode.Valid() {
			return fmt.Errorf("%w: hvac_mode %q", protocol.ErrInvalidField, *req.Mode)
		}
		st.Mode = mode
	}
	if req.ISee != nil {
		st.ISee = *req.ISee
	}
	if req.Temp != nil {
		if err := applyTemperature(req.Temp, st); err != nil {
			return err
		}
	}
	if req.WideVane != nil {
		wide := protocol.WideVane(*req.WideVane)
		if !wide.Valid() {
			return fmt.Errorf("%w: wide_vane %q", protocol.ErrInvalidField, *req.WideVane)
		}
		st.WideVane = wide
	}
	if req.FanSpeed != nil {
		var fan any
		if err := json.Unmarshal(req.FanSpeed, &fan); err != nil {
			return fmt.Errorf("%w: fan_speed", protocol.ErrInvalidField)
		}
		if err := st.SetFanSpeed(fan); err != nil {
			return err
		}
	}
	if req.Vane != nil {
		vane := protocol.Vane(*req.Vane)
		if !vane.Valid() {
			return fmt.Errorf("%w: vane %q", protocol.ErrInvalidField, *req.Vane)
		}
		st.Vane = vane
	}
	if req.Clock != nil {
		st.ClockSet = *req.Clock
	}
	if req.EndTime != nil {
		if *req.EndTime < 0 || *req.EndTime > protocol.MaxClock {
			return fmt.Errorf("%w: end_time %d", protocol.ErrInvalidField, *req.EndTime)
		}
		st.EndTime = *req.EndTime
	}
	if req.StartTime != nil {
		if *req.StartTime < 0 || *req.StartTime > protocol.MaxClock {
			return fmt.Errorf("%w: start_time %d", protocol.ErrInvalidField, *req.StartTime)
		}
		st.StartTime = *req.StartTime
	}
	if req.Prog != nil {
		prog := protocol.TimerProgram(*req.Prog)
		if !prog.Valid() {
			return fmt.Errorf("%w: prog %q", protocol.ErrInvalidField, *req.Prog)
		}
		st.Program = prog
	}
	if req.EconoCool != nil {
		st.EconoCool = *req.EconoCool
	}
	if req.CleanMode != nil {
		st.CleanMode = *req.CleanMode
	}
	if req.Plasma != nil {
		st.Plasma = *req.Plasma
	}
	if req.LongMode != nil {
		st.LongMode = *req.LongMode
	}
	return nil
}

// applyTemperature handles both the absolute form (a number) and the delta
// form (["+", n] / ["-", n]).
func applyTemperature(raw json.RawMessage, st *protocol.OperatingState) error {
	var abs float64
	if err := json.Unmarshal(raw, &abs); err == nil {
		st.SetTemperature(abs)
		return nil
	}

	var delta []json.RawMessage
	if err := json.Unmarshal(raw, &delta); err != nil || len(delta) != 2 {
		return fmt.Errorf("%w: temp must be a number or a [op, n] pair", protocol.ErrInvalidField)
	}
	var op string
	var n float64
	if err := json.Unmarshal(delta[0], &op); err != nil {
		return fmt.Errorf("%w: temp delta operator", protocol.ErrInvalidField)
	}
	if err := json.Unmarshal(delta[1], &n); err != nil {
		return fmt.Errorf("%w: temp delta amount", protocol.ErrInvalidField)
	}
	switch op {
	case "+":
		st.SetTemperature(float64(st.Temperature) + n)
	case "-":
		st.SetTemperature(float64(st.Temperature) - n)
	default:
		return fmt.Errorf("%w: temp delta operator %q", protocol.ErrInvalidField, op)
	}
	return nil
}

// handleUpdate ingests a raw inbound frame, as decoded by the acquisition
// loop or posted by an external receiver.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Data == nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	frame, err := protocol.FrameFromInts(req.Data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.state.Update(func(st *protocol.OperatingState) error {
		return protocol.Apply(frame, st)
	})
	if err != nil {
		// Validation failures are the client's problem; everything in
		// Apply's taxonomy is a 400.
		if errors.Is(err, protocol.ErrChecksum) || errors.Is(err, protocol.ErrMalformedHeader) ||
			errors.Is(err, protocol.ErrInvalidField) || errors.Is(err, protocol.ErrInconsistentMode) ||
			errors.Is(err, protocol.ErrInconsistentState) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
