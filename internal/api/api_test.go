package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/heatpump-ir/internal/config"
	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
	"github.com/thatsimonsguy/heatpump-ir/internal/state"
)

type fakeTransmitter struct {
	sent []protocol.Pulses
	err  error
}

func (f *fakeTransmitter) Send(p protocol.Pulses) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

func setupServer() (*Server, *state.Manager, *fakeTransmitter) {
	manager := state.NewManager(nil)
	tx := &fakeTransmitter{}
	cfg := &config.Config{ListenPort: 8080, ReceiveIdleMS: 100}
	return NewServer(manager, tx, cfg), manager, tx
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body == "" {
		rdr = bytes.NewReader(nil)
	} else {
		rdr = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStatus(t *testing.T) {
	s, _, _ := setupServer()
	w := doJSON(t, s.Handler(), http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "auto", snap["hvac_mode"])
	assert.Equal(t, float64(20), snap["temp"])
	assert.Equal(t, false, snap["on"])
}

func TestSetRequiresApplyFlag(t *testing.T) {
	s, _, _ := setupServer()
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/set", `{"temp": 24}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetWithoutApplyUpdatesOnly(t *testing.T) {
	s, manager, tx := setupServer()
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/set",
		`{"on": true, "temp": 24, "hvac_mode": "heat", "apply": false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(20), resp.Prev["temp"])
	assert.Equal(t, float64(24), resp.New["temp"])
	assert.Equal(t, "heat", resp.New["hvac_mode"])

	assert.Empty(t, tx.sent, "apply=false must not transmit")
	assert.Equal(t, 24, manager.Current().Temperature)
}

func TestSetTemperatureDelta(t *testing.T) {
	s, manager, _ := setupServer()
	h := s.Handler()

	w := doJSON(t, h, http.MethodPost, "/api/set", `{"temp": ["+", 3], "apply": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 23, manager.Current().Temperature)

	w = doJSON(t, h, http.MethodPost, "/api/set", `{"temp": ["-", 10], "apply": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	// 23 - 10 clamps to the unit minimum.
	assert.Equal(t, 16, manager.Current().Temperature)

	w = doJSON(t, h, http.MethodPost, "/api/set", `{"temp": ["*", 2], "apply": false}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetFanSpeedForms(t *testing.T) {
	s, manager, _ := setupServer()
	h := s.Handler()

	w := doJSON(t, h, http.MethodPost, "/api/set", `{"fan_speed": 3, "apply": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, manager.Current().FanSpeed)

	w = doJSON(t, h, http.MethodPost, "/api/set", `{"fan_speed": "auto", "apply": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, manager.Current().FanSpeed)

	w = doJSON(t, h, http.MethodPost, "/api/set", `{"fan_speed": 9, "apply": false}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetRejectsInvalidEnums(t *testing.T) {
	s, manager, _ := setupServer()
	h := s.Handler()

	for _, body := range []string{
		`{"hvac_mode": "blast", "apply": false}`,
		`{"wide_vane": "diagonal", "apply": false}`,
		`{"vane": "sideways", "apply": false}`,
		`{"prog": "always", "apply": false}`,
		`{"clock": 500, "apply": false}`,
		`{"end_time": 144, "apply": false}`,
	} {
		w := doJSON(t, h, http.MethodPost, "/api/set", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
	// Nothing stuck.
	assert.Equal(t, *protocol.NewOperatingState(), manager.Current())
}

func TestSetApplyTransmits(t *testing.T) {
	s, _, tx := setupServer()
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/set",
		`{"on": true, "hvac_mode": "cool", "temp": 22, "apply": true}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, tx.sent, 1)
	assert.Len(t, tx.sent[0], protocol.DoublePulseCount)
}

func TestSetApplyTransmitFailure(t *testing.T) {
	s, _, tx := setupServer()
	tx.err = errors.New("device wedged")
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/set", `{"on": true, "apply": true}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSetApplyRejectsInconsistentState(t *testing.T) {
	s, manager, tx := setupServer()
	// econo cool in heat mode can never be encoded
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/set",
		`{"hvac_mode": "heat", "econo_cool": true, "apply": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, tx.sent)
	assert.False(t, manager.Current().EconoCool, "failed set must roll back")
}

func TestUpdateAppliesInboundFrame(t *testing.T) {
	s, manager, _ := setupServer()

	src := protocol.NewOperatingState()
	src.On = true
	src.Mode = protocol.ModeHeat
	src.Temperature = 23
	src.ClockSet = protocol.Clock{Value: 45}
	frame, err := protocol.Encode(src)
	require.NoError(t, err)

	data := make([]int, len(frame))
	for i, b := range frame {
		data[i] = int(b)
	}
	body, err := json.Marshal(UpdateRequest{Data: data})
	require.NoError(t, err)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/update", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	cur := manager.Current()
	assert.True(t, cur.On)
	assert.Equal(t, protocol.ModeHeat, cur.Mode)
	assert.Equal(t, 23, cur.Temperature)
	require.NotNil(t, cur.ReadClock)
	assert.Equal(t, 45, *cur.ReadClock)
	// A read never overwrites the pending clock setting.
	assert.True(t, cur.ClockSet.Auto)
}

func TestUpdateRejectsBadFrames(t *testing.T) {
	s, _, _ := setupServer()
	h := s.Handler()

	frame, err := protocol.Encode(protocol.NewOperatingState())
	require.NoError(t, err)
	data := make([]int, len(frame))
	for i, b := range frame {
		data[i] = int(b)
	}
	data[17] ^= 0xFF // break the checksum

	body, err := json.Marshal(UpdateRequest{Data: data})
	require.NoError(t, err)
	w := doJSON(t, h, http.MethodPost, "/api/update", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "checksum")

	w = doJSON(t, h, http.MethodPost, "/api/update", `{"data": [1, 2, 3]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/update", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMethodDiscipline(t *testing.T) {
	s, _, _ := setupServer()
	h := s.Handler()

	w := doJSON(t, h, http.MethodPost, "/api/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	w = doJSON(t, h, http.MethodGet, "/api/set", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	w = doJSON(t, h, http.MethodGet, "/api/update", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStreamPushesSnapshots(t *testing.T) {
	s, manager, _ := setupServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap map[string]any
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, false, snap["on"])

	require.NoError(t, manager.Update(func(st *protocol.OperatingState) error {
		st.On = true
		return nil
	}))

	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, true, snap["on"])
}
