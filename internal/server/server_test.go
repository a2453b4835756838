package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

// -------------------------------------------------------------------------
// STA status / connect / scan
// -------------------------------------------------------------------------

func TestSTAStatusIdle(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Get(srv.URL + "/v1/sta/status")
	if err != nil {
		t.Fatalf("GET /v1/sta/status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State == "" {
		t.Error("state must not be empty")
	}
}

func TestConnectMissingProfile(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Post(srv.URL+"/v1/sta/connect", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("POST /v1/sta/connect: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestConnectUnknownProfile(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	body := bytes.NewBufferString(`{"profile":"nonexistent"}`)
	resp, err := http.Post(srv.URL+"/v1/sta/connect", "application/json", body)
	if err != nil {
		t.Fatalf("POST /v1/sta/connect: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Post(srv.URL+"/v1/sta/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/sta/scan: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestDisconnectWhenIdle(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Post(srv.URL+"/v1/sta/disconnect", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/sta/disconnect: %v", err)
	}
	defer resp.Body.Close()

	// Disconnecting while idle should either no-op successfully or report
	// a state conflict, never a server error.
	if resp.StatusCode >= 500 {
		t.Errorf("status = %d, want < 500", resp.StatusCode)
	}
}

// -------------------------------------------------------------------------
// uAP status / start / stop
// -------------------------------------------------------------------------

func TestUAPStatusDisabled(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Get(srv.URL + "/v1/uap/status")
	if err != nil {
		t.Fatalf("GET /v1/uap/status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestUAPStartMissingProfile(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Post(srv.URL+"/v1/uap/start", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("POST /v1/uap/start: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestUAPStopWhenDisabled(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Post(srv.URL+"/v1/uap/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/uap/stop: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		t.Errorf("status = %d, want < 500", resp.StatusCode)
	}
}

// -------------------------------------------------------------------------
// Profile management
// -------------------------------------------------------------------------

func TestAddProfile(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	req := map[string]any{
		"name":     "home",
		"ssid":     "MyHomeNetwork",
		"security": "wpa2",
		"psk":      "correcthorsebatterystaple",
		"role":     "sta",
		"dynamic":  true,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v1/profiles", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /v1/profiles: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
}

func TestAddProfileInvalidSecurity(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	req := map[string]any{
		"name":     "home",
		"ssid":     "MyHomeNetwork",
		"security": "not-a-real-security-type",
		"role":     "sta",
		"dynamic":  true,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v1/profiles", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /v1/profiles: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestRemoveUnknownProfile(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/profiles/nonexistent", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /v1/profiles/nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		t.Errorf("status = %d, want >= 400", resp.StatusCode)
	}
}

func TestAddThenRemoveProfile(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	addReq := map[string]any{
		"name":     "office",
		"ssid":     "CorpNet",
		"security": "wpa2",
		"psk":      "anotherpassphrase",
		"role":     "sta",
		"dynamic":  true,
	}
	payload, err := json.Marshal(addReq)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	addResp, err := http.Post(srv.URL+"/v1/profiles", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /v1/profiles: %v", err)
	}
	addResp.Body.Close()
	if addResp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d, want %d", addResp.StatusCode, http.StatusCreated)
	}

	delReq, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/profiles/office", nil)
	if err != nil {
		t.Fatalf("build delete request: %v", err)
	}
	delResp, err := http.DefaultClient.Do(delReq)
	if err != nil {
		t.Fatalf("DELETE /v1/profiles/office: %v", err)
	}
	defer delResp.Body.Close()

	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", delResp.StatusCode, http.StatusNoContent)
	}
}

// -------------------------------------------------------------------------
// Power-save endpoints
// -------------------------------------------------------------------------

func TestIEEEPSEnableDisable(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	enableBody := bytes.NewBufferString(`{"mask": 1}`)
	resp, err := http.Post(srv.URL+"/v1/powersave/ieee/enable", "application/json", enableBody)
	if err != nil {
		t.Fatalf("POST /v1/powersave/ieee/enable: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("enable status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	resp, err = http.Post(srv.URL+"/v1/powersave/ieee/disable", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/powersave/ieee/disable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("disable status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
}

func TestDeepSleepEnableDisable(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Post(srv.URL+"/v1/powersave/deepsleep/enable", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/powersave/deepsleep/enable: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("enable status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	resp, err = http.Post(srv.URL+"/v1/powersave/deepsleep/disable", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/powersave/deepsleep/disable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("disable status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
}

func TestHostSleepConfig(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	req := map[string]any{
		"configured":        true,
		"wakeup_conditions": uint32(0x3),
		"gpio":              3,
		"gap_millis":        10,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v1/powersave/hostsleep", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /v1/powersave/hostsleep: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
}

// -------------------------------------------------------------------------
// Malformed requests
// -------------------------------------------------------------------------

func TestConnectMalformedJSON(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Post(srv.URL+"/v1/sta/connect", "application/json", bytes.NewBufferString(`{not json`))
	if err != nil {
		t.Fatalf("POST /v1/sta/connect: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
