package httpcmd_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tvremote/internal/domain"
	"tvremote/internal/infra/httpcmd"
)

func TestClient_SendCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/command" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req struct {
			Command  domain.Command `json:"command"`
			DeviceID string         `json:"deviceId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.DeviceID != "tv-1" || req.Command.Action != domain.ActionMute {
			t.Errorf("unexpected request: %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"command":  req.Command,
			"deviceId": req.DeviceID,
			"result":   map[string]any{"muted": true},
		})
	}))
	defer server.Close()

	client := httpcmd.NewClient(server.URL, "tv-1")

	ok, err := client.SendCommand(context.Background(), domain.NewCommand(domain.CommandVolume, domain.ActionMute))
	if err != nil {
		t.Fatalf("SendCommand error: %v", err)
	}
	if !ok {
		t.Error("expected success")
	}
}

func TestClient_SendCommandReportsDeviceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Invalid media action: eject"})
	}))
	defer server.Close()

	client := httpcmd.NewClient(server.URL, "tv-1")

	_, err := client.SendCommand(context.Background(), domain.NewCommand(domain.CommandMedia, "eject"))

	var deviceErr *domain.DeviceError
	if !errors.As(err, &deviceErr) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
}

func TestClient_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Unsupported command type: laser"})
	}))
	defer server.Close()

	client := httpcmd.NewClient(server.URL, "tv-1")

	_, err := client.ExecuteCommand(context.Background(), "tv-1", domain.Command{Type: "laser", Action: "fire"})

	var apiErr *httpcmd.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "Unsupported command type: laser" {
		t.Errorf("message: got %q", apiErr.Message)
	}
	if calls.Load() != 1 {
		t.Errorf("calls: got %d, want 1", calls.Load())
	}
}

func TestClient_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"devices": []map[string]any{{"id": "tv-1", "name": "Living Room", "ipAddress": "10.0.0.5", "port": 6466}},
		})
	}))
	defer server.Close()

	client := httpcmd.NewClient(server.URL, "")

	devices, err := client.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(devices) != 1 || devices[0].Port != 6466 {
		t.Errorf("unexpected devices: %+v", devices)
	}
	if calls.Load() != 3 {
		t.Errorf("calls: got %d, want 3", calls.Load())
	}
}

func TestClient_HistoryAndPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/command":
			if r.URL.Query().Get("limit") != "5" || r.URL.Query().Get("deviceId") != "tv-1" {
				t.Errorf("unexpected query: %s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"success":    true,
				"totalCount": 7,
				"commands": []map[string]any{
					{"command": map[string]any{"type": "volume", "action": "up"}, "executed": true, "responseTime": 101},
				},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/discover":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Device not found"})
		}
	}))
	defer server.Close()

	client := httpcmd.NewClient(server.URL, "tv-1")

	records, total, err := client.History(context.Background(), "tv-1", 5)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if total != 7 || len(records) != 1 || records[0].ResponseTime != 101 {
		t.Errorf("unexpected history: %d %+v", total, records)
	}

	_, err = client.Ping(context.Background(), "garage")
	if !httpcmd.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
