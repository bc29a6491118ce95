package cds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testClient(serverURL string) *Client {
	return &Client{
		httpClient:   &http.Client{},
		baseURL:      serverURL,
		uid:          "12345",
		key:          "secret",
		pollInterval: time.Millisecond,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func windRequest() ERA5Request {
	return ERA5Request{
		ProductType:   "reanalysis",
		Format:        "netcdf",
		Variable:      []string{"u_component_of_wind", "v_component_of_wind"},
		PressureLevel: []string{"1000", "950"},
		Year:          "2019",
		Month:         "06",
		Day:           "01",
		Time:          []string{"12:00"},
	}
}

func TestRetrieve(t *testing.T) {
	payload := []byte("era5 wind bytes")
	polls := 0

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "12345" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasSuffix(r.URL.Path, WindDataset) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req ERA5Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Year != "2019" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = fmt.Fprint(w, `{"state": "queued", "request_id": "req-1"}`)
	})
	mux.HandleFunc("/tasks/req-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 2 {
			_, _ = fmt.Fprint(w, `{"state": "running"}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"state": "completed", "location": %q}`, server.URL+"/result.nc")
	})
	mux.HandleFunc("/result.nc", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "2019", "ECMWF_ERA5_uv_20190601.nc")
	err := testClient(server.URL).Retrieve(context.Background(), WindDataset, windRequest(), path)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}

	if polls != 2 {
		t.Errorf("polled %d times, want 2", polls)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if string(data) != string(payload) {
		t.Error("payload mismatch")
	}
}

func TestRetrieveImmediateCompletion(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"state": "completed", "location": %q}`, server.URL+"/result.nc")
	})
	mux.HandleFunc("/result.nc", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "wind.nc")
	if err := testClient(server.URL).Retrieve(context.Background(), WindDataset, windRequest(), path); err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
}

func TestRetrieveTaskFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"state": "queued", "request_id": "req-9"}`)
	})
	mux.HandleFunc("/tasks/req-9", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"state": "failed", "error": {"message": "no data", "reason": "empty selection"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	err := testClient(server.URL).Retrieve(context.Background(), WindDataset, windRequest(),
		filepath.Join(t.TempDir(), "wind.nc"))
	if err == nil || !strings.Contains(err.Error(), "no data") {
		t.Fatalf("Retrieve() error = %v, want task failure", err)
	}
}

func TestRetrieveContextCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"state": "queued", "request_id": "req-2"}`)
	})
	mux.HandleFunc("/tasks/req-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"state": "running"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := testClient(server.URL).Retrieve(ctx, WindDataset, windRequest(),
		filepath.Join(t.TempDir(), "wind.nc"))
	if err == nil {
		t.Fatal("Retrieve() survived a cancelled context")
	}
}

func TestRetrieveSubmissionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := testClient(server.URL).Retrieve(context.Background(), WindDataset, windRequest(),
		filepath.Join(t.TempDir(), "wind.nc"))
	if err == nil {
		t.Fatal("Retrieve() accepted a rejected submission")
	}
}
