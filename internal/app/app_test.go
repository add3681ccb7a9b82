package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiffintracker/tiffin/internal/config"
	"github.com/tiffintracker/tiffin/internal/lock"
	"github.com/tiffintracker/tiffin/internal/utils"
	"github.com/tiffintracker/tiffin/pkg/export"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

var appNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func setupServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	exportDir := t.TempDir()
	infra := &Infrastructure{
		Repository: tracker.NewRepositoryStub(),
		Locker:     lock.NewKeyedMutex(),
		Sink:       export.NewFileSink(exportDir),
	}
	deps := BuildDependencies(infra, utils.NewMockClock(appNow))
	server := httptest.NewServer(NewRouter(deps))
	t.Cleanup(server.Close)
	return server, exportDir
}

func send(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestApplication_EntryToReportFlow(t *testing.T) {
	// given
	server, _ := setupServer(t)
	resp := send(t, http.MethodPut, server.URL+"/api/entry/2024-03-01",
		`{"lunchType": "Full", "dinnerType": "Half", "dinnerPrice": 40}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = send(t, http.MethodPut, server.URL+"/api/entry/2024-03-02", `{}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// when
	csvResp := send(t, http.MethodGet, server.URL+"/api/report?from=2024-03-01&to=2024-03-02", "",
		map[string]string{"Accept": "text/csv"})
	jsonResp := send(t, http.MethodGet, server.URL+"/api/report?preset=thisMonth", "", nil)

	// then
	require.Equal(t, http.StatusOK, csvResp.StatusCode)
	assert.Equal(t, `attachment; filename="TiffinTracker_2024-03-01_to_2024-03-02.csv"`, csvResp.Header.Get("Content-Disposition"))
	csv := readBody(t, csvResp)
	assert.Contains(t, csv, "Grand Total,,,,Rs.100\n")
	assert.Contains(t, csv, "01 Mar 2024,Full,60,Half,40,\"\"\n")

	require.Equal(t, http.StatusOK, jsonResp.StatusCode)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(readBody(t, jsonResp)), &report))
	assert.Equal(t, "2024-03-01", report["startDate"])
	assert.Equal(t, "2024-03-31", report["endDate"])
	assert.Equal(t, 100.0, report["grandTotal"])
	assert.Equal(t, map[string]any{"none": 1.0, "half": 1.0, "full": 0.0}, report["dinnerCounts"])
}

func TestApplication_XlsxReport(t *testing.T) {
	server, _ := setupServer(t)

	resp := send(t, http.MethodGet, server.URL+"/api/report?preset=lastMonth", "",
		map[string]string{"Accept": export.XlsxContentType})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.XlsxContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="TiffinTracker_2024-02-01_to_2024-02-29.xlsx"`, resp.Header.Get("Content-Disposition"))
}

func TestApplication_Errors(t *testing.T) {
	server, _ := setupServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"invalid date", http.MethodGet, "/api/entry/2024-02-30", http.StatusBadRequest},
		{"missing entry", http.MethodGet, "/api/entry/2024-02-28", http.StatusNotFound},
		{"reversed report range", http.MethodGet, "/api/report?from=2024-03-02&to=2024-03-01", http.StatusBadRequest},
		{"unknown preset", http.MethodGet, "/api/report?preset=decade", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nothing", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/api/settings", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := send(t, tt.method, server.URL+tt.path, "", nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestApplication_ShareBackupToFileSink(t *testing.T) {
	// given
	server, exportDir := setupServer(t)
	send(t, http.MethodPost, server.URL+"/api/demo", "", nil)

	// when
	resp := send(t, http.MethodPost, server.URL+"/api/export/backup/share", "", nil)

	// then
	require.Equal(t, http.StatusOK, resp.StatusCode)
	content, err := os.ReadFile(filepath.Join(exportDir, "TiffinTracker_Backup_2024-03-15.json"))
	require.NoError(t, err)
	var backup struct {
		Entries  []tracker.DayEntry `json:"entries"`
		Settings tracker.Settings   `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(content, &backup))
	assert.Len(t, backup.Entries, 15)
	assert.True(t, backup.Settings.HasDemoData)
}

func TestOpenInfrastructure(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Storage.Backend = config.StorageMemory
		cfg.Export.Dir = t.TempDir()

		infra, err := OpenInfrastructure(context.Background(), cfg)

		require.NoError(t, err)
		t.Cleanup(infra.Close)
		assert.IsType(t, &tracker.RepositoryStub{}, infra.Repository)
		assert.IsType(t, &lock.KeyedMutex{}, infra.Locker)
		assert.IsType(t, &export.FileSink{}, infra.Sink)
	})

	t.Run("sqlite backend is migrated", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Sqlite.Path = filepath.Join(t.TempDir(), "tiffin.db")

		infra, err := OpenInfrastructure(context.Background(), cfg)

		require.NoError(t, err)
		t.Cleanup(infra.Close)
		settings, err := infra.Repository.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tracker.DefaultSettings(), settings)
	})

	t.Run("unknown backends are rejected", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Storage.Backend = "mongo"
		_, err := OpenInfrastructure(context.Background(), cfg)
		assert.Error(t, err)

		cfg = config.Defaults()
		cfg.Storage.Backend = config.StorageMemory
		cfg.Export.Sink = "ftp"
		_, err = OpenInfrastructure(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("drive sink needs a token", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Storage.Backend = config.StorageMemory
		cfg.Export.Sink = config.SinkDrive
		cfg.Google.TokenFile = filepath.Join(t.TempDir(), "missing.json")

		_, err := OpenInfrastructure(context.Background(), cfg)

		assert.Error(t, err)
	})
}
