package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Entries
	r.HandleFunc("/api/entry", deps.EntryHandler.GetEntries).Methods("GET")
	r.HandleFunc("/api/entry/{date}", deps.EntryHandler.GetEntry).Methods("GET")
	r.HandleFunc("/api/entry/{date}", deps.EntryHandler.UpsertEntry).Methods("PUT")
	r.HandleFunc("/api/entry/{date}", deps.EntryHandler.DeleteEntry).Methods("DELETE")

	// Settings
	r.HandleFunc("/api/settings", deps.EntryHandler.GetSettings).Methods("GET")
	r.HandleFunc("/api/settings", deps.EntryHandler.UpdateSettings).Methods("PATCH")

	// Data management
	r.HandleFunc("/api/data", deps.EntryHandler.ClearAll).Methods("DELETE")
	r.HandleFunc("/api/demo", deps.EntryHandler.SeedDemoData).Methods("POST")

	// Report
	r.HandleFunc("/api/report", deps.ReportHandler.GetReport).Methods("GET")

	// Export / import
	r.HandleFunc("/api/export/backup", deps.ExportHandler.DownloadBackup).Methods("GET")
	r.HandleFunc("/api/export/backup/share", deps.ExportHandler.ShareBackup).Methods("POST")
	r.HandleFunc("/api/export/report/share", deps.ExportHandler.ShareReport).Methods("POST")
	r.HandleFunc("/api/import/backup", deps.ExportHandler.ImportBackup).Methods("POST")
}
