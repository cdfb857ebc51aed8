package main

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/kestrelab/inquest/internal/db"
)

func openDB() (*sql.DB, string, func(), error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, "", func() {}, err
	}
	inquestDir := filepath.Join(workDir, ".inquest")
	if err := os.MkdirAll(inquestDir, 0o755); err != nil {
		return nil, "", func() {}, err
	}
	dbPath := filepath.Join(inquestDir, "inquest.db")
	storeDB, err := db.Open(dbPath)
	if err != nil {
		return nil, "", func() {}, err
	}
	return storeDB, workDir, func() { _ = storeDB.Close() }, nil
}
