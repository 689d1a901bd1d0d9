package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "castellan_local.db"

type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	dbPath, err := localDatabasePathFromEnv()
	if err != nil {
		return nil, err
	}
	return NewSQLiteService(dbPath)
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) AppendChange(roomID string, version uint64, reason string, frame []byte, appliedAt time.Time) error {
	if strings.TrimSpace(roomID) == "" {
		return fmt.Errorf("empty room id")
	}
	if appliedAt.IsZero() {
		appliedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO room_change_stream (room_id, version, reason, frame, applied_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (room_id, version) DO NOTHING
`, roomID, int64(version), reason, frame, appliedAt.UTC().UnixMilli())
	if err != nil {
		log.Printf("[EventStore] append failed: room=%s v=%d err=%v", roomID, version, err)
	}
	return err
}

func (s *SQLiteService) LoadChanges(ctx context.Context, roomID string) ([]StoredChange, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, ErrNotFound
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT version, reason, frame, applied_at_ms
FROM room_change_stream
WHERE room_id = ?
ORDER BY version ASC
`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]StoredChange, 0, 128)
	for rows.Next() {
		var rec StoredChange
		var version int64
		var appliedAtMs int64
		if err := rows.Scan(&version, &rec.Reason, &rec.Frame, &appliedAtMs); err != nil {
			return nil, err
		}
		rec.RoomID = roomID
		rec.Version = uint64(version)
		rec.AppliedAt = time.UnixMilli(appliedAtMs).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

func (s *SQLiteService) DeleteRoom(ctx context.Context, roomID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM room_change_stream WHERE room_id = ?`, roomID)
	return err
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS room_change_stream (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    room_id TEXT NOT NULL,
    version INTEGER NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    frame BLOB NOT NULL,
    applied_at_ms INTEGER NOT NULL,
    UNIQUE (room_id, version)
)`,
		`CREATE INDEX IF NOT EXISTS idx_room_change_stream_room ON room_change_stream(room_id, version)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func localDatabasePathFromEnv() (string, error) {
	candidates := []string{
		strings.TrimSpace(os.Getenv("EVENT_STORE_DATABASE_PATH")),
		strings.TrimSpace(os.Getenv("LOCAL_DATABASE_PATH")),
	}
	for _, candidate := range candidates {
		if candidate != "" {
			return filepath.Clean(candidate), nil
		}
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "Castellan", defaultLocalDBName), nil
}
