// Package mysql reads enrolled faces from a legacy MySQL attendance
// database so they can be imported into the primary store. Read-only.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/facegate/facegate/internal/recognition"
)

// Pool manages a MySQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MySQL connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MySQL DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// LegacyFace is one enrolled face row from the legacy schema. Embeddings
// are stored there as JSON arrays of float64.
type LegacyFace struct {
	UserID    int64
	Name      string
	Embedding []float32
}

// ListFaces reads all enrolled faces with usable embeddings. Rows with
// corrupt embedding JSON are skipped, not fatal.
func (p *Pool) ListFaces(ctx context.Context) ([]LegacyFace, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, name, embedding
		FROM user_faces
		WHERE embedding IS NOT NULL
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query legacy faces: %w", err)
	}
	defer rows.Close()

	var faces []LegacyFace
	for rows.Next() {
		var (
			face LegacyFace
			raw  []byte
		)
		if err := rows.Scan(&face.UserID, &face.Name, &raw); err != nil {
			return nil, fmt.Errorf("scan legacy face: %w", err)
		}

		var vec []float64
		if err := json.Unmarshal(raw, &vec); err != nil || len(vec) == 0 {
			continue
		}
		face.Embedding = make([]float32, len(vec))
		for i, v := range vec {
			face.Embedding[i] = float32(v)
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy faces: %w", err)
	}
	return faces, nil
}

// ToMember converts a legacy face to a member for enrollment. Legacy users
// default to allowed status; bans are re-applied manually after import.
func (f LegacyFace) ToMember() recognition.Member {
	return recognition.Member{
		Name:      f.Name,
		Status:    recognition.StatusAllowed,
		Embedding: f.Embedding,
	}
}
