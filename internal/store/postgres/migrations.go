package postgres

import (
	"context"
	"fmt"
)

// Migrate creates the schema. embeddingDim fixes the pgvector column width;
// it must match the extractor's output dimension.
func (p *Pool) Migrate(ctx context.Context, embeddingDim int) error {
	if _, err := p.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createMembers := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS members (
			id         UUID PRIMARY KEY,
			org_scope  VARCHAR(255) NOT NULL,
			name       VARCHAR(255) NOT NULL,
			status     VARCHAR(32) NOT NULL,
			embedding  vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, embeddingDim)
	if _, err := p.Exec(ctx, createMembers); err != nil {
		return fmt.Errorf("failed to create members table: %w", err)
	}

	if _, err := p.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS members_org_scope_idx ON members(org_scope)
	`); err != nil {
		return fmt.Errorf("failed to create members org_scope index: %w", err)
	}

	createAttendance := `
		CREATE TABLE IF NOT EXISTS attendance_logs (
			id         UUID PRIMARY KEY,
			org_scope  VARCHAR(255) NOT NULL,
			member_id  UUID NOT NULL,
			recorded_at TIMESTAMP WITH TIME ZONE NOT NULL,
			day        DATE NOT NULL,
			confidence DOUBLE PRECISION NOT NULL
		)
	`
	if _, err := p.Exec(ctx, createAttendance); err != nil {
		return fmt.Errorf("failed to create attendance_logs table: %w", err)
	}

	// Hardens the check-then-insert dedup against concurrent sessions:
	// at most one log per member per tenant per calendar day.
	if _, err := p.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS attendance_dedup_idx
		ON attendance_logs(org_scope, member_id, day)
	`); err != nil {
		return fmt.Errorf("failed to create attendance dedup index: %w", err)
	}

	return nil
}

// CreateVectorIndex creates the IVFFlat index for roster similarity scans.
// Called after the table has data for optimal list selection.
func (p *Pool) CreateVectorIndex(ctx context.Context) error {
	_, err := p.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS members_embedding_idx
		ON members USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}
