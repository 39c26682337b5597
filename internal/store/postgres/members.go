package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/tenant"
)

// MemberRepository provides PostgreSQL-backed member storage.
type MemberRepository struct {
	pool *Pool
}

// NewMemberRepository creates a new member repository.
func NewMemberRepository(pool *Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

const memberColumns = "id, org_scope, name, status, embedding, created_at, updated_at"

// Create stores a new member under the scope. A missing id is generated.
func (r *MemberRepository) Create(ctx context.Context, scope tenant.Scope, m recognition.Member) (recognition.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.OrgScope = scope.Key()
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO members (id, org_scope, name, status, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.OrgScope, m.Name, string(m.Status), embeddingValue(m.Embedding), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return recognition.Member{}, wrapStoreErr("insert member", err)
	}
	return m, nil
}

// Update replaces name, status and embedding of an existing member.
func (r *MemberRepository) Update(ctx context.Context, scope tenant.Scope, m recognition.Member) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE members
		SET name = $1, status = $2, embedding = $3, updated_at = NOW()
		WHERE id = $4 AND org_scope = $5
	`, m.Name, string(m.Status), embeddingValue(m.Embedding), m.ID, scope.Key())
	if err != nil {
		return wrapStoreErr("update member", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes a member from the scope.
func (r *MemberRepository) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM members WHERE id = $1 AND org_scope = $2
	`, id, scope.Key())
	if err != nil {
		return wrapStoreErr("delete member", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Get returns one member of the scope.
func (r *MemberRepository) Get(ctx context.Context, scope tenant.Scope, id string) (recognition.Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+` FROM members WHERE id = $1 AND org_scope = $2
	`, id, scope.Key())

	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return recognition.Member{}, store.ErrNotFound
	}
	if err != nil {
		return recognition.Member{}, wrapStoreErr("get member", err)
	}
	return m, nil
}

// List returns all members of the scope, ordered by id.
func (r *MemberRepository) List(ctx context.Context, scope tenant.Scope) ([]recognition.Member, error) {
	return r.list(ctx, scope, false)
}

// ListWithEmbeddings returns the scope's matchable roster, ordered by id.
func (r *MemberRepository) ListWithEmbeddings(ctx context.Context, scope tenant.Scope) ([]recognition.Member, error) {
	return r.list(ctx, scope, true)
}

func (r *MemberRepository) list(ctx context.Context, scope tenant.Scope, embeddedOnly bool) ([]recognition.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE org_scope = $1`
	if embeddedOnly {
		query += ` AND embedding IS NOT NULL`
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, scope.Key())
	if err != nil {
		return nil, wrapStoreErr("list members", err)
	}
	defer rows.Close()

	var members []recognition.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list members", err)
	}
	return members, nil
}

// Ping reports store reachability.
func (r *MemberRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (recognition.Member, error) {
	var (
		m         recognition.Member
		status    string
		embedding sql.Null[pgvector.Vector]
	)
	err := row.Scan(&m.ID, &m.OrgScope, &m.Name, &status, &embedding, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return recognition.Member{}, err
	}
	m.Status = recognition.MemberStatus(status)
	if embedding.Valid {
		m.Embedding = embedding.V.Slice()
	}
	return m, nil
}

// embeddingValue converts an embedding to a nullable pgvector value.
func embeddingValue(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// wrapStoreErr tags connectivity-level failures as store.ErrUnavailable so
// the cache and recorder can treat them as transient.
func wrapStoreErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
}
