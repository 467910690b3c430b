package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps project records in Postgres. Chunk audio artifacts stay
// on the local filesystem either way; only the status record moves here.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initProjectSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initProjectSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			voice TEXT NOT NULL,
			speed DOUBLE PRECISION NOT NULL,
			lang TEXT NOT NULL,
			total_chunks INTEGER NOT NULL,
			completed_chunks INTEGER NOT NULL,
			last_chunk INTEGER NOT NULL DEFAULT 0,
			is_finished BOOLEAN NOT NULL DEFAULT FALSE,
			is_optimized BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS project_chunks (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			id INTEGER NOT NULL,
			text TEXT NOT NULL,
			status TEXT NOT NULL,
			PRIMARY KEY (project_id, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_project_chunks_order ON project_chunks (project_id, id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init project schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, p Project) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO projects (
			id, name, voice, speed, lang, total_chunks, completed_chunks, last_chunk, is_finished, is_optimized
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
		)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			voice=EXCLUDED.voice,
			speed=EXCLUDED.speed,
			lang=EXCLUDED.lang,
			total_chunks=EXCLUDED.total_chunks,
			completed_chunks=EXCLUDED.completed_chunks,
			last_chunk=EXCLUDED.last_chunk,
			is_finished=EXCLUDED.is_finished,
			is_optimized=EXCLUDED.is_optimized`,
		p.ID,
		p.Name,
		p.Voice,
		p.Speed,
		p.Lang,
		p.TotalChunks,
		p.CompletedChunks,
		p.LastChunk,
		p.IsFinished,
		p.IsOptimized,
	)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM project_chunks WHERE project_id=$1`, p.ID); err != nil {
		return fmt.Errorf("delete prior chunks: %w", err)
	}

	for _, chunk := range p.Chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO project_chunks (project_id, id, text, status) VALUES ($1,$2,$3,$4)`,
			p.ID,
			chunk.ID,
			chunk.Text,
			string(chunk.Status),
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, voice, speed, lang, total_chunks, completed_chunks, last_chunk, is_finished, is_optimized
		   FROM projects WHERE id=$1`,
		id,
	)
	p, err := scanProjectRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	p.Chunks, err = s.loadChunks(ctx, p.ID)
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, voice, speed, lang, total_chunks, completed_chunks, last_chunk, is_finished, is_optimized
		   FROM projects ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]Project, 0, 8)
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}
	for i := range out {
		chunks, err := s.loadChunks(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Chunks = chunks
	}
	return out, nil
}

func (s *PostgresStore) loadChunks(ctx context.Context, projectID string) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, text, status FROM project_chunks WHERE project_id=$1 ORDER BY id ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]Chunk, 0, 16)
	for rows.Next() {
		var (
			chunk  Chunk
			status string
		)
		if err := rows.Scan(&chunk.ID, &chunk.Text, &status); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		chunk.Status = ChunkStatus(status)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return chunks, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanProjectRow(row pgx.Row) (Project, error) {
	var p Project
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Voice,
		&p.Speed,
		&p.Lang,
		&p.TotalChunks,
		&p.CompletedChunks,
		&p.LastChunk,
		&p.IsFinished,
		&p.IsOptimized,
	); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
