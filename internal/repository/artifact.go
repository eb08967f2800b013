package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store a new artifact version under name
func (r *Repository) PutArtifact(ctx context.Context, name string, payload []byte) (*domain.Artifact, error) {
	a := &domain.Artifact{
		ID:        uuid.NewString(),
		Name:      name,
		Checksum:  strconv.FormatUint(xxhash.Sum64(payload), 16),
		SizeBytes: len(payload),
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO model_artifacts (id, name, checksum, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		a.ID, a.Name, a.Checksum, payload,
	).Scan(&a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert artifact %s: %w", name, err)
	}
	return a, nil
}

// Get newest artifact payload for name
func (r *Repository) LatestArtifact(ctx context.Context, name string) (*domain.Artifact, []byte, error) {
	a := &domain.Artifact{}
	var payload []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, checksum, octet_length(payload), created_at, payload
		 FROM model_artifacts WHERE name = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		name,
	).Scan(&a.ID, &a.Name, &a.Checksum, &a.SizeBytes, &a.CreatedAt, &payload)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrArtifactNotFound
		}
		return nil, nil, fmt.Errorf("query artifact %s: %w", name, err)
	}
	return a, payload, nil
}

// List artifact versions for name, newest first
func (r *Repository) ListArtifacts(ctx context.Context, name string, limit int) ([]domain.Artifact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, checksum, octet_length(payload), created_at
		FROM model_artifacts
		WHERE name = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts %s: %w", name, err)
	}
	defer rows.Close()

	var items []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.ID, &a.Name, &a.Checksum, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over artifacts: %w", err)
	}
	return items, nil
}

// ArtifactSource serves the newest stored artifact with a given name to a model handle.
type ArtifactSource struct {
	Repo *Repository
	Name string
}

func (s ArtifactSource) Open(ctx context.Context) (io.ReadCloser, error) {
	_, payload, err := s.Repo.LatestArtifact(ctx, s.Name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func (s ArtifactSource) String() string {
	return "postgres:" + s.Name
}
