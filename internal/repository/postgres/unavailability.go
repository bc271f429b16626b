package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
)

func (r *unavailabilityRepository) Create(ctx context.Context, block *model.UnavailableBlock) error {
	query := `
		INSERT INTO unavailable_blocks (
			id, doctor_id, block_date, is_full_day, slots, reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now()
	block.CreatedAt = now
	block.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		block.ID,
		block.DoctorID,
		block.Date,
		block.IsFullDay,
		block.Slots,
		block.Reason,
		block.CreatedAt,
		block.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create unavailable block: %w", err)
	}
	return nil
}

func (r *unavailabilityRepository) Get(ctx context.Context, id uuid.UUID) (*model.UnavailableBlock, error) {
	query := `
		SELECT id, doctor_id, block_date, is_full_day, slots, reason,
		       created_at, updated_at, deleted_at
		FROM unavailable_blocks
		WHERE id = $1 AND deleted_at IS NULL
	`
	var block model.UnavailableBlock
	err := r.db.GetContext(ctx, &block, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unavailable block: %w", err)
	}
	return &block, nil
}

func (r *unavailabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM unavailable_blocks
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete unavailable block: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *unavailabilityRepository) ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]*model.UnavailableBlock, error) {
	query := `
		SELECT id, doctor_id, block_date, is_full_day, slots, reason,
		       created_at, updated_at, deleted_at
		FROM unavailable_blocks
		WHERE doctor_id = $1
		AND block_date >= $2
		AND block_date <= $3
		AND deleted_at IS NULL
		ORDER BY block_date ASC
	`
	var blocks []*model.UnavailableBlock
	err := r.db.SelectContext(ctx, &blocks, query, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list unavailable blocks: %w", err)
	}
	return blocks, nil
}
