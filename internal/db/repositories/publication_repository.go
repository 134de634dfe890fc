package repositories

import (
	"context"
	"database/sql"

	"github.com/lexxi/lexxi/internal/db/models"
)

// PublicationRepository handles court publication queries. Trial detail only
// ever exposes a window of the newest publications, so the window cap is a
// query parameter here rather than a handler concern.
type PublicationRepository struct {
	db *sql.DB
}

// NewPublicationRepository creates a new PublicationRepository
func NewPublicationRepository(db *sql.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

// ListRecentByTrial returns one page out of the `window` newest publications
// of a trial, newest first by created_at. The window is applied before
// paging: with window 5 and pageSize 3, page 1 holds publications 1-3 and
// page 2 holds 4-5 regardless of how many older rows exist. Also returns the
// number of publications inside the window so the handler can compute pages.
func (r *PublicationRepository) ListRecentByTrial(ctx context.Context, trialID string, window, pageSize, offset int) ([]*models.Publication, int, error) {
	var windowed int
	countQuery := `
		SELECT COUNT(*) FROM (
			SELECT id FROM publications
			WHERE shared_trial_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
	`
	if err := r.db.QueryRowContext(ctx, countQuery, trialID, window).Scan(&windowed); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, shared_trial_id, publication_date, agreement_date,
		       summary, status, document_path, created_at
		FROM (
			SELECT id, shared_trial_id, publication_date, agreement_date,
			       summary, status, document_path, created_at
			FROM publications
			WHERE shared_trial_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, trialID, window, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	publications := make([]*models.Publication, 0)
	for rows.Next() {
		pub := &models.Publication{}
		err := rows.Scan(
			&pub.ID,
			&pub.SharedTrialID,
			&pub.PublicationDate,
			&pub.AgreementDate,
			&pub.Summary,
			&pub.Status,
			&pub.DocumentPath,
			&pub.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		publications = append(publications, pub)
	}

	return publications, windowed, rows.Err()
}

// GetPublicationByID retrieves a publication. Returns (nil, nil) when not found.
func (r *PublicationRepository) GetPublicationByID(ctx context.Context, publicationID string) (*models.Publication, error) {
	query := `
		SELECT id, shared_trial_id, publication_date, agreement_date,
		       summary, status, document_path, created_at
		FROM publications
		WHERE id = $1
	`

	pub := &models.Publication{}
	err := r.db.QueryRowContext(ctx, query, publicationID).Scan(
		&pub.ID,
		&pub.SharedTrialID,
		&pub.PublicationDate,
		&pub.AgreementDate,
		&pub.Summary,
		&pub.Status,
		&pub.DocumentPath,
		&pub.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return pub, nil
}

// SetDocumentPath records the storage key of a publication's uploaded
// source document.
func (r *PublicationRepository) SetDocumentPath(ctx context.Context, publicationID, documentPath string) error {
	query := `UPDATE publications SET document_path = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, publicationID, documentPath)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
