package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
	"github.com/yigit/enrollplan/internal/pkg/helpers"
)

// SQLTranscriptRepository stores transcript records through database/sql.
// It backs the single-node SQLite deployment.
type SQLTranscriptRepository struct {
	db *sql.DB
}

// NewSQLTranscriptRepository creates a new database/sql transcript repository
func NewSQLTranscriptRepository(db *sql.DB) *SQLTranscriptRepository {
	return &SQLTranscriptRepository{db: db}
}

const sqlTranscriptColumns = `id, user_id, upload_ref, status, diagnostic, lines, gpa, total_credits, created_at, updated_at`

// LoadRecord retrieves a transcript record by ID
func (r *SQLTranscriptRepository) LoadRecord(ctx context.Context, id uuid.UUID) (*models.TranscriptRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqlTranscriptColumns+` FROM transcript_records WHERE id = ?`, id.String())
	rec, err := scanSQLTranscriptRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving transcript record: %w", err)
	}
	return rec, nil
}

// SaveRecord inserts or updates a transcript record
func (r *SQLTranscriptRepository) SaveRecord(ctx context.Context, rec *models.TranscriptRecord) error {
	lines, err := encodeLines(rec.Lines)
	if err != nil {
		return err
	}
	var gpaText *string
	if rec.GPA.Valid {
		v := rec.GPA.Decimal.String()
		gpaText = &v
	}
	gpa := helpers.GetNullString(gpaText)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transcript_records (`+sqlTranscriptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			diagnostic = excluded.diagnostic,
			lines = excluded.lines,
			gpa = excluded.gpa,
			total_credits = excluded.total_credits,
			updated_at = excluded.updated_at`,
		rec.ID.String(),
		rec.UserID,
		rec.UploadRef,
		string(rec.Status),
		rec.Diagnostic,
		lines,
		gpa,
		rec.TotalCredits.String(),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript record: %w", err)
	}
	return nil
}

// ListRecordsByUser retrieves a user's records, newest first
func (r *SQLTranscriptRepository) ListRecordsByUser(ctx context.Context, userID string) ([]*models.TranscriptRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqlTranscriptColumns+` FROM transcript_records WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.TranscriptRecord
	for rows.Next() {
		rec, err := scanSQLTranscriptRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLTranscriptRecord(row rowScanner) (*models.TranscriptRecord, error) {
	var (
		rec                  models.TranscriptRecord
		id, status           string
		lines                string
		gpa                  sql.NullString
		credits              string
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &rec.UserID, &rec.UploadRef, &status, &rec.Diagnostic, &lines, &gpa, &credits, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid transcript record id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.Status = models.TranscriptStatus(status)
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("record %s has invalid created_at: %w", id, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("record %s has invalid updated_at: %w", id, err)
	}
	var gpaText *string
	if gpa.Valid {
		gpaText = &gpa.String
	}
	if err := fillTranscriptValues(&rec, []byte(lines), gpaText, credits); err != nil {
		return nil, err
	}
	return &rec, nil
}
