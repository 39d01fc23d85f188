package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// TranscriptRepository handles database operations for transcript records
type TranscriptRepository struct {
	db *pgxpool.Pool
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *pgxpool.Pool) *TranscriptRepository {
	return &TranscriptRepository{
		db: db,
	}
}

var transcriptColumns = []string{
	"id", "user_id", "upload_ref", "status", "diagnostic", "lines",
	"gpa::text", "total_credits::text", "created_at", "updated_at",
}

func (r *TranscriptRepository) selectRecordsQuery() squirrel.SelectBuilder {
	return squirrel.Select(transcriptColumns...).
		From("transcript_records").
		PlaceholderFormat(squirrel.Dollar)
}

func (r *TranscriptRepository) recordQuery(id uuid.UUID) squirrel.SelectBuilder {
	return r.selectRecordsQuery().Where(squirrel.Eq{"id": id})
}

func (r *TranscriptRepository) userRecordsQuery(userID string) squirrel.SelectBuilder {
	return r.selectRecordsQuery().
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id")
}

func (r *TranscriptRepository) saveRecordQuery(rec *models.TranscriptRecord) (squirrel.InsertBuilder, error) {
	lines, err := encodeLines(rec.Lines)
	if err != nil {
		return squirrel.InsertBuilder{}, err
	}
	var gpa any
	if rec.GPA.Valid {
		gpa = rec.GPA.Decimal.String()
	}

	return squirrel.Insert("transcript_records").
		Columns("id", "user_id", "upload_ref", "status", "diagnostic", "lines", "gpa", "total_credits", "created_at", "updated_at").
		Values(
			rec.ID,
			rec.UserID,
			rec.UploadRef,
			string(rec.Status),
			rec.Diagnostic,
			squirrel.Expr("?::jsonb", lines),
			squirrel.Expr("?::numeric", gpa),
			squirrel.Expr("?::numeric", rec.TotalCredits.String()),
			rec.CreatedAt,
			rec.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			diagnostic = EXCLUDED.diagnostic,
			lines = EXCLUDED.lines,
			gpa = EXCLUDED.gpa,
			total_credits = EXCLUDED.total_credits,
			updated_at = EXCLUDED.updated_at`).
		PlaceholderFormat(squirrel.Dollar), nil
}

// LoadRecord retrieves a transcript record by ID
func (r *TranscriptRepository) LoadRecord(ctx context.Context, id uuid.UUID) (*models.TranscriptRecord, error) {
	sql, args, err := r.recordQuery(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build transcript query: %w", err)
	}

	rec, err := scanTranscriptRecord(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving transcript record: %w", err)
	}
	return rec, nil
}

// SaveRecord inserts or updates a transcript record
func (r *TranscriptRepository) SaveRecord(ctx context.Context, rec *models.TranscriptRecord) error {
	builder, err := r.saveRecordQuery(rec)
	if err != nil {
		return err
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transcript upsert: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to save transcript record: %w", err)
	}
	return nil
}

// ListRecordsByUser retrieves a user's records, newest first
func (r *TranscriptRepository) ListRecordsByUser(ctx context.Context, userID string) ([]*models.TranscriptRecord, error) {
	sql, args, err := r.userRecordsQuery(userID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build transcript query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.TranscriptRecord{}
	for rows.Next() {
		rec, err := scanTranscriptRecord(rows)
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

func scanTranscriptRecord(row pgx.Row) (*models.TranscriptRecord, error) {
	var (
		rec     models.TranscriptRecord
		status  string
		lines   []byte
		gpa     *string
		credits string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.UploadRef,
		&status,
		&rec.Diagnostic,
		&lines,
		&gpa,
		&credits,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Status = models.TranscriptStatus(status)
	if err := fillTranscriptValues(&rec, lines, gpa, credits); err != nil {
		return nil, err
	}
	return &rec, nil
}

// fillTranscriptValues decodes the columns both drivers store as text
func fillTranscriptValues(rec *models.TranscriptRecord, lines []byte, gpa *string, credits string) error {
	rec.Lines = []models.ParsedLine{}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &rec.Lines); err != nil {
			return fmt.Errorf("record %s has invalid lines: %w", rec.ID, err)
		}
	}
	if gpa != nil {
		d, err := decimal.NewFromString(*gpa)
		if err != nil {
			return fmt.Errorf("record %s has invalid gpa %q: %w", rec.ID, *gpa, err)
		}
		rec.GPA = decimal.NewNullDecimal(d)
	}
	total, err := decimal.NewFromString(credits)
	if err != nil {
		return fmt.Errorf("record %s has invalid total credits %q: %w", rec.ID, credits, err)
	}
	rec.TotalCredits = total
	return nil
}

func encodeLines(lines []models.ParsedLine) (string, error) {
	if lines == nil {
		lines = []models.ParsedLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript lines: %w", err)
	}
	return string(data), nil
}
