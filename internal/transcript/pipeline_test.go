package transcript

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

type memoryRecords struct {
	mu      sync.Mutex
	records map[uuid.UUID]models.TranscriptRecord
	saves   []models.TranscriptStatus
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: make(map[uuid.UUID]models.TranscriptRecord)}
}

func (m *memoryRecords) LoadRecord(_ context.Context, id uuid.UUID) (*models.TranscriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, apperrors.ErrRecordNotFound
	}
	return &rec, nil
}

func (m *memoryRecords) SaveRecord(_ context.Context, rec *models.TranscriptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = *rec
	m.saves = append(m.saves, rec.Status)
	return nil
}

func (m *memoryRecords) ListRecordsByUser(_ context.Context, userID string) ([]*models.TranscriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TranscriptRecord
	for _, rec := range m.records {
		if rec.UserID == userID {
			rec := rec
			out = append(out, &rec)
		}
	}
	return out, nil
}

type trackedReader struct {
	io.Reader
	closed atomic.Bool
}

func (r *trackedReader) Close() error {
	r.closed.Store(true)
	if c, ok := r.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type memoryDocs struct {
	docs   map[string][]byte
	opened []*trackedReader
}

func (m *memoryDocs) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	data, ok := m.docs[ref]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	r := &trackedReader{Reader: bytes.NewReader(data)}
	m.opened = append(m.opened, r)
	return r, nil
}

func newTestPipeline(docs DocumentOpener, records RecordStore, timeout time.Duration) *Pipeline {
	return NewPipeline(docs, records, NewExtractors(1024), Options{ExtractTimeout: timeout}, zerolog.Nop())
}

func TestIngestProcessesTextTranscript(t *testing.T) {
	docs := &memoryDocs{docs: map[string][]byte{"doc-1": []byte("CS301 A 3\nXX999 B 3\n")}}
	records := newMemoryRecords()
	p := newTestPipeline(docs, records, time.Second)

	rec, err := p.Ingest(context.Background(), testCourses(), "doc-1", "student-1")
	require.NoError(t, err)

	assert.Equal(t, models.TranscriptProcessed, rec.Status)
	assert.Equal(t, "student-1", rec.UserID)
	require.Len(t, rec.Lines, 2)
	assert.Equal(t, models.LineMatched, rec.Lines[0].Status)
	assert.Equal(t, models.LineUnmatched, rec.Lines[1].Status)
	require.True(t, rec.GPA.Valid)
	assert.True(t, rec.GPA.Decimal.Equal(decimal.NewFromInt(4)))
	assert.True(t, rec.TotalCredits.Equal(decimal.NewFromInt(3)))

	assert.Equal(t, []models.TranscriptStatus{models.TranscriptPending, models.TranscriptProcessed}, records.saves)
	stored, err := records.LoadRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranscriptProcessed, stored.Status)
	require.Len(t, docs.opened, 1)
	assert.True(t, docs.opened[0].closed.Load())
}

func TestIngestUnreadableDocument(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "binary", data: []byte("\x7fGARBAGE\x00\x01\x02\x03\x00\x00")},
		{name: "empty", data: []byte("  \n ")},
		{name: "too large", data: bytes.Repeat([]byte("CS101 A 3\n"), 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &memoryDocs{docs: map[string][]byte{"doc": tt.data}}
			records := newMemoryRecords()
			p := newTestPipeline(docs, records, time.Second)

			rec, err := p.Ingest(context.Background(), testCourses(), "doc", "student-1")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)

			require.NotNil(t, rec)
			assert.Equal(t, models.TranscriptError, rec.Status)
			assert.Empty(t, rec.Lines)
			assert.NotEmpty(t, rec.Diagnostic)
			assert.False(t, rec.GPA.Valid)
			assert.True(t, docs.opened[0].closed.Load())

			stored, err := records.LoadRecord(context.Background(), rec.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TranscriptError, stored.Status)
		})
	}
}

func TestIngestMissingDocument(t *testing.T) {
	p := newTestPipeline(&memoryDocs{}, newMemoryRecords(), time.Second)

	rec, err := p.Ingest(context.Background(), testCourses(), "missing", "student-1")
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
	assert.Equal(t, models.TranscriptError, rec.Status)
	assert.Contains(t, rec.Diagnostic, "document could not be opened")

	var ce *apperrors.CustomError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, rec.ID.String(), ce.Details["recordId"])
}

type pipeOpener struct {
	reader *trackedReader
}

func (p *pipeOpener) Open(context.Context, string) (io.ReadCloser, error) {
	return p.reader, nil
}

func TestIngestTimeoutReleasesDocument(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	opener := &pipeOpener{reader: &trackedReader{Reader: pr}}
	p := newTestPipeline(opener, newMemoryRecords(), 20*time.Millisecond)

	rec, err := p.Ingest(context.Background(), testCourses(), "slow", "student-1")
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
	assert.Equal(t, models.TranscriptError, rec.Status)
	assert.Contains(t, rec.Diagnostic, "timed out")
	assert.True(t, opener.reader.closed.Load())
}

func TestProcessRejectsTerminalRecord(t *testing.T) {
	docs := &memoryDocs{docs: map[string][]byte{"doc": []byte("CS101 A 3")}}
	p := newTestPipeline(docs, newMemoryRecords(), time.Second)

	rec, err := p.Ingest(context.Background(), testCourses(), "doc", "student-1")
	require.NoError(t, err)

	err = p.Process(context.Background(), testCourses(), rec)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, models.TranscriptProcessed, rec.Status)
}

func TestRecordTransitions(t *testing.T) {
	rec := models.NewTranscriptRecord("u", "ref")
	assert.ErrorIs(t, rec.Transition(models.TranscriptPending), apperrors.ErrInvalidTransition)
	require.NoError(t, rec.Transition(models.TranscriptProcessed))
	assert.ErrorIs(t, rec.Transition(models.TranscriptError), apperrors.ErrInvalidTransition)
	assert.ErrorIs(t, rec.Fail("late failure"), apperrors.ErrInvalidTransition)
	assert.Equal(t, models.TranscriptProcessed, rec.Status)
	assert.Empty(t, rec.Diagnostic)
}

func TestExtractCSV(t *testing.T) {
	x := NewExtractors(0)

	withHeader := "course,title,grade,credits\nCS101,\"Intro, Programming\",A,3\nMATH101,Algebra,B,4\n"
	text, _, err := x.Extract(context.Background(), bytes.NewReader([]byte(withHeader)))
	require.NoError(t, err)
	entries := ParseText(text)
	require.Len(t, entries, 2)
	assert.Equal(t, "CS101", entries[0].CourseCode)
	assert.Equal(t, "A", entries[0].Grade)
	assert.Equal(t, "B", entries[1].Grade)

	text, err = ExtractCSV(context.Background(), []byte("CS101,A,3\nMATH101,B,4\n"))
	require.NoError(t, err)
	assert.Len(t, ParseText(text), 2)
}

func TestExtractUnsupportedType(t *testing.T) {
	x := NewExtractors(0)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	_, mime, err := x.Extract(context.Background(), bytes.NewReader(png))
	assert.ErrorIs(t, err, errUnsupportedType)
	assert.Equal(t, "image/png", mime)

	x.Register("image/png", ExtractorFunc(func(context.Context, []byte) (string, error) {
		return "CS101 A 3", nil
	}))
	text, _, err := x.Extract(context.Background(), bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "CS101 A 3", text)
}
