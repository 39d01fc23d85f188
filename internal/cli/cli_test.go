package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/enrollplan/internal/pkg/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	out, err := run(t, "resolve", "cs301")
	require.NoError(t, err)

	var res struct {
		Required []string `json:"required"`
		Flags    struct {
			Cycle bool `json:"cycle"`
		} `json:"flags"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res.Required, "CS201")
	assert.Contains(t, res.Required, "MATH201")
	assert.False(t, res.Flags.Cycle)

	_, err = run(t, "resolve", "CS999")
	assert.Error(t, err)
}

func TestConflictsCommand(t *testing.T) {
	out, err := run(t, "conflicts", "10101", "61001")
	require.NoError(t, err)

	var report struct {
		HasConflicts    bool     `json:"hasConflicts"`
		ConflictingCRNs []string `json:"conflictingCrns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.HasConflicts)
	assert.ElementsMatch(t, []string{"10101", "61001"}, report.ConflictingCRNs)

	out, err = run(t, "conflicts")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.HasConflicts)
	assert.Empty(t, report.ConflictingCRNs)

	_, err = run(t, "conflicts", "99999")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")

	t.Setenv("JWT_SECRET", "")
	_, err := run(t, "token", "--config", missing, "--user", "42")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "cli-secret")
	_, err = run(t, "token", "--config", missing, "--user", "42", "--role", "dean")
	assert.Error(t, err)

	out, err := run(t, "token", "--config", missing, "--user", "42", "--role", auth.RoleAdmin, "--ttl", "5m")
	require.NoError(t, err)
	var tok struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tok))

	claims, err := auth.NewJWTService(auth.JWTConfig{SecretKey: "cli-secret", AccessTokenExp: time.Minute}).ValidateToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestIngestCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "fall.txt")
	require.NoError(t, os.WriteFile(good, []byte("CS101 A 3\nCS102 B 3\n"), 0o600))
	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte("   \n"), 0o600))

	out, err := run(t, "ingest", good, blank,
		"--db", filepath.Join(dir, "records.db"),
		"--store-dir", filepath.Join(dir, "store"),
		"--user", "student-9",
		"--workers", "2",
	)
	require.Error(t, err, "the blank document fails")

	var results []struct {
		File   string `json:"file"`
		Record *struct {
			Status    string `json:"status"`
			LineCount int    `json:"lineCount"`
		} `json:"record"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	assert.Equal(t, good, results[0].File)
	require.NotNil(t, results[0].Record)
	assert.Equal(t, "processed", results[0].Record.Status)
	assert.Equal(t, 2, results[0].Record.LineCount)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, blank, results[1].File)
	require.NotNil(t, results[1].Record)
	assert.Equal(t, "error", results[1].Record.Status)
	assert.NotEmpty(t, results[1].Error)
}
