package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appauth "github.com/yigit/enrollplan/internal/app/auth"
	"github.com/yigit/enrollplan/internal/app/controllers"
	"github.com/yigit/enrollplan/internal/app/migrations"
	"github.com/yigit/enrollplan/internal/app/repositories"
	"github.com/yigit/enrollplan/internal/app/services"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/db"
	"github.com/yigit/enrollplan/internal/middleware"
	"github.com/yigit/enrollplan/internal/pkg/auth"
	"github.com/yigit/enrollplan/internal/pkg/filestorage"
	"github.com/yigit/enrollplan/internal/seed"
	"github.com/yigit/enrollplan/internal/transcript"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiHarness struct {
	router *gin.Engine
	jwt    *auth.JWTService
}

func newHarness(t *testing.T, provider *catalog.Provider) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	dir := t.TempDir()
	sqlDB, err := db.OpenSQLite(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrations.MigrateSQLite(ctx, sqlDB, zerolog.Nop()))
	records := repositories.NewSQLTranscriptRepository(sqlDB)

	docs, err := filestorage.NewLocalStorage(dir, "uploads")
	require.NoError(t, err)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "enrollplan.test",
	})
	authz := appauth.NewAuthorizationService(records)
	pipeline := transcript.NewPipeline(docs, records, transcript.NewExtractors(0), transcript.Options{}, zerolog.Nop())

	catalogService := services.NewCatalogService(provider, zerolog.Nop())
	planningService := services.NewPlanningService(provider, authz, 0, zerolog.Nop())
	transcriptService := services.NewTranscriptService(pipeline, docs, records, provider, authz, 1, zerolog.Nop())

	router := gin.New()
	SetupRouter(
		router,
		controllers.NewCatalogController(catalogService, planningService, zerolog.Nop()),
		controllers.NewScheduleController(planningService, zerolog.Nop()),
		controllers.NewTranscriptController(transcriptService, planningService, 1<<20, zerolog.Nop()),
		middleware.NewAuthMiddleware(jwtService),
		middleware.NewUserRateLimiter(1, 2),
	)
	return &apiHarness{router: router, jwt: jwtService}
}

func demoProvider(t *testing.T) *catalog.Provider {
	t.Helper()
	snap, err := catalog.NewSnapshot(seed.DemoCatalog())
	require.NoError(t, err)
	return catalog.NewStaticProvider(snap)
}

func (h *apiHarness) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, _, err := h.jwt.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func (h *apiHarness) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcripts", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCatalogRoutes(t *testing.T) {
	h := newHarness(t, demoProvider(t))

	t.Run("course detail", func(t *testing.T) {
		w, env := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/courses/cs301", nil), "")
		require.Equal(t, http.StatusOK, w.Code)
		var course struct {
			Code             string `json:"code"`
			PrerequisiteText string `json:"prerequisiteText"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &course))
		assert.Equal(t, "CS301", course.Code)
		assert.Equal(t, "CS201 and (MATH201 or MATH210)", course.PrerequisiteText)
	})

	t.Run("unknown course", func(t *testing.T) {
		w, env := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/courses/CS999", nil), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "RES_001", env.Error.Code)
	})

	t.Run("search", func(t *testing.T) {
		w, _ := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/courses?q=calculus&page=1&size=10", nil), "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid day", func(t *testing.T) {
		w, _ := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/courses?day=someday", nil), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid max depth", func(t *testing.T) {
		w, _ := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/courses/CS450/prerequisites?maxDepth=abc", nil), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("prerequisites", func(t *testing.T) {
		w, env := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/courses/CS450/prerequisites?maxDepth=1", nil), "")
		require.Equal(t, http.StatusOK, w.Code)
		var res struct {
			Required []string `json:"required"`
			Flags    struct {
				DepthLimited bool `json:"depthLimited"`
			} `json:"flags"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.ElementsMatch(t, []string{"CS301", "CS340"}, res.Required)
	})

	t.Run("health", func(t *testing.T) {
		w, _ := h.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestConflictRoute(t *testing.T) {
	h := newHarness(t, demoProvider(t))

	body := strings.NewReader(`{"crns":["20101","61001"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules/conflicts", body)
	req.Header.Set("Content-Type", "application/json")
	w, env := h.do(t, req, "")
	require.Equal(t, http.StatusOK, w.Code)
	var report struct {
		HasConflicts bool `json:"hasConflicts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.True(t, report.HasConflicts)

	for _, payload := range []string{`{"crns":[]}`, `{}`} {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/schedules/conflicts", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w, env = h.do(t, req, "")
		require.Equal(t, http.StatusOK, w.Code, payload)
		var empty struct {
			HasConflicts    bool              `json:"hasConflicts"`
			Conflicts       []json.RawMessage `json:"conflicts"`
			ConflictingCRNs []string          `json:"conflictingCrns"`
			Sections        []json.RawMessage `json:"sections"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &empty))
		assert.False(t, empty.HasConflicts)
		assert.NotNil(t, empty.Conflicts)
		assert.Empty(t, empty.Conflicts)
		assert.Empty(t, empty.ConflictingCRNs)
		assert.NotNil(t, empty.Sections)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/schedules/conflicts", strings.NewReader(`{"crns":[""]}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = h.do(t, req, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/schedules/conflicts", strings.NewReader(`{"crns":["99999"]}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = h.do(t, req, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTranscriptRoutes(t *testing.T) {
	h := newHarness(t, demoProvider(t))
	student := h.token(t, "student-1", auth.RoleStudent)
	other := h.token(t, "student-2", auth.RoleStudent)

	w, _ := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/transcripts", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/transcripts", nil), "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := h.do(t, uploadRequest(t, "transcript.txt", "CS101 A 3\nCS201 B 3\nMATH201 B+ 3\n"), student)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	require.NotEmpty(t, rec.ID)

	w, env = h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/transcripts/"+rec.ID+"/eligibility/CS301", nil), student)
	require.Equal(t, http.StatusOK, w.Code)
	var elig struct {
		Outcome string `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &elig))
	assert.Equal(t, "satisfied", elig.Outcome)

	w, _ = h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/transcripts/"+rec.ID, nil), other)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/transcripts/not-a-uuid", nil), student)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/transcripts", nil), student)
	require.Equal(t, http.StatusOK, w.Code)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)
}

func TestUploadRateLimit(t *testing.T) {
	h := newHarness(t, demoProvider(t))
	student := h.token(t, "student-1", auth.RoleStudent)

	for i := 0; i < 2; i++ {
		w, _ := h.do(t, uploadRequest(t, "t.txt", "CS101 A 3\n"), student)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, env := h.do(t, uploadRequest(t, "t.txt", "CS101 A 3\n"), student)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "LIM_001", env.Error.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// budgets are per user
	w, _ = h.do(t, uploadRequest(t, "t.txt", "CS101 A 3\n"), h.token(t, "student-2", auth.RoleStudent))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCatalogRefreshRequiresAdmin(t *testing.T) {
	h := newHarness(t, demoProvider(t))

	w, _ := h.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/refresh", nil), h.token(t, "student-1", auth.RoleStudent))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := h.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/refresh", nil), h.token(t, "registrar", auth.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Courses int `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Positive(t, res.Courses)
}

func TestEmptyCatalogIsUnavailable(t *testing.T) {
	h := newHarness(t, catalog.NewProvider(nil, nil, zerolog.Nop()))

	w, env := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/courses/CS101", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SRV_004", env.Error.Code)
}
