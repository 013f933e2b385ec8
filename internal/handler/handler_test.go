package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codesnap-api/internal/config"
	"github.com/noah-isme/codesnap-api/internal/database"
	"github.com/noah-isme/codesnap-api/internal/handler"
	"github.com/noah-isme/codesnap-api/internal/models"
	"github.com/noah-isme/codesnap-api/internal/repository"
	"github.com/noah-isme/codesnap-api/internal/router"
	"github.com/noah-isme/codesnap-api/internal/service"
	"github.com/noah-isme/codesnap-api/pkg/ai"
	"github.com/noah-isme/codesnap-api/pkg/grader"
	"github.com/noah-isme/codesnap-api/pkg/sandbox"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeGrader struct {
	mu     sync.Mutex
	result grader.Result
	calls  []grader.Submission
}

func (g *fakeGrader) Grade(ctx context.Context, sub grader.Submission) (grader.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, sub)
	return g.result, nil
}

type fakeRunner struct {
	result sandbox.Result
	err    error
}

func (r *fakeRunner) Run(ctx context.Context, cmd sandbox.Command) (sandbox.Result, error) {
	return r.result, r.err
}

type fakeAssistant struct {
	hint  string
	rival string
}

func (a *fakeAssistant) Hint(ctx context.Context, input ai.HintInput) (string, error) {
	return a.hint + " for " + input.ExerciseName, nil
}

func (a *fakeAssistant) Rival(ctx context.Context, input ai.RivalInput) (string, error) {
	return a.rival, nil
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	grader *fakeGrader
	runner *fakeRunner
}

type envOptions struct {
	assistant  ai.Assistant
	rateLimit  int
	skipLimits bool
}

// fakeAuth stands in for JWT validation; identity comes from test headers.
func fakeAuth(c *fiber.Ctx) error {
	raw := c.Get("X-Test-User")
	if raw == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "authorization header missing"})
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	c.Locals("user_id", uint(id))
	if role := c.Get("X-Test-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func setupEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.Nop()
	validate := validator.New()

	workspace, err := sandbox.NewWorkspace(t.TempDir(), logger)
	require.NoError(t, err)

	fg := &fakeGrader{result: grader.Result{
		TestPassRate: 1,
		StyleScore:   8.5,
		Stars:        3,
		Feedback:     "Your code has been rated at 8.50/10",
		TestsPassed:  2,
		TestsTotal:   2,
		Tests:        []grader.TestOutcome{{Index: 1, Status: "PASSED"}, {Index: 2, Status: "PASSED"}},
	}}
	fr := &fakeRunner{result: sandbox.Result{Stdout: "hello\n"}}

	exercises := service.NewExerciseService(repository.NewExerciseRepository(db), nil, time.Minute, validate, logger)
	feed := service.NewAttemptFeed(nil, "", logger)
	attempts := service.NewAttemptService(repository.NewAttemptRepository(db), exercises, fg, feed, validate, logger)
	execution := service.NewCodeExecutionService(workspace, fr, grader.DefaultToolchain(), 5*time.Second, validate, logger)

	assistantSvc := service.NewAssistantService(exercises, opts.assistant, validate, logger)

	cfg := config.Config{AppName: "CodeSnap API", AppEnv: "test", RateLimitMax: opts.rateLimit, RateLimitWindow: time.Minute}
	if cfg.RateLimitMax == 0 {
		cfg.RateLimitMax = 100
	}

	deps := router.Dependencies{
		HealthHandler:    handler.NewHealthHandler(cfg, db, nil, nil),
		ExerciseHandler:  handler.NewExerciseHandler(exercises, logger),
		AttemptHandler:   handler.NewAttemptHandler(attempts, validate, logger),
		ExecutionHandler: handler.NewExecutionHandler(execution, validate, logger),
		AssistantHandler: handler.NewAssistantHandler(assistantSvc, validate, logger),
		FeedHandler:      handler.NewFeedHandler(feed, logger),
		JWTMiddleware:    fakeAuth,
	}
	if opts.skipLimits {
		deps.RateLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	app := fiber.New()
	router.Register(app, cfg, deps)

	return &testEnv{app: app, db: db, grader: fg, runner: fr}
}

func (e *testEnv) seedExercise(t *testing.T) models.Exercise {
	t.Helper()
	exercise := models.Exercise{
		Name:              "Add",
		Description:       "Add two numbers",
		Difficulty:        1,
		StarterCode:       "def add(a, b):\n    pass\n",
		Language:          "python",
		FunctionName:      "add",
		TestCases:         datatypes.JSON(`[{"args": [1, 2], "expected": 3}, {"args": [2, 2], "expected": 4}]`),
		ReferenceSolution: "def add(a, b):\n    return a + b\n",
	}
	require.NoError(t, e.db.Create(&exercise).Error)
	return exercise
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, user string, role string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	decodeResponse(t, resp, &env)
	return resp, env
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	if len(body) == 0 {
		return
	}
	require.NoError(t, json.Unmarshal(body, target))
}
