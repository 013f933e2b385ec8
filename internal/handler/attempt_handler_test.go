package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/internal/models"
	"github.com/noah-isme/codesnap-api/pkg/grader"
)

func TestSubmitAttemptGradesAndPersists(t *testing.T) {
	env := setupEnv(t, envOptions{skipLimits: true})
	exercise := env.seedExercise(t)

	code := "def add(a, b):\n    return a + b\n"
	resp, body := env.do(t, http.MethodPost, "/api/v1/attempts", map[string]interface{}{
		"exercise_id": exercise.ID,
		"code":        code,
	}, "7", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	var graded dto.AttemptResponse
	require.NoError(t, json.Unmarshal(body.Data, &graded))
	require.Equal(t, 3, graded.Stars)
	require.Equal(t, 2, graded.TestsPassed)
	require.InDelta(t, 8.5, graded.StyleScore, 0.001)
	require.Len(t, graded.Tests, 2)

	require.Len(t, env.grader.calls, 1)
	require.Equal(t, grader.Python, env.grader.calls[0].Language)
	require.Equal(t, "add", env.grader.calls[0].FunctionName)
	require.Equal(t, code, env.grader.calls[0].Code)
	require.Len(t, env.grader.calls[0].TestCases, 2)

	var stored models.Attempt
	require.NoError(t, env.db.First(&stored, graded.AttemptID).Error)
	require.Equal(t, uint(7), stored.UserID)
	require.True(t, stored.Graded)
	require.Equal(t, 3, stored.Stars)
}

func TestSubmitAttemptValidation(t *testing.T) {
	env := setupEnv(t, envOptions{skipLimits: true})
	env.seedExercise(t)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/attempts", map[string]interface{}{"exercise_id": 1, "code": "x"}, "", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/attempts", map[string]interface{}{"exercise_id": 1}, "7", "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/attempts", map[string]interface{}{"exercise_id": 404, "code": "x"}, "7", "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	require.Empty(t, env.grader.calls)
}

func TestSubmitAttemptRejectsUngradableExercise(t *testing.T) {
	env := setupEnv(t, envOptions{skipLimits: true})
	broken := models.Exercise{
		Name:         "Broken",
		Description:  "Stored with a bad function name",
		Difficulty:   1,
		StarterCode:  "x = 1",
		Language:     "python",
		FunctionName: "print('x')",
		TestCases:    datatypes.JSON(`[]`),
	}
	require.NoError(t, env.db.Create(&broken).Error)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/attempts", map[string]interface{}{"exercise_id": broken.ID, "code": "x"}, "7", "")
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var count int64
	require.NoError(t, env.db.Model(&models.Attempt{}).Count(&count).Error)
	require.Zero(t, count)
	require.Empty(t, env.grader.calls)
}

func TestAttemptHistoryAndOwnership(t *testing.T) {
	env := setupEnv(t, envOptions{skipLimits: true})
	exercise := env.seedExercise(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/attempts", map[string]interface{}{
		"exercise_id": exercise.ID,
		"code":        "def add(a, b):\n    return a + b\n",
	}, "7", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var graded dto.AttemptResponse
	require.NoError(t, json.Unmarshal(body.Data, &graded))
	path := fmt.Sprintf("/api/v1/attempts/%d", graded.AttemptID)

	resp, body = env.do(t, http.MethodGet, path, nil, "7", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var own dto.AttemptDetailResponse
	require.NoError(t, json.Unmarshal(body.Data, &own))
	require.NotEmpty(t, own.CodeSubmitted)
	require.Equal(t, "Add", own.ExerciseName)

	resp, body = env.do(t, http.MethodGet, path, nil, "8", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var other dto.AttemptDetailResponse
	require.NoError(t, json.Unmarshal(body.Data, &other))
	require.Empty(t, other.CodeSubmitted)
	require.Empty(t, other.Feedback)
	require.Equal(t, 3, other.Stars)

	resp, body = env.do(t, http.MethodGet, "/api/v1/attempts/me", nil, "7", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var mine []dto.AttemptDetailResponse
	require.NoError(t, json.Unmarshal(body.Data, &mine))
	require.Len(t, mine, 1)

	resp, body = env.do(t, http.MethodGet, "/api/v1/attempts/me", nil, "8", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var none []dto.AttemptDetailResponse
	require.NoError(t, json.Unmarshal(body.Data, &none))
	require.Empty(t, none)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/attempts/999", nil, "7", "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmitAttemptIsRateLimited(t *testing.T) {
	env := setupEnv(t, envOptions{rateLimit: 1})
	exercise := env.seedExercise(t)
	payload := map[string]interface{}{"exercise_id": exercise.ID, "code": "def add(a, b):\n    return a + b\n"}

	resp, _ := env.do(t, http.MethodPost, "/api/v1/attempts", payload, "7", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/attempts", payload, "7", "")
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/attempts/me", nil, "7", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
