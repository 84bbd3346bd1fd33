package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/openclass/exam-api/internal/dto"
	"github.com/openclass/exam-api/internal/handler"
	"github.com/openclass/exam-api/internal/service"
)

type mockGradingService struct {
	lastAttempt uint
	lastGrade   dto.GradeRequest
	pending     []dto.PendingAttemptResponse
	response    dto.GradeResponse
	err         error
}

func (m *mockGradingService) ListPending(_ context.Context) ([]dto.PendingAttemptResponse, error) {
	return m.pending, m.err
}

func (m *mockGradingService) Grade(_ context.Context, attemptID uint, payload dto.GradeRequest) (dto.GradeResponse, error) {
	m.lastAttempt = attemptID
	m.lastGrade = payload
	return m.response, m.err
}

func newGradingApp(svc service.GradingService) *fiber.App {
	app := fiber.New()
	handler.NewGradingHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/grading"))
	return app
}

func TestGradingHandler_ListPending(t *testing.T) {
	svc := &mockGradingService{pending: []dto.PendingAttemptResponse{{AttemptID: 3, EssayCount: 2}}}
	app := newGradingApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/grading/pending", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data []dto.PendingAttemptResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Len(t, body.Data, 1)
	require.Equal(t, uint(3), body.Data[0].AttemptID)
}

func TestGradingHandler_Grade(t *testing.T) {
	score := 9.0
	svc := &mockGradingService{response: dto.GradeResponse{AttemptID: 3, Status: "graded", Score: &score}}
	app := newGradingApp(svc)

	payload := bytes.NewBufferString(`{"essay_points":{"q2":4},"feedback":"solid"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/grading/attempts/3", payload)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(3), svc.lastAttempt)
	require.Equal(t, 4.0, svc.lastGrade.EssayPoints["q2"])
	require.Equal(t, "solid", svc.lastGrade.Feedback)
}

func TestGradingHandler_GradeConflicts(t *testing.T) {
	app := newGradingApp(&mockGradingService{err: service.ErrAttemptNotGradable})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grading/attempts/3", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestGradingHandler_GradeNotFound(t *testing.T) {
	app := newGradingApp(&mockGradingService{err: service.ErrAttemptNotFound})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grading/attempts/999", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
