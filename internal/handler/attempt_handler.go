package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/openclass/exam-api/internal/dto"
	"github.com/openclass/exam-api/internal/exam"
	"github.com/openclass/exam-api/internal/middleware"
	"github.com/openclass/exam-api/internal/service"
	"github.com/openclass/exam-api/internal/utils"
)

// AttemptHandler wires the student-facing attempt routes: entry, answering,
// submission, results, review and the live countdown websocket.
type AttemptHandler struct {
	runner service.RunnerService
	logger zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(runner service.RunnerService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		runner: runner,
		logger: logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register attaches attempt endpoints to the router group.
func (h *AttemptHandler) Register(router fiber.Router) {
	router.Post("/:examID/enter", h.enter)
	router.Put("/:examID/answers", h.setAnswer)
	router.Put("/:examID/items/move", h.moveItem)
	router.Get("/:examID/unanswered", h.unanswered)
	router.Post("/:examID/submit", h.submit)
	router.Get("/:examID/result", h.result)
	router.Get("/:examID/review", h.review)

	router.Use("/:examID/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:examID/ws", websocket.New(h.countdown))
}

func (h *AttemptHandler) enter(c *fiber.Ctx) error {
	examID, studentID, err := h.identify(c)
	if err != nil {
		return err
	}

	// The view may arrive in the body or as a query parameter.
	var payload dto.EnterRequest
	_ = c.BodyParser(&payload)
	if payload.View == "" {
		payload.View = c.Query("view")
	}

	response, err := h.runner.Enter(c.Context(), examID, studentID, exam.ViewMode(payload.View))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "entry evaluated", response)
}

func (h *AttemptHandler) setAnswer(c *fiber.Ctx) error {
	examID, studentID, err := h.identify(c)
	if err != nil {
		return err
	}

	var payload dto.AnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.runner.SetAnswer(c.Context(), examID, studentID, payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer recorded", fiber.Map{"question_id": payload.QuestionID})
}

func (h *AttemptHandler) moveItem(c *fiber.Ctx) error {
	examID, studentID, err := h.identify(c)
	if err != nil {
		return err
	}

	var payload dto.MoveItemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.runner.MoveItem(c.Context(), examID, studentID, payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "item moved", fiber.Map{"question_id": payload.QuestionID})
}

func (h *AttemptHandler) unanswered(c *fiber.Ctx) error {
	examID, studentID, err := h.identify(c)
	if err != nil {
		return err
	}

	response, err := h.runner.Unanswered(c.Context(), examID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "unanswered questions retrieved", response)
}

func (h *AttemptHandler) submit(c *fiber.Ctx) error {
	examID, studentID, err := h.identify(c)
	if err != nil {
		return err
	}

	result, err := h.runner.Submit(c.Context(), examID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempt submitted", result)
}

func (h *AttemptHandler) result(c *fiber.Ctx) error {
	examID, studentID, err := h.identify(c)
	if err != nil {
		return err
	}

	result, err := h.runner.Result(c.Context(), examID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "result retrieved", result)
}

func (h *AttemptHandler) review(c *fiber.Ctx) error {
	examID, studentID, err := h.identify(c)
	if err != nil {
		return err
	}

	review, err := h.runner.Review(c.Context(), examID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review retrieved", review)
}

// countdown streams one JSON frame per tick until the attempt reaches a
// terminal phase or the client disconnects.
func (h *AttemptHandler) countdown(conn *websocket.Conn) {
	defer conn.Close()

	examID, ok := websocketUintParam(conn, "examID")
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid exam id"))
		return
	}

	studentID, ok := websocketStudentID(conn)
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "student id missing"))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reads only serve to detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticks, stop, err := h.runner.Watch(ctx, examID, studentID)
	if err != nil {
		_ = conn.WriteJSON(fiber.Map{"error": "exam not found"})
		return
	}
	defer stop()

	h.logger.Info().Uint("exam_id", examID).Uint("student_id", studentID).Msg("countdown stream opened")

	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			if err := conn.WriteJSON(tick); err != nil {
				return
			}
		}
	}
}

func (h *AttemptHandler) identify(c *fiber.Ctx) (uint, uint, error) {
	examID, err := parseUintParam(c, "examID")
	if err != nil {
		return 0, 0, utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID, ok := middleware.StudentID(c)
	if !ok {
		return 0, 0, utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	return examID, studentID, nil
}

func (h *AttemptHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrResultNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "result not found")
	case errors.Is(err, service.ErrAttemptNotActive):
		return utils.SendError(c, fiber.StatusConflict, "no active attempt")
	case errors.Is(err, exam.ErrUnknownQuestion), errors.Is(err, exam.ErrUnknownItem):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
