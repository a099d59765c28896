package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/Freeeeeet/mentorship_api/internal/service"
)

// JSONError тело ответа с ошибкой
func JSONError(ctx iris.Context, status int, code, message string) {
	ctx.StopWithJSON(status, iris.Map{"error": code, "message": message})
}

// writeError переводит ошибку сервиса в HTTP-ответ.
// notFound позволяет чату отвечать 403 вместо 404.
func (s *Server) writeError(ctx iris.Context, err error, notFound int) {
	switch {
	case errors.Is(err, service.ErrValidation):
		JSONError(ctx, iris.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrNotFound):
		JSONError(ctx, notFound, "not_found", "session not found")
	case errors.Is(err, service.ErrAccessDenied):
		JSONError(ctx, iris.StatusForbidden, "access_denied", err.Error())
	case errors.Is(err, service.ErrTooLateToCancel):
		JSONError(ctx, iris.StatusConflict, "too_late_to_cancel", err.Error())
	case errors.Is(err, service.ErrAlreadyEvaluated):
		JSONError(ctx, iris.StatusConflict, "already_evaluated", err.Error())
	case errors.Is(err, service.ErrTerminal), errors.Is(err, service.ErrInvalidTransition):
		JSONError(ctx, iris.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, service.ErrVersionConflict):
		JSONError(ctx, iris.StatusConflict, "version_conflict", err.Error())
	default:
		s.logger.Error("Request failed",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Error(err))
		JSONError(ctx, iris.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// readInput читает JSON и прогоняет его через app.Validator
func readInput(ctx iris.Context, out interface{}) bool {
	err := ctx.ReadJSON(out)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		JSONError(ctx, iris.StatusBadRequest, "validation_error", "invalid fields: "+strings.Join(fields, ", "))
		return false
	}

	JSONError(ctx, iris.StatusBadRequest, "invalid_body", "malformed JSON body")
	return false
}

// readOptional как readInput, но пустое тело допустимо
func readOptional(ctx iris.Context, out interface{}) bool {
	if ctx.Request().ContentLength == 0 {
		return true
	}
	return readInput(ctx, out)
}
