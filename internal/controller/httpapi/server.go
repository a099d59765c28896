// Package httpapi HTTP-интерфейс сессий менторства и чата на iris.
package httpapi

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/service"
)

// MentorshipAPI операции над сессиями, нужные маршрутам
type MentorshipAPI interface {
	Schedule(ctx context.Context, req service.ScheduleRequest) (*model.MentorshipSession, error)
	Get(ctx context.Context, id string) (*model.MentorshipSession, error)
	Sweep(ctx context.Context) (int, error)
	List(ctx context.Context, filter model.SessionFilter) ([]*model.MentorshipSession, error)
	ListMine(ctx context.Context, userID string) ([]*model.MentorshipSession, error)
	Accept(ctx context.Context, id string) (*model.MentorshipSession, error)
	Reject(ctx context.Context, id, reason string) (*model.MentorshipSession, error)
	Cancel(ctx context.Context, id, actorID, reason string) (*model.MentorshipSession, error)
	Evaluate(ctx context.Context, req service.EvaluateRequest) (*model.MentorshipSession, error)
}

// ChatAPI операции чата
type ChatAPI interface {
	SendMessage(ctx context.Context, sessionID, senderID, text string) (*model.ChatMessage, error)
	SendAudio(ctx context.Context, sessionID, senderID, audioRef string) (*model.ChatMessage, error)
	ListMessages(ctx context.Context, sessionID string) ([]*model.ChatMessage, error)
	VerifySession(ctx context.Context, menteeID, mentorID string) (string, error)
}

type Server struct {
	app        *iris.Application
	mentorship MentorshipAPI
	chat       ChatAPI
	logger     *zap.Logger
}

func NewServer(mentorship MentorshipAPI, chat ChatAPI, logger *zap.Logger) *Server {
	app := iris.New()
	app.Logger().SetLevel("disable")
	app.Validator = newValidator()

	s := &Server{
		app:        app,
		mentorship: mentorship,
		chat:       chat,
		logger:     logger,
	}
	s.routes()
	return s
}

// newValidator отдаёт в ошибках имена полей из json-тегов
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) routes() {
	s.app.AllowMethods(iris.MethodOptions)
	s.app.UseRouter(cors)
	s.app.Use(s.requestLogger)

	s.app.Get("/health", s.health)

	mentoria := s.app.Party("/mentoria")
	{
		mentoria.Post("/agendar", s.schedule)
		mentoria.Patch("/expirar-sessoes", s.sweep)
		mentoria.Get("/", s.listAll)
		mentoria.Get("/sessoes", s.listFiltered)
		mentoria.Get("/minhas-sessoes", s.listMine)
		mentoria.Post("/verificar", s.verify)
		mentoria.Get("/{id}", s.get)
		mentoria.Patch("/{id}/aceitar", s.accept)
		mentoria.Patch("/{id}/rejeitar", s.reject)
		mentoria.Patch("/{id}/cancelar", s.cancel)
		mentoria.Post("/{id}/avaliar", s.evaluate)
	}

	chat := s.app.Party("/chat")
	{
		chat.Post("/enviar", s.sendMessage)
		chat.Post("/enviar-audio", s.sendAudio)
		chat.Get("/mensagens/{sessaoId}", s.listMessages)
	}
}

func cors(ctx iris.Context) {
	ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
	ctx.Header("Vary", "Origin")
	ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
	ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
	if ctx.Method() == iris.MethodOptions {
		ctx.StatusCode(iris.StatusNoContent)
		return
	}
	ctx.Next()
}

func (s *Server) requestLogger(ctx iris.Context) {
	started := time.Now()
	ctx.Next()
	s.logger.Debug("HTTP request",
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.Path()),
		zap.Int("status", ctx.GetStatusCode()),
		zap.Duration("took", time.Since(started)))
}

func (s *Server) health(ctx iris.Context) {
	ctx.JSON(iris.Map{"status": "ok"})
}

// App нужен тестам и для встраивания
func (s *Server) App() *iris.Application {
	return s.app
}

// Listen блокирует до остановки сервера
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr, iris.WithoutServerError(iris.ErrServerClosed), iris.WithoutStartupLog)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}
