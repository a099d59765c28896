package httpapi

import (
	"context"

	"github.com/kataras/iris/v12"

	"github.com/Freeeeeet/mentorship_api/internal/model"
)

type sendFunc func(ctx context.Context, sessionID, senderID, payload string) (*model.ChatMessage, error)

func (s *Server) sendMessage(ctx iris.Context) {
	s.send(ctx, s.chat.SendMessage)
}

func (s *Server) sendAudio(ctx iris.Context) {
	s.send(ctx, s.chat.SendAudio)
}

// send неизвестная сессия отдаёт 403, как и сессия не в in_progress
func (s *Server) send(ctx iris.Context, fn sendFunc) {
	var in chatInput
	if !readInput(ctx, &in) {
		return
	}

	msg, err := fn(ctx.Request().Context(), in.SessaoID, in.RemetenteID, in.Mensagem)
	if err != nil {
		s.writeError(ctx, err, iris.StatusForbidden)
		return
	}

	ctx.JSON(iris.Map{"success": true, "mensagem": msg})
}

func (s *Server) listMessages(ctx iris.Context) {
	messages, err := s.chat.ListMessages(ctx.Request().Context(), ctx.Params().Get("sessaoId"))
	if err != nil {
		s.writeError(ctx, err, iris.StatusForbidden)
		return
	}
	if messages == nil {
		messages = []*model.ChatMessage{}
	}

	ctx.JSON(messages)
}
