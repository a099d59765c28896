package httpapi

import (
	"github.com/kataras/iris/v12"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/service"
)

func (s *Server) schedule(ctx iris.Context) {
	var in scheduleInput
	if !readInput(ctx, &in) {
		return
	}

	session, err := s.mentorship.Schedule(ctx.Request().Context(), service.ScheduleRequest{
		MenteeID: in.mentee(),
		MentorID: in.MentorID,
		Date:     in.Date,
		Time:     in.Horario,
		Category: in.Categoria,
		Plan:     in.Plano,
	})
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"message": "Mentoria agendada com sucesso", "id": session.ID})
}

func (s *Server) sweep(ctx iris.Context) {
	updated, err := s.mentorship.Sweep(ctx.Request().Context())
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(iris.Map{"message": "Sessões atualizadas", "atualizadas": updated})
}

func (s *Server) get(ctx iris.Context) {
	session, err := s.mentorship.Get(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(session)
}

func (s *Server) listAll(ctx iris.Context) {
	s.respondList(ctx, model.SessionFilter{})
}

func (s *Server) listFiltered(ctx iris.Context) {
	s.respondList(ctx, model.SessionFilter{
		Status:   model.SessionStatus(ctx.URLParam("status")),
		MentorID: ctx.URLParam("mentorId"),
		UserID:   ctx.URLParam("usuarioId"),
	})
}

func (s *Server) respondList(ctx iris.Context, filter model.SessionFilter) {
	sessions, err := s.mentorship.List(ctx.Request().Context(), filter)
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(sessions)
}

func (s *Server) listMine(ctx iris.Context) {
	sessions, err := s.mentorship.ListMine(ctx.Request().Context(), ctx.URLParam("usuarioId"))
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(sessions)
}

func (s *Server) accept(ctx iris.Context) {
	session, err := s.mentorship.Accept(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(iris.Map{"message": "Mentoria aceita", "status": session.Status})
}

func (s *Server) reject(ctx iris.Context) {
	var in reasonInput
	if !readOptional(ctx, &in) {
		return
	}

	session, err := s.mentorship.Reject(ctx.Request().Context(), ctx.Params().Get("id"), in.Motivo)
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(iris.Map{"message": "Mentoria rejeitada", "status": session.Status})
}

func (s *Server) cancel(ctx iris.Context) {
	var in reasonInput
	if !readOptional(ctx, &in) {
		return
	}

	session, err := s.mentorship.Cancel(ctx.Request().Context(), ctx.Params().Get("id"), in.UsuarioID, in.Motivo)
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(iris.Map{"message": "Mentoria cancelada", "status": session.Status})
}

func (s *Server) evaluate(ctx iris.Context) {
	var in evaluateInput
	if !readInput(ctx, &in) {
		return
	}

	session, err := s.mentorship.Evaluate(ctx.Request().Context(), service.EvaluateRequest{
		SessionID:   ctx.Params().Get("id"),
		Rating:      in.Nota,
		Comment:     in.Comentario,
		EvaluatorID: in.AvaliadorID,
	})
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(iris.Map{"message": "Avaliação registrada", "avaliacao": session.Evaluation})
}

func (s *Server) verify(ctx iris.Context) {
	var in verifyInput
	if !readInput(ctx, &in) {
		return
	}

	sessionID, err := s.chat.VerifySession(ctx.Request().Context(), in.UsuarioID, in.MentorID)
	if err != nil {
		s.writeError(ctx, err, iris.StatusNotFound)
		return
	}

	ctx.JSON(iris.Map{"sessaoId": sessionID})
}
