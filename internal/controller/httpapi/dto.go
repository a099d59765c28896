package httpapi

// scheduleInput тело POST /mentoria/agendar. menteeId может прийти как usuarioId.
type scheduleInput struct {
	MenteeID  string `json:"menteeId"`
	UsuarioID string `json:"usuarioId"`
	MentorID  string `json:"mentorId" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Horario   string `json:"horario" validate:"required"`
	Categoria string `json:"categoria" validate:"required"`
	Plano     string `json:"plano"`
}

func (in scheduleInput) mentee() string {
	if in.MenteeID != "" {
		return in.MenteeID
	}
	return in.UsuarioID
}

type reasonInput struct {
	Motivo    string `json:"motivo"`
	UsuarioID string `json:"usuarioId"`
}

type evaluateInput struct {
	Nota        int    `json:"nota" validate:"min=1,max=5"`
	Comentario  string `json:"comentario"`
	AvaliadorID string `json:"avaliadorId" validate:"required"`
}

type verifyInput struct {
	UsuarioID string `json:"usuarioId" validate:"required"`
	MentorID  string `json:"mentorId" validate:"required"`
}

type chatInput struct {
	SessaoID    string `json:"sessaoId" validate:"required"`
	RemetenteID string `json:"remetenteId" validate:"required"`
	Mensagem    string `json:"mensagem" validate:"required"`
}
