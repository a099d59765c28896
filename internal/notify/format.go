package notify

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/mentorship_api/internal/model"
)

// StatusDisplay представляет отображение статуса сессии
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetStatusDisplay возвращает emoji и текст для статуса сессии
func GetStatusDisplay(status model.SessionStatus) StatusDisplay {
	displays := map[model.SessionStatus]StatusDisplay{
		model.SessionStatusPending:    {"⏳", "Aguardando mentor"},
		model.SessionStatusAccepted:   {"✅", "Aceita"},
		model.SessionStatusRejected:   {"🚫", "Recusada"},
		model.SessionStatusCancelled:  {"❌", "Cancelada"},
		model.SessionStatusInProgress: {"🟢", "Em andamento"},
		model.SessionStatusExpired:    {"⌛", "Expirada"},
		model.SessionStatusFinished:   {"✔️", "Concluída"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Desconhecido"}
}

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// FormatTimeRange форматирует окно сессии
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}
