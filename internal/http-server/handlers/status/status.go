package status

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/lib/api/response"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

type Core interface {
	EngineStatus() (*entity.EngineStatus, error)
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.status"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		st, err := handler.EngineStatus()
		if err != nil {
			logger.Error("engine status", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Failed to read status"))
			return
		}
		render.JSON(w, r, response.Ok(st))
	}
}
