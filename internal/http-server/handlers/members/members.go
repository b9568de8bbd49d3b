package members

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/emem1357/RED-PACET-SHARE/lib/api/cont"
	"github.com/emem1357/RED-PACET-SHARE/lib/api/response"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

type Core interface {
	PurgeMember(memberId int64) error
}

// Purge removes a member and every row referencing them. Admin-only and
// irreversible, same cascade the penalty machine uses at the terminal stage.
func Purge(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := cont.GetOperator(r.Context())
		logger := log.With(
			sl.Module("http.handlers.members"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("operator", op.Username),
		)

		memberId, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid member id"))
			return
		}

		if err = handler.PurgeMember(memberId); err != nil {
			logger.Error("purge member", slog.Int64("member", memberId), sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Purge failed"))
			return
		}
		logger.Info("member purged", slog.Int64("member", memberId))
		render.JSON(w, r, response.Ok(nil))
	}
}
