package groups

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/lib/api/cont"
	"github.com/emem1357/RED-PACET-SHARE/lib/api/response"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

type Core interface {
	Groups() ([]*entity.Group, error)
	GroupSettings(groupId string) (*entity.Group, error)
	UpdateGroupSettings(group *entity.Group) error
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.groups"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		groups, err := handler.Groups()
		if err != nil {
			logger.Error("list groups", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Failed to list groups"))
			return
		}
		render.JSON(w, r, response.Ok(groups))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.groups"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		groupId := chi.URLParam(r, "id")
		group, err := handler.GroupSettings(groupId)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				render.Status(r, 404)
				render.JSON(w, r, response.Error("Group not found"))
				return
			}
			logger.Error("get group", slog.String("group", groupId), sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Failed to load group"))
			return
		}
		render.JSON(w, r, response.Ok(group))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.groups"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var group entity.Group
		if err := render.Bind(r, &group); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		group.Id = chi.URLParam(r, "id")

		if err := handler.UpdateGroupSettings(&group); err != nil {
			logger.Error("update group", slog.String("group", group.Id), sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Update failed: %v", err)))
			return
		}
		op := cont.GetOperator(r.Context())
		logger.Debug("group settings updated",
			slog.String("group", group.Id),
			slog.String("operator", op.Username),
		)
		render.JSON(w, r, response.Ok(group))
	}
}
