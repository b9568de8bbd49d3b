package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/emem1357/RED-PACET-SHARE/internal/config"
	"github.com/emem1357/RED-PACET-SHARE/internal/http-server/handlers/errors"
	"github.com/emem1357/RED-PACET-SHARE/internal/http-server/handlers/groups"
	"github.com/emem1357/RED-PACET-SHARE/internal/http-server/handlers/members"
	"github.com/emem1357/RED-PACET-SHARE/internal/http-server/handlers/status"
	"github.com/emem1357/RED-PACET-SHARE/internal/http-server/middleware/authenticate"
	"github.com/emem1357/RED-PACET-SHARE/internal/http-server/middleware/timeout"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	groups.Core
	members.Core
	status.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Route("/groups", func(gr chi.Router) {
			gr.Get("/", groups.List(log, handler))
			gr.Get("/{id}/settings", groups.Get(log, handler))
			gr.Put("/{id}/settings", groups.Update(log, handler))
		})
		rootApi.Delete("/members/{id}", members.Purge(log, handler))
		rootApi.Get("/status", status.Get(log, handler))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
