package main

import (
	"flag"
	"log/slog"
	"path/filepath"

	"github.com/emem1357/RED-PACET-SHARE/bot"
	"github.com/emem1357/RED-PACET-SHARE/impl/core"
	"github.com/emem1357/RED-PACET-SHARE/impl/distribution"
	"github.com/emem1357/RED-PACET-SHARE/impl/penalty"
	"github.com/emem1357/RED-PACET-SHARE/impl/scheduler"
	"github.com/emem1357/RED-PACET-SHARE/internal/config"
	"github.com/emem1357/RED-PACET-SHARE/internal/database"
	"github.com/emem1357/RED-PACET-SHARE/internal/http-server/api"
	"github.com/emem1357/RED-PACET-SHARE/lib/logger"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

const logFileName = "redpacket.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting red packet share", slog.String("config", *configPath), slog.String("env", conf.Env))

	db := database.NewMongoClient(conf)
	if db == nil {
		log.Error("mongo is disabled in config; the service cannot run without its ledgers")
		return
	}
	if err := db.EnsureIndexes(); err != nil {
		log.Error("ensuring indexes", sl.Err(err))
		return
	}

	service := core.New(db, conf, log)

	var tgBot *bot.TgBot
	var notifier distribution.Notifier
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, service, log)
		if err != nil {
			log.Error("creating telegram bot", sl.Err(err))
			return
		}
		notifier = tgBot
		go func() {
			if err = tgBot.Start(); err != nil {
				log.Error("telegram bot stopped", sl.Err(err))
			}
		}()
		defer tgBot.Stop()
	} else {
		log.Warn("telegram disabled; member notifications are dropped")
	}

	var penaltyNotifier penalty.Notifier
	if tgBot != nil {
		penaltyNotifier = tgBot
	}

	engine := distribution.New(db, notifier, conf.Defaults, log)
	machine := penalty.New(db, penaltyNotifier, conf.Penalty, log)

	driver := scheduler.New(db, engine, machine, conf, log)
	driver.Start()
	defer driver.Stop()

	if err := api.New(conf, log, service); err != nil {
		log.Error("api server stopped", sl.Err(err))
	}
}
