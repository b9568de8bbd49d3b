// Package bot is the member-facing Telegram transport: a thin command
// surface over impl/core plus the notification sink the engines write to.
// Nothing here holds engine state; every command round-trips the ledgers.
package bot

import (
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

// Core defines the service operations the bot depends on.
// Implemented by impl/core.
type Core interface {
	RegisterMember(telegramId int64, groupId, displayName string) (*entity.Member, error)
	UploadCodes(ownerId int64, values []string) ([]*entity.Code, error)
	MarkUsed(viewerId int64, assignmentId string) error
	Confirm(ownerId int64, assignmentId string) error
	MarkPaused(viewerId int64, assignmentId string) error
	Confirmations(ownerId int64) ([]*entity.Assignment, error)
	MemberStatus(memberId int64, now time.Time) (*entity.MemberStatus, error)
}

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	core    Core
	updater *ext.Updater
}

func NewTgBot(apiKey string, core Core, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:  log.With(sl.Module("tgbot")),
		core: core,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("upload", t.upload))
	dispatcher.AddHandler(handlers.NewCommand("used", t.used))
	dispatcher.AddHandler(handlers.NewCommand("confirm", t.confirm))
	dispatcher.AddHandler(handlers.NewCommand("skip", t.skip))
	dispatcher.AddHandler(handlers.NewCommand("status", t.status))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}
