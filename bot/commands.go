package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"github.com/emem1357/RED-PACET-SHARE/entity"
)

// start registers the member: /start <group-id> <display name>
func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 3 {
		t.plainResponse(chatId, "Usage: `/start GROUP\\-ID your name`")
		return nil
	}
	groupId := args[1]
	displayName := strings.Join(args[2:], " ")

	member, err := t.core.RegisterMember(chatId, groupId, displayName)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrGroupFull):
			t.plainResponse(chatId, "This group is full\\.")
		case errors.Is(err, entity.ErrNameTaken):
			t.plainResponse(chatId, "That name is already taken in this group\\.")
		case errors.Is(err, entity.ErrNotFound):
			t.plainResponse(chatId, "Unknown group\\.")
		default:
			t.reportError(chatId, "/start", err)
		}
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf(
		"Welcome, %s\\! You joined group `%s`\\. Upload your codes with /upload\\.",
		Sanitize(member.DisplayName), Sanitize(member.GroupId),
	))
	return nil
}

// upload takes one code value per line after the command and creates the
// owner's full cycle batch in one shot.
func (t *TgBot) upload(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	lines := strings.Split(ctx.EffectiveMessage.Text, "\n")
	values := make([]string, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if i == 0 {
			// first line is the command itself, possibly with the first code
			fields := strings.Fields(line)
			if len(fields) > 1 {
				values = append(values, fields[1:]...)
			}
			continue
		}
		if line != "" {
			values = append(values, line)
		}
	}

	codes, err := t.core.UploadCodes(chatId, values)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "You are not registered yet\\. Use /start first\\.")
			return nil
		}
		t.plainResponse(chatId, Sanitize(fmt.Sprintf("Upload rejected: %v", err)))
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf(
		"Uploaded %d codes, scheduled for days 1\\-%d of your cycle\\.",
		len(codes), len(codes),
	))
	return nil
}

// used marks one of today's assignments consumed: /used <position>
func (t *TgBot) used(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: `/used N` \\(position from /status\\)")
		return nil
	}

	status, err := t.core.MemberStatus(chatId, time.Now())
	if err != nil {
		t.reportError(chatId, "/used", err)
		return nil
	}
	assignment, err := pickByIndex(status.Today, args[1])
	if err != nil {
		t.plainResponse(chatId, "No such code in today's list\\. Check /status\\.")
		return nil
	}
	err = t.core.MarkUsed(chatId, assignment.Id)
	if err != nil {
		t.reportError(chatId, "/used", err)
		return nil
	}
	t.plainResponse(chatId, "Marked as used\\. Thank you\\!")
	return nil
}

// confirm acknowledges a usage claim on one of the owner's codes:
// /confirm <position>
func (t *TgBot) confirm(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	args := strings.Fields(ctx.EffectiveMessage.Text)

	pending, err := t.core.Confirmations(chatId)
	if err != nil {
		t.reportError(chatId, "/confirm", err)
		return nil
	}
	if len(pending) == 0 {
		t.plainResponse(chatId, "Nothing awaiting your confirmation\\.")
		return nil
	}
	if len(args) < 2 {
		var sb strings.Builder
		sb.WriteString("Awaiting confirmation:\n")
		for i, a := range pending {
			sb.WriteString(fmt.Sprintf("%d\\. viewer `%d`, day %d\n", i+1, a.ViewerId, a.DayNumber))
		}
		sb.WriteString("Confirm with `/confirm N`")
		t.plainResponse(chatId, sb.String())
		return nil
	}
	assignment, err := pickByIndex(pending, args[1])
	if err != nil {
		t.plainResponse(chatId, "No such entry\\. Run /confirm to see the list\\.")
		return nil
	}
	err = t.core.Confirm(chatId, assignment.Id)
	if err != nil {
		t.reportError(chatId, "/confirm", err)
		return nil
	}
	t.plainResponse(chatId, "Confirmed\\.")
	return nil
}

// skip lets a viewer opt out of one of today's assignments: /skip <position>
func (t *TgBot) skip(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: `/skip N` \\(position from /status\\)")
		return nil
	}

	status, err := t.core.MemberStatus(chatId, time.Now())
	if err != nil {
		t.reportError(chatId, "/skip", err)
		return nil
	}
	assignment, err := pickByIndex(status.Today, args[1])
	if err != nil {
		t.plainResponse(chatId, "No such code in today's list\\. Check /status\\.")
		return nil
	}
	err = t.core.MarkPaused(chatId, assignment.Id)
	if err != nil {
		t.reportError(chatId, "/skip", err)
		return nil
	}
	t.plainResponse(chatId, "Skipped\\. It will not count against you\\.")
	return nil
}

func (t *TgBot) status(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	status, err := t.core.MemberStatus(chatId, time.Now())
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "You are not registered yet\\. Use /start first\\.")
			return nil
		}
		t.reportError(chatId, "/status", err)
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s* in group `%s`\n", Sanitize(status.Member.DisplayName), Sanitize(status.Member.GroupId)))
	sb.WriteString(fmt.Sprintf("Codes uploaded: %d \\(%d suspended\\)\n", status.OwnedCodes, status.Suspended))
	if status.MissStreak > 0 {
		sb.WriteString(fmt.Sprintf("Miss streak: %d\n", status.MissStreak))
	}
	if len(status.Today) == 0 {
		sb.WriteString("No codes for you today\\.")
	} else {
		sb.WriteString("Today:\n")
		for i, a := range status.Today {
			mark := " "
			if a.Used {
				mark = "✓"
			}
			sb.WriteString(fmt.Sprintf("%d\\. %s day %d\n", i+1, mark, a.DayNumber))
		}
		sb.WriteString("Mark with `/used N`")
	}
	t.plainResponse(chatId, sb.String())
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	t.plainResponse(ctx.EffectiveUser.Id, "Commands:\n"+
		"/start GROUP\\-ID name — join a group\n"+
		"/upload — upload your cycle's codes, one per line\n"+
		"/status — your codes and today's list\n"+
		"/used N — mark a received code as used\n"+
		"/confirm — confirm usage of your own codes\n"+
		"/skip N — skip one of today's codes")
	return nil
}
