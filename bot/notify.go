package bot

import (
	"fmt"

	"github.com/emem1357/RED-PACET-SHARE/entity"
)

// Notify is the engines' notification sink. Delivery is best-effort:
// plainResponse logs transport failures and swallows them, so a dead chat
// never blocks a penalty transition or a distribution pass.
func (t *TgBot) Notify(memberId int64, kind entity.NotifyKind, params map[string]string) {
	var msg string
	switch kind {
	case entity.NotifyAssigned:
		msg = fmt.Sprintf("New code for you today: `%s`\nMark it with /used after redeeming\\.", Sanitize(params["code"]))
	case entity.NotifyCarried:
		msg = "You did not use yesterday's code — it has been moved to today\\. Please redeem it\\."
	case entity.NotifyWarned:
		msg = "Warning: you missed a code yesterday\\. Repeated misses suspend your own codes\\."
	case entity.NotifySuspended:
		msg = fmt.Sprintf("Your codes have been suspended for %s days due to repeated misses\\.", Sanitize(params["days"]))
	case entity.NotifyReactivate:
		msg = "Your codes are active again\\."
	case entity.NotifyDeleted:
		msg = "Your account has been removed after repeated non\\-compliance\\."
	default:
		msg = "Update on your account\\."
	}
	t.plainResponse(memberId, msg)
}
