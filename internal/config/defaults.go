package config

import "github.com/emem1357/RED-PACET-SHARE/entity"

// Apply fills unset group settings with the configured fallbacks. A missing
// or partial group row is resolved this way everywhere, never treated as an
// error.
func (d GroupDefaults) Apply(g *entity.Group) {
	if g.MaxMembers <= 0 {
		g.MaxMembers = d.MaxMembers
	}
	if g.DistributionDays <= 0 {
		g.DistributionDays = d.DistributionDays
	}
	if g.DailyViewLimit <= 0 {
		g.DailyViewLimit = d.DailyViewLimit
	}
	if g.SendTime == "" {
		g.SendTime = d.SendTime
	}
}
