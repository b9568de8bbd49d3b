package entity

// EngineStatus is the admin API snapshot of the running service.
type EngineStatus struct {
	Env         string  `json:"env"`
	Groups      int     `json:"groups"`
	Members     int64   `json:"members"`
	UptimeHours float64 `json:"uptime_hours"`
}

// MemberStatus is what a member sees from /status: their pending views for
// today, their own upload progress and their penalty standing.
type MemberStatus struct {
	Member      *Member       `json:"member"`
	Today       []*Assignment `json:"today"`
	OwnedCodes  int           `json:"owned_codes"`
	Suspended   int           `json:"suspended_codes"`
	MissStreak  int           `json:"miss_streak"`
	IsSuspended bool          `json:"is_suspended"`
}
