package progress

import "time"

type Streak struct {
	Current      int        `json:"current"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

// RecordActivity 同一天不变，隔天连续加一，中断则重置为 1
//
// 按 now 所在时区的日历日比较。
func RecordActivity(s Streak, now time.Time) Streak {
	at := now
	if s.LastActivity == nil || s.Current <= 0 {
		return Streak{Current: 1, LastActivity: &at}
	}

	days := calendarDays(s.LastActivity.In(now.Location()), now)
	switch {
	case days <= 0:
		return Streak{Current: s.Current, LastActivity: &at}
	case days == 1:
		return Streak{Current: s.Current + 1, LastActivity: &at}
	default:
		return Streak{Current: 1, LastActivity: &at}
	}
}

func calendarDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
