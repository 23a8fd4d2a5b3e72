package domain

// DailyStat is a precomputed per-operator aggregate written by an external
// metrics job. This service only reads it.
type DailyStat struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	UserID       uint   `gorm:"not null;index:idx_stats_user_date,priority:1" json:"user_id"`
	Date         string `gorm:"size:10;not null;index:idx_stats_user_date,priority:2" json:"date"`
	Replies      int    `gorm:"not null;default:0" json:"replies"`
	AvgReplySec  int    `gorm:"not null;default:0" json:"avg_reply_sec"`
	ReplyRatePct int    `gorm:"not null;default:0" json:"reply_rate_pct"`
}

func (DailyStat) TableName() string { return "operator_stats_daily" }
