// Package quota 提供用户 Token 日配额能力
package quota

import (
	"context"
	"fmt"
	"time"

	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/pkg/logger"
)

// DailyQuotaExceededError 表示用户 Token 日配额已耗尽
type DailyQuotaExceededError struct {
	UserID string
	Max    int64
	Used   int64
}

func (e DailyQuotaExceededError) Error() string {
	return fmt.Sprintf("daily token quota exceeded: user=%s used=%d max=%d", e.UserID, e.Used, e.Max)
}

// Snapshot 配额快照
type Snapshot struct {
	DailyQuota int64     `json:"daily_quota"`
	UsedToday  int64     `json:"used_today"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// Tracker 按自然日统计用户 Token 用量并执行配额门禁。
// 统计窗口为本地时区的当日零点到次日零点。
type Tracker struct {
	usageRepo repository.UsageLogRepository
	userRepo  repository.UserRepository
	now       func() time.Time
}

// NewTracker 创建配额追踪器
func NewTracker(usageRepo repository.UsageLogRepository, userRepo repository.UserRepository) *Tracker {
	return &Tracker{
		usageRepo: usageRepo,
		userRepo:  userRepo,
		now:       time.Now,
	}
}

// dayStart 计算当前自然日的零点
func (t *Tracker) dayStart() time.Time {
	now := t.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// sameCalendarDay 判断两个时刻是否落在同一自然日
func sameCalendarDay(a, b time.Time) bool {
	y1, m1, d1 := a.In(b.Location()).Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// refreshResetAt 自然日翻转时刷新用户的配额重置时间。
// 该字段仅用于展示，持久化失败不阻断配额判定。
func (t *Tracker) refreshResetAt(ctx context.Context, user *entity.User) {
	now := t.now()
	if sameCalendarDay(user.QuotaResetAt, now) {
		return
	}
	user.QuotaResetAt = now
	if err := t.userRepo.Update(ctx, user); err != nil {
		logger.Warn(ctx, "failed to refresh quota reset time", "error", err, "user_id", user.ID)
	}
}

// GetSnapshot 获取用户当前配额快照
func (t *Tracker) GetSnapshot(ctx context.Context, user *entity.User) (*Snapshot, error) {
	t.refreshResetAt(ctx, user)

	used, err := t.usageRepo.SumTokensSince(ctx, user.ID, t.dayStart())
	if err != nil {
		return nil, err
	}

	remaining := user.DailyQuota - used
	if remaining < 0 {
		remaining = 0
	}

	return &Snapshot{
		DailyQuota: user.DailyQuota,
		UsedToday:  used,
		Remaining:  remaining,
		ResetAt:    user.QuotaResetAt,
	}, nil
}

// CheckDaily 检查用户是否还有当日配额。
// 门禁为提交前检查：已用量未达上限即放行，流式生成产生的
// 超出部分不回滚，只影响后续请求。
func (t *Tracker) CheckDaily(ctx context.Context, user *entity.User) (*Snapshot, error) {
	snapshot, err := t.GetSnapshot(ctx, user)
	if err != nil {
		return nil, err
	}

	if snapshot.UsedToday >= snapshot.DailyQuota {
		return snapshot, DailyQuotaExceededError{
			UserID: user.ID,
			Max:    snapshot.DailyQuota,
			Used:   snapshot.UsedToday,
		}
	}
	return snapshot, nil
}
