package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresthedesigner/videodaddychat/internal/common"
)

// usageColumns returns the count and reset columns of the users table for
// the regular and pro kinds.
func usageColumns(kind UsageKind) (count, reset string) {
	if kind == UsagePro {
		return "daily_pro_message_count", "daily_pro_reset"
	}
	return "daily_message_count", "daily_reset"
}

// GetUsage returns the stored counter for key. A user that does not exist is
// common.ErrorNotFound; an anonymous id never seen before is a zero record.
func (s *sqlStore) GetUsage(ctx context.Context, key UsageKey) (UsageRecord, error) {
	var rec UsageRecord
	if key.Kind == UsageAnonymous {
		err := s.get(ctx, s.db, &rec,
			"SELECT daily_count, daily_reset FROM anonymous_usage WHERE anonymous_id = ?", key.ID)
		if errors.Is(err, common.ErrorNotFound) {
			return UsageRecord{}, nil
		}
		if err != nil {
			return UsageRecord{}, fmt.Errorf("failed to get anonymous usage: %w", err)
		}
		return rec, nil
	}

	count, reset := usageColumns(key.Kind)
	query := fmt.Sprintf("SELECT %s AS daily_count, %s AS daily_reset FROM users WHERE id = ?", count, reset)
	if err := s.get(ctx, s.db, &rec, query, key.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return UsageRecord{}, err
		}
		return UsageRecord{}, fmt.Errorf("failed to get usage: %w", err)
	}
	return rec, nil
}

// IncrementUsage adds one to the counter, first resetting it when its reset
// marker is older than dayStart.
func (s *sqlStore) IncrementUsage(ctx context.Context, key UsageKey, dayStart int64) error {
	if key.Kind == UsageAnonymous {
		if _, err := s.exec(ctx, s.db, anonymousUpsert(false), key.ID, dayStart, dayStart, dayStart, dayStart); err != nil {
			return fmt.Errorf("failed to increment anonymous usage: %w", err)
		}
		return nil
	}
	if err := s.execOne(ctx, s.db, userUsageUpdate(key.Kind, false), dayStart, dayStart, dayStart, key.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// ConsumeUsage increments the counter only if the post-reset count is below
// limit, in a single statement. It reports whether the message was admitted.
func (s *sqlStore) ConsumeUsage(ctx context.Context, key UsageKey, limit, dayStart int64) (bool, error) {
	if key.Kind == UsageAnonymous {
		n, err := s.exec(ctx, s.db, anonymousUpsert(true),
			key.ID, dayStart, dayStart, dayStart, dayStart, dayStart, limit)
		if err != nil {
			return false, fmt.Errorf("failed to consume anonymous usage: %w", err)
		}
		// A first-ever insert always lands; the limit is never zero here.
		return n > 0, nil
	}

	n, err := s.exec(ctx, s.db, userUsageUpdate(key.Kind, true),
		dayStart, dayStart, dayStart, key.ID, dayStart, limit)
	if err != nil {
		return false, fmt.Errorf("failed to consume usage: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	// Zero rows means either an exhausted quota or a missing user.
	if _, err := s.GetUserByID(ctx, key.ID); err != nil {
		return false, err
	}
	return false, nil
}

func userUsageUpdate(kind UsageKind, guarded bool) string {
	count, reset := usageColumns(kind)
	query := fmt.Sprintf(`UPDATE users SET
		%[1]s = CASE WHEN %[2]s < ? THEN 1 ELSE %[1]s + 1 END,
		%[2]s = CASE WHEN %[2]s < ? THEN ? ELSE %[2]s END
		WHERE id = ?`, count, reset)
	if guarded {
		query += fmt.Sprintf(" AND (%[2]s < ? OR %[1]s < ?)", count, reset)
	}
	return query
}

func anonymousUpsert(guarded bool) string {
	query := `INSERT INTO anonymous_usage (anonymous_id, daily_count, daily_reset) VALUES (?, 1, ?)
		ON CONFLICT (anonymous_id) DO UPDATE SET
		daily_count = CASE WHEN anonymous_usage.daily_reset < ? THEN 1 ELSE anonymous_usage.daily_count + 1 END,
		daily_reset = CASE WHEN anonymous_usage.daily_reset < ? THEN ? ELSE anonymous_usage.daily_reset END`
	if guarded {
		query += " WHERE anonymous_usage.daily_reset < ? OR anonymous_usage.daily_count < ?"
	}
	return query
}
