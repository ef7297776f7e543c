package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresthedesigner/videodaddychat/internal/catalog"
	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

const (
	msgAnonymousIDRequired = "Anonymous ID required for usage tracking"
	msgUserNotFound        = "User not found"
)

// UsageStatus is the side-effect free view of one daily quota.
type UsageStatus struct {
	CanSend   bool   `json:"canSend"`
	Remaining int64  `json:"remaining"`
	Limit     int64  `json:"limit"`
	Count     int64  `json:"count"`
	Error     string `json:"error,omitempty"`
}

// RateLimits summarises both quotas for the rate-limits endpoint.
type RateLimits struct {
	DailyCount    int64 `json:"dailyCount"`
	DailyProCount int64 `json:"dailyProCount"`
	DailyLimit    int64 `json:"dailyLimit"`
	Remaining     int64 `json:"remaining"`
	RemainingPro  int64 `json:"remainingPro"`
	Alert         bool  `json:"alert"`
}

// KeyChecker reports whether a user stored their own key for a provider.
type KeyChecker interface {
	HasKey(ctx context.Context, userID, provider string) (bool, error)
}

type UsageService struct {
	store   store.Store
	counter UsageCounter
	keys    KeyChecker
	log     logging.Logger
	now     func() time.Time
}

func NewUsageService(s store.Store, counter UsageCounter, keys KeyChecker, log logging.Logger) *UsageService {
	if counter == nil {
		counter = NewStoreCounter(s)
	}
	return &UsageService{store: s, counter: counter, keys: keys, log: log, now: time.Now}
}

// quota is a resolved counter with its limit. userID is empty for anonymous
// callers.
type quota struct {
	key    store.UsageKey
	limit  int64
	userID string
}

// statusError carries the message an unresolvable caller gets in its status.
type statusError struct {
	msg string
}

func (e *statusError) Error() string { return e.msg }

func (s *UsageService) resolve(ctx context.Context, c Caller, pro bool) (quota, error) {
	if !c.Authenticated() {
		if c.AnonymousID == "" {
			return quota{}, &statusError{msgAnonymousIDRequired}
		}
		q := quota{key: store.UsageKey{Kind: store.UsageAnonymous, ID: c.AnonymousID}, limit: common.NonAuthDailyMessageLimit}
		if pro {
			q.limit = 0
		}
		return q, nil
	}

	u, err := s.store.GetUserByExternalID(ctx, c.Identity.Subject)
	if errors.Is(err, common.ErrorNotFound) {
		return quota{}, &statusError{msgUserNotFound}
	}
	if err != nil {
		return quota{}, fmt.Errorf("failed to load user: %w", err)
	}

	if pro {
		return quota{key: store.UsageKey{Kind: store.UsagePro, ID: u.ID}, limit: common.DailyLimitProModels, userID: u.ID}, nil
	}
	limit := int64(common.AuthDailyMessageLimit)
	if u.Anonymous {
		limit = common.NonAuthDailyMessageLimit
	}
	return quota{key: store.UsageKey{Kind: store.UsageRegular, ID: u.ID}, limit: limit, userID: u.ID}, nil
}

func (s *UsageService) dayStart() int64 {
	return common.StartOfUTCDay(s.now()).UnixMilli()
}

// Check reports whether the caller may send one more message without
// recording anything.
func (s *UsageService) Check(ctx context.Context, c Caller, pro bool) (UsageStatus, error) {
	q, err := s.resolve(ctx, c, pro)
	var se *statusError
	if errors.As(err, &se) {
		return UsageStatus{Error: se.msg}, nil
	}
	if err != nil {
		return UsageStatus{}, err
	}
	if q.limit == 0 {
		return UsageStatus{}, nil
	}

	count, err := s.counter.Count(ctx, q.key, s.dayStart())
	if err != nil {
		return UsageStatus{}, fmt.Errorf("failed to read usage: %w", err)
	}
	return UsageStatus{
		CanSend:   count < q.limit,
		Remaining: max(0, q.limit-count),
		Limit:     q.limit,
		Count:     count,
	}, nil
}

// Increment records one message unconditionally.
func (s *UsageService) Increment(ctx context.Context, c Caller, pro bool) error {
	q, err := s.resolve(ctx, c, pro)
	if err != nil {
		return usageError(err)
	}
	if q.limit == 0 {
		return nil
	}
	if err := s.counter.Increment(ctx, q.key, s.dayStart()); err != nil {
		return err
	}
	s.touch(ctx, q, pro)
	return nil
}

// Consume checks and records one message in a single atomic step. An
// exhausted quota is a *common.UsageLimitError.
func (s *UsageService) Consume(ctx context.Context, c Caller, pro bool) error {
	q, err := s.resolve(ctx, c, pro)
	if err != nil {
		return usageError(err)
	}
	if q.limit == 0 {
		return &common.UsageLimitError{Limit: 0, Pro: pro}
	}

	ok, err := s.counter.Consume(ctx, q.key, q.limit, s.dayStart())
	if err != nil {
		return err
	}
	if !ok {
		return &common.UsageLimitError{Limit: q.limit, Pro: pro}
	}
	s.touch(ctx, q, pro)
	return nil
}

// touch updates last_active_at and, for regular messages, the lifetime
// message count. Failures are logged only.
func (s *UsageService) touch(ctx context.Context, q quota, pro bool) {
	if q.userID == "" {
		return
	}
	if err := s.store.TouchUser(ctx, q.userID, s.now().UnixMilli(), !pro); err != nil {
		s.log.Warn(ctx, "failed to touch user", "user_id", q.userID, "error", err)
	}
}

func usageError(err error) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	if se.msg == msgUserNotFound {
		return common.ErrorUserNotFound
	}
	return common.NewValidationError("%s", se.msg)
}

func (s *UsageService) RateLimits(ctx context.Context, c Caller) (RateLimits, error) {
	regular, err := s.Check(ctx, c, false)
	if err != nil {
		return RateLimits{}, err
	}
	if regular.Error == msgUserNotFound {
		return RateLimits{}, common.ErrorUserNotFound
	}
	pro, err := s.Check(ctx, c, true)
	if err != nil {
		return RateLimits{}, err
	}

	limit := regular.Limit
	if regular.Error != "" {
		limit = common.NonAuthDailyMessageLimit
		regular.Remaining = limit
	}
	return RateLimits{
		DailyCount:    regular.Count,
		DailyProCount: pro.Count,
		DailyLimit:    limit,
		Remaining:     regular.Remaining,
		RemainingPro:  pro.Remaining,
		Alert:         regular.Remaining <= common.RemainingQueryAlertThreshold,
	}, nil
}

// ValidateModelAccess rejects models the caller may not use. Anonymous
// callers are limited to the non-auth allow list; users need their own key
// for anything outside the free list, except local ollama models.
func (s *UsageService) ValidateModelAccess(ctx context.Context, c Caller, userID, model string) error {
	if !c.Authenticated() {
		if !common.IsNonAuthAllowed(model) {
			return &common.AccessError{Message: "This model requires authentication. Please sign in to access more models."}
		}
		return nil
	}

	provider := catalog.ProviderFor(model)
	if provider == catalog.ProviderOllama || common.IsFreeModel(model) {
		return nil
	}
	hasKey := false
	if s.keys != nil && userID != "" {
		var err error
		if hasKey, err = s.keys.HasKey(ctx, userID, provider); err != nil {
			return err
		}
	}
	if !hasKey {
		return &common.AccessError{Message: fmt.Sprintf(
			"This model requires an API key for %s. Please add your API key in settings or use a free model.", provider)}
	}
	return nil
}
