package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/models"
)

// In-memory repository fakes used across the service tests.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return db.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return db.ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		copied := *u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) UpdateSubscription(_ context.Context, userID, status string, endDate *time.Time, lastPaymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.SubscriptionStatus = status
	u.SubscriptionEndDate = endDate
	u.LastPaymentID = lastPaymentID
	return nil
}

func (r *fakeUserRepo) SetPassword(_ context.Context, userID, hash, salt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.Password = hash
	u.PasswordSalt = salt
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	seq      int
	payments map[string]*models.Payment
	watchers map[string][]chan *models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: make(map[string]*models.Payment),
		watchers: make(map[string][]chan *models.Payment),
	}
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *models.Payment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	payment.ID = fmt.Sprintf("payment-%d", r.seq)
	payment.CreatedAt = time.Now()
	copied := *payment
	r.payments[payment.ID] = &copied
	return payment.ID, nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, paymentID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePaymentRepo) Update(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[payment.ID]; !ok {
		return db.ErrNotFound
	}
	copied := *payment
	r.payments[payment.ID] = &copied
	r.notifyLocked(payment.ID)
	return nil
}

func (r *fakePaymentRepo) UpdateStatus(_ context.Context, paymentID, status, statusDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[paymentID]
	if !ok {
		return db.ErrNotFound
	}
	p.Status = status
	p.StatusDetail = statusDetail
	r.notifyLocked(paymentID)
	return nil
}

func (r *fakePaymentRepo) ListPendingByUser(_ context.Context, userID string) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if p.UserID == userID && p.Status == models.PaymentPending {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) DeletePendingByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, p := range r.payments {
		if p.UserID == userID && p.Status == models.PaymentPending {
			delete(r.payments, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakePaymentRepo) ListByPeriod(_ context.Context, from, to time.Time) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) WatchPayment(ctx context.Context, paymentID string) (<-chan *models.Payment, error) {
	ch := make(chan *models.Payment, 8)
	r.mu.Lock()
	r.watchers[paymentID] = append(r.watchers[paymentID], ch)
	r.mu.Unlock()
	go func() {
		<-ctx.Done()
	}()
	return ch, nil
}

func (r *fakePaymentRepo) notifyLocked(paymentID string) {
	p := r.payments[paymentID]
	for _, ch := range r.watchers[paymentID] {
		copied := *p
		select {
		case ch <- &copied:
		default:
		}
	}
}

type fakeCoffeeRepo struct {
	mu     sync.Mutex
	seq    int
	events []*models.CoffeeEvent
}

func newFakeCoffeeRepo() *fakeCoffeeRepo {
	return &fakeCoffeeRepo{}
}

func (r *fakeCoffeeRepo) Create(_ context.Context, event *models.CoffeeEvent) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	event.ID = fmt.Sprintf("coffee-%d", r.seq)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	copied := *event
	r.events = append(r.events, &copied)
	return event.ID, nil
}

func (r *fakeCoffeeRepo) ListSince(_ context.Context, since time.Time, userID string) ([]*models.CoffeeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CoffeeEvent
	for _, e := range r.events {
		if e.CreatedAt.Before(since) {
			continue
		}
		if userID != "" && e.UserID != userID {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings *models.SystemSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	settings := &models.SystemSettings{ID: "settings-1"}
	settings.ApplyDefaults()
	return &fakeSettingsRepo{settings: settings}
}

func (r *fakeSettingsRepo) Get(_ context.Context) (*models.SystemSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *r.settings
	return &copied, nil
}

func (r *fakeSettingsRepo) Update(_ context.Context, settings *models.SystemSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *settings
	r.settings = &copied
	return nil
}

func (r *fakeSettingsRepo) WatchSettings(ctx context.Context) (<-chan *models.SystemSettings, error) {
	ch := make(chan *models.SystemSettings)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

type fakeResetRepo struct {
	mu     sync.Mutex
	seq    int
	resets map[string]*models.PasswordReset
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{resets: make(map[string]*models.PasswordReset)}
}

func (r *fakeResetRepo) Create(_ context.Context, reset *models.PasswordReset) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	reset.ID = fmt.Sprintf("reset-%d", r.seq)
	if reset.CreatedAt.IsZero() {
		reset.CreatedAt = time.Now()
	}
	copied := *reset
	r.resets[reset.ID] = &copied
	return reset.ID, nil
}

func (r *fakeResetRepo) FindActive(_ context.Context, email, code string) (*models.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *models.PasswordReset
	for _, reset := range r.resets {
		if reset.Email != email || reset.Code != code || reset.Used {
			continue
		}
		if newest == nil || reset.CreatedAt.After(newest.CreatedAt) {
			copied := *reset
			newest = &copied
		}
	}
	if newest == nil {
		return nil, db.ErrNotFound
	}
	return newest, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, resetID string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reset, ok := r.resets[resetID]
	if !ok {
		return db.ErrNotFound
	}
	reset.Used = true
	reset.UsedAt = &usedAt
	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens []*models.DeviceToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{}
}

func (r *fakeTokenRepo) Upsert(_ context.Context, token *models.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == token.Token {
			t.UserID = token.UserID
			t.Platform = token.Platform
			return nil
		}
	}
	copied := *token
	copied.ID = fmt.Sprintf("token-%d", len(r.tokens)+1)
	r.tokens = append(r.tokens, &copied)
	return nil
}

func (r *fakeTokenRepo) ListByUser(_ context.Context, userID string) ([]*models.DeviceToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DeviceToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

// fixedSettings is a SettingsService stub returning a static snapshot.
type fixedSettings struct {
	settings *models.SystemSettings
}

func newFixedSettings() *fixedSettings {
	settings := &models.SystemSettings{}
	settings.ApplyDefaults()
	return &fixedSettings{settings: settings}
}

func (f *fixedSettings) Get(_ context.Context) (*models.SystemSettings, error) {
	copied := *f.settings
	return &copied, nil
}

func (f *fixedSettings) VersionAllowed(_ context.Context, version string) (bool, string, error) {
	min := f.settings.MinAppVersion
	return CompareVersions(version, min) >= 0, min, nil
}

func (f *fixedSettings) Start(_ context.Context) {}

// nopNotify is a NotifyService stub recording notifications.
type nopNotify struct {
	mu      sync.Mutex
	titles  []string
	ctxErrs []error
}

func (n *nopNotify) RegisterDevice(_ context.Context, _ string, _ models.RegisterDeviceRequest) error {
	return nil
}

func (n *nopNotify) NotifyUser(ctx context.Context, _ string, title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
}
