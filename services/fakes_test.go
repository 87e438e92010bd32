package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/notification"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/realtime"
	"goTheNineAPI/internal/storage"
	"goTheNineAPI/internal/task"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/repository"
)

// memStore is one in-memory database backing every store interface.
type memStore struct {
	mu            sync.Mutex
	profiles      map[string]*user.Profile
	challenges    []*challenge.Challenge
	days          map[string]*progress.DailyProgress
	notifications []*notification.Notification
	prefs         map[uuid.UUID]*notification.Preferences

	// mutateHook runs inside Mutate before fn; a non-nil error fails the write.
	mutateHook func() error
	// createHook fails challenge creation when it returns an error.
	createHook func() error
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[string]*user.Profile{},
		days:     map[string]*progress.DailyProgress{},
		prefs:    map[uuid.UUID]*notification.Preferences{},
	}
}

func copyProfile(p *user.Profile) *user.Profile {
	c := *p
	return &c
}

func (m *memStore) GetByClerkID(_ context.Context, clerkID string) (*user.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[clerkID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyProfile(p), nil
}

func (m *memStore) GetOrCreate(_ context.Context, clerkID, tz string) (*user.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[clerkID]
	if !ok {
		p = user.NewProfile(clerkID, tz)
		m.profiles[clerkID] = p
	}
	return copyProfile(p), nil
}

func (m *memStore) Update(_ context.Context, p *user.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ClerkID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	m.profiles[p.ClerkID] = copyProfile(p)
	return nil
}

func (m *memStore) Delete(_ context.Context, clerkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[clerkID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.profiles, clerkID)
	return nil
}

type memChallenges struct{ *memStore }

func (m memChallenges) Create(_ context.Context, c *challenge.Challenge) error {
	if m.createHook != nil {
		if err := m.createHook(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(c)
}

func (m memChallenges) insertLocked(c *challenge.Challenge) error {
	if c.IsActive {
		for _, existing := range m.challenges {
			if existing.UserID == c.UserID && existing.IsActive {
				return repository.ErrDuplicateActiveChallenge
			}
		}
	}
	cp := *c
	m.challenges = append(m.challenges, &cp)
	return nil
}

func (m memChallenges) GetActive(_ context.Context, userID uuid.UUID) (*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.challenges {
		if c.UserID == userID && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memChallenges) ListByUser(_ context.Context, userID uuid.UUID) ([]*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*challenge.Challenge{}
	for i := len(m.challenges) - 1; i >= 0; i-- {
		if m.challenges[i].UserID == userID {
			cp := *m.challenges[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memChallenges) Replace(_ context.Context, userID uuid.UUID, next *challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.challenges {
		if c.UserID == userID {
			c.IsActive = false
		}
	}
	return m.insertLocked(next)
}

func dayKey(cid uuid.UUID, date string) string {
	return cid.String() + "/" + date
}

func (m *memStore) Get(_ context.Context, cid uuid.UUID, date string) (*progress.DailyProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.days[dayKey(cid, date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (m *memStore) ListByChallenge(_ context.Context, cid uuid.UUID) ([]*progress.DailyProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(cid), nil
}

func (m *memStore) listLocked(cid uuid.UUID) []*progress.DailyProgress {
	out := []*progress.DailyProgress{}
	for _, p := range m.days {
		if p.ChallengeID == cid {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (m *memStore) ListByChallenges(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]*progress.DailyProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID][]*progress.DailyProgress{}
	for _, id := range ids {
		out[id] = m.listLocked(id)
	}
	return out, nil
}

func (m *memStore) Mutate(_ context.Context, cid uuid.UUID, date string, fn func(*progress.DailyProgress) error) (*progress.DailyProgress, error) {
	if m.mutateHook != nil {
		if err := m.mutateHook(); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := dayKey(cid, date)
	cur, ok := m.days[key]
	if !ok {
		cur = progress.Empty(cid, date)
		cur.ID = uuid.New()
		cur.CreatedAt = time.Now()
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Recount()
	next.UpdatedAt = time.Now()
	m.days[key] = next
	return next.Clone(), nil
}

// seedDay stores a record with the given tasks completed.
func (m *memStore) seedDay(cid uuid.UUID, date string, completed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := progress.Empty(cid, date)
	p.ID = uuid.New()
	for i, id := range task.IDs() {
		if i >= completed {
			break
		}
		_ = progress.ApplyToggle(p, id, true, time.Now())
	}
	m.days[dayKey(cid, date)] = p
}

func (m *memStore) ActiveParticipants(_ context.Context) ([]repository.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []repository.Participant{}
	for _, p := range m.profiles {
		for _, c := range m.challenges {
			if c.UserID == p.ID && c.IsActive {
				out = append(out, repository.Participant{Profile: *p, Challenge: *c})
			}
		}
	}
	return out, nil
}

type memNotifications struct{ *memStore }

func (m memNotifications) Create(_ context.Context, n *notification.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.notifications {
		if existing.UserID == n.UserID && existing.Tag == n.Tag {
			return false, nil
		}
	}
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return true, nil
}

func (m memNotifications) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]notification.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mine := []notification.Notification{}
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if m.notifications[i].UserID == userID {
			mine = append(mine, *m.notifications[i])
		}
	}
	total := len(mine)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

func (m memNotifications) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.notifications {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (m memNotifications) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.notifications {
		if x.UserID == userID && x.ID == id {
			x.IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m memNotifications) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.notifications {
		if x.UserID == userID && !x.IsRead {
			x.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m memNotifications) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.notifications {
		if x.UserID == userID && x.ID == id {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m memNotifications) GetPreferences(_ context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.DeviceTokens = append([]notification.DeviceToken{}, p.DeviceTokens...)
	return &cp, nil
}

func (m memNotifications) SavePreferences(_ context.Context, p *notification.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.prefs[p.UserID] = &cp
	return nil
}

type fakePhotos struct {
	mu      sync.Mutex
	err     error
	stored  int
	deleted []string
}

func (f *fakePhotos) Store(_ context.Context, cid uuid.UUID, date string, _ []byte) (storage.Stored, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.Stored{}, f.err
	}
	f.stored++
	base := fmt.Sprintf("/uploads/photos/%s/%s-%d", cid, date, f.stored)
	return storage.Stored{URL: base + ".jpg", ThumbnailURL: base + "_thumb.jpg"}, nil
}

func (f *fakePhotos) Delete(_ context.Context, urls ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, urls...)
	return nil
}

func (f *fakePhotos) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingPublisher) Publish(ev realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) Events() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event{}, r.events...)
}

// fixture wires every service over one memStore with a fixed clock.
type fixture struct {
	store         *memStore
	clock         *clock.Fixed
	accounts      *Accounts
	profiles      *ProfileService
	challenges    *ChallengeService
	progress      *ProgressService
	photos        *PhotoService
	photoStore    *fakePhotos
	stats         *StatsService
	leaderboard   *LeaderboardService
	notifications *NotificationService
	publisher     *recordingPublisher
}

type movableClock struct{ f *clock.Fixed }

func (m movableClock) Now() time.Time { return m.f.At }

func newFixture(now time.Time) *fixture {
	st := newMemStore()
	clk := &clock.Fixed{At: now}
	accounts := NewAccounts(st, memChallenges{st}, movableClock{clk}, clock.DefaultTimezone)
	pub := &recordingPublisher{}
	prog := NewProgressService(accounts, st, pub)
	notifs := NewNotificationService(accounts, memNotifications{st}, nil)
	photoStore := &fakePhotos{}

	return &fixture{
		store:         st,
		clock:         clk,
		accounts:      accounts,
		profiles:      NewProfileService(accounts, st),
		challenges:    NewChallengeService(accounts, st, memChallenges{st}, st),
		progress:      prog,
		photos:        NewPhotoService(accounts, st, photoStore, prog),
		photoStore:    photoStore,
		stats:         NewStatsService(accounts, st),
		leaderboard:   NewLeaderboardService(accounts, st, st),
		notifications: notifs,
		publisher:     pub,
	}
}

// ny returns a wall-clock instant in New York.
func ny(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, clock.MustLocation("America/New_York"))
}
