package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"festregistration/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeStore is an in-memory backing store shared by the fake repositories so
// that registrations, events and users stay consistent with each other.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	events map[string]*domain.Event
	regs   map[string]*domain.Registration
	order  []string // registration ids in insertion order

	createErr      error // if set, registration Create returns this error
	tidCollisions  int   // number of Create calls that fail with ErrDuplicateTID
	pidCollisions  int   // number of user Create calls that fail with ErrDuplicatePID
	decrementErr   error
	recomputeCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]*domain.User),
		events: make(map[string]*domain.Event),
		regs:   make(map[string]*domain.Registration),
	}
}

func (s *fakeStore) userRepo() *fakeUserRepo                 { return &fakeUserRepo{s} }
func (s *fakeStore) eventRepo() *fakeEventRepo               { return &fakeEventRepo{s} }
func (s *fakeStore) registrationRepo() *fakeRegistrationRepo { return &fakeRegistrationRepo{s} }

func (s *fakeStore) addUser(u *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) addEvent(e *domain.Event) *domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return e
}

func (s *fakeStore) activeCount(eventID string) int {
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status != domain.StatusCancelled {
			n++
		}
	}
	return n
}

func (s *fakeStore) registrationsWhere(keep func(*domain.Registration) bool) []*domain.Registration {
	out := []*domain.Registration{}
	for _, id := range s.order {
		if r, ok := s.regs[id]; ok && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func copyRegistration(r *domain.Registration) *domain.Registration {
	c := *r
	c.TeamMembers = append([]domain.TeamMember{}, r.TeamMembers...)
	return &c
}

type fakeUserRepo struct{ s *fakeStore }

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.pidCollisions > 0 {
		f.s.pidCollisions--
		return domain.ErrDuplicatePID
	}
	var pids []string
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
		if existing.RollNumber == u.RollNumber {
			return domain.ErrDuplicateRollNumber
		}
		pids = append(pids, existing.PID)
	}
	u.PID = domain.NextPID(u.CreatedAt.Year(), pids)
	f.s.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if u, ok := f.s.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByPID(ctx context.Context, pid string) (*domain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.PID == pid {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) ListByPIDs(ctx context.Context, pids []string) ([]*domain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	want := make(map[string]bool, len(pids))
	for _, p := range pids {
		want[p] = true
	}
	var out []*domain.User
	for _, u := range f.s.users {
		if want[u.PID] {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (f *fakeUserRepo) ListByRole(ctx context.Context, role string) ([]*domain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*domain.User
	for _, u := range f.s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) CountByRole(ctx context.Context, role string) (int, error) {
	users, _ := f.ListByRole(ctx, role)
	return len(users), nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, u *domain.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *u
	f.s.users[u.ID] = &c
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.s.users, id)
	return nil
}

type fakeEventRepo struct{ s *fakeStore }

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	f.s.addEvent(e)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if e, ok := f.s.events[id]; ok {
		c := *e
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) List(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*domain.Event
	for _, e := range f.s.events {
		if filter.ListedOnly && !e.IsListed {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Title), search) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	total := len(out)
	if params.PageSize > 0 {
		start := min(params.Offset(), total)
		end := min(start+params.PageSize, total)
		out = out[start:end]
	}
	return out, total, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.events[e.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *e
	f.s.events[e.ID] = &c
	return nil
}

func (f *fakeEventRepo) SetListed(ctx context.Context, id string, listed bool) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.IsListed = listed
	return nil
}

func (f *fakeEventRepo) SetImage(ctx context.Context, id string, image domain.EventImage) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Image = image
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.events[id]; !ok {
		return domain.ErrNotFound
	}
	for rid, r := range f.s.regs {
		if r.EventID == id {
			delete(f.s.regs, rid)
		}
	}
	delete(f.s.events, id)
	return nil
}

func (f *fakeEventRepo) Count(ctx context.Context) (int, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	listed := 0
	for _, e := range f.s.events {
		if e.IsListed {
			listed++
		}
	}
	return len(f.s.events), listed, nil
}

func (f *fakeEventRepo) DecrementCounts(ctx context.Context, byEvent map[string]int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.decrementErr != nil {
		return f.s.decrementErr
	}
	for id, n := range byEvent {
		if e, ok := f.s.events[id]; ok {
			e.RegisteredCount = max(e.RegisteredCount-n, 0)
		}
	}
	return nil
}

func (f *fakeEventRepo) RecomputeCounters(ctx context.Context) (*domain.ReconcileReport, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.recomputeCalls++
	ids := make([]string, 0, len(f.s.events))
	for id := range f.s.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	report := &domain.ReconcileReport{EventsChecked: len(ids), Drifted: []domain.CounterDrift{}}
	for _, id := range ids {
		e := f.s.events[id]
		actual := f.s.activeCount(id)
		if e.RegisteredCount != actual {
			report.Drifted = append(report.Drifted, domain.CounterDrift{EventID: id, Stored: e.RegisteredCount, Actual: actual})
			e.RegisteredCount = actual
		}
	}
	return report, nil
}

type fakeRegistrationRepo struct{ s *fakeStore }

func (f *fakeRegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.createErr != nil {
		return f.s.createErr
	}
	e, ok := f.s.events[reg.EventID]
	if !ok {
		return domain.ErrNotFound
	}
	active := f.s.activeCount(reg.EventID)
	if active+1 > e.MaxParticipants {
		return domain.NewCapacityError(e.MaxParticipants - active)
	}
	for _, r := range f.s.regs {
		if r.EventID == reg.EventID && r.UserID == reg.UserID {
			return domain.ErrAlreadyRegistered
		}
	}
	if reg.TeamName != "" && reg.TID == "" {
		if f.s.tidCollisions > 0 {
			f.s.tidCollisions--
			return domain.ErrDuplicateTID
		}
		reg.TID = f.nextTID(reg.CreatedAt.Year())
	}
	e.RegisteredCount++
	f.s.regs[reg.ID] = copyRegistration(reg)
	f.s.order = append(f.s.order, reg.ID)
	return nil
}

func (f *fakeRegistrationRepo) nextTID(year int) string {
	var tids []string
	for _, r := range f.s.regs {
		tids = append(tids, r.TID)
	}
	return domain.NextTID(year, tids)
}

func (f *fakeRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if r, ok := f.s.regs[id]; ok {
		return copyRegistration(r), nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.regs {
		if r.EventID == eventID && r.UserID == userID && r.Status != domain.StatusCancelled {
			return copyRegistration(r), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) FindByEventAndMemberPID(ctx context.Context, eventID, pid string) (*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.regs {
		if r.EventID == eventID && r.HasMember(pid) {
			return copyRegistration(r), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) CountActiveByEvent(ctx context.Context, eventID string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.activeCount(eventID), nil
}

func (f *fakeRegistrationRepo) CountActive(ctx context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return len(f.s.registrationsWhere(func(r *domain.Registration) bool { return r.Status != domain.StatusCancelled })), nil
}

func (f *fakeRegistrationRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.registrationsWhere(func(r *domain.Registration) bool { return r.UserID == userID }), nil
}

func (f *fakeRegistrationRepo) ListInvolving(ctx context.Context, userID, pid string) ([]*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.registrationsWhere(func(r *domain.Registration) bool {
		return r.Status != domain.StatusCancelled && (r.UserID == userID || r.HasMember(pid))
	}), nil
}

func (f *fakeRegistrationRepo) ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.registrationsWhere(func(r *domain.Registration) bool { return r.EventID == eventID }), nil
}

func (f *fakeRegistrationRepo) ListActive(ctx context.Context) ([]*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.registrationsWhere(func(r *domain.Registration) bool { return r.Status != domain.StatusCancelled }), nil
}

func (f *fakeRegistrationRepo) Delete(ctx context.Context, id string) (*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(f.s.regs, id)
	if e, ok := f.s.events[r.EventID]; ok && r.Status != domain.StatusCancelled {
		e.RegisteredCount = max(e.RegisteredCount-1, 0)
	}
	return r, nil
}

func (f *fakeRegistrationRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for id, r := range f.s.regs {
		if r.UserID == userID {
			delete(f.s.regs, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRegistrationRepo) SetTeamName(ctx context.Context, id, teamName string, updatedAt time.Time) (*domain.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.TeamName = teamName
	r.UpdatedAt = updatedAt
	if r.TID == "" {
		r.TID = f.nextTID(updatedAt.Year())
	}
	return copyRegistration(r), nil
}

// fakeNotifier records notifications synchronously.
type fakeNotifier struct {
	mu            sync.Mutex
	welcomes      []*domain.WelcomeEmailData
	confirmations []*domain.RegistrationConfirmationEmailData
	deletions     []*domain.AccountDeletedEmailData
}

func (n *fakeNotifier) Welcome(ctx context.Context, data *domain.WelcomeEmailData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, data)
}

func (n *fakeNotifier) RegistrationConfirmed(ctx context.Context, data *domain.RegistrationConfirmationEmailData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, data)
}

func (n *fakeNotifier) AccountDeleted(ctx context.Context, data *domain.AccountDeletedEmailData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deletions = append(n.deletions, data)
}

// fakeEmailService records every email and can be made to fail.
type fakeEmailService struct {
	mu        sync.Mutex
	err       error
	welcomes  []*domain.WelcomeEmailData
	confirms  []*domain.RegistrationConfirmationEmailData
	deletions []*domain.AccountDeletedEmailData
	summaries []*domain.RegistrationSummaryEmailData
}

func (f *fakeEmailService) SendWelcome(ctx context.Context, data *domain.WelcomeEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes = append(f.welcomes, data)
	return f.err
}

func (f *fakeEmailService) SendRegistrationConfirmation(ctx context.Context, data *domain.RegistrationConfirmationEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms = append(f.confirms, data)
	return f.err
}

func (f *fakeEmailService) SendAccountDeleted(ctx context.Context, data *domain.AccountDeletedEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletions = append(f.deletions, data)
	return f.err
}

func (f *fakeEmailService) SendRegistrationSummary(ctx context.Context, data *domain.RegistrationSummaryEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, data)
	return f.err
}

// fakeCooldown grants a key once until it is released.
type fakeCooldown struct {
	held      map[string]bool
	remaining time.Duration
	err       error
	released  []string
}

func newFakeCooldown() *fakeCooldown {
	return &fakeCooldown{held: make(map[string]bool), remaining: 90 * time.Second}
}

func (c *fakeCooldown) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	if c.err != nil {
		return false, 0, c.err
	}
	if c.held[key] {
		return false, c.remaining, nil
	}
	c.held[key] = true
	return true, 0, nil
}

func (c *fakeCooldown) Release(ctx context.Context, key string) error {
	delete(c.held, key)
	c.released = append(c.released, key)
	return nil
}

// fakeHasher stores "salt:password" as the hash.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) { return salt + ":" + password, nil }

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return domain.NewError(domain.KindUnauthorized, "invalid email or password")
	}
	return nil
}

type fakeTokenIssuer struct {
	issued []domain.TokenClaims
}

func (f *fakeTokenIssuer) Issue(claims domain.TokenClaims, expiry time.Duration) (string, error) {
	f.issued = append(f.issued, claims)
	return "token-" + claims.UserID, nil
}

// fakeImageStore keeps uploaded keys in memory.
type fakeImageStore struct {
	objects   map[string]string
	uploadErr error
	deleteErr error
	deleted   []string
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: make(map[string]string)}
}

func (f *fakeImageStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = string(b)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

var errStorage = errors.New("storage offline")
