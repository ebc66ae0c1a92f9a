package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"freeday/internal/domain"
)

var (
	testLogger  = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	testTimeout = time.Second
	fixedNow    = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	errDB       = errors.New("db error")
)

func fixedClock() time.Time { return fixedNow }

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	byID    map[string]*domain.User
	nextID  int
	err     error
	created []*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("u%d", f.nextID)
	f.byID[user.ID] = user
	f.created = append(f.created, user)
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, user *domain.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) UpdateRole(_ context.Context, userID string, role domain.Role) error {
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

// fakeEventRepo is an in-memory EventRepository.
type fakeEventRepo struct {
	mu          sync.Mutex
	byID        map[string]*domain.Event
	nextID      int
	err         error
	listCalls   int
	listDelay   time.Duration
	listGate    chan struct{}
	listEntered chan struct{}
	listResult  []*domain.Event
	registered  map[string][]*domain.Event
	favorited   map[string][]*domain.Event
}

func newFakeEventRepo(events ...*domain.Event) *fakeEventRepo {
	f := &fakeEventRepo{
		byID:       make(map[string]*domain.Event),
		registered: make(map[string][]*domain.Event),
		favorited:  make(map[string][]*domain.Event),
	}
	for _, e := range events {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEventRepo) Create(_ context.Context, event *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	event.ID = fmt.Sprintf("e%d", f.nextID)
	f.byID[event.ID] = event
	return nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventRepo) Update(_ context.Context, event *domain.Event) error {
	if _, ok := f.byID[event.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *event
	f.byID[event.ID] = &cp
	return nil
}

func (f *fakeEventRepo) UpdateStatus(_ context.Context, id string, status domain.EventStatus) error {
	e, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	return nil
}

func (f *fakeEventRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEventRepo) List(ctx context.Context, _ domain.EventFilter) ([]*domain.Event, int, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listEntered != nil {
		f.listEntered <- struct{}{}
	}
	if f.listGate != nil {
		select {
		case <-f.listGate:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	if f.listDelay > 0 {
		time.Sleep(f.listDelay)
	}
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.listResult, len(f.listResult), nil
}

func (f *fakeEventRepo) ListTypes(_ context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[string]bool)
	var types []string
	for _, e := range f.byID {
		if e.Type != "" && !seen[e.Type] {
			seen[e.Type] = true
			types = append(types, e.Type)
		}
	}
	sort.Strings(types)
	return types, nil
}

func (f *fakeEventRepo) ListByOrganizer(_ context.Context, organizerID string, filter domain.ManagedEventFilter) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Event
	for _, e := range f.byID {
		if e.OrganizerID != organizerID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventRepo) ListRegisteredByUser(_ context.Context, userID string) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.registered[userID], nil
}

func (f *fakeEventRepo) ListFavoritedByUser(_ context.Context, userID string) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.favorited[userID], nil
}

// fakeEventCache is an in-memory EventListCache.
type fakeEventCache struct {
	mu          sync.Mutex
	pages       map[string]*domain.EventPage
	getErr      error
	genErr      error
	generation  uint64
	invalidated int
}

func newFakeEventCache() *fakeEventCache {
	return &fakeEventCache{pages: make(map[string]*domain.EventPage)}
}

func (c *fakeEventCache) Generation(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, c.genErr
}

func (c *fakeEventCache) Get(_ context.Context, key string) (*domain.EventPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.pages[key], nil
}

func (c *fakeEventCache) Set(_ context.Context, key string, page *domain.EventPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = page
	return nil
}

func (c *fakeEventCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[string]*domain.EventPage)
	c.generation++
	c.invalidated++
	return nil
}

// fakeRegistrationRepo is an in-memory EventRegistrationRepository.
type fakeRegistrationRepo struct {
	byKey     map[string]*domain.EventRegistration
	createErr error
	// onCreate runs before a failing create so tests can simulate a concurrent insert.
	onCreate func()
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{byKey: make(map[string]*domain.EventRegistration)}
}

func (f *fakeRegistrationRepo) Create(_ context.Context, reg *domain.EventRegistration) error {
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return f.createErr
	}
	reg.ID = fmt.Sprintf("r%d", len(f.byKey)+1)
	f.byKey[reg.EventID+":"+reg.UserID] = reg
	return nil
}

func (f *fakeRegistrationRepo) GetByEventAndUser(_ context.Context, eventID, userID string) (*domain.EventRegistration, error) {
	reg, ok := f.byKey[eventID+":"+userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return reg, nil
}

func (f *fakeRegistrationRepo) Delete(_ context.Context, eventID, userID string) error {
	key := eventID + ":" + userID
	if _, ok := f.byKey[key]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byKey, key)
	return nil
}

// fakeFavoriteRepo is an in-memory FavoriteRepository.
type fakeFavoriteRepo struct {
	set map[string]bool
}

func (f *fakeFavoriteRepo) Toggle(_ context.Context, eventID, userID string) (bool, error) {
	if f.set == nil {
		f.set = make(map[string]bool)
	}
	key := eventID + ":" + userID
	f.set[key] = !f.set[key]
	return f.set[key], nil
}

// fakePostRepo is an in-memory PostRepository.
type fakePostRepo struct {
	byID   map[string]*domain.Post
	likes  map[string]map[string]bool
	nextID int
	err    error
}

func newFakePostRepo(posts ...*domain.Post) *fakePostRepo {
	f := &fakePostRepo{byID: make(map[string]*domain.Post), likes: make(map[string]map[string]bool)}
	for _, p := range posts {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePostRepo) Create(_ context.Context, post *domain.Post) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	post.ID = fmt.Sprintf("p%d", f.nextID)
	cp := *post
	f.byID[post.ID] = &cp
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id, viewerID string) (*domain.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	cp.LikedByMe = viewerID != "" && f.likes[id][viewerID]
	return &cp, nil
}

func (f *fakePostRepo) Update(_ context.Context, post *domain.Post) error {
	if _, ok := f.byID[post.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *post
	f.byID[post.ID] = &cp
	return nil
}

func (f *fakePostRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakePostRepo) List(_ context.Context, _ domain.PostFilter) ([]*domain.Post, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []*domain.Post
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakePostRepo) ToggleLike(_ context.Context, postID, userID string) (bool, int, error) {
	if _, ok := f.byID[postID]; !ok {
		return false, 0, domain.ErrNotFound
	}
	if f.likes[postID] == nil {
		f.likes[postID] = make(map[string]bool)
	}
	liked := !f.likes[postID][userID]
	if liked {
		f.likes[postID][userID] = true
	} else {
		delete(f.likes[postID], userID)
	}
	return liked, len(f.likes[postID]), nil
}

// fakeCommentRepo is an in-memory CommentRepository.
type fakeCommentRepo struct {
	byPost map[string][]*domain.Comment
}

func (f *fakeCommentRepo) Create(_ context.Context, c *domain.Comment) error {
	if f.byPost == nil {
		f.byPost = make(map[string][]*domain.Comment)
	}
	c.ID = fmt.Sprintf("c%d", len(f.byPost[c.PostID])+1)
	f.byPost[c.PostID] = append(f.byPost[c.PostID], c)
	return nil
}

func (f *fakeCommentRepo) ListByPostID(_ context.Context, postID string) ([]*domain.Comment, error) {
	return f.byPost[postID], nil
}

type fakeTagRepo struct {
	tags []string
	err  error
}

func (f *fakeTagRepo) ListInUse(context.Context) ([]string, error) {
	return f.tags, f.err
}

type fakePublisher struct {
	published []*domain.Comment
}

func (f *fakePublisher) PublishComment(_ string, c *domain.Comment) {
	f.published = append(f.published, c)
}

// fakeEmailService records the emails it was asked to send.
type fakeEmailService struct {
	welcome       []*domain.WelcomeMessageEmailData
	registrations []*domain.RegistrationEmailData
	err           error
}

func (f *fakeEmailService) SendWelcomeMessage(_ context.Context, data *domain.WelcomeMessageEmailData) error {
	f.welcome = append(f.welcome, data)
	return f.err
}

func (f *fakeEmailService) SendRegistrationConfirmation(_ context.Context, data *domain.RegistrationEmailData) error {
	f.registrations = append(f.registrations, data)
	return f.err
}

// fakeHasher "hashes" by concatenation.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) { return salt + ":" + password, nil }

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fakeTokenIssuer struct {
	lastRole domain.Role
}

func (f *fakeTokenIssuer) Issue(userID, _ string, role domain.Role, _ time.Duration) (string, error) {
	f.lastRole = role
	return "token-" + userID + "-" + string(role), nil
}

type fakeRevoker struct {
	revoked map[string]time.Time
	err     error
}

func (f *fakeRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	if f.revoked == nil {
		f.revoked = make(map[string]time.Time)
	}
	f.revoked[tokenID] = expiresAt
	return nil
}

func (f *fakeRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := f.revoked[tokenID]
	return ok, nil
}

// fakeAdminRepo records moderation writes.
type fakeAdminRepo struct {
	stats      *domain.DashboardStats
	pending    []*domain.ModerationItem
	moderation map[string]domain.ModerationStatus
	err        error
}

func (f *fakeAdminRepo) Stats(context.Context) (*domain.DashboardStats, error) {
	return f.stats, f.err
}

func (f *fakeAdminRepo) ListPendingEvents(context.Context, domain.PaginationParams) ([]*domain.ModerationItem, int, error) {
	return f.pending, len(f.pending), f.err
}

func (f *fakeAdminRepo) ListPendingPosts(context.Context, domain.PaginationParams) ([]*domain.ModerationItem, int, error) {
	return f.pending, len(f.pending), f.err
}

func (f *fakeAdminRepo) SetEventModeration(_ context.Context, id string, status domain.ModerationStatus) error {
	return f.setModeration(id, status)
}

func (f *fakeAdminRepo) SetPostModeration(_ context.Context, id string, status domain.ModerationStatus) error {
	return f.setModeration(id, status)
}

func (f *fakeAdminRepo) setModeration(id string, status domain.ModerationStatus) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.moderation[id]; !ok {
		return domain.ErrNotFound
	}
	f.moderation[id] = status
	return nil
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }
