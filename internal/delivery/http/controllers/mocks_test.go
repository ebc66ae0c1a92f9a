package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"freeday/internal/delivery/http/helpers"
	"freeday/internal/delivery/http/middleware"
	"freeday/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testEventID = "8d3c2f4e-1b7a-4c55-9a0e-2f6d1e3b4a51"
	testPostID  = "5b1f0e2a-7c3d-4e8f-9a6b-0c1d2e3f4a5b"
)

// newRequest builds a request with an optional JSON body and path values given as name, value pairs.
func newRequest(method, target, body string, pathValues ...string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return req
}

func asUser(req *http.Request, userID string, role domain.Role) *http.Request {
	claims := &domain.TokenClaims{UserID: userID, Email: userID + "@example.com", Role: role, TokenID: "jti-" + userID}
	return req.WithContext(middleware.SetClaims(req.Context(), claims))
}

type envelope struct {
	Data  json.RawMessage   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.Nil(t, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

type mockAuthService struct {
	token     string
	user      *domain.User
	err       error
	gotEmail  string
	gotName   string
	loggedOut *domain.TokenClaims
}

func (m *mockAuthService) Register(_ context.Context, email, _, name string) (string, *domain.User, error) {
	m.gotEmail, m.gotName = email, name
	return m.token, m.user, m.err
}

func (m *mockAuthService) Login(_ context.Context, email, _ string) (string, *domain.User, error) {
	m.gotEmail = email
	return m.token, m.user, m.err
}

func (m *mockAuthService) Logout(_ context.Context, claims *domain.TokenClaims) error {
	m.loggedOut = claims
	return m.err
}

type mockUserService struct {
	user       *domain.User
	events     *domain.UserEvents
	token      string
	err        error
	gotUserID  string
	gotProfile domain.Profile
}

func (m *mockUserService) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.gotUserID = id
	return m.user, m.err
}

func (m *mockUserService) UpdateProfile(_ context.Context, userID string, profile domain.Profile) (*domain.User, error) {
	m.gotUserID, m.gotProfile = userID, profile
	return m.user, m.err
}

func (m *mockUserService) ListMyEvents(_ context.Context, userID string) (*domain.UserEvents, error) {
	m.gotUserID = userID
	return m.events, m.err
}

func (m *mockUserService) UpgradeToOrganizer(_ context.Context, userID string) (string, *domain.User, error) {
	m.gotUserID = userID
	return m.token, m.user, m.err
}

type mockEventService struct {
	page       *domain.EventPage
	event      *domain.Event
	events     []*domain.Event
	types      []string
	err        error
	gotFilter  domain.EventFilter
	gotManaged domain.ManagedEventFilter
	gotActor   domain.Actor
	gotUpdate  domain.EventUpdate
	gotStatus  domain.EventStatus
	created    *domain.Event
	deletedID  string
}

func (m *mockEventService) ListEvents(_ context.Context, filter domain.EventFilter) (*domain.EventPage, error) {
	m.gotFilter = filter
	return m.page, m.err
}

func (m *mockEventService) ListEventTypes(context.Context) ([]string, error) {
	return m.types, m.err
}

func (m *mockEventService) GetEvent(_ context.Context, _ string, viewer domain.Actor) (*domain.Event, error) {
	m.gotActor = viewer
	return m.event, m.err
}

func (m *mockEventService) CreateEvent(_ context.Context, event *domain.Event, actor domain.Actor) error {
	m.gotActor = actor
	m.created = event
	if m.err != nil {
		return m.err
	}
	event.ID = testEventID
	event.OrganizerID = actor.UserID
	return nil
}

func (m *mockEventService) UpdateEvent(_ context.Context, _ string, actor domain.Actor, update domain.EventUpdate) (*domain.Event, error) {
	m.gotActor, m.gotUpdate = actor, update
	return m.event, m.err
}

func (m *mockEventService) ChangeStatus(_ context.Context, _ string, actor domain.Actor, status domain.EventStatus) (*domain.Event, error) {
	m.gotActor, m.gotStatus = actor, status
	return m.event, m.err
}

func (m *mockEventService) DeleteEvent(_ context.Context, eventID string, actor domain.Actor) error {
	m.gotActor, m.deletedID = actor, eventID
	return m.err
}

func (m *mockEventService) ListManagedEvents(_ context.Context, actor domain.Actor, filter domain.ManagedEventFilter) ([]*domain.Event, error) {
	m.gotActor, m.gotManaged = actor, filter
	return m.events, m.err
}

type mockAttendeeService struct {
	reg       *domain.EventRegistration
	created   bool
	favorited bool
	err       error
	gotEvent  string
	gotUser   string
}

func (m *mockAttendeeService) RegisterForEvent(_ context.Context, eventID, userID string) (*domain.EventRegistration, bool, error) {
	m.gotEvent, m.gotUser = eventID, userID
	return m.reg, m.created, m.err
}

func (m *mockAttendeeService) CancelRegistration(_ context.Context, eventID, userID string) error {
	m.gotEvent, m.gotUser = eventID, userID
	return m.err
}

func (m *mockAttendeeService) ToggleFavorite(_ context.Context, eventID, userID string) (bool, error) {
	m.gotEvent, m.gotUser = eventID, userID
	return m.favorited, m.err
}

type mockForumService struct {
	posts     []*domain.Post
	total     int
	post      *domain.Post
	comments  []*domain.Comment
	tags      []string
	liked     bool
	likes     int
	err       error
	getErr    error
	gotFilter domain.PostFilter
	gotActor  domain.Actor
	gotUpdate domain.PostUpdate
	created   *domain.Post
	comment   *domain.Comment
}

func (m *mockForumService) ListPosts(_ context.Context, filter domain.PostFilter) ([]*domain.Post, int, error) {
	m.gotFilter = filter
	return m.posts, m.total, m.err
}

func (m *mockForumService) ListTags(context.Context) ([]string, error) {
	return m.tags, m.err
}

func (m *mockForumService) GetPost(_ context.Context, _ string, viewer domain.Actor) (*domain.Post, error) {
	m.gotActor = viewer
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.post, m.err
}

func (m *mockForumService) CreatePost(_ context.Context, post *domain.Post) error {
	m.created = post
	if m.err != nil {
		return m.err
	}
	post.ID = testPostID
	post.ModerationStatus = domain.ModerationPending
	return nil
}

func (m *mockForumService) UpdatePost(_ context.Context, _ string, actor domain.Actor, update domain.PostUpdate) (*domain.Post, error) {
	m.gotActor, m.gotUpdate = actor, update
	return m.post, m.err
}

func (m *mockForumService) DeletePost(_ context.Context, _ string, actor domain.Actor) error {
	m.gotActor = actor
	return m.err
}

func (m *mockForumService) ListComments(_ context.Context, _ string, viewer domain.Actor) ([]*domain.Comment, error) {
	m.gotActor = viewer
	return m.comments, m.err
}

func (m *mockForumService) CreateComment(_ context.Context, comment *domain.Comment) error {
	m.comment = comment
	if m.err != nil {
		return m.err
	}
	comment.ID = "c-1"
	return nil
}

func (m *mockForumService) ToggleLike(_ context.Context, _ string, actor domain.Actor) (bool, int, error) {
	m.gotActor = actor
	return m.liked, m.likes, m.err
}

type mockAdminService struct {
	stats       *domain.DashboardStats
	items       []*domain.ModerationItem
	total       int
	status      domain.ModerationStatus
	err         error
	gotParams   domain.PaginationParams
	gotID       string
	gotDecision domain.ModerationDecision
}

func (m *mockAdminService) Stats(context.Context) (*domain.DashboardStats, error) {
	return m.stats, m.err
}

func (m *mockAdminService) ListPendingEvents(_ context.Context, params domain.PaginationParams) ([]*domain.ModerationItem, int, error) {
	m.gotParams = params
	return m.items, m.total, m.err
}

func (m *mockAdminService) ListPendingPosts(_ context.Context, params domain.PaginationParams) ([]*domain.ModerationItem, int, error) {
	m.gotParams = params
	return m.items, m.total, m.err
}

func (m *mockAdminService) ModerateEvent(_ context.Context, id string, decision domain.ModerationDecision) (domain.ModerationStatus, error) {
	m.gotID, m.gotDecision = id, decision
	return m.status, m.err
}

func (m *mockAdminService) ModeratePost(_ context.Context, id string, decision domain.ModerationDecision) (domain.ModerationStatus, error) {
	m.gotID, m.gotDecision = id, decision
	return m.status, m.err
}
