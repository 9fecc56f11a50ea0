// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/auth"
	"cmsmini/internal/categorytree"
	"cmsmini/internal/listing"
	"cmsmini/internal/middleware"
	"cmsmini/internal/models"
	"cmsmini/internal/session"
)

// --- in-memory repositories ---

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
	// authors marks accounts that still own posts.
	authors map[uuid.UUID]bool
	lastQ   listing.QuerySpec
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[uuid.UUID]models.User{}, authors: map[uuid.UUID]bool{}}
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) List(_ context.Context, q listing.QuerySpec) ([]models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQ = q
	var out []models.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return nil, fmt.Errorf("%w: duplicate user", apperr.ErrConflictingState)
		}
	}
	created := *u
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.users[created.ID] = created
	return &created, nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, u.ID)
	}
	updated := *u
	m.users[u.ID] = updated
	return &updated, nil
}

func (m *memUsers) modify(id uuid.UUID, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("%w: no such user", apperr.ErrNotFound)
	}
	fn(&u)
	m.users[id] = u
	return nil
}

func (m *memUsers) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	return m.modify(id, func(u *models.User) { u.PasswordHash = hash })
}

func (m *memUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	return m.modify(id, func(u *models.User) { u.TOTPSecret = &secret })
}

func (m *memUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	return m.modify(id, func(u *models.User) { u.TOTPEnabled = true })
}

func (m *memUsers) ResetTOTP(_ context.Context, id uuid.UUID) error {
	return m.modify(id, func(u *models.User) {
		u.TOTPSecret = nil
		u.TOTPEnabled = false
	})
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("%w: no such user", apperr.ErrNotFound)
	}
	if m.authors[id] {
		return fmt.Errorf("%w: user still owns posts", apperr.ErrConflictingState)
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) Stats(_ context.Context, since time.Time) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &models.UserStats{ByRole: map[models.Role]int{}}
	for _, u := range m.users {
		st.TotalUsers++
		if u.IsActive {
			st.ActiveUsers++
		} else {
			st.InactiveUsers++
		}
		if u.CreatedAt.After(since) {
			st.NewUsers++
		}
		st.ByRole[u.Role]++
	}
	return st, nil
}

type memPosts struct {
	mu        sync.Mutex
	posts     map[uuid.UUID]models.Post
	lastQ     listing.QuerySpec
	statsFrom time.Time
}

func newMemPosts() *memPosts {
	return &memPosts{posts: map[uuid.UUID]models.Post{}}
}

func (m *memPosts) List(_ context.Context, q listing.QuerySpec) ([]models.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQ = q
	var out []models.Post
	for _, p := range m.posts {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPosts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memPosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.posts {
		if existing.Slug == p.Slug {
			return nil, fmt.Errorf("%w: duplicate slug", apperr.ErrConflictingState)
		}
	}
	created := *p
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.posts[created.ID] = created
	return &created, nil
}

func (m *memPosts) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.posts[p.ID]
	if !ok {
		return nil, fmt.Errorf("%w: post %s", apperr.ErrNotFound, p.ID)
	}
	updated := *p
	updated.AuthorID = old.AuthorID
	updated.Views, updated.Likes = old.Views, old.Likes
	m.posts[p.ID] = updated
	return &updated, nil
}

func (m *memPosts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return fmt.Errorf("%w: post %s", apperr.ErrNotFound, id)
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) bump(id uuid.UUID, field func(*models.Post) *int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return 0, fmt.Errorf("%w: post %s", apperr.ErrNotFound, id)
	}
	*field(&p)++
	m.posts[id] = p
	return *field(&p), nil
}

func (m *memPosts) IncrementViews(_ context.Context, id uuid.UUID) (int64, error) {
	return m.bump(id, func(p *models.Post) *int64 { return &p.Views })
}

func (m *memPosts) IncrementLikes(_ context.Context, id uuid.UUID) (int64, error) {
	return m.bump(id, func(p *models.Post) *int64 { return &p.Likes })
}

func (m *memPosts) Stats(_ context.Context, since time.Time, top int) (*models.PostStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsFrom = since
	return &models.PostStats{TotalPosts: len(m.posts), TopPosts: []models.PostSummary{}}, nil
}

type memCategories struct {
	mu   sync.Mutex
	cats map[uuid.UUID]models.Category
	// used marks categories referenced by posts.
	used map[uuid.UUID]bool
}

func newMemCategories() *memCategories {
	return &memCategories{cats: map[uuid.UUID]models.Category{}, used: map[uuid.UUID]bool{}}
}

func (m *memCategories) All(context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, c := range m.cats {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCategories) Active(context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, c := range m.cats {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCategories) List(ctx context.Context, _ listing.QuerySpec) ([]models.Category, int, error) {
	all, _ := m.All(ctx)
	return all, len(all), nil
}

func (m *memCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cats[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memCategories) Children(_ context.Context, id uuid.UUID) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, c := range m.cats {
		if c.ParentID != nil && *c.ParentID == id {
			out = append(out, c)
		}
	}
	categorytree.SortSiblings(out)
	return out, nil
}

func (m *memCategories) CountActive(_ context.Context, ids []uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if c, ok := m.cats[id]; ok && c.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memCategories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cats {
		if existing.Name == c.Name {
			return nil, fmt.Errorf("%w: duplicate name", apperr.ErrConflictingState)
		}
	}
	created := *c
	created.ID = uuid.New()
	m.cats[created.ID] = created
	return &created, nil
}

func (m *memCategories) Update(_ context.Context, c *models.Category) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cats[c.ID]; !ok {
		return nil, fmt.Errorf("%w: category %s", apperr.ErrNotFound, c.ID)
	}
	m.cats[c.ID] = *c
	updated := *c
	return &updated, nil
}

func (m *memCategories) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cats {
		if c.ParentID != nil && *c.ParentID == id {
			return fmt.Errorf("%w: category has subcategories", apperr.ErrConflictingState)
		}
	}
	if m.used[id] {
		return fmt.Errorf("%w: category is used by posts", apperr.ErrConflictingState)
	}
	if _, ok := m.cats[id]; !ok {
		return fmt.Errorf("%w: category %s", apperr.ErrNotFound, id)
	}
	delete(m.cats, id)
	return nil
}

func (m *memCategories) NextSortOrder(_ context.Context, parentID *uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 0
	for _, c := range m.cats {
		same := (c.ParentID == nil && parentID == nil) ||
			(c.ParentID != nil && parentID != nil && *c.ParentID == *parentID)
		if same && c.SortOrder >= next {
			next = c.SortOrder + 1
		}
	}
	return next, nil
}

// put stores c directly, bypassing validation.
func (m *memCategories) put(c models.Category) models.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.cats[c.ID] = c
	return c
}

type memSessions struct {
	mu  sync.Mutex
	ids map[string]uuid.UUID
}

func newMemSessions() *memSessions {
	return &memSessions{ids: map[string]uuid.UUID{}}
}

func (m *memSessions) Create(_ context.Context, id string, data *session.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id] = data.UserID
	return nil
}

func (m *memSessions) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, id)
	return nil
}

func (m *memSessions) DestroyAllForUser(_ context.Context, userID uuid.UUID, keep ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := map[string]bool{}
	for _, id := range keep {
		kept[id] = true
	}
	for id, owner := range m.ids {
		if owner == userID && !kept[id] {
			delete(m.ids, id)
		}
	}
	return nil
}

func (m *memSessions) count(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, owner := range m.ids {
		if owner == userID {
			n++
		}
	}
	return n
}

type memCache struct {
	mu            sync.Mutex
	entries       map[string][]byte
	gens          map[string]int
	invalidations int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}, gens: map[string]int{}}
}

func memGroup(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i+1]
	}
	return key
}

func (m *memCache) slotLocked(key string) string {
	return fmt.Sprintf("%s#%d", key, m.gens[memGroup(key)])
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := m.slotLocked(key)
	b, ok := m.entries[slot]
	return b, slot, ok
}

func (m *memCache) Set(_ context.Context, slot string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot != "" {
		m.entries[slot] = body
	}
}

func (m *memCache) Invalidate(_ context.Context, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations++
	m.gens[group]++
	for slot := range m.entries {
		if strings.HasPrefix(slot, group) {
			delete(m.entries, slot)
		}
	}
}

// cached reports whether key currently has a servable body.
func (m *memCache) cached(key string) bool {
	_, _, ok := m.Get(context.Background(), key)
	return ok
}

// prime stores body as the current value of key.
func (m *memCache) prime(key string, body string) {
	_, slot, _ := m.Get(context.Background(), key)
	m.Set(context.Background(), slot, []byte(body))
}

// --- test environment ---

type testEnv struct {
	Users      *memUsers
	Posts      *memPosts
	Categories *memCategories
	Sessions   *memSessions
	Cache      *memCache

	Auth          *Auth
	PostHandlers  *Posts
	CategoryGroup *Categories
	UserHandlers  *Users
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ring, err := auth.NewKeyRing(map[string]string{"primary": "handler-test-secret"}, "primary", nil)
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}
	tokens := auth.NewTokens(ring, "cmsmini-test", time.Hour)

	env := &testEnv{
		Users:      newMemUsers(),
		Posts:      newMemPosts(),
		Categories: newMemCategories(),
		Sessions:   newMemSessions(),
		Cache:      newMemCache(),
	}
	env.Auth = NewAuth(env.Users, env.Sessions, tokens)
	env.PostHandlers = NewPosts(env.Posts, env.Categories)
	env.CategoryGroup = NewCategories(env.Categories, env.Cache)
	env.UserHandlers = NewUsers(env.Users, env.Sessions)
	return env
}

// account stores a user with role and returns its verified identity.
func (env *testEnv) account(t *testing.T, role models.Role) *auth.Verified {
	t.Helper()
	name := fmt.Sprintf("%s_%s", role, uuid.NewString()[:8])
	u, err := env.Users.Create(context.Background(), &models.User{
		Username: name,
		Email:    name + "@example.com",
		FullName: "Test " + string(role),
		Role:     role,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return verifiedFor(u)
}

func verifiedFor(u *models.User) *auth.Verified {
	return &auth.Verified{
		Principal: access.PrincipalFor(u),
		Identity:  auth.Identity{AccountID: u.ID, TokenID: uuid.NewString()},
		Account:   u,
	}
}

// newRequest builds a request acting as v (nil for anonymous) with the
// given chi URL parameters.
func newRequest(method, target string, body any, v *auth.Verified, params map[string]string) *http.Request {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, val := range params {
		rctx.URLParams.Add(k, val)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if v != nil {
		ctx = middleware.WithVerified(ctx, v)
	}
	return req.WithContext(ctx)
}

func idParam(id uuid.UUID) map[string]string {
	return map[string]string{"id": id.String()}
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decode[errorBody](t, rec)
	if body.Error.Code != code {
		t.Errorf("code = %q, want %q", body.Error.Code, code)
	}
}

func ptr[T any](v T) *T { return &v }

func sessionData(u *models.User) *session.Data {
	now := time.Now()
	return &session.Data{UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
}
