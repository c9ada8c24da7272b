package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

// In-memory fakes of the repository, mailer and media contracts. They
// enforce the same uniqueness and not-found rules as the sqlite stores.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// clock hands out strictly increasing timestamps so "newest first" is
// deterministic.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	c.now = c.now.Add(time.Second)
	return c.now
}

// ---------------------------------------------------------------- users

var _ repository.UserRepository = (*fakeUserRepo)(nil)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	clock  clock

	// posts and tokens are cleared on Delete to mimic the cascade.
	posts  *fakePostRepo
	tokens *fakeTokenRepo

	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = f.clock.tick()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFoundMessage("user not found")
}

func (f *fakeUserRepo) List(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeUserRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

// write applies change to the stored user under the lock.
func (f *fakeUserRepo) write(id string, change func(u *model.User)) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	change(u)
	u.UpdatedAt = f.clock.tick()
	return nil
}

func (f *fakeUserRepo) MarkVerified(_ context.Context, id string) error {
	return f.write(id, func(u *model.User) { u.IsAccountVerified = true })
}

func (f *fakeUserRepo) SetPassword(_ context.Context, id, hash string) error {
	return f.write(id, func(u *model.User) {
		u.PasswordHash = hash
		u.IsAccountVerified = true
	})
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id string, c repository.ProfileChanges) error {
	return f.write(id, func(u *model.User) {
		if c.Username != nil {
			u.Username = *c.Username
		}
		if c.Bio != nil {
			u.Bio = *c.Bio
		}
		if c.PasswordHash != nil {
			u.PasswordHash = *c.PasswordHash
		}
	})
}

func (f *fakeUserRepo) SetProfilePhoto(_ context.Context, id string, photo model.Image) (model.Image, error) {
	var previous model.Image
	err := f.write(id, func(u *model.User) {
		previous = u.ProfilePhoto
		u.ProfilePhoto = photo
	})
	return previous, err
}

func (f *fakeUserRepo) SetAdmin(_ context.Context, id string, isAdmin bool) error {
	return f.write(id, func(u *model.User) { u.IsAdmin = isAdmin })
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	if _, ok := f.users[id]; !ok {
		f.mu.Unlock()
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	f.mu.Unlock()

	if f.tokens != nil {
		f.tokens.deleteForUser(id)
	}
	if f.posts != nil {
		f.posts.deleteForUser(id)
	}
	return nil
}

// ---------------------------------------------------------------- tokens

var _ repository.VerificationTokenRepository = (*fakeTokenRepo)(nil)

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.VerificationToken
	nextID int

	// beforeCreate runs at the start of Create, outside the lock. Tests use
	// it to simulate a concurrent request winning the race.
	beforeCreate func()
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.VerificationToken), nextID: 1}
}

func (f *fakeTokenRepo) Create(_ context.Context, token *model.VerificationToken) error {
	if hook := f.beforeCreate; hook != nil {
		f.beforeCreate = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.UserID == token.UserID || t.Token == token.Token {
			return apperror.Conflict("verification token", token.UserID)
		}
	}
	token.ID = fmt.Sprintf("token-%d", f.nextID)
	f.nextID++
	token.CreatedAt = time.Now()
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *fakeTokenRepo) GetByUserID(_ context.Context, userID string) (*model.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.UserID == userID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, apperror.NotFoundMessage("verification token not found")
}

func (f *fakeTokenRepo) Find(_ context.Context, userID, token string) (*model.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.UserID == userID && t.Token == token {
			copied := *t
			return &copied, nil
		}
	}
	return nil, apperror.NotFoundMessage("verification token not found")
}

func (f *fakeTokenRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[id]; !ok {
		return apperror.NotFound("verification token", id)
	}
	delete(f.tokens, id)
	return nil
}

func (f *fakeTokenRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

func (f *fakeTokenRepo) deleteForUser(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, id)
		}
	}
}

// ---------------------------------------------------------------- posts

var _ repository.PostRepository = (*fakePostRepo)(nil)

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[string]*model.Post
	nextID int
	clock  clock

	// comments are dropped together with their post.
	comments *fakeCommentRepo

	createErr error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post), nextID: 1}
}

func (f *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	f.nextID++
	post.CreatedAt = f.clock.tick()
	post.UpdatedAt = post.CreatedAt
	post.Likes = []string{}
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) get(id string) (*model.Post, bool) {
	p, ok := f.posts[id]
	if !ok {
		return nil, false
	}
	copied := *p
	copied.Likes = append([]string{}, p.Likes...)
	return &copied, true
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.get(id)
	if !ok {
		return nil, apperror.NotFoundMessage("post not found")
	}
	return p, nil
}

func (f *fakePostRepo) sorted(keep func(*model.Post) bool) []model.Post {
	var out []model.Post
	for id := range f.posts {
		p, _ := f.get(id)
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakePostRepo) List(_ context.Context, filter repository.PostFilter) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sorted(func(p *model.Post) bool {
		return filter.Category == "" || p.Category == filter.Category
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []model.Post{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakePostRepo) ListByUser(_ context.Context, userID string) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(p *model.Post) bool { return p.UserID == userID }), nil
}

func (f *fakePostRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts), nil
}

func (f *fakePostRepo) Update(_ context.Context, post *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.posts[post.ID]
	if !ok {
		return apperror.NotFoundMessage("post not found")
	}
	existing.Title = post.Title
	existing.Description = post.Description
	existing.Category = post.Category
	existing.Image = post.Image
	existing.UpdatedAt = f.clock.tick()
	return nil
}

func (f *fakePostRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	if _, ok := f.posts[id]; !ok {
		f.mu.Unlock()
		return apperror.NotFoundMessage("post not found")
	}
	delete(f.posts, id)
	f.mu.Unlock()

	if f.comments != nil {
		f.comments.deleteForPost(id)
	}
	return nil
}

func (f *fakePostRepo) ToggleLike(_ context.Context, postID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return apperror.NotFoundMessage("post not found")
	}
	for i, id := range p.Likes {
		if id == userID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return nil
		}
	}
	p.Likes = append(p.Likes, userID)
	return nil
}

func (f *fakePostRepo) deleteForUser(userID string) {
	f.mu.Lock()
	var dropped []string
	for id, p := range f.posts {
		if p.UserID == userID {
			delete(f.posts, id)
			dropped = append(dropped, id)
		}
	}
	f.mu.Unlock()

	if f.comments != nil {
		for _, id := range dropped {
			f.comments.deleteForPost(id)
		}
		f.comments.deleteForUser(userID)
	}
}

// ---------------------------------------------------------------- comments

var _ repository.CommentRepository = (*fakeCommentRepo)(nil)

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[string]*model.Comment
	nextID   int
	clock    clock
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string]*model.Comment), nextID: 1}
}

func (f *fakeCommentRepo) Create(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = fmt.Sprintf("comment-%d", f.nextID)
	f.nextID++
	c.CreatedAt = f.clock.tick()
	c.UpdatedAt = c.CreatedAt
	copied := *c
	f.comments[c.ID] = &copied
	return nil
}

func (f *fakeCommentRepo) GetByID(_ context.Context, id string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, apperror.NotFoundMessage("comment not found")
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCommentRepo) filter(keep func(*model.Comment) bool) []model.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Comment{}
	for _, c := range f.comments {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeCommentRepo) List(_ context.Context) ([]model.Comment, error) {
	return f.filter(func(*model.Comment) bool { return true }), nil
}

func (f *fakeCommentRepo) ListByPost(_ context.Context, postID string) ([]model.Comment, error) {
	return f.filter(func(c *model.Comment) bool { return c.PostID == postID }), nil
}

func (f *fakeCommentRepo) Update(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.comments[c.ID]
	if !ok {
		return apperror.NotFoundMessage("comment not found")
	}
	existing.Text = c.Text
	existing.UpdatedAt = f.clock.tick()
	return nil
}

func (f *fakeCommentRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return apperror.NotFoundMessage("comment not found")
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeCommentRepo) deleteForPost(postID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.comments {
		if c.PostID == postID {
			delete(f.comments, id)
		}
	}
}

func (f *fakeCommentRepo) deleteForUser(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.comments {
		if c.UserID == userID {
			delete(f.comments, id)
		}
	}
}

// ---------------------------------------------------------------- categories

var _ repository.CategoryRepository = (*fakeCategoryRepo)(nil)

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories []model.Category
	nextID     int
}

func (f *fakeCategoryRepo) Create(_ context.Context, c *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = fmt.Sprintf("category-%d", f.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.categories = append(f.categories, *c)
	return nil
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id string) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.ID == id {
			copied := c
			return &copied, nil
		}
	}
	return nil, apperror.NotFoundMessage("category not found")
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Category{}, f.categories...), nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.categories {
		if c.ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return apperror.NotFoundMessage("category not found")
}

// ---------------------------------------------------------------- mail

type sentMail struct {
	To, Subject, HTML string
}

// recordingSender is a mailer.Sender that keeps every message.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, subject, html string) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (r *recordingSender) last() sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentMail{}
	}
	return r.sent[len(r.sent)-1]
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// ---------------------------------------------------------------- media

// fakeHost is a media.Host that records uploads and removals.
type fakeHost struct {
	mu        sync.Mutex
	nextID    int
	stored    map[string]string
	removed   []string
	uploadErr error
	removeErr error

	// beforeUpload runs at the start of Upload, while the caller waits on
	// the host.
	beforeUpload func()
}

func newFakeHost() *fakeHost {
	return &fakeHost{stored: make(map[string]string)}
}

func (h *fakeHost) Upload(_ context.Context, name, _ string, body io.Reader) (model.Image, error) {
	if h.beforeUpload != nil {
		h.beforeUpload()
	}
	if h.uploadErr != nil {
		return model.Image{}, h.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return model.Image{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := fmt.Sprintf("images/%d-%s", h.nextID, name)
	h.stored[id] = string(data)
	return model.Image{URL: "https://media.test/" + id, PublicID: id}, nil
}

func (h *fakeHost) Remove(_ context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	if h.removeErr != nil {
		return h.removeErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.stored, publicID)
	h.removed = append(h.removed, publicID)
	return nil
}

func (h *fakeHost) RemoveMany(ctx context.Context, publicIDs []string) error {
	for _, id := range publicIDs {
		if err := h.Remove(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (h *fakeHost) has(publicID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.stored[publicID]
	return ok
}
