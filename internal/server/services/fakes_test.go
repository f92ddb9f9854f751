package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/dbx"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/attempts"
	refreshtokensrepo "github.com/dmitrijs2005/neurorecall/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/scores"
	usersrepo "github.com/dmitrijs2005/neurorecall/internal/server/repositories/users"
	"github.com/dmitrijs2005/neurorecall/internal/server/storage"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu    sync.Mutex
	users map[string]*models.User

	createErr error
	getErr    error
	failures  map[string]int
	photoErr  error
}

func newFakeUsers(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{users: map[string]*models.User{}, failures: map[string]int{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) find(match func(u *models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.UserName, u.UserName) || existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = "00000000-0000-0000-0000-00000000000" + string(rune('1'+len(f.users)))
	c.CreatedAt = time.Now()
	f.users[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsersRepo) GetByUsername(_ context.Context, name string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.UserName == name })
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == strings.ToLower(email) })
}

func (f *fakeUsersRepo) GetByResetToken(_ context.Context, token string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (f *fakeUsersRepo) RecordFailedLogin(_ context.Context, id string, maxAttempts int, lockUntil time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		t := lockUntil
		u.LockedUntil = &t
	}
	return u.FailedLoginAttempts, nil
}

func (f *fakeUsersRepo) RecordSuccessfulLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &at
	return nil
}

func (f *fakeUsersRepo) SetResetToken(_ context.Context, id, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeUsersRepo) ClearResetToken(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	return nil
}

func (f *fakeUsersRepo) ResetPassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

func (f *fakeUsersRepo) SetProfilePhoto(_ context.Context, id, name string) error {
	if f.photoErr != nil {
		return f.photoErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.ProfilePhoto = &name
	return nil
}

func (f *fakeUsersRepo) SetRole(_ context.Context, id, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id].Role = role
	return nil
}

func (f *fakeUsersRepo) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.ResetTokenExpiry != nil && u.ResetTokenExpiry.Before(now) {
			u.ResetToken, u.ResetTokenExpiry = nil, nil
			n++
		}
	}
	return n, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	tokens    map[string]*models.RefreshToken
	takeErr   error
	createErr error
	delErr    error
	deleted   []string
}

func newFakeRefresh() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Take(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.takeErr != nil {
		return nil, f.takeErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tokens, token)
	return t, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range f.tokens {
		if t.Expires.Before(now) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- scores ---

type fakeScoresRepo struct {
	mu      sync.Mutex
	rows    []models.Score
	users   map[string]*models.User
	upserts int

	queryErr   error
	historyErr error
	upsertErr  error
	histories  int
}

func (f *fakeScoresRepo) Upsert(_ context.Context, s *models.Score) (*models.Score, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	c := *s
	for i, r := range f.rows {
		if r.UserID == s.UserID && r.TestNumber == s.TestNumber && r.RoundNumber == s.RoundNumber {
			c.ID = r.ID
			f.rows[i] = c
			return &c, nil
		}
	}
	c.ID = "s-" + string(rune('a'+len(f.rows)))
	f.rows = append(f.rows, c)
	return &c, nil
}

func (f *fakeScoresRepo) Query(_ context.Context, flt scores.Filter) ([]models.ScoreRow, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ScoreRow{}
	for _, r := range f.rows {
		u := f.users[r.UserID]
		if flt.UserID != "" && r.UserID != flt.UserID {
			continue
		}
		if flt.UserName != "" && (u == nil || u.UserName != flt.UserName) {
			continue
		}
		if flt.TestNumber != nil && r.TestNumber != *flt.TestNumber {
			continue
		}
		if flt.TestTime != nil && (r.TestTime.Before(*flt.TestTime) || !r.TestTime.Before(flt.TestTime.Add(scores.Bucket))) {
			continue
		}
		row := models.ScoreRow{Score: r}
		if u != nil {
			row.UserName, row.Age, row.Sex = u.UserName, u.Age, u.Sex
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UserName != out[j].UserName {
			return out[i].UserName < out[j].UserName
		}
		if out[i].TestNumber != out[j].TestNumber {
			return out[i].TestNumber < out[j].TestNumber
		}
		return out[i].RoundNumber < out[j].RoundNumber
	})
	return out, nil
}

func (f *fakeScoresRepo) ListByUserTest(_ context.Context, userID string, test int) ([]models.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var out []models.Score
	for _, r := range f.rows {
		if r.UserID == userID && r.TestNumber == test {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- attempts ---

type fakeAttemptsRepo struct{}

func (fakeAttemptsRepo) Lock(context.Context, string) error                 { return nil }
func (fakeAttemptsRepo) Record(context.Context, string, time.Time) error { return nil }
func (fakeAttemptsRepo) CountSince(context.Context, string, time.Time) (int, error) {
	return 0, nil
}
func (fakeAttemptsRepo) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	s *fakeScoresRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Scores(db dbx.DBTX) scores.Repository                   { return m.s }
func (m *fakeRepoManager) Attempts(db dbx.DBTX) attempts.Repository               { return fakeAttemptsRepo{} }

// --- object store ---

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	times   map[string]time.Time
	putErr  error
	clock   time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, times: map[string]time.Time{}, clock: time.Unix(0, 0)}
}

func (f *fakeStore) Put(_ context.Context, key, _ string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	f.objects[key] = data
	f.times[key] = f.clock
	return nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://objects.local/" + key + "?sig=1", nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Object
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.Object{Key: k, LastModified: f.times[k]})
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.objects, k)
	}
	return nil
}

func (f *fakeStore) keys(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// --- transcriber ---

type fakeTranscriber struct {
	text string
	err  error
	ext  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, ext string) (string, error) {
	f.ext = ext
	return f.text, f.err
}
