package user

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	profile "github.com/ovaphlow/pitchfork/service-gig-auth/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/token"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/entity"
)

// memUsers enforces the same uniqueness the users table does.
type memUsers struct {
	mu   sync.Mutex
	byID map[string]entity.User
	// blindPrechecks makes EmailExists/PhoneExists miss, as when a concurrent
	// insert lands between the check and Create
	blindPrechecks bool
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]entity.User{}} }

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if strings.EqualFold(o.Email, u.Email) {
			return ErrDuplicateEmail
		}
		if o.Phone == u.Phone {
			return ErrDuplicatePhone
		}
	}
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.blindPrechecks {
		return false, nil
	}
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memUsers) PhoneExists(_ context.Context, phone string) (bool, error) {
	if m.blindPrechecks {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) update(id string, fn func(u *entity.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(&u)
	m.byID[id] = u
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	return m.update(id, func(u *entity.User) { u.LastLoginAt = &at })
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return m.update(id, func(u *entity.User) { u.PasswordHash = hash })
}

func (m *memUsers) SetActive(_ context.Context, id string, active bool) error {
	return m.update(id, func(u *entity.User) {
		u.IsActive = active
		u.TokenVersion++
	})
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memProfiles fails the first failN create calls with failErr.
type memProfiles struct {
	mu         sync.Mutex
	organizers map[string]*profile.OrganizerProfile
	workers    map[string]*profile.WorkerProfile
	failN      int
	failErr    error
	calls      int
}

func newMemProfiles() *memProfiles {
	return &memProfiles{
		organizers: map[string]*profile.OrganizerProfile{},
		workers:    map[string]*profile.WorkerProfile{},
	}
}

func (m *memProfiles) fail() error {
	m.calls++
	if m.failN != 0 {
		if m.failN > 0 {
			m.failN--
		}
		return m.failErr
	}
	return nil
}

func (m *memProfiles) CreateOrganizer(_ context.Context, p *profile.OrganizerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.organizers[p.UserID] = p
	return nil
}

func (m *memProfiles) CreateWorker(_ context.Context, p *profile.WorkerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.workers[p.UserID] = p
	return nil
}

func (m *memProfiles) OrganizerByUserID(_ context.Context, userID string) (*profile.OrganizerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.organizers[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memProfiles) WorkerByUserID(_ context.Context, userID string) (*profile.WorkerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.workers[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memProfiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.organizers) + len(m.workers)
}

type fixture struct {
	svc      *UserService
	users    *memUsers
	profiles *memProfiles
	tokens   *token.Service
}

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	tokens, err := token.NewService(token.Config{
		Secret: []byte("test-secret-test-secret-test-secret"),
		TTL:    time.Hour,
		Issuer: "gig-auth-test",
	})
	require.NoError(t, err)

	var seq atomic.Int64
	f := &fixture{users: newMemUsers(), profiles: newMemProfiles(), tokens: tokens}
	base := []Option{
		WithHasher(BcryptHasher{Cost: bcrypt.MinCost}),
		WithIDSource(idFunc(func() string { return strconv.FormatInt(1000+seq.Add(1), 10) })),
		WithClock(func() time.Time { return fixedNow }),
	}
	f.svc, err = NewUserService(f.users, f.profiles, tokens, zap.NewNop().Sugar(), append(base, opts...)...)
	require.NoError(t, err)
	return f
}

func workerInput(email, phone string) RegisterInput {
	return RegisterInput{
		Account: Account{
			FullName:        "Asha Rao",
			Email:           email,
			Phone:           phone,
			Password:        "s3cret-pass",
			ConfirmPassword: "s3cret-pass",
		},
		Profile: &WorkerInput{
			DateOfBirth: "1998-04-12",
			Gender:      "female",
			Location:    LocationInput{City: "Pune", State: "MH", Pincode: "411001"},
			Skills:      []string{"ushering", " Ushering ", "anchoring"},
		},
	}
}

func organizerInput(email, phone string) RegisterInput {
	return RegisterInput{
		Account: Account{
			FullName:        "Vikram Shah",
			Email:           email,
			Phone:           phone,
			Password:        "s3cret-pass",
			ConfirmPassword: "s3cret-pass",
		},
		Profile: &OrganizerInput{
			OrganizationName: "Acme Events",
			OrganizationType: "company",
			GSTNumber:        "27aapfu0939f1zv",
			Address:          AddressInput{FullAddress: "12 MG Road, Pune", City: "Pune"},
		},
	}
}
