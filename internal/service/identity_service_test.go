package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/identity-service/internal/auth"
	"github.com/ledgerkit/identity-service/internal/config"
	"github.com/ledgerkit/identity-service/internal/domain"
	"github.com/ledgerkit/identity-service/internal/service"
)

type fakeAdminRepo struct {
	mu     sync.Mutex
	admins map[string]*domain.Administrator
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: map[string]*domain.Administrator{}}
}

func (r *fakeAdminRepo) Create(_ context.Context, admin *domain.Administrator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin.ID = uuid.NewString()
	r.admins[admin.ID] = admin
	return nil
}

func (r *fakeAdminRepo) GetByID(_ context.Context, id string) (*domain.Administrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if admin, ok := r.admins[id]; ok {
		return admin, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*domain.Administrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, admin := range r.admins {
		if admin.Email == email {
			return admin, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAdminRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.admins)), nil
}

type fakeProfileRepo struct {
	mu             sync.Mutex
	profiles       map[string]*domain.Profile
	getByEmailHits int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*domain.Profile{}}
}

func (r *fakeProfileRepo) Create(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.Email == profile.Email {
			return pgx.ErrTooManyRows // stand-in for a unique violation
		}
	}
	profile.ID = uuid.NewString()
	r.profiles[profile.ID] = profile
	return nil
}

func (r *fakeProfileRepo) Upsert(_ context.Context, profile *domain.Profile) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.Email == profile.Email {
			return existing, nil
		}
	}
	inserted := *profile
	inserted.ID = uuid.NewString()
	r.profiles[inserted.ID] = &inserted
	return &inserted, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[profile.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.profiles[profile.ID] = profile
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile, ok := r.profiles[id]; ok {
		return profile, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getByEmailHits++
	for _, profile := range r.profiles {
		if profile.Email == email {
			return profile, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeProfileRepo) CountByEmail(_ context.Context, email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, profile := range r.profiles {
		if profile.Email == email {
			count++
		}
	}
	return count, nil
}

func testConfig() config.Config {
	return config.Config{
		Session:   config.SessionConfig{SigningSecret: "session-secret", BcryptCost: 4},
		Bootstrap: config.BootstrapConfig{Secret: "bootstrap-secret"},
	}
}

func newService(admins *fakeAdminRepo, profiles *fakeProfileRepo) *service.IdentityService {
	return service.NewIdentityService(testConfig(), service.Dependencies{
		AdminRepo:   admins,
		ProfileRepo: profiles,
	})
}

func seedAdmin(t *testing.T, repo *fakeAdminRepo, email, password string) *domain.Administrator {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	admin := &domain.Administrator{Email: email, PasswordHash: hash, DisplayName: "Admin"}
	require.NoError(t, repo.Create(context.Background(), admin))
	return admin
}

func seedProfile(t *testing.T, repo *fakeProfileRepo, email string, password *string) *domain.Profile {
	t.Helper()
	var hash *string
	if password != nil {
		h, err := auth.HashPassword(*password, 4)
		require.NoError(t, err)
		hash = &h
	}
	profile := &domain.Profile{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Profile User",
		Role:         domain.RoleUser,
		PlanID:       domain.DefaultPlanID,
	}
	require.NoError(t, repo.Create(context.Background(), profile))
	return profile
}

func strPtr(s string) *string { return &s }

func TestAuthenticateAdministrator(t *testing.T) {
	ctx := context.Background()
	admins := newFakeAdminRepo()
	profiles := newFakeProfileRepo()
	seedAdmin(t, admins, "admin@x.com", "correct-horse")
	svc := newService(admins, profiles)

	identity, err := svc.Authenticate(ctx, "admin@x.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, identity.Role)
	assert.Equal(t, domain.IdentitySourceAdministrator, identity.Source)
	// resolving an administrator never touches the profile store
	assert.Zero(t, profiles.getByEmailHits)
}

func TestAdministratorMatchIsExclusive(t *testing.T) {
	ctx := context.Background()
	admins := newFakeAdminRepo()
	profiles := newFakeProfileRepo()
	seedAdmin(t, admins, "admin@x.com", "admin-password")
	// same email also exists as a profile with a different password
	seedProfile(t, profiles, "admin@x.com", strPtr("profile-password"))
	svc := newService(admins, profiles)

	// the profile's password must not authenticate through the admin email
	_, err := svc.Authenticate(ctx, "admin@x.com", "profile-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.Zero(t, profiles.getByEmailHits, "wrong admin password must not fall through to the profile store")
}

func TestAuthenticateNormalizesEmail(t *testing.T) {
	ctx := context.Background()
	admins := newFakeAdminRepo()
	profiles := newFakeProfileRepo()
	seedProfile(t, profiles, "user@x.com", strPtr("secret-pw"))
	svc := newService(admins, profiles)

	identity, err := svc.Authenticate(ctx, "  User@X.com ", "secret-pw")
	require.NoError(t, err)
	assert.Equal(t, "user@x.com", identity.Email)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := newService(newFakeAdminRepo(), newFakeProfileRepo())

	_, err := svc.Authenticate(context.Background(), "new@x.com", "whatever")
	assert.ErrorIs(t, err, service.ErrIdentityNotFound)
}

func TestOAuthOnlyProfileNeverPasswordAuthenticates(t *testing.T) {
	ctx := context.Background()
	admins := newFakeAdminRepo()
	profiles := newFakeProfileRepo()
	seedProfile(t, profiles, "social@x.com", nil)
	svc := newService(admins, profiles)

	for _, password := range []string{"", "password", "social@x.com"} {
		_, err := svc.Authenticate(ctx, "social@x.com", password)
		assert.ErrorIs(t, err, service.ErrNoPasswordSet)
	}
}

func TestAuthenticateWrongProfilePassword(t *testing.T) {
	ctx := context.Background()
	admins := newFakeAdminRepo()
	profiles := newFakeProfileRepo()
	seedProfile(t, profiles, "user@x.com", strPtr("right"))
	svc := newService(admins, profiles)

	_, err := svc.Authenticate(ctx, "user@x.com", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestResolveOrProvisionCreatesProfileOnFirstSight(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	svc := newService(newFakeAdminRepo(), profiles)

	identity, err := svc.ResolveOrProvision(ctx, service.ExternalIdentity{
		Subject:     "google-sub",
		Email:       "Social@X.com",
		DisplayName: "Social User",
	})
	require.NoError(t, err)

	assert.Equal(t, "social@x.com", identity.Email)
	assert.Equal(t, domain.RoleUser, identity.Role)
	assert.Equal(t, domain.DefaultPlanID, identity.PlanID)
	assert.False(t, identity.HasSeenWelcome)
	assert.Contains(t, identity.AvatarURL, "name=S")

	stored, err := profiles.GetByEmail(ctx, "social@x.com")
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordHash)
}

func TestResolveOrProvisionKeepsExistingProfileUnchanged(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	existing := seedProfile(t, profiles, "social@x.com", nil)
	svc := newService(newFakeAdminRepo(), profiles)

	identity, err := svc.ResolveOrProvision(ctx, service.ExternalIdentity{
		Email:       "social@x.com",
		DisplayName: "A Different Name",
		AvatarURL:   "https://elsewhere.example/avatar.png",
	})
	require.NoError(t, err)

	// provider fields never overwrite an existing profile
	assert.Equal(t, existing.DisplayName, identity.DisplayName)
	assert.Equal(t, existing.AvatarURL, identity.AvatarURL)
}

func TestResolveOrProvisionConcurrentFirstLogins(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	svc := newService(newFakeAdminRepo(), profiles)

	ext := service.ExternalIdentity{Email: "race@x.com", DisplayName: "Racer"}

	var wg sync.WaitGroup
	results := make([]*domain.Identity, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity, err := svc.ResolveOrProvision(ctx, ext)
			if assert.NoError(t, err) {
				results[i] = identity
			}
		}(i)
	}
	wg.Wait()

	count, err := profiles.CountByEmail(ctx, "race@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, results[0].SubjectID, results[1].SubjectID)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	svc := newService(newFakeAdminRepo(), profiles)

	identity, err := svc.SignUp(ctx, "new@x.com", "pass-word", "New User")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, identity.Role)

	// credential login works right after signup
	resolved, err := svc.Authenticate(ctx, "new@x.com", "pass-word")
	require.NoError(t, err)
	assert.Equal(t, identity.SubjectID, resolved.SubjectID)

	_, err = svc.SignUp(ctx, "new@x.com", "other", "Dup")
	assert.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestBootstrapAdministrator(t *testing.T) {
	ctx := context.Background()
	admins := newFakeAdminRepo()
	svc := newService(admins, newFakeProfileRepo())

	_, err := svc.BootstrapAdministrator(ctx, "wrong-secret", "admin@x.com", "pw", "Admin")
	assert.ErrorIs(t, err, service.ErrBootstrapSecretWrong)

	admin, err := svc.BootstrapAdministrator(ctx, "bootstrap-secret", "Admin@X.com", "pw", "Admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@x.com", admin.Email)

	_, err = svc.BootstrapAdministrator(ctx, "bootstrap-secret", "other@x.com", "pw", "Other")
	assert.ErrorIs(t, err, service.ErrBootstrapCompleted)
}

func TestAcknowledgeWelcome(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	profile := seedProfile(t, profiles, "user@x.com", strPtr("pw"))
	svc := newService(newFakeAdminRepo(), profiles)

	identity, err := svc.AcknowledgeWelcome(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, identity.HasSeenWelcome)

	stored, err := profiles.GetByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasSeenWelcome)
}

func TestUpdateProfileDisplay(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	profile := seedProfile(t, profiles, "user@x.com", strPtr("pw"))
	svc := newService(newFakeAdminRepo(), profiles)

	identity, err := svc.UpdateProfileDisplay(ctx, profile.ID, strPtr("Renamed"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", identity.DisplayName)

	_, err = svc.UpdateProfileDisplay(ctx, uuid.NewString(), strPtr("X"), nil)
	assert.ErrorIs(t, err, service.ErrIdentityNotFound)
}

func TestPlaceholderAvatarURL(t *testing.T) {
	assert.Equal(t, "https://ui-avatars.com/api/?name=S", service.PlaceholderAvatarURL("social user"))
	assert.Equal(t, "https://ui-avatars.com/api/?name=%3F", service.PlaceholderAvatarURL("  "))
}
