package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/nyaruka/phonenumbers"

	profile "github.com/ovaphlow/pitchfork/service-gig-auth/internal/profile/entity"
	profilerepo "github.com/ovaphlow/pitchfork/service-gig-auth/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/entity"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	MaxPasswordLength = 72
	phoneRegion       = "IN"
	dateLayout        = "2006-01-02"
)

var (
	phonePattern   = regexp.MustCompile(`^(\+91)?[6-9]\d{9}$`)
	gstPattern     = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][A-Z\d]Z[A-Z\d]$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// Account holds the identity fields shared by every role.
type Account struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (a *Account) normalize() {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Email = normalizeEmail(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)
}

func (a Account) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.FullName, validation.Required.Error("Full name is required"), validation.RuneLength(1, 120)),
		validation.Field(&a.Email, validation.Required.Error("Valid email is required"), is.EmailFormat.Error("Valid email is required"), validation.Length(3, 254)),
		validation.Field(&a.Phone, validation.Required.Error("Valid phone number is required"), validation.Match(phonePattern).Error("Valid phone number is required")),
		validation.Field(&a.Password,
			validation.Required.Error("Password is required"),
			validation.Length(MinPasswordLength, MaxPasswordLength).Error(fmt.Sprintf("Password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)),
		),
		validation.Field(&a.ConfirmPassword, validation.Required.Error("Passwords do not match"), validation.By(stringEquals(a.Password, "Passwords do not match"))),
	)
}

// ProfileInput is the role-specific half of a registration. Exactly two variants
// exist: *OrganizerInput and *WorkerInput.
type ProfileInput interface {
	Role() entity.Role
	normalize()
	validate(now time.Time) error
	create(ctx context.Context, store ProfileStore, id, userID string) error
}

// RegisterInput is one registration request.
type RegisterInput struct {
	Account Account
	Profile ProfileInput
}

// NewProfileInput returns an empty variant for a role tag, or ErrInvalidRole.
func NewProfileInput(role string) (ProfileInput, error) {
	r, ok := entity.ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}
	if r == entity.RoleOrganizer {
		return &OrganizerInput{}, nil
	}
	return &WorkerInput{}, nil
}

type AddressInput struct {
	FullAddress string `json:"fullAddress"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
}

func (a AddressInput) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.FullAddress, validation.Required.Error("Address is required"), validation.RuneLength(1, 500)),
		validation.Field(&a.Pincode, validation.Match(pincodePattern).Error("Pincode must be 6 digits")),
	)
}

// OrganizerInput carries the organizer profile fields.
type OrganizerInput struct {
	OrganizationName string       `json:"organizationName"`
	OrganizationType string       `json:"organizationType"`
	GSTNumber        string       `json:"gstNumber"`
	Address          AddressInput `json:"address"`
}

func (o *OrganizerInput) Role() entity.Role { return entity.RoleOrganizer }

func (o *OrganizerInput) normalize() {
	o.OrganizationName = strings.TrimSpace(o.OrganizationName)
	o.OrganizationType = strings.ToLower(strings.TrimSpace(o.OrganizationType))
	o.GSTNumber = strings.ToUpper(strings.TrimSpace(o.GSTNumber))
	trimAll(&o.Address.FullAddress, &o.Address.Street, &o.Address.City, &o.Address.State, &o.Address.Pincode)
}

func (o *OrganizerInput) validate(time.Time) error {
	v := *o
	return validation.ValidateStruct(&v,
		validation.Field(&v.OrganizationName, validation.Required.Error("Organization name is required"), validation.RuneLength(1, 200)),
		validation.Field(&v.OrganizationType, validation.Required, validation.In(anySlice(profile.OrganizationTypes)...)),
		validation.Field(&v.GSTNumber, validation.Match(gstPattern).Error("Invalid GST format")),
		validation.Field(&v.Address),
	)
}

func (o *OrganizerInput) create(ctx context.Context, store ProfileStore, id, userID string) error {
	var gst *string
	if o.GSTNumber != "" {
		g := o.GSTNumber
		gst = &g
	}
	addr := profile.Address{
		FullAddress: o.Address.FullAddress,
		Street:      o.Address.Street,
		City:        o.Address.City,
		State:       o.Address.State,
		Pincode:     o.Address.Pincode,
	}
	return store.CreateOrganizer(ctx, profile.NewOrganizerProfile(id, userID, o.OrganizationName, o.OrganizationType, gst, addr))
}

type LocationInput struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func (l LocationInput) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.City, validation.Required.Error("City is required"), validation.RuneLength(1, 100)),
		validation.Field(&l.Pincode, validation.Match(pincodePattern).Error("Pincode must be 6 digits")),
	)
}

// WorkerInput carries the worker profile fields. DateOfBirth is YYYY-MM-DD.
type WorkerInput struct {
	DateOfBirth     string        `json:"dateOfBirth"`
	Gender          string        `json:"gender"`
	Location        LocationInput `json:"location"`
	Skills          []string      `json:"skills"`
	ExperienceLevel string        `json:"experienceLevel"`
	Bio             string        `json:"bio"`
}

func (w *WorkerInput) Role() entity.Role { return entity.RoleWorker }

func (w *WorkerInput) normalize() {
	w.DateOfBirth = strings.TrimSpace(w.DateOfBirth)
	w.Gender = strings.ToLower(strings.TrimSpace(w.Gender))
	w.ExperienceLevel = strings.ToLower(strings.TrimSpace(w.ExperienceLevel))
	w.Bio = strings.TrimSpace(w.Bio)
	trimAll(&w.Location.City, &w.Location.State, &w.Location.Pincode)
	w.Skills = normalizeSkills(w.Skills)
}

func (w *WorkerInput) validate(now time.Time) error {
	v := *w
	return validation.ValidateStruct(&v,
		validation.Field(&v.DateOfBirth, validation.Required.Error("Date of birth is required"), validation.By(adultOn(now))),
		validation.Field(&v.Gender, validation.Required, validation.In(anySlice(profile.Genders)...)),
		validation.Field(&v.Location),
		validation.Field(&v.Skills, validation.Required.Error("At least one skill is required"), validation.Length(1, 30)),
		validation.Field(&v.ExperienceLevel, validation.In(anySlice(profile.ExperienceLevels)...)),
		validation.Field(&v.Bio, validation.RuneLength(0, profile.MaxBioLength).Error(fmt.Sprintf("Bio cannot exceed %d characters", profile.MaxBioLength))),
	)
}

func (w *WorkerInput) create(ctx context.Context, store ProfileStore, id, userID string) error {
	dob, err := parseDate(w.DateOfBirth)
	if err != nil {
		return err
	}
	loc := profile.Location{City: w.Location.City, State: w.Location.State, Pincode: w.Location.Pincode}
	return store.CreateWorker(ctx, profile.NewWorkerProfile(id, userID, dob, w.Gender, loc, w.Skills, w.ExperienceLevel, w.Bio))
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("must be a valid date (YYYY-MM-DD)")
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func adultOn(now time.Time) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		dob, err := parseDate(s)
		if err != nil {
			return err
		}
		if profile.AgeOn(dob, now) < profile.MinWorkerAge {
			return fmt.Errorf("You must be at least %d years old", profile.MinWorkerAge)
		}
		return nil
	}
}

func stringEquals(want, msg string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != want {
			return errors.New(msg)
		}
		return nil
	}
}

// validateRegistration runs account and profile rules together so the caller
// sees every violated field at once.
func validateRegistration(in *RegisterInput, now time.Time) error {
	all := validation.Errors{}
	for _, err := range []error{in.Account.Validate(), in.Profile.validate(now)} {
		if err == nil {
			continue
		}
		var errs validation.Errors
		if !errors.As(err, &errs) {
			return err
		}
		for k, v := range errs {
			all[k] = v
		}
	}
	return toValidationError(all)
}

// normalizePhone maps accepted national formats to E.164 so "+919876543210"
// and "9876543210" collide on the unique constraint.
func normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, phoneRegion)
	if err != nil {
		return "", err
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeSkills(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func trimAll(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Register validates the request, creates the identity and its profile, and
// issues a token. Profile creation is retried a bounded number of times; if it
// still fails the identity is deleted again and ErrRegistrationFailed returned.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Profile == nil {
		return nil, ErrInvalidRole
	}
	role := in.Profile.Role()
	in.Account.normalize()
	in.Profile.normalize()

	if err := validateRegistration(&in, s.now()); err != nil {
		return nil, err
	}
	phone, err := normalizePhone(in.Account.Phone)
	if err != nil {
		return nil, fieldInvalid("phone", "Valid phone number is required")
	}

	// pre-checks only; the unique constraints decide races
	if taken, err := s.users.EmailExists(ctx, in.Account.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, ErrDuplicateEmail
	}
	if taken, err := s.users.PhoneExists(ctx, phone); err != nil {
		return nil, fmt.Errorf("check phone: %w", err)
	} else if taken {
		return nil, ErrDuplicatePhone
	}

	hash, err := s.hasher.Hash(in.Account.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &entity.User{
		ID:           s.ids.NewID(),
		FullName:     in.Account.FullName,
		Email:        in.Account.Email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		KYCStatus:    entity.KYCUnverified,
		TokenVersion: 1,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicatePhone) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.createProfile(ctx, u, in.Profile); err != nil {
		s.rollback(ctx, u, err)
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	tok, exp, err := s.tokens.Issue(u.ID, string(u.Role), u.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Infow("user registered", "user_id", u.ID, "role", u.Role)
	return &AuthResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

func (s *UserService) createProfile(ctx context.Context, u *entity.User, in ProfileInput) error {
	id := s.ids.NewID()
	var err error
	for attempt := 1; attempt <= s.profileAttempts; attempt++ {
		if err = in.create(ctx, s.profiles, id, u.ID); err == nil {
			return nil
		}
		s.logger.Warnw("create profile failed", "user_id", u.ID, "role", u.Role, "attempt", attempt, "err", err)
		if errors.Is(err, profilerepo.ErrDuplicateProfile) || ctx.Err() != nil {
			break
		}
	}
	return err
}

// rollback deletes an identity whose profile could not be created. It runs
// detached from the request context, which may already be cancelled.
func (s *UserService) rollback(ctx context.Context, u *entity.User, cause error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := s.users.Delete(dctx, u.ID); err != nil {
		s.logger.Errorw("registration rollback failed, identity has no profile",
			"user_id", u.ID, "role", u.Role, "cause", cause, "err", err)
		return
	}
	s.logger.Warnw("registration rolled back", "user_id", u.ID, "role", u.Role, "cause", cause)
}
