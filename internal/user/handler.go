package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/entity"
)

// maxBodyBytes caps request bodies on the auth endpoints.
const maxBodyBytes = 1 << 20

// Handler exposes HTTP endpoints for registration, login and identity fetch.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
	// dev adds the internal error text to 500 responses
	dev bool
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger, dev bool) *Handler {
	return &Handler{svc: svc, logger: logger, dev: dev}
}

// Envelope is the shape of every response body.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// AuthData is the data block of register and login responses.
type AuthData struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      entity.PublicUser `json:"user"`
}

// MeData is the data block of GET /auth/me.
type MeData struct {
	User    entity.UserView `json:"user"`
	Profile any             `json:"profile"`
}

// Register handles POST /auth/register/{role}.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	prof, err := NewProfileInput(r.PathValue("role"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid role specified"})
		return
	}
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid request body"})
		return
	}
	req.fill(prof)

	res, err := h.svc.Register(r.Context(), RegisterInput{Account: req.Account, Profile: prof})
	if err != nil {
		h.fail(w, err, "Server error during registration")
		return
	}
	h.writeJSON(w, http.StatusCreated, Envelope{
		Success: true,
		Message: "Registration successful",
		Data:    AuthData{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User.Public()},
	})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginInput
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, Envelope{Message: "Please provide email and password"})
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		// first violated field doubles as the message
		h.writeJSON(w, http.StatusBadRequest, Envelope{Message: verr.Fields[0].Message, Errors: verr.Fields})
		return
	}
	if err != nil {
		h.fail(w, err, "Server error during login")
		return
	}
	h.writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "Login successful",
		Data:    AuthData{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User.Public()},
	})
}

// Me handles GET /auth/me. It must run behind RequireAuth.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := FromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, Envelope{Message: "Not authorized, no token"})
		return
	}
	p, err := h.svc.Profile(r.Context(), u)
	if err != nil {
		h.fail(w, err, "Server error")
		return
	}
	h.writeJSON(w, http.StatusOK, Envelope{Success: true, Data: MeData{User: u.View(), Profile: p}})
}

// fail maps a service error to its status and message. Unclassified errors are
// logged and answered with generic.
func (h *Handler) fail(w http.ResponseWriter, err error, generic string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, Envelope{Message: "Validation failed", Errors: verr.Fields})
	case errors.Is(err, ErrInvalidRole):
		h.writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid role specified"})
	case errors.Is(err, ErrDuplicateEmail):
		h.writeJSON(w, http.StatusBadRequest, Envelope{Message: "Email already registered"})
	case errors.Is(err, ErrDuplicatePhone):
		h.writeJSON(w, http.StatusBadRequest, Envelope{Message: "Phone number already registered"})
	case errors.Is(err, ErrInvalidCredentials):
		h.writeJSON(w, http.StatusUnauthorized, Envelope{Message: "Invalid credentials"})
	case errors.Is(err, ErrAccountDeactivated):
		h.writeJSON(w, http.StatusForbidden, Envelope{Message: "Account has been deactivated"})
	case errors.Is(err, ErrTokenExpired):
		h.writeJSON(w, http.StatusUnauthorized, Envelope{Message: "Not authorized, token expired"})
	case errors.Is(err, ErrInvalidToken):
		h.writeJSON(w, http.StatusUnauthorized, Envelope{Message: "Not authorized, token failed"})
	case errors.Is(err, ErrUserNotFound):
		h.writeJSON(w, http.StatusNotFound, Envelope{Message: "User not found"})
	default:
		h.logger.Errorw("request failed", "err", err)
		env := Envelope{Message: generic}
		if h.dev {
			env.Error = err.Error()
		}
		h.writeJSON(w, http.StatusInternalServerError, env)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debugw("write response failed", "err", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// registerRequest is the flat wire form accepted for both roles; fill copies
// the fields relevant to the chosen variant.
type registerRequest struct {
	Account

	OrganizationName string      `json:"organizationName"`
	OrganizationType string      `json:"organizationType"`
	GSTNumber        string      `json:"gstNumber"`
	Address          flexAddress `json:"address"`

	DateOfBirth     string       `json:"dateOfBirth"`
	Gender          string       `json:"gender"`
	Location        flexLocation `json:"location"`
	Skills          flexSkills   `json:"skills"`
	Experience      string       `json:"experience"`
	ExperienceLevel string       `json:"experienceLevel"`
	Bio             string       `json:"bio"`
}

func (req *registerRequest) fill(p ProfileInput) {
	switch v := p.(type) {
	case *OrganizerInput:
		v.OrganizationName = req.OrganizationName
		v.OrganizationType = req.OrganizationType
		v.GSTNumber = req.GSTNumber
		v.Address = AddressInput(req.Address)
	case *WorkerInput:
		v.DateOfBirth = req.DateOfBirth
		v.Gender = req.Gender
		v.Location = LocationInput(req.Location)
		v.Skills = []string(req.Skills)
		v.ExperienceLevel = req.ExperienceLevel
		if v.ExperienceLevel == "" {
			v.ExperienceLevel = req.Experience
		}
		v.Bio = req.Bio
	}
}

// flexAddress accepts either a free-text string or a structured object.
type flexAddress AddressInput

func (a *flexAddress) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = flexAddress{FullAddress: s}
		return nil
	}
	var obj AddressInput
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if strings.TrimSpace(obj.FullAddress) == "" {
		obj.FullAddress = joinNonEmpty(obj.Street, obj.City, obj.State, obj.Pincode)
	}
	*a = flexAddress(obj)
	return nil
}

// flexLocation accepts either a city name or a structured object.
type flexLocation LocationInput

func (l *flexLocation) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = flexLocation{City: s}
		return nil
	}
	var obj LocationInput
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*l = flexLocation(obj)
	return nil
}

// flexSkills accepts a JSON array or a comma separated string.
type flexSkills []string

func (f *flexSkills) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = strings.Split(s, ",")
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*f = arr
	return nil
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
