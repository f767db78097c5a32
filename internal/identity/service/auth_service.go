package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	auditdomain "storefront/backend/internal/audit/domain"
	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/security"
	sessiondomain "storefront/backend/internal/session/domain"
	sessionsvc "storefront/backend/internal/session/service"
	"storefront/backend/internal/telemetry"
	telemetrydomain "storefront/backend/internal/telemetry/domain"
	userdomain "storefront/backend/internal/user/domain"
)

// Sentinel errors for auth service; the HTTP handler maps them to status codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountRejected    = errors.New("account rejected")
	ErrNotLoggedIn        = errors.New("not logged in")
)

// AuthResult holds the outcome of Register and Login.
type AuthResult struct {
	AccessToken string           `json:"accessToken"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	DeviceID    string           `json:"deviceId"`
	User        *userdomain.User `json:"user"`
}

// RegisterInput is the data needed to create an account. Role defaults to user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     userdomain.Role
}

// ProfilePatch carries the profile fields a user may change. Nil fields are left unchanged.
type ProfilePatch struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURI *string `json:"avatarUri,omitempty"`
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	Update(ctx context.Context, u *userdomain.User) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionManager is the part of the session lifecycle the auth service drives.
type SessionManager interface {
	Init(ctx context.Context, user *sessiondomain.UserRef) (*sessionsvc.MonitorHandle, error)
	Clear(ctx context.Context) error
	Refresh(ctx context.Context, user *sessiondomain.UserRef) error
	CurrentUser(ctx context.Context) (*sessiondomain.UserRef, error)
	DeviceInfo(ctx context.Context) (*sessiondomain.DeviceInfo, error)
}

// AuditLogger records auth events. See audit.AuditLogger.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock sets the time source for token and login timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *AuthService) { s.clock = c }
}

// WithAuditLogger sets the audit logger for authentication events.
func WithAuditLogger(a AuditLogger) Option {
	return func(s *AuthService) { s.audit = a }
}

// WithEmitter sets the telemetry emitter for sign-in and sign-out events.
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(s *AuthService) { s.emitter = e }
}

// AuthService implements password register, login, logout and profile updates for the
// user of this installation. The logged-in user is mirrored under auth_session.
type AuthService struct {
	users    UserRepo
	sessions SessionManager
	store    *kvstore.Store
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	clock    clockwork.Clock
	audit    AuditLogger
	emitter  telemetry.EventEmitter
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	users UserRepo,
	sessions SessionManager,
	store *kvstore.Store,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and logs it in on this device. Admin accounts start active;
// every other role starts pending approval.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := userdomain.NormalizeEmail(in.Email)
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = userdomain.RoleUser
	}
	status := userdomain.UserStatusPending
	if role == userdomain.RoleAdmin {
		status = userdomain.UserStatusActive
	}
	now := s.clock.Now().UTC()
	user := &userdomain.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Phone:     strings.TrimSpace(in.Phone),
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: &now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.ErrDuplicate
	}
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hashed
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	res, err := s.start(ctx, user)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user.ID, auditdomain.ActionRegister, telemetrydomain.EventRegister, res.DeviceID)
	return res, nil
}

// Login authenticates with email and password and starts a session on this device.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" || s.hasher.Compare(user.PasswordHash, []byte(password)) != nil {
		s.logAudit(ctx, "", auditdomain.ActionLoginFailure, email)
		return nil, ErrInvalidCredentials
	}
	if user.Status == userdomain.UserStatusRejected {
		s.logAudit(ctx, user.ID, auditdomain.ActionLoginFailure, "rejected")
		return nil, ErrAccountRejected
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}
	now := s.clock.Now().UTC()
	if err := s.users.SetLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	res, err := s.start(ctx, user)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user.ID, auditdomain.ActionLogin, telemetrydomain.EventLogin, res.DeviceID)
	return res, nil
}

// Logout removes auth_session and clears the session. Logging out with no user logged in is a no-op
// apart from the clear.
func (s *AuthService) Logout(ctx context.Context) error {
	current, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, kvstore.KeyAuthSession); err != nil {
		return err
	}
	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}
	if current != nil {
		s.record(ctx, current.ID, auditdomain.ActionLogout, telemetrydomain.EventLogout, "")
	}
	return nil
}

// Me returns the account of userID.
func (s *AuthService) Me(ctx context.Context, userID string) (*userdomain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

// UpdateProfile applies patch to the logged-in user. userID must be the user of the current session;
// otherwise ErrNotLoggedIn. The account, auth_session and the session record are all updated.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*userdomain.User, error) {
	current, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil || current.ID != userID {
		return nil, ErrNotLoggedIn
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Phone != nil {
		user.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.AvatarURI != nil {
		user.AvatarURI = strings.TrimSpace(*patch.AvatarURI)
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.clock.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	ref := userRef(user)
	if err := s.store.SetJSON(ctx, kvstore.KeyAuthSession, ref); err != nil {
		return nil, err
	}
	if err := s.sessions.Refresh(ctx, ref); err != nil {
		return nil, err
	}
	return user, nil
}

// start mirrors user under auth_session, starts the session and issues an access token.
func (s *AuthService) start(ctx context.Context, user *userdomain.User) (*AuthResult, error) {
	ref := userRef(user)
	if err := s.store.SetJSON(ctx, kvstore.KeyAuthSession, ref); err != nil {
		return nil, err
	}
	if _, err := s.sessions.Init(ctx, ref); err != nil {
		return nil, err
	}
	info, err := s.sessions.DeviceInfo(ctx)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.tokens.IssueAccess(user.ID, info.DeviceID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: token, ExpiresAt: exp, DeviceID: info.DeviceID, User: user}, nil
}

// rehash upgrades a stored hash to the current cost. Best-effort: the login proceeds on failure.
func (s *AuthService) rehash(ctx context.Context, user *userdomain.User, password string) {
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		log.Printf("auth: rehash password: %v", err)
		return
	}
	user.PasswordHash = hashed
	if err := s.users.Update(ctx, user); err != nil {
		log.Printf("auth: store rehashed password: %v", err)
	}
}

func (s *AuthService) record(ctx context.Context, userID, action, eventType, deviceID string) {
	s.logAudit(ctx, userID, action, "")
	telemetry.EmitAsync(s.emitter, &telemetrydomain.Event{
		EventType: eventType,
		Source:    "auth",
		UserID:    userID,
		DeviceID:  deviceID,
		CreatedAt: s.clock.Now().UTC(),
	})
}

// logAudit writes an auth audit entry. reason, when set, goes into the metadata.
func (s *AuthService) logAudit(ctx context.Context, userID, action, reason string) {
	if s.audit == nil {
		return
	}
	meta := ""
	if reason != "" {
		b, err := json.Marshal(map[string]string{"reason": reason})
		if err != nil {
			log.Printf("auth: audit metadata: %v", err)
		} else {
			meta = string(b)
		}
	}
	s.audit.LogEvent(ctx, userID, action, "auth", meta)
}

func userRef(u *userdomain.User) *sessiondomain.UserRef {
	return &sessiondomain.UserRef{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Status:    string(u.Status),
		Phone:     u.Phone,
		AvatarURI: u.AvatarURI,
	}
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errs.Invalid("password", "must be at least 8 characters")
	}
	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasLetter {
		return errs.Invalid("password", "must contain at least one letter")
	}
	if !hasNumber {
		return errs.Invalid("password", "must contain at least one number")
	}
	return nil
}
