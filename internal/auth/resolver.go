package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Listener is called with the new identity on every auth-state transition,
// or with nil on sign-out. Listeners must not call back into the Resolver.
type Listener func(identity *models.Identity)

// Resolver tracks the process-wide signed-in identity.
//
// Loading is true from construction until the stored session has been checked
// once by Start, or until the first explicit sign-in, sign-up or sign-out.
type Resolver struct {
	service  *Service
	accounts db.AccountCollection
	sessions SessionStore
	logger   logrus.FieldLogger

	// transitions serializes identity changes with listener dispatch so every
	// listener observes transitions in order.
	transitions sync.Mutex

	mu        sync.Mutex
	identity  *models.Identity
	resolved  bool
	listeners map[int]Listener
	nextID    int
}

// NewResolver creates a resolver in the loading state.
func NewResolver(service *Service, accounts db.AccountCollection, sessions SessionStore, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		service:   service,
		accounts:  accounts,
		sessions:  sessions,
		logger:    logger.WithField("component", "identity"),
		listeners: make(map[int]Listener),
	}
}

// Start performs the initial resolution from the stored session. A missing,
// expired or revoked session resolves to signed out; it is not an error.
func (r *Resolver) Start(ctx context.Context) error {
	r.transitions.Lock()
	defer r.transitions.Unlock()

	r.mu.Lock()
	resolved := r.resolved
	r.mu.Unlock()
	if resolved {
		return nil
	}

	identity := r.restore(ctx)
	r.transitionLocked(identity)
	return nil
}

func (r *Resolver) restore(ctx context.Context) *models.Identity {
	token, err := r.sessions.Load()
	if err != nil {
		r.logger.WithError(err).Warn("Failed to read stored session")
		return nil
	}
	if token == "" {
		return nil
	}

	claims, err := r.service.ValidateToken(token)
	if err != nil {
		r.logger.WithError(err).Info("Stored session is no longer valid")
		r.clearSession()
		return nil
	}

	account, err := r.accounts.FindAccountByID(ctx, claims.UserID)
	if err != nil || !account.IsActive {
		r.logger.WithField("uid", claims.UserID).Info("Stored session refers to a missing or disabled account")
		r.clearSession()
		return nil
	}
	return claims.Identity()
}

// CurrentIdentity returns the signed-in identity, or nil.
func (r *Resolver) CurrentIdentity() *models.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyIdentity(r.identity)
}

// Loading reports whether the initial resolution is still pending.
func (r *Resolver) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.resolved
}

// OnAuthStateChange registers fn for every transition. If the initial
// resolution has already happened, fn is called immediately with the current
// identity. The returned function unregisters fn.
func (r *Resolver) OnAuthStateChange(fn Listener) func() {
	r.transitions.Lock()
	defer r.transitions.Unlock()

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	resolved := r.resolved
	current := copyIdentity(r.identity)
	r.mu.Unlock()

	if resolved {
		fn(current)
	}

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// SignIn verifies the credentials and makes the account the current identity.
func (r *Resolver) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	account, err := r.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, ErrUserInactive
	}
	if !r.service.CheckPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if err := r.accounts.UpdateLastLogin(ctx, account.ID.Hex()); err != nil {
		r.logger.WithError(err).Warn("Failed to update last login")
	}
	return r.establish(account)
}

// SignUp creates a driver account and signs it in.
func (r *Resolver) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if err := r.service.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := r.service.ValidatePassword(password); err != nil {
		return nil, err
	}
	if _, err := r.accounts.FindAccountByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	}

	hash, err := r.service.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := models.Account{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleDriver,
		IsActive:     true,
	}
	if err := r.accounts.InsertAccount(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	return r.establish(&account)
}

// SignOut drops the current identity and the stored session.
func (r *Resolver) SignOut(ctx context.Context) error {
	r.transitions.Lock()
	defer r.transitions.Unlock()

	r.clearSession()
	r.transitionLocked(nil)
	return nil
}

func (r *Resolver) establish(account *models.Account) (*models.Identity, error) {
	token, err := r.service.GenerateToken(account)
	if err != nil {
		return nil, err
	}
	if err := r.sessions.Save(token); err != nil {
		r.logger.WithError(err).Warn("Failed to persist session, it will not survive a restart")
	}

	identity := &models.Identity{UID: account.ID.Hex(), Email: account.Email, Role: account.Role}

	r.transitions.Lock()
	defer r.transitions.Unlock()
	r.transitionLocked(identity)
	return copyIdentity(identity), nil
}

// transitionLocked must be called with r.transitions held.
func (r *Resolver) transitionLocked(identity *models.Identity) {
	r.mu.Lock()
	r.identity = identity
	r.resolved = true
	listeners := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	if identity != nil {
		r.logger.WithFields(logrus.Fields{"uid": identity.UID, "role": identity.Role}).Info("Signed in")
	} else {
		r.logger.Info("Signed out")
	}

	for _, fn := range listeners {
		fn(copyIdentity(identity))
	}
}

func (r *Resolver) clearSession() {
	if err := r.sessions.Clear(); err != nil {
		r.logger.WithError(err).Warn("Failed to clear stored session")
	}
}

func copyIdentity(identity *models.Identity) *models.Identity {
	if identity == nil {
		return nil
	}
	c := *identity
	return &c
}
