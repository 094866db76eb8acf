package services

import (
	"context"
	"errors"
	"fmt"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"strings"
	"sync"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

type AuthService struct {
	logger       *gecho.Logger
	cfg          *structs.Config
	users        UserStore
	cacheService *CacheService
	emailService *EmailService
	cipher       *lib.FieldCipher
	argon        *structs.ArgonParams

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(logger *gecho.Logger, cfg *structs.Config, users UserStore, cacheService *CacheService, emailService *EmailService, cipher *lib.FieldCipher) *AuthService {
	return &AuthService{
		logger:       logger,
		cfg:          cfg,
		users:        users,
		cacheService: cacheService,
		emailService: emailService,
		cipher:       cipher,
		argon:        lib.DefaultArgonParams,
	}
}

// AuthResult is what login and refresh hand back to the client
type AuthResult struct {
	structs.TokenPair
	User *tables.User `json:"user"`
}

// Signup creates a customer account. The phone number is encrypted at rest.
func (as *AuthService) Signup(ctx context.Context, req *structs.SignupRequest) (*tables.User, error) {
	startTime := time.Now()

	passwordHash, err := lib.HashPassword(req.Password, as.argon)
	if err != nil {
		as.logger.Error("Failed to hash password", gecho.Field("error", err))
		return nil, err
	}

	phone, err := as.cipher.Encrypt(strings.TrimSpace(req.Phone))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}

	user := &tables.User{
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         structs.RoleCustomer,
	}
	if err := as.users.Create(ctx, user); err != nil {
		if lib.IsUniqueViolation(err) {
			as.logger.Warn("Signup failed - duplicate user", gecho.Field("email", req.Email))
			return nil, lib.ErrEmailTaken
		}
		as.logger.Error("Database error during signup", gecho.Field("error", err))
		return nil, err
	}

	as.logger.Debug("User registered successfully",
		gecho.Field("user_id", user.Id),
		gecho.Field("elapsed_time_ms", time.Since(startTime).Milliseconds()),
	)

	public := as.publicUser(user)
	if as.emailService != nil {
		sendCtx, cancel := detach(ctx)
		go func() {
			defer cancel()
			if err := as.emailService.SendWelcomeEmail(sendCtx, public); err != nil {
				as.logger.Warn("Failed to send welcome email", gecho.Field("user_id", public.Id))
			}
		}()
	}
	return public, nil
}

// Login checks credentials and issues a token pair. Unknown emails and wrong
// passwords both give ErrInvalidCredentials.
func (as *AuthService) Login(ctx context.Context, req *structs.LoginRequest) (*AuthResult, error) {
	user, err := as.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !lib.IsNotFound(err) {
			as.logger.Error("Unexpected database error during login", gecho.Field("error", err))
			return nil, err
		}
		as.logger.Debug("User not found during login attempt", gecho.Field("identifier", req.Email))
		as.verifyDummy(req.Password)
		return nil, lib.ErrInvalidCredentials
	}

	valid, err := lib.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		as.logger.Error("Failed to verify password hash", gecho.Field("error", err), gecho.Field("user_id", user.Id))
		return nil, err
	}
	if !valid {
		as.logger.Debug("Invalid password attempt", gecho.Field("user_id", user.Id))
		return nil, lib.ErrInvalidCredentials
	}

	if lib.PasswordNeedsRehash(user.PasswordHash, as.argon) {
		as.rehash(ctx, user, req.Password)
	}

	now := time.Now().UTC()
	if err := as.users.UpdateLastLogin(ctx, user.Id, now); err != nil {
		as.logger.Warn("Failed to update last login", gecho.Field("error", err), gecho.Field("user_id", user.Id))
	} else {
		user.LastLogin = &now
	}

	// cached users keep the phone encrypted
	if err := as.cacheService.SetUser(ctx, user.Public()); err != nil {
		as.logger.Warn("Failed to set user in cache after login", gecho.Field("error", err), gecho.Field("user_id", user.Id))
	}

	return as.issue(as.publicUser(user))
}

// verifyDummy spends the same argon2 work as a real password check so an
// unknown email answers no faster than a wrong password.
func (as *AuthService) verifyDummy(password string) {
	as.dummyOnce.Do(func() {
		hash, err := lib.HashPassword(uuid.NewString(), as.argon)
		if err != nil {
			as.logger.Warn("Failed to build dummy password hash", gecho.Field("error", err))
			return
		}
		as.dummyHash = hash
	})
	if as.dummyHash != "" {
		_, _ = lib.VerifyPassword(password, as.dummyHash)
	}
}

// Refresh rotates a refresh token: the presented one is blacklisted and a
// fresh pair is issued.
func (as *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := lib.ParseToken(refreshToken, as.cfg.Auth.RefreshTokenSecret)
	if err != nil {
		as.logger.Debug("Failed to parse refresh token", gecho.Field("error", err))
		return nil, err
	}

	blacklisted, err := as.cacheService.IsTokenBlacklisted(ctx, claims.Jti)
	if err != nil {
		as.logger.Error("Failed to check if token is blacklisted", gecho.Field("error", err), gecho.Field("jti", claims.Jti))
		return nil, err
	}
	if blacklisted {
		as.logger.Warn("Refresh token is blacklisted", gecho.Field("jti", claims.Jti))
		return nil, lib.ErrInvalidToken
	}

	user, err := as.Me(ctx, claims.Sub)
	if err != nil {
		if lib.IsNotFound(err) {
			return nil, lib.ErrInvalidToken
		}
		return nil, err
	}

	if err := as.cacheService.BlacklistToken(ctx, claims.Jti, claims.Exp); err != nil {
		as.logger.Error("Failed to blacklist rotated refresh token", gecho.Field("error", err), gecho.Field("jti", claims.Jti))
		return nil, err
	}

	return as.issue(user)
}

// Logout revokes the access token and, when given, the refresh token
func (as *AuthService) Logout(ctx context.Context, access *structs.AuthClaims, refreshToken string) error {
	if err := as.cacheService.BlacklistToken(ctx, access.Jti, access.Exp); err != nil {
		return err
	}

	if refreshToken == "" {
		return nil
	}
	claims, err := lib.ParseToken(refreshToken, as.cfg.Auth.RefreshTokenSecret)
	if err != nil {
		// an unusable refresh token cannot be replayed anyway
		as.logger.Debug("Ignoring invalid refresh token on logout", gecho.Field("error", err))
		return nil
	}
	if claims.Sub != access.Sub {
		return lib.ErrForbidden
	}
	return as.cacheService.BlacklistToken(ctx, claims.Jti, claims.Exp)
}

// Authenticate validates an access token and rejects revoked ones
func (as *AuthService) Authenticate(ctx context.Context, token string) (*structs.AuthClaims, error) {
	claims, err := lib.ParseToken(token, as.cfg.Auth.AccessTokenSecret)
	if err != nil {
		return nil, err
	}

	blacklisted, err := as.cacheService.IsTokenBlacklisted(ctx, claims.Jti)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, lib.ErrInvalidToken
	}
	return claims, nil
}

// Me returns the user with decrypted contact data, read through the cache
func (as *AuthService) Me(ctx context.Context, userID uuid.UUID) (*tables.User, error) {
	cached, err := as.cacheService.GetUser(ctx, userID)
	if err != nil {
		as.logger.Warn("Failed to get user from cache", gecho.Field("error", err), gecho.Field("user_id", userID))
	} else if cached != nil {
		return as.publicUser(cached), nil
	}

	user, err := as.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := as.cacheService.SetUser(ctx, user.Public()); err != nil {
		as.logger.Warn("Failed to cache user", gecho.Field("error", err), gecho.Field("user_id", userID))
	}
	return as.publicUser(user), nil
}

// BootstrapAdmin makes sure the configured admin account exists with the
// configured password. It does nothing when no admin is configured.
func (as *AuthService) BootstrapAdmin(ctx context.Context) error {
	email, password := as.cfg.Auth.AdminEmail, as.cfg.Auth.AdminPassword
	if email == "" || password == "" {
		return nil
	}

	hash, err := lib.HashPassword(password, as.argon)
	if err != nil {
		return err
	}

	user, err := as.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := as.users.UpdateCredentials(ctx, user.Id, hash, structs.RoleAdmin); err != nil {
			return fmt.Errorf("failed to update admin user: %w", err)
		}
		if err := as.cacheService.InvalidateUser(ctx, user.Id); err != nil {
			as.logger.Warn("Failed to invalidate admin user cache", gecho.Field("error", err))
		}
		as.logger.Info("Admin user updated", gecho.Field("email", email))
		return nil
	case errors.Is(err, lib.ErrNotFound):
		admin := &tables.User{
			Email:        email,
			FullName:     "Administrator",
			PasswordHash: hash,
			Role:         structs.RoleAdmin,
		}
		if err := as.users.Create(ctx, admin); err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		as.logger.Info("Admin user created", gecho.Field("email", email))
		return nil
	default:
		return err
	}
}

func (as *AuthService) issue(user *tables.User) (*AuthResult, error) {
	access, err := as.generateToken(user, as.cfg.Auth.AccessTokenSecret, as.cfg.Auth.AccessTokenExpiry)
	if err != nil {
		as.logger.Error("Failed to generate access token", gecho.Field("error", err), gecho.Field("user_id", user.Id))
		return nil, err
	}
	refresh, err := as.generateToken(user, as.cfg.Auth.RefreshTokenSecret, as.cfg.Auth.RefreshTokenExpiry)
	if err != nil {
		as.logger.Error("Failed to generate refresh token", gecho.Field("error", err), gecho.Field("user_id", user.Id))
		return nil, err
	}

	return &AuthResult{
		TokenPair: structs.TokenPair{Access: access, Refresh: refresh},
		User:      user,
	}, nil
}

func (as *AuthService) generateToken(user *tables.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	return lib.SignToken(&structs.AuthClaims{
		Sub:   user.Id,
		Email: user.Email,
		Role:  user.Role,
		Iat:   now,
		Exp:   now.Add(ttl),
		Jti:   uuid.New(),
	}, secret)
}

// publicUser strips the password hash and decrypts the phone number
func (as *AuthService) publicUser(user *tables.User) *tables.User {
	public := user.Public()
	if public.Phone != "" {
		phone, err := as.cipher.Decrypt(public.Phone)
		if err != nil {
			as.logger.Warn("Failed to decrypt phone", gecho.Field("user_id", user.Id))
			phone = ""
		}
		public.Phone = phone
	}
	return public
}

// rehash upgrades a stored hash to the current argon parameters. Failures
// only cost the upgrade, the login itself already succeeded.
func (as *AuthService) rehash(ctx context.Context, user *tables.User, password string) {
	hash, err := lib.HashPassword(password, as.argon)
	if err != nil {
		as.logger.Warn("Failed to rehash password", gecho.Field("error", err), gecho.Field("user_id", user.Id))
		return
	}
	if err := as.users.UpdateCredentials(ctx, user.Id, hash, user.Role); err != nil {
		as.logger.Warn("Failed to store rehashed password", gecho.Field("error", err), gecho.Field("user_id", user.Id))
		return
	}
	user.PasswordHash = hash
	as.logger.Debug("Password hash upgraded", gecho.Field("user_id", user.Id))
}
