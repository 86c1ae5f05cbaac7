// Package account implements registration, login, session refresh and
// profile management.
package account

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"to-dogether/internal/apperr"
	"to-dogether/internal/auth"
	"to-dogether/internal/cache"
	"to-dogether/internal/models"
	"to-dogether/internal/pairing"
	"to-dogether/internal/repository"
	"to-dogether/pkg/logger"
)

type Service struct {
	store    repository.Store
	auth     *auth.Provider
	pairing  *pairing.Manager
	identity cache.Identity
	log      *logger.Loggers
	now      func() time.Time
}

func NewService(store repository.Store, provider *auth.Provider, pm *pairing.Manager, identity cache.Identity, log *logger.Loggers, now func() time.Time) *Service {
	if identity == nil {
		identity = cache.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, auth: provider, pairing: pm, identity: identity, log: log, now: now}
}

type RegisterInput struct {
	Username    string
	Password    string
	ColorCode   string
	InviteToken string
}

// RegisterResult carries the new session. InviteToken is set only when
// registration created a new couple; it is never returned again.
type RegisterResult struct {
	User        *models.User
	Session     *auth.Session
	InviteToken string
}

// Register creates the user, its couple membership and the first session
// in one transaction. Any failure leaves no trace.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, apperr.New(apperr.InvalidFormat, "username and password are required")
	}
	if len([]rune(in.Username)) > models.MaxUsernameLength {
		return nil, apperr.New(apperr.InvalidFormat, "username must be 1-50 characters")
	}
	if in.ColorCode != "" && !models.ValidColorCode(in.ColorCode) {
		return nil, apperr.New(apperr.InvalidFormat, "color code must look like #RRGGBB")
	}

	hash, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	res := &RegisterResult{}
	err = s.store.RunTransaction(ctx, func(q repository.Queries) error {
		taken, err := q.UsernameExists(ctx, in.Username)
		if err != nil {
			return err
		}
		if taken {
			return apperr.ErrUsernameTaken
		}

		var couple *models.Couple
		color := in.ColorCode
		if strings.TrimSpace(in.InviteToken) == "" {
			if couple, err = s.pairing.CreateCouple(ctx, q); err != nil {
				return err
			}
			res.InviteToken = couple.InviteToken
			if color == "" {
				color = models.DefaultCreatorColor
			}
		} else {
			if couple, err = s.pairing.JoinCouple(ctx, q, in.InviteToken); err != nil {
				return err
			}
			if color == "" {
				color = models.DefaultJoinerColor
			}
		}

		u := &models.User{
			Username:     in.Username,
			PasswordHash: hash,
			ColorCode:    color,
			CoupleID:     &couple.ID,
			CreatedAt:    s.now().UTC(),
		}
		if err := q.CreateUser(ctx, u); err != nil {
			return err
		}
		session, err := s.auth.IssueSession(ctx, q, u)
		if err != nil {
			return err
		}
		res.User = u
		res.Session = session
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "Registration failed", err, zap.String("username", in.Username))
		return nil, err
	}

	s.log.Audit.Info("User registered", logger.Fields(ctx,
		zap.Int("userID", res.User.ID),
		zap.Int("coupleID", *res.User.CoupleID),
		zap.Bool("joined", res.InviteToken == ""),
	)...)
	return res, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*models.User, *auth.Session, error) {
	var (
		user    *models.User
		session *auth.Session
	)
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		u, err := s.auth.Authenticate(ctx, q, strings.TrimSpace(username), password)
		if err != nil {
			return err
		}
		session, err = s.auth.IssueSession(ctx, q, u)
		user = u
		return err
	})
	if err != nil {
		s.logFailure(ctx, "Login failed", err, zap.String("username", username))
		return nil, nil, err
	}

	s.log.Audit.Info("Login success", logger.Fields(ctx, zap.Int("userID", user.ID))...)
	return user, session, nil
}

// Refresh rotates a refresh token. An expired token is revoked and the
// revocation is committed even though the call fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	var (
		session *auth.Session
		user    *models.User
		expired bool
	)
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		var err error
		session, user, err = s.auth.RotateSession(ctx, q, refreshToken)
		if apperr.Is(err, apperr.SessionExpired) {
			expired = true
			return nil
		}
		return err
	})
	if err == nil && expired {
		err = apperr.ErrSessionExpired
	}
	if err != nil {
		s.logFailure(ctx, "Session refresh failed", err)
		return nil, err
	}

	s.log.Audit.Info("Session refreshed", logger.Fields(ctx, zap.Int("userID", user.ID))...)
	return session, nil
}

// Logout revokes refreshToken. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		return s.auth.RevokeSession(ctx, q, refreshToken)
	})
	if err != nil {
		s.log.Error.Error("Logout failed", logger.Fields(ctx, zap.Error(err))...)
		return err
	}
	s.log.Audit.Info("Logout", logger.Fields(ctx)...)
	return nil
}

// Me returns the caller's profile, served from the identity cache when possible.
func (s *Service) Me(ctx context.Context, userID int) (*models.User, error) {
	if u, err := s.identity.Get(ctx, userID); err != nil {
		s.log.Error.Warn("Identity cache read failed", logger.Fields(ctx, zap.Error(err))...)
	} else if u != nil {
		return u, nil
	}

	var user *models.User
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		var err error
		user, err = q.GetUserByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.identity.Set(ctx, user); err != nil {
		s.log.Error.Warn("Identity cache write failed", logger.Fields(ctx, zap.Error(err))...)
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int, username, colorCode string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len([]rune(username)) > models.MaxUsernameLength {
		return nil, apperr.New(apperr.InvalidFormat, "username must be 1-50 characters")
	}
	if !models.ValidColorCode(colorCode) {
		return nil, apperr.New(apperr.InvalidFormat, "color code must look like #RRGGBB")
	}

	var user *models.User
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		current, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if current.Username != username {
			taken, err := q.UsernameExists(ctx, username)
			if err != nil {
				return err
			}
			if taken {
				return apperr.ErrUsernameTaken
			}
		}
		if err := q.UpdateUserProfile(ctx, userID, username, colorCode); err != nil {
			return err
		}
		current.Username = username
		current.ColorCode = colorCode
		user = current
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "Profile update failed", err)
		return nil, err
	}

	if err := s.identity.Invalidate(ctx, userID); err != nil {
		s.log.Error.Warn("Identity cache invalidation failed", logger.Fields(ctx, zap.Error(err))...)
	}
	s.log.Audit.Info("Profile updated", logger.Fields(ctx, zap.Int("userID", userID))...)
	return user, nil
}

// logFailure sends domain rejections to the security log and everything
// else to the error log.
func (s *Service) logFailure(ctx context.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("code", string(apperr.KindOf(err))), zap.Error(err))
	if apperr.KindOf(err) == apperr.Internal {
		s.log.Error.Error(msg, logger.Fields(ctx, fields...)...)
		return
	}
	s.log.Security.Warn(msg, logger.Fields(ctx, fields...)...)
}
