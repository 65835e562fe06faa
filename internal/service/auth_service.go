package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"purse/config"
	"purse/internal/apperr"
	"purse/internal/auth"
	"purse/internal/ledger"
	"purse/internal/models"
	"purse/pkg/accountnum"
)

// accountNumAttempts bounds retries when a freshly generated account number
// collides with an existing one.
const accountNumAttempts = 3

// UserStore is what the auth service needs from the user repository.
type UserStore interface {
	Create(ctx context.Context, uow ledger.UnitOfWork, u *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthService struct {
	cfg     *config.Config
	tx      ledger.TxManager
	users   UserStore
	wallets ledger.WalletStore
	log     *zap.Logger
}

func NewAuthService(cfg *config.Config, tx ledger.TxManager, users UserStore, wallets ledger.WalletStore, log *zap.Logger) *AuthService {
	return &AuthService{cfg: cfg, tx: tx, users: users, wallets: wallets, log: log}
}

type RegisterInput struct {
	Email       string
	PhoneNumber string
	FirstName   string
	LastName    string
	Password    string
}

type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Register creates the user and their zero-balance wallet in one unit of work:
// no user ever exists without a wallet.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, *TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	var u *models.User
	for attempt := 0; attempt < accountNumAttempts; attempt++ {
		number, err := accountnum.Generate()
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.Internal, "generate account number", err)
		}
		u = &models.User{
			Email:         in.Email,
			PhoneNumber:   in.PhoneNumber,
			FirstName:     in.FirstName,
			LastName:      in.LastName,
			PasswordHash:  string(hash),
			AccountNumber: number,
			IsActive:      true,
		}
		err = s.tx.Do(ctx, func(uow ledger.UnitOfWork) error {
			if err := s.users.Create(ctx, uow, u); err != nil {
				return err
			}
			_, err := s.wallets.Create(ctx, uow, u.ID)
			return err
		})
		if err == nil {
			break
		}
		// a Conflict may be the generated account number racing another
		// signup; anything else (duplicate email/phone included) is final
		if apperr.Is(err, apperr.Conflict) && attempt < accountNumAttempts-1 {
			if existing, lookupErr := s.users.GetByEmail(ctx, in.Email); lookupErr == nil && existing != nil {
				return nil, nil, err
			}
			continue
		}
		return nil, nil, err
	}

	pair, err := s.issueTokens(u)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("user registered",
		zap.Uint("user_id", u.ID),
		zap.String("account_number", u.AccountNumber),
	)
	return u, pair, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, nil, apperr.New(apperr.InvalidArgument, "invalid email or password")
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperr.New(apperr.InvalidArgument, "invalid email or password")
	}
	if !u.IsActive {
		return nil, nil, apperr.New(apperr.Inactive, "account is not active")
	}
	pair, err := s.issueTokens(u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "invalid or expired refresh token")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.New(apperr.Inactive, "account is not active")
	}
	return s.issueTokens(u)
}

func (s *AuthService) issueTokens(u *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "sign access token", err)
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "sign refresh token", err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}
