package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-api-verification/internal/domain"
	"github.com/go-api-verification/internal/pkg/code"
	"github.com/go-api-verification/internal/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultStoreTimeout    = 3 * time.Second
	defaultDispatchTimeout = 10 * time.Second
)

type Service interface {
	SendVerificationCode(ctx context.Context, email string) (domain.Result, error)
	VerifyVerificationCode(ctx context.Context, email, code string) (domain.Result, error)
}

// CodeStore keeps issued codes keyed by normalized email.
// Stores shared between processes must make Put replace any earlier code for
// the email atomically, since the service lock only covers one process.
// ConsumeIfMatch must remove a matching active record atomically: of two
// concurrent calls with the same correct code, at most one reports true.
type CodeStore interface {
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	InvalidateAll(ctx context.Context, email string) error
	ConsumeIfMatch(ctx context.Context, email, code string) (bool, error)
}

// Sweeper is implemented by stores that can purge expired records in bulk.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Notifier delivers a code to the owner of email.
type Notifier interface {
	Dispatch(ctx context.Context, email, code string) error
}

type service struct {
	store           CodeStore
	notifier        Notifier
	generator       code.Generator
	log             *zap.Logger
	locks           *keyLock
	codeTTL         time.Duration
	storeTimeout    time.Duration
	dispatchTimeout time.Duration
}

type ServiceDeps struct {
	Store           CodeStore
	Notifier        Notifier
	Generator       code.Generator
	Logger          *zap.Logger
	CodeTTL         time.Duration
	StoreTimeout    time.Duration
	DispatchTimeout time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:           deps.Store,
		notifier:        deps.Notifier,
		generator:       deps.Generator,
		log:             deps.Logger,
		locks:           &keyLock{},
		codeTTL:         deps.CodeTTL,
		storeTimeout:    deps.StoreTimeout,
		dispatchTimeout: deps.DispatchTimeout,
	}
	if s.generator == nil {
		s.generator = code.NewRandom()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.codeTTL <= 0 {
		s.codeTTL = domain.DefaultCodeTTL
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	if s.dispatchTimeout <= 0 {
		s.dispatchTimeout = defaultDispatchTimeout
	}
	return s
}

func (s *service) SendVerificationCode(ctx context.Context, email string) (domain.Result, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Fail(domain.MsgInvalidRequest), fmt.Errorf("email is required: %w", domain.ErrInvalidRequest)
	}

	c := s.generator.Generate()

	if err := s.replace(ctx, email, c); err != nil {
		s.log.Error("store verification code", logger.Email(email), zap.Error(err))
		return domain.Fail(domain.MsgSendFailed), err
	}

	dctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()
	if err := s.notifier.Dispatch(dctx, email, c); err != nil {
		// The stored code stays valid; a retried send supersedes it.
		s.log.Error("dispatch verification code", logger.Email(email), zap.Error(err))
		return domain.Fail(domain.MsgSendFailed), fmt.Errorf("%w: %w", domain.ErrDispatch, err)
	}

	s.log.Info("verification code sent", logger.Email(email))
	return domain.Succeed(domain.MsgCodeSent), nil
}

// replace invalidates every outstanding code for email and stores c.
func (s *service) replace(ctx context.Context, email, c string) error {
	unlock := s.locks.lock(email)
	defer unlock()

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.InvalidateAll(sctx, email); err != nil {
		return fmt.Errorf("%w: invalidate codes: %w", domain.ErrStorage, err)
	}
	if err := s.store.Put(sctx, email, c, s.codeTTL); err != nil {
		return fmt.Errorf("%w: put code: %w", domain.ErrStorage, err)
	}
	return nil
}

func (s *service) VerifyVerificationCode(ctx context.Context, email, c string) (domain.Result, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || c == "" {
		return domain.Fail(domain.MsgInvalidRequest), fmt.Errorf("email and code are required: %w", domain.ErrInvalidRequest)
	}

	ok, err := s.consume(ctx, email, c)
	if err != nil {
		s.log.Error("consume verification code", logger.Email(email), zap.Error(err))
		return domain.Fail(domain.MsgInvalidOrExpired), err
	}
	if !ok {
		s.log.Info("verification rejected", logger.Email(email))
		return domain.Fail(domain.MsgInvalidOrExpired), domain.ErrInvalidOrExpiredCode
	}

	s.log.Info("verification succeeded", logger.Email(email))
	return domain.Succeed(domain.MsgVerified), nil
}

func (s *service) consume(ctx context.Context, email, c string) (bool, error) {
	unlock := s.locks.lock(email)
	defer unlock()

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ok, err := s.store.ConsumeIfMatch(sctx, email, c)
	if err != nil {
		return false, fmt.Errorf("%w: consume code: %w", domain.ErrStorage, err)
	}
	return ok, nil
}
