package verification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-api-verification/internal/domain"
	"github.com/go-api-verification/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	return m.Called(ctx, email, code, ttl).Error(0)
}
func (m *mockCodeStore) InvalidateAll(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *mockCodeStore) ConsumeIfMatch(ctx context.Context, email, code string) (bool, error) {
	args := m.Called(ctx, email, code)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Dispatch(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

// recordingNotifier keeps the last code sent to each email.
type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (n *recordingNotifier) Dispatch(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = make(map[string]string)
	}
	n.codes[email] = code
	return n.err
}

func (n *recordingNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

// sequenceGen hands out codes in order, then repeats the last one.
type sequenceGen struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceGen) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return c
}

// --- helpers ---

func newService(store CodeStore, n Notifier, codes ...string) Service {
	return NewService(ServiceDeps{
		Store:     store,
		Notifier:  n,
		Generator: &sequenceGen{codes: codes},
		CodeTTL:   time.Minute,
	})
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newMemoryStore(t *testing.T) (*memory.Store, *testClock) {
	t.Helper()
	c := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := memory.New(memory.WithClock(c.Now))
	t.Cleanup(func() { _ = s.Close() })
	return s, c
}

// --- SendVerificationCode tests ---

func TestSend_InvalidatesThenPutsThenDispatches(t *testing.T) {
	store := &mockCodeStore{}
	n := &mockNotifier{}
	mock.InOrder(
		store.On("InvalidateAll", mock.Anything, "alice@example.com").Return(nil),
		store.On("Put", mock.Anything, "alice@example.com", "123456", time.Minute).Return(nil),
		n.On("Dispatch", mock.Anything, "alice@example.com", "123456").Return(nil),
	)

	svc := newService(store, n, "123456")
	res, err := svc.SendVerificationCode(context.Background(), "  Alice@Example.COM ")

	require.NoError(t, err)
	assert.Equal(t, domain.Succeed(domain.MsgCodeSent), res)
	store.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestSend_EmptyEmail(t *testing.T) {
	store := &mockCodeStore{}
	n := &mockNotifier{}

	svc := newService(store, n, "123456")
	for _, email := range []string{"", "   "} {
		res, err := svc.SendVerificationCode(context.Background(), email)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
		assert.False(t, res.Succeeded)
		assert.Equal(t, domain.MsgInvalidRequest, res.Error)
	}
	store.AssertNotCalled(t, "InvalidateAll", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_InvalidateFails(t *testing.T) {
	cause := errors.New("connection reset")
	store := &mockCodeStore{}
	store.On("InvalidateAll", mock.Anything, "a@x.io").Return(cause)
	n := &mockNotifier{}

	svc := newService(store, n, "123456")
	res, err := svc.SendVerificationCode(context.Background(), "a@x.io")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, domain.Fail(domain.MsgSendFailed), res)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_PutFails(t *testing.T) {
	store := &mockCodeStore{}
	store.On("InvalidateAll", mock.Anything, "a@x.io").Return(nil)
	store.On("Put", mock.Anything, "a@x.io", "123456", time.Minute).Return(errors.New("throttled"))
	n := &mockNotifier{}

	svc := newService(store, n, "123456")
	_, err := svc.SendVerificationCode(context.Background(), "a@x.io")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	n.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_DispatchFails_ResultSanitized(t *testing.T) {
	cause := errors.New("smtp 554 relay denied for 10.0.0.7")
	store := &mockCodeStore{}
	store.On("InvalidateAll", mock.Anything, "a@x.io").Return(nil)
	store.On("Put", mock.Anything, "a@x.io", "123456", time.Minute).Return(nil)
	n := &mockNotifier{}
	n.On("Dispatch", mock.Anything, "a@x.io", "123456").Return(cause)

	svc := newService(store, n, "123456")
	res, err := svc.SendVerificationCode(context.Background(), "a@x.io")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDispatch))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, domain.MsgSendFailed, res.Error)
	assert.NotContains(t, res.Error, "relay")
	store.AssertExpectations(t)
}

func TestSend_DispatchTimeout(t *testing.T) {
	store := &mockCodeStore{}
	store.On("InvalidateAll", mock.Anything, "a@x.io").Return(nil)
	store.On("Put", mock.Anything, "a@x.io", "123456", time.Minute).Return(nil)
	n := &mockNotifier{}
	n.On("Dispatch", mock.Anything, "a@x.io", "123456").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded)

	svc := NewService(ServiceDeps{
		Store:           store,
		Notifier:        n,
		Generator:       &sequenceGen{codes: []string{"123456"}},
		CodeTTL:         time.Minute,
		DispatchTimeout: 20 * time.Millisecond,
	})
	_, err := svc.SendVerificationCode(context.Background(), "a@x.io")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDispatch))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSend_StoreTimeout(t *testing.T) {
	store := &mockCodeStore{}
	store.On("InvalidateAll", mock.Anything, "a@x.io").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded)

	svc := NewService(ServiceDeps{
		Store:        store,
		Notifier:     &mockNotifier{},
		Generator:    &sequenceGen{codes: []string{"123456"}},
		StoreTimeout: 20 * time.Millisecond,
	})
	_, err := svc.SendVerificationCode(context.Background(), "a@x.io")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

// --- VerifyVerificationCode tests ---

func TestVerify_Success(t *testing.T) {
	store := &mockCodeStore{}
	store.On("ConsumeIfMatch", mock.Anything, "alice@example.com", "123456").Return(true, nil)

	svc := newService(store, &mockNotifier{}, "000000")
	res, err := svc.VerifyVerificationCode(context.Background(), "Alice@Example.com", "123456")

	require.NoError(t, err)
	assert.Equal(t, domain.Succeed(domain.MsgVerified), res)
	store.AssertExpectations(t)
}

func TestVerify_FailuresAreIndistinguishable(t *testing.T) {
	store := &mockCodeStore{}
	store.On("ConsumeIfMatch", mock.Anything, "a@x.io", "111111").Return(false, nil)
	store.On("ConsumeIfMatch", mock.Anything, "a@x.io", "222222").Return(false, errors.New("dynamo down"))

	svc := newService(store, &mockNotifier{}, "000000")

	results := make([]domain.Result, 0, 2)
	res, err := svc.VerifyVerificationCode(context.Background(), "a@x.io", "111111")
	assert.True(t, errors.Is(err, domain.ErrInvalidOrExpiredCode))
	results = append(results, res)

	res, err = svc.VerifyVerificationCode(context.Background(), "a@x.io", "222222")
	assert.True(t, errors.Is(err, domain.ErrStorage))
	results = append(results, res)

	for _, r := range results {
		assert.Equal(t, domain.Fail(domain.MsgInvalidOrExpired), r)
	}
}

func TestVerify_InvalidRequest(t *testing.T) {
	store := &mockCodeStore{}
	svc := newService(store, &mockNotifier{}, "000000")

	tests := []struct {
		name  string
		email string
		code  string
	}{
		{name: "empty email", email: "  ", code: "111111"},
		{name: "empty code", email: "a@x.io", code: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.VerifyVerificationCode(context.Background(), tt.email, tt.code)
			assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
			assert.Equal(t, domain.Fail(domain.MsgInvalidRequest), res)
		})
	}
	store.AssertNotCalled(t, "ConsumeIfMatch", mock.Anything, mock.Anything, mock.Anything)
}

// --- end to end against the memory store ---

func TestScenario_SendThenVerify(t *testing.T) {
	store, _ := newMemoryStore(t)
	n := &recordingNotifier{}
	svc := newService(store, n, "482913")
	ctx := context.Background()

	res, err := svc.SendVerificationCode(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "482913", n.last("user@example.com"))

	res, err = svc.VerifyVerificationCode(ctx, "user@example.com", "482913")
	require.NoError(t, err)
	assert.True(t, res.Succeeded)

	res, err = svc.VerifyVerificationCode(ctx, "user@example.com", "482913")
	assert.True(t, errors.Is(err, domain.ErrInvalidOrExpiredCode))
	assert.Equal(t, domain.MsgInvalidOrExpired, res.Error)
}

func TestScenario_ResendSupersedesPreviousCode(t *testing.T) {
	store, _ := newMemoryStore(t)
	svc := newService(store, &recordingNotifier{}, "111111", "222222")
	ctx := context.Background()

	_, err := svc.SendVerificationCode(ctx, "user@example.com")
	require.NoError(t, err)
	_, err = svc.SendVerificationCode(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, store.ActiveCount("user@example.com"))

	_, err = svc.VerifyVerificationCode(ctx, "user@example.com", "111111")
	assert.True(t, errors.Is(err, domain.ErrInvalidOrExpiredCode))

	_, err = svc.VerifyVerificationCode(ctx, "user@example.com", "222222")
	assert.NoError(t, err)
}

func TestScenario_ExpiredCodeRejected(t *testing.T) {
	store, clk := newMemoryStore(t)
	svc := newService(store, &recordingNotifier{}, "123456")
	ctx := context.Background()

	_, err := svc.SendVerificationCode(ctx, "user@example.com")
	require.NoError(t, err)
	clk.Advance(time.Minute)

	res, err := svc.VerifyVerificationCode(ctx, "user@example.com", "123456")
	assert.True(t, errors.Is(err, domain.ErrInvalidOrExpiredCode))
	assert.Equal(t, domain.MsgInvalidOrExpired, res.Error)
}

func TestScenario_DispatchFailureKeepsCode(t *testing.T) {
	store, _ := newMemoryStore(t)
	svc := newService(store, &recordingNotifier{err: errors.New("smtp down")}, "123456")
	ctx := context.Background()

	_, err := svc.SendVerificationCode(ctx, "user@example.com")
	require.True(t, errors.Is(err, domain.ErrDispatch))
	assert.Equal(t, 1, store.ActiveCount("user@example.com"))

	_, err = svc.VerifyVerificationCode(ctx, "user@example.com", "123456")
	assert.NoError(t, err)
}

func TestScenario_ConcurrentVerifyExactlyOneSucceeds(t *testing.T) {
	store, _ := newMemoryStore(t)
	svc := newService(store, &recordingNotifier{}, "777777")
	ctx := context.Background()

	_, err := svc.SendVerificationCode(ctx, "user@example.com")
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.VerifyVerificationCode(ctx, "user@example.com", "777777"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestScenario_ConcurrentSendsLeaveOneActiveCode(t *testing.T) {
	store, _ := newMemoryStore(t)
	n := &recordingNotifier{}
	svc := NewService(ServiceDeps{Store: store, Notifier: n, CodeTTL: time.Minute})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendVerificationCode(ctx, "user@example.com")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.ActiveCount("user@example.com"))
}

func TestScenario_EmailsAreIndependent(t *testing.T) {
	store, _ := newMemoryStore(t)
	svc := newService(store, &recordingNotifier{}, "111111", "222222")
	ctx := context.Background()

	_, err := svc.SendVerificationCode(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = svc.SendVerificationCode(ctx, "b@example.com")
	require.NoError(t, err)

	_, err = svc.VerifyVerificationCode(ctx, "a@example.com", "222222")
	assert.True(t, errors.Is(err, domain.ErrInvalidOrExpiredCode))
	_, err = svc.VerifyVerificationCode(ctx, "a@example.com", "111111")
	assert.NoError(t, err)
	_, err = svc.VerifyVerificationCode(ctx, "b@example.com", "222222")
	assert.NoError(t, err)
}
