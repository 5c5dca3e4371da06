package application_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/application"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

type stubWithdrawService struct {
	passes int64
}

func (s *stubWithdrawService) CreateWithdrawCycle(
	ctx context.Context, currencies []string,
) (*domain.WithdrawCycle, error) {
	return nil, nil
}

func (s *stubWithdrawService) RegisterAccount(ctx context.Context) (*domain.Account, error) {
	return nil, nil
}

func (s *stubWithdrawService) RunPass(ctx context.Context) error {
	atomic.AddInt64(&s.passes, 1)
	return nil
}

func (s *stubWithdrawService) ProcessSelector(ctx context.Context, tx *domain.WithdrawalTx) {}

func (s *stubWithdrawService) ConfirmSelector(ctx context.Context, tx *domain.WithdrawalTx) {}

func TestWithdrawListener(t *testing.T) {
	svc := &stubWithdrawService{}
	listener := application.NewWithdrawListener(svc, 10*time.Millisecond)

	listener.Observe()
	time.Sleep(55 * time.Millisecond)
	listener.Stop()

	passes := atomic.LoadInt64(&svc.passes)
	require.GreaterOrEqual(t, passes, int64(3))

	// No more passes once stopped.
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, passes, atomic.LoadInt64(&svc.passes))
}
