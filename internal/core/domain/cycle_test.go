package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

func TestWithdrawCycleLifecycle(t *testing.T) {
	t.Parallel()

	cycle := domain.NewWithdrawCycle([]domain.Currency{domain.CurrencyBTC})
	require.NotEmpty(t, cycle.Id)
	require.Equal(t, domain.CycleCreated, cycle.Status)
	require.False(t, cycle.IsCompleted())

	err := cycle.Start()
	require.NoError(t, err)
	require.Equal(t, domain.CyclePending, cycle.Status)

	// Starting an already pending cycle is a no-op.
	err = cycle.Start()
	require.NoError(t, err)
	require.Equal(t, domain.CyclePending, cycle.Status)

	changed := cycle.Complete()
	require.True(t, changed)
	require.True(t, cycle.IsCompleted())

	changed = cycle.Complete()
	require.False(t, changed)

	err = cycle.Start()
	require.EqualError(t, err, domain.ErrCycleMustBeCreated.Error())
}
