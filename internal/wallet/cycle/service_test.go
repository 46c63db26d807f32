package cycle_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/wallet/balance"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/cycle"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
	"github/chapool/cctp-rebalancer/internal/wallet/transfer"
)

var (
	sepolia         = chain.Handle{Name: "sepolia"}
	polygonAmoy     = chain.Handle{Name: "polygonAmoy"}
	arbitrumSepolia = chain.Handle{Name: "arbitrumSepolia"}
	chains          = []chain.Handle{sepolia, polygonAmoy, arbitrumSepolia}
)

func usdc(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

type staticBalances struct {
	amounts []*big.Int
	failed  map[string]bool
	err     error
}

func (b staticBalances) ReadBalances(_ context.Context, hs []chain.Handle, _ common.Address) ([]balance.Reading, error) {
	if b.err != nil {
		return nil, b.err
	}

	out := make([]balance.Reading, len(hs))
	for i, h := range hs {
		out[i] = balance.Reading{Chain: h, Amount: b.amounts[i]}
		if b.failed[h.Name] {
			out[i].Err = errors.New("i/o timeout")
		}
	}
	return out, nil
}

type recordingExecutor struct {
	mu      sync.Mutex
	actions []rebalance.Action
	fail    map[string]bool // destination chain -> fail
	ctxErrs []error
	block   chan struct{}
}

func (e *recordingExecutor) Execute(ctx context.Context, action rebalance.Action) transfer.Outcome {
	if e.block != nil {
		<-e.block
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.actions = append(e.actions, action)
	e.ctxErrs = append(e.ctxErrs, ctx.Err())

	if e.fail[action.To().Name] {
		return transfer.Outcome{
			Action: action,
			State:  transfer.StateFailed,
			Err:    &transfer.Failure{Step: transfer.StateBurning, Kind: transfer.KindRejected, Err: errors.New("execution reverted")},
		}
	}
	return transfer.Outcome{Action: action, Success: true, State: transfer.StateComplete}
}

func config() cycle.Config {
	return cycle.Config{
		Chains: chains,
		Targets: []rebalance.TargetAllocation{
			{Chain: "sepolia", Percentage: decimal.NewFromInt(40)},
			{Chain: "polygonAmoy", Percentage: decimal.NewFromInt(30)},
			{Chain: "arbitrumSepolia", Percentage: decimal.NewFromInt(30)},
		},
		Threshold: decimal.NewFromInt(5),
	}
}

func skewed() staticBalances {
	return staticBalances{amounts: []*big.Int{usdc(60), usdc(20), usdc(20)}}
}

func TestRunCycleNoAction(t *testing.T) {
	exec := &recordingExecutor{}
	svc := cycle.NewService(staticBalances{amounts: []*big.Int{usdc(42), usdc(28), usdc(30)}}, exec, config())

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.NoAction)
	assert.Empty(t, report.Actions)
	assert.Empty(t, exec.actions)
	assert.Same(t, report, svc.LastReport())
	assert.Equal(t, "42.00", report.Balances[0].Display())
}

func TestRunCycleExecutesPlanInOrder(t *testing.T) {
	exec := &recordingExecutor{}
	svc := cycle.NewService(skewed(), exec, config())

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, report.NoAction)
	assert.False(t, report.Failed)

	require.Len(t, exec.actions, 2)
	assert.Equal(t, "polygonAmoy", exec.actions[0].To().Name)
	assert.Equal(t, "arbitrumSepolia", exec.actions[1].To().Name)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, report.Actions[0].ID(), report.Outcomes[0].Action.ID())
}

func TestRunCycleContinuesAfterFailure(t *testing.T) {
	exec := &recordingExecutor{fail: map[string]bool{"polygonAmoy": true}}
	svc := cycle.NewService(skewed(), exec, config())

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Failed)
	require.Len(t, report.Outcomes, 2)
	assert.False(t, report.Outcomes[0].Success)
	assert.True(t, report.Outcomes[1].Success)
}

func TestRunCycleBalanceFailure(t *testing.T) {
	svc := cycle.NewService(staticBalances{err: balance.ErrAllReadsFailed}, &recordingExecutor{}, config())

	_, err := svc.RunCycle(context.Background())
	require.ErrorIs(t, err, balance.ErrAllReadsFailed)
	assert.Nil(t, svc.LastReport())
}

func TestRunCycleReportsDegradedChains(t *testing.T) {
	b := skewed()
	b.amounts[2] = big.NewInt(0)
	b.failed = map[string]bool{"arbitrumSepolia": true}

	svc := cycle.NewService(b, &recordingExecutor{}, config())
	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"arbitrumSepolia"}, report.Degraded)
}

func TestRunCycleIgnoresCancellation(t *testing.T) {
	exec := &recordingExecutor{}
	svc := cycle.NewService(skewed(), exec, config())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, exec.ctxErrs, 2)
	assert.NoError(t, exec.ctxErrs[0])
	assert.NoError(t, exec.ctxErrs[1])
}

func TestRunOnce(t *testing.T) {
	svc := cycle.NewService(skewed(), &recordingExecutor{}, config())
	require.NoError(t, svc.Run(context.Background(), time.Hour, true))

	failing := cycle.NewService(skewed(), &recordingExecutor{fail: map[string]bool{"polygonAmoy": true}}, config())
	require.ErrorIs(t, failing.Run(context.Background(), time.Hour, true), cycle.ErrCycleFailed)

	broken := cycle.NewService(staticBalances{err: errors.New("boom")}, &recordingExecutor{}, config())
	require.Error(t, broken.Run(context.Background(), time.Hour, true))
}

func TestRunStopsBetweenCycles(t *testing.T) {
	exec := &recordingExecutor{}
	svc := cycle.NewService(skewed(), exec, config())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx, time.Millisecond, false)
	}()

	require.Eventually(t, func() bool { return svc.LastReport() != nil }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Zero(t, len(exec.actions)%2, "cycles must not be interrupted mid-plan")
}

func TestTriggerRejectsOverlap(t *testing.T) {
	exec := &recordingExecutor{block: make(chan struct{})}
	svc := cycle.NewService(skewed(), exec, config())

	id, err := svc.Trigger(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", id.String())

	_, err = svc.Trigger(context.Background())
	require.ErrorIs(t, err, cycle.ErrCycleInProgress)

	close(exec.block)
	require.Eventually(t, func() bool {
		r := svc.LastReport()
		return r != nil && r.ID == id
	}, time.Second, time.Millisecond)
}

func TestPlanDoesNotExecute(t *testing.T) {
	exec := &recordingExecutor{}
	svc := cycle.NewService(skewed(), exec, config())

	report, err := svc.Plan(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Actions, 2)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, exec.actions)
	assert.Nil(t, svc.LastReport())
}

func TestRunWaitsForTriggeredCycle(t *testing.T) {
	exec := &recordingExecutor{block: make(chan struct{})}
	svc := cycle.NewService(skewed(), exec, config())

	id, err := svc.Trigger(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx, time.Hour, false)
	}()

	select {
	case <-done:
		t.Fatal("scheduler returned while a triggered action was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(exec.block)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	require.NotNil(t, svc.LastReport())
	assert.Equal(t, id, svc.LastReport().ID)

	_, err = svc.Trigger(context.Background())
	require.ErrorIs(t, err, cycle.ErrStopping)
}

func TestRunDoesNotStartCycleAfterCancel(t *testing.T) {
	exec := &recordingExecutor{block: make(chan struct{})}
	svc := cycle.NewService(skewed(), exec, config())

	_, err := svc.Trigger(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx, time.Hour, false)
	}()

	// let the scheduler block on the running cycle
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(exec.block)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Len(t, exec.actions, 2, "only the triggered cycle may execute")
}
