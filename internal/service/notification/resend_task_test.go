package notification

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memService keeps notifications in memory and fails every resend of an id in failing.
type memService struct {
	Service
	store   map[uint64]domain.Notification
	failing map[uint64]bool
	resends []uint64
}

func (m *memService) ListByStatus(_ context.Context, status string, offset, limit int) ([]domain.Notification, error) {
	var res []domain.Notification
	for _, n := range m.store {
		if n.Status.String() == status {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	if offset >= len(res) {
		return nil, nil
	}
	res = res[offset:]
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *memService) Resend(_ context.Context, id string) (domain.Notification, error) {
	nid, _ := strconv.ParseUint(id, 10, 64)
	n, ok := m.store[nid]
	if !ok {
		return domain.Notification{}, errs.ErrNotificationNotFoundByID
	}
	m.resends = append(m.resends, nid)
	n.Metadata = copyMetadata(n.Metadata)
	n.Metadata[MetadataAttempts] = strconv.Itoa(Attempts(n) + 1)
	if m.failing[nid] {
		n.Status = domain.NotificationStatusFailure
	} else {
		n.Status = domain.NotificationStatusSent
	}
	m.store[nid] = n
	return n, nil
}

func failed(id uint64, attempts int) domain.Notification {
	return domain.Notification{
		ID:       id,
		Status:   domain.NotificationStatusFailure,
		Metadata: map[string]string{MetadataAttempts: strconv.Itoa(attempts)},
	}
}

func TestResendFailedTask_ResendFailed(t *testing.T) {
	t.Parallel()
	svc := &memService{
		store: map[uint64]domain.Notification{
			1: failed(1, 5),
			2: failed(2, 1),
			3: failed(3, 4),
			4: failed(4, 1),
			5: failed(5, 5),
			6: {ID: 6, Status: domain.NotificationStatusSent},
		},
		failing: map[uint64]bool{3: true},
	}
	task := NewResendFailedTask(nil, svc, ResendConfig{MaxAttempts: 5, BatchSize: 2})

	resent, err := task.ResendFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, resent)
	assert.Equal(t, []uint64{2, 3, 4}, svc.resends)
	assert.Equal(t, domain.NotificationStatusSent, svc.store[2].Status)
	assert.Equal(t, domain.NotificationStatusFailure, svc.store[3].Status)
	assert.Equal(t, "5", svc.store[3].Metadata[MetadataAttempts])

	// 3 is out of attempts now
	svc.resends = nil
	resent, err = task.ResendFailed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resent)
	assert.Empty(t, svc.resends)
}

func TestResendFailedTask_RunWaitsAfterEveryPass(t *testing.T) {
	t.Parallel()
	const interval = 50 * time.Millisecond
	svc := &memService{
		store: map[uint64]domain.Notification{
			1: failed(1, 1),
			2: failed(2, 1),
		},
		failing: map[uint64]bool{2: true},
	}
	task := NewResendFailedTask(nil, svc, ResendConfig{MaxAttempts: 5, BatchSize: 10, Interval: interval})

	for i := 0; i < 2; i++ {
		start := time.Now()
		require.NoError(t, task.run(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), interval)
	}
	assert.Equal(t, []uint64{1, 2, 2}, svc.resends)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, task.run(ctx), context.Canceled)
	assert.Less(t, time.Since(start), interval)
}
