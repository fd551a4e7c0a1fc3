package domain

import (
	"testing"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newBegunLabour(t *testing.T, firstLabour bool) *Labour {
	t.Helper()
	l := PlanLabour(PlanLabourParams{
		BirthingPersonID: "bp-1",
		FirstLabour:      firstLabour,
		DueDate:          t0.Add(24 * time.Hour),
		LabourName:       "baby",
		Now:              t0.Add(-time.Hour),
	})
	require.NoError(t, l.Begin(t0))
	l.DrainEvents()
	return l
}

// runContractions records n ended contractions starting at start and returns
// the time the next one could start.
func runContractions(t *testing.T, l *Labour, start time.Time, n int,
	length, gap time.Duration, intensity int,
) time.Time {
	t.Helper()
	cur := start
	for i := 0; i < n; i++ {
		_, err := l.StartContraction(StartContractionParams{StartTime: cur})
		require.NoError(t, err)
		_, err = l.EndContraction(EndContractionParams{EndTime: cur.Add(length), Intensity: intensity})
		require.NoError(t, err)
		cur = cur.Add(length + gap)
	}
	return cur
}

func intPtr(i int) *int {
	return &i
}

func TestPlanAndBegin(t *testing.T) {
	t.Parallel()
	l := PlanLabour(PlanLabourParams{BirthingPersonID: "bp-1", FirstLabour: true, Now: t0})
	assert.Equal(t, LabourPhasePlanned, l.CurrentPhase)
	assert.NotEmpty(t, l.ID)

	require.NoError(t, l.Begin(t0))
	assert.Equal(t, LabourPhaseEarly, l.CurrentPhase)
	require.NotNil(t, l.StartTime)
	assert.True(t, t0.Equal(*l.StartTime))

	err := l.Begin(t0.Add(time.Minute))
	assert.ErrorIs(t, err, errs.ErrLabourAlreadyBegun)

	events := l.DrainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeLabourPlanned, events[0].Type)
	assert.Equal(t, EventTypeLabourBegun, events[1].Type)
	assert.Equal(t, l.ID, events[1].DataString("labour_id"))
	assert.Empty(t, l.DrainEvents())
}

func TestStartContraction(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		before  func(t *testing.T) *Labour
		params  StartContractionParams
		wantErr error
	}{
		{
			name: "planned labour",
			before: func(t *testing.T) *Labour {
				return PlanLabour(PlanLabourParams{BirthingPersonID: "bp-1", Now: t0})
			},
			params:  StartContractionParams{StartTime: t0},
			wantErr: errs.ErrLabourNotBegun,
		},
		{
			name: "already has an active contraction",
			before: func(t *testing.T) *Labour {
				l := newBegunLabour(t, true)
				_, err := l.StartContraction(StartContractionParams{StartTime: t0})
				require.NoError(t, err)
				return l
			},
			params:  StartContractionParams{StartTime: t0.Add(time.Minute)},
			wantErr: errs.ErrLabourHasActiveContraction,
		},
		{
			name: "completed labour",
			before: func(t *testing.T) *Labour {
				l := newBegunLabour(t, true)
				require.NoError(t, l.Complete(t0.Add(time.Hour), ""))
				return l
			},
			params:  StartContractionParams{StartTime: t0.Add(2 * time.Hour)},
			wantErr: errs.ErrLabourAlreadyCompleted,
		},
		{
			name: "intensity out of range",
			before: func(t *testing.T) *Labour {
				return newBegunLabour(t, true)
			},
			params:  StartContractionParams{StartTime: t0, Intensity: intPtr(11)},
			wantErr: errs.ErrContractionIntensityInvalid,
		},
		{
			name: "starts before the previous one ended",
			before: func(t *testing.T) *Labour {
				l := newBegunLabour(t, true)
				runContractions(t, l, t0, 1, time.Minute, 0, 5)
				return l
			},
			params:  StartContractionParams{StartTime: t0.Add(30 * time.Second)},
			wantErr: errs.ErrContractionsOverlapping,
		},
		{
			name: "starts exactly when the previous one ended",
			before: func(t *testing.T) *Labour {
				l := newBegunLabour(t, true)
				runContractions(t, l, t0, 1, time.Minute, 0, 5)
				return l
			},
			params: StartContractionParams{StartTime: t0.Add(time.Minute), Intensity: intPtr(4)},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := tc.before(t)
			count := len(l.Contractions)
			c, err := l.StartContraction(tc.params)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Len(t, l.Contractions, count)
				return
			}
			require.NoError(t, err)
			assert.True(t, c.IsActive())
			assert.Len(t, l.Contractions, count+1)
		})
	}
}

func TestEndContraction(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		end     time.Duration
		intense int
		wantErr error
	}{
		{name: "end before start", end: -time.Second, intense: 5, wantErr: errs.ErrContractionStartTimeAfterEndTime},
		{name: "zero length", end: 0, intense: 5, wantErr: errs.ErrContractionDurationLessThanMinDuration},
		{name: "too long", end: 21 * time.Minute, intense: 5, wantErr: errs.ErrContractionDurationExceedsMaxDuration},
		{name: "intensity too low", end: time.Minute, intense: 0, wantErr: errs.ErrContractionIntensityInvalid},
		{name: "intensity too high", end: time.Minute, intense: 11, wantErr: errs.ErrContractionIntensityInvalid},
		{name: "ok", end: time.Minute, intense: 10},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := newBegunLabour(t, true)
			_, err := l.StartContraction(StartContractionParams{StartTime: t0})
			require.NoError(t, err)
			before := append([]Contraction(nil), l.Contractions...)

			c, err := l.EndContraction(EndContractionParams{EndTime: t0.Add(tc.end), Intensity: tc.intense})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, before, l.Contractions)
				_, active := l.ActiveContraction()
				assert.True(t, active)
				return
			}
			require.NoError(t, err)
			assert.False(t, c.IsActive())
			assert.Equal(t, tc.intense, c.IntensityValue())
			_, active := l.ActiveContraction()
			assert.False(t, active)
		})
	}

	t.Run("no active contraction", func(t *testing.T) {
		t.Parallel()
		l := newBegunLabour(t, true)
		_, err := l.EndContraction(EndContractionParams{EndTime: t0, Intensity: 5})
		assert.ErrorIs(t, err, errs.ErrLabourHasNoActiveContraction)
	})
}

func TestPhaseProgression(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name      string
		length    time.Duration
		intensity int
		want      LabourPhase
	}{
		{name: "short contractions stay early", length: 30 * time.Second, intensity: 6, want: LabourPhaseEarly},
		{name: "one minute at six is active", length: time.Minute, intensity: 6, want: LabourPhaseActive},
		{name: "ninety seconds at eight is transition", length: 90 * time.Second, intensity: 8, want: LabourPhaseTransition},
		{name: "long but mild stays early", length: 2 * time.Minute, intensity: 5, want: LabourPhaseEarly},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := newBegunLabour(t, true)
			runContractions(t, l, t0, 5, tc.length, 4*time.Minute, tc.intensity)
			assert.Equal(t, tc.want, l.CurrentPhase)
		})
	}

	t.Run("never moves backwards", func(t *testing.T) {
		t.Parallel()
		l := newBegunLabour(t, true)
		next := runContractions(t, l, t0, 5, time.Minute, 4*time.Minute, 6)
		require.Equal(t, LabourPhaseActive, l.CurrentPhase)
		runContractions(t, l, next, 5, 30*time.Second, 4*time.Minute, 2)
		assert.Equal(t, LabourPhaseActive, l.CurrentPhase)
	})
}

func TestUpdateContraction(t *testing.T) {
	t.Parallel()
	newLabour := func(t *testing.T) *Labour {
		l := newBegunLabour(t, true)
		// [t0, t0+1m] and [t0+3m, t0+4m]
		runContractions(t, l, t0, 2, time.Minute, 2*time.Minute, 5)
		return l
	}
	timePtr := func(d time.Duration) *time.Time {
		v := t0.Add(d)
		return &v
	}

	testCases := []struct {
		name    string
		params  func(l *Labour) UpdateContractionParams
		wantErr error
	}{
		{
			name: "touching the previous contraction is allowed",
			params: func(l *Labour) UpdateContractionParams {
				return UpdateContractionParams{ContractionID: l.Contractions[1].ID, StartTime: timePtr(time.Minute)}
			},
		},
		{
			name: "one second of overlap is rejected",
			params: func(l *Labour) UpdateContractionParams {
				return UpdateContractionParams{ContractionID: l.Contractions[1].ID, StartTime: timePtr(59 * time.Second)}
			},
			wantErr: errs.ErrContractionsOverlappingAfterUpdate,
		},
		{
			name: "unknown contraction",
			params: func(*Labour) UpdateContractionParams {
				return UpdateContractionParams{ContractionID: "missing"}
			},
			wantErr: errs.ErrContractionNotFoundByID,
		},
		{
			name: "end before start",
			params: func(l *Labour) UpdateContractionParams {
				return UpdateContractionParams{ContractionID: l.Contractions[0].ID, EndTime: timePtr(-time.Minute)}
			},
			wantErr: errs.ErrContractionStartTimeAfterEndTime,
		},
		{
			name: "invalid intensity",
			params: func(l *Labour) UpdateContractionParams {
				return UpdateContractionParams{ContractionID: l.Contractions[0].ID, Intensity: intPtr(0)}
			},
			wantErr: errs.ErrContractionIntensityInvalid,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := newLabour(t)
			before := append([]Contraction(nil), l.Contractions...)
			_, err := l.UpdateContraction(tc.params(l))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, before, l.Contractions)
				return
			}
			require.NoError(t, err)
			assert.True(t, t0.Add(time.Minute).Equal(l.Contractions[1].StartTime))
		})
	}

	t.Run("active contraction", func(t *testing.T) {
		t.Parallel()
		l := newLabour(t)
		c, err := l.StartContraction(StartContractionParams{StartTime: t0.Add(10 * time.Minute)})
		require.NoError(t, err)
		_, err = l.UpdateContraction(UpdateContractionParams{ContractionID: c.ID, Intensity: intPtr(3)})
		assert.ErrorIs(t, err, errs.ErrCannotUpdateActiveContraction)
	})

	t.Run("running past an active contraction start", func(t *testing.T) {
		t.Parallel()
		l := newLabour(t)
		_, err := l.StartContraction(StartContractionParams{StartTime: t0.Add(10 * time.Minute)})
		require.NoError(t, err)
		_, err = l.UpdateContraction(UpdateContractionParams{
			ContractionID: l.Contractions[1].ID,
			EndTime:       timePtr(11 * time.Minute),
		})
		assert.ErrorIs(t, err, errs.ErrContractionsOverlappingAfterUpdate)
	})
}

func TestDeleteContraction(t *testing.T) {
	t.Parallel()
	l := newBegunLabour(t, true)
	runContractions(t, l, t0, 2, time.Minute, 2*time.Minute, 5)
	active, err := l.StartContraction(StartContractionParams{StartTime: t0.Add(10 * time.Minute)})
	require.NoError(t, err)

	assert.ErrorIs(t, l.DeleteContraction(active.ID), errs.ErrCannotDeleteActiveContraction)
	assert.ErrorIs(t, l.DeleteContraction("missing"), errs.ErrContractionNotFoundByID)

	first := l.Contractions[0].ID
	require.NoError(t, l.DeleteContraction(first))
	assert.Len(t, l.Contractions, 2)
	assert.ErrorIs(t, l.DeleteContraction(first), errs.ErrContractionNotFoundByID)
}

func TestCompleteLabour(t *testing.T) {
	t.Parallel()
	l := newBegunLabour(t, true)
	_, err := l.StartContraction(StartContractionParams{StartTime: t0})
	require.NoError(t, err)

	err = l.Complete(t0.Add(time.Hour), "")
	assert.ErrorIs(t, err, errs.ErrCannotCompleteLabourWithActiveContraction)
	assert.Equal(t, LabourPhaseEarly, l.CurrentPhase)
	assert.Empty(t, l.PendingEvents())

	_, err = l.EndContraction(EndContractionParams{EndTime: t0.Add(time.Minute), Intensity: 5})
	require.NoError(t, err)
	require.NoError(t, l.Complete(t0.Add(time.Hour), "all good"))
	assert.Equal(t, LabourPhaseComplete, l.CurrentPhase)
	assert.Equal(t, "all good", l.Notes)
	require.NotNil(t, l.EndTime)

	assert.ErrorIs(t, l.Complete(t0.Add(2*time.Hour), ""), errs.ErrLabourAlreadyCompleted)
	assert.ErrorIs(t, l.updatePhase(), errs.ErrLabourAlreadyCompleted)
	_, err = l.UpdateContraction(UpdateContractionParams{ContractionID: l.Contractions[0].ID})
	assert.ErrorIs(t, err, errs.ErrLabourAlreadyCompleted)

	events := l.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeLabourCompleted, events[0].Type)
}

func TestAdvancePhase(t *testing.T) {
	t.Parallel()
	l := newBegunLabour(t, true)
	assert.ErrorIs(t, l.AdvancePhase(LabourPhaseComplete), errs.ErrInvalidLabourPhase)
	assert.ErrorIs(t, l.AdvancePhase("crowning"), errs.ErrInvalidLabourPhase)
	require.NoError(t, l.AdvancePhase(LabourPhasePushing))
	assert.ErrorIs(t, l.AdvancePhase(LabourPhaseActive), errs.ErrCannotRegressLabourPhase)
	assert.Equal(t, LabourPhasePushing, l.CurrentPhase)
}

func TestUpdatePaymentPlan(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		from    PaymentPlan
		to      PaymentPlan
		wantErr error
	}{
		{name: "first plan", from: "", to: PaymentPlanSolo},
		{name: "upgrade", from: PaymentPlanSolo, to: PaymentPlanCommunity},
		{name: "same plan", from: PaymentPlanInnerCircle, to: PaymentPlanInnerCircle},
		{name: "downgrade", from: PaymentPlanCommunity, to: PaymentPlanInnerCircle, wantErr: errs.ErrCannotDowngradeLabourPlan},
		{name: "unknown plan", from: "", to: "platinum", wantErr: errs.ErrInvalidPaymentPlan},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := newBegunLabour(t, true)
			l.PaymentPlan = tc.from
			err := l.UpdatePaymentPlan(tc.to)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.from, l.PaymentPlan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, l.PaymentPlan)
		})
	}
}

func TestPostLabourUpdate(t *testing.T) {
	t.Parallel()
	l := newBegunLabour(t, true)

	_, err := l.PostLabourUpdate(PostLabourUpdateParams{
		Type: LabourUpdateTypeAnnouncement, Message: "on our way", SentTime: t0,
	})
	require.NoError(t, err)

	_, err = l.PostLabourUpdate(PostLabourUpdateParams{
		Type: LabourUpdateTypeAnnouncement, Message: "again", SentTime: t0.Add(5 * time.Minute),
	})
	assert.ErrorIs(t, err, errs.ErrTooSoonSinceLastAnnouncement)

	_, err = l.PostLabourUpdate(PostLabourUpdateParams{
		Type: LabourUpdateTypeStatusUpdate, Message: "resting", SentTime: t0.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = l.PostLabourUpdate(PostLabourUpdateParams{
		Type: LabourUpdateTypeAnnouncement, Message: "arrived", SentTime: t0.Add(10 * time.Minute),
	})
	require.NoError(t, err)

	_, err = l.PostLabourUpdate(PostLabourUpdateParams{Type: "gossip", Message: "x", SentTime: t0})
	assert.ErrorIs(t, err, errs.ErrInvalidLabourUpdateType)
	_, err = l.PostLabourUpdate(PostLabourUpdateParams{Type: LabourUpdateTypePrivateNote, SentTime: t0})
	assert.ErrorIs(t, err, errs.ErrInvalidLabourUpdateMessage)

	assert.Len(t, l.LabourUpdates, 3)
	events := l.DrainEvents()
	require.Len(t, events, 2)
	for _, evt := range events {
		assert.Equal(t, EventTypeAnnouncementPosted, evt.Type)
	}
	assert.Equal(t, "arrived", events[1].DataString("message"))

	require.NoError(t, l.DeleteLabourUpdate(l.LabourUpdates[1].ID))
	assert.Len(t, l.LabourUpdates, 2)
	assert.ErrorIs(t, l.DeleteLabourUpdate("missing"), errs.ErrLabourUpdateNotFoundByID)

	require.NoError(t, l.Complete(t0.Add(time.Hour), ""))
	l.DrainEvents()
	for _, typ := range []LabourUpdateType{LabourUpdateTypeAnnouncement, LabourUpdateTypeStatusUpdate, LabourUpdateTypePrivateNote} {
		_, err = l.PostLabourUpdate(PostLabourUpdateParams{Type: typ, Message: "baby is here", SentTime: t0.Add(2 * time.Hour)})
		assert.ErrorIs(t, err, errs.ErrLabourAlreadyCompleted, typ)
	}
	assert.Len(t, l.LabourUpdates, 2)
	assert.Empty(t, l.PendingEvents())
}

func TestHospitalRecommendation(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name        string
		firstLabour bool
		count       int
		length      time.Duration
		gap         time.Duration
		want        bool
	}{
		{name: "first labour 3-1-1", firstLabour: true, count: 16, length: time.Minute, gap: 3 * time.Minute, want: true},
		{name: "first labour gaps too long", firstLabour: true, count: 16, length: time.Minute, gap: 4 * time.Minute},
		{name: "first labour too few", firstLabour: true, count: 15, length: time.Minute, gap: 3 * time.Minute},
		{name: "first labour too short", firstLabour: true, count: 20, length: 50 * time.Second, gap: 3 * time.Minute},
		{name: "first labour span under an hour", firstLabour: true, count: 16, length: time.Minute, gap: 2 * time.Minute},
		{name: "subsequent labour 5-1-1", count: 11, length: time.Minute, gap: 5 * time.Minute, want: true},
		{name: "subsequent labour gaps too long", count: 11, length: time.Minute, gap: 6 * time.Minute},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := newBegunLabour(t, tc.firstLabour)
			runContractions(t, l, t0, tc.count, tc.length, tc.gap, 5)
			assert.Equal(t, tc.want, l.ShouldGoToHospital())

			var recommended int
			for _, evt := range l.DrainEvents() {
				if evt.Type == EventTypeLabourHospitalRecommended {
					recommended++
				}
			}
			if tc.want {
				assert.Equal(t, 1, recommended)
			} else {
				assert.Zero(t, recommended)
			}
		})
	}

	t.Run("recommended once", func(t *testing.T) {
		t.Parallel()
		l := newBegunLabour(t, true)
		runContractions(t, l, t0, 20, time.Minute, 3*time.Minute, 5)
		var recommended int
		for _, evt := range l.DrainEvents() {
			if evt.Type == EventTypeLabourHospitalRecommended {
				recommended++
			}
		}
		assert.Equal(t, 1, recommended)
	})
}
