package gateway

import (
	"context"
	"testing"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	r.RegisterGateway(domain.ChannelEmail, GatewayFunc(func(context.Context, domain.Notification) (domain.SendResult, error) {
		return domain.SendResult{Success: true, Status: domain.NotificationStatusSent, ExternalID: "first"}, nil
	}))

	testCases := []struct {
		name    string
		channel string
		wantErr error
	}{
		{name: "registered", channel: "email"},
		{name: "known but not registered", channel: "whatsapp", wantErr: errs.ErrGatewayNotImplemented},
		{name: "unknown", channel: "carrier-pigeon", wantErr: errs.ErrInvalidNotificationChannel},
		{name: "wrong case", channel: "EMAIL", wantErr: errs.ErrInvalidNotificationChannel},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gw, err := r.GetGateway(tc.channel)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, gw)
				return
			}
			require.NoError(t, err)
			res, err := gw.Send(context.Background(), domain.Notification{})
			require.NoError(t, err)
			assert.Equal(t, "first", res.ExternalID)
		})
	}
}

func TestRouterReplacesGateway(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	for _, id := range []string{"a", "b"} {
		id := id
		r.RegisterGateway(domain.ChannelSMS, GatewayFunc(func(context.Context, domain.Notification) (domain.SendResult, error) {
			return domain.SendResult{ExternalID: id}, nil
		}))
	}
	gw, err := r.GetGateway("sms")
	require.NoError(t, err)
	res, err := gw.Send(context.Background(), domain.Notification{})
	require.NoError(t, err)
	assert.Equal(t, "b", res.ExternalID)
	assert.Equal(t, []domain.Channel{domain.ChannelSMS}, r.Channels())
}
