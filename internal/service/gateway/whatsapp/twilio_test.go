package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/service/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioGateway_Send(t *testing.T) {
	t.Parallel()
	catalog, err := template.DefaultCatalog()
	require.NoError(t, err)

	testCases := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantResult domain.SendResult
	}{
		{
			name:       "queued",
			status:     http.StatusCreated,
			body:       `{"sid":"SM1","status":"queued"}`,
			wantResult: domain.SendResult{Success: true, Status: domain.NotificationStatusSent, ExternalID: "SM1"},
		},
		{
			name:       "delivered",
			status:     http.StatusCreated,
			body:       `{"sid":"SM2","status":"delivered"}`,
			wantResult: domain.SendResult{Success: true, Status: domain.NotificationStatusSuccess, ExternalID: "SM2"},
		},
		{
			name:       "undelivered",
			status:     http.StatusCreated,
			body:       `{"sid":"SM3","status":"undelivered"}`,
			wantResult: domain.SendResult{Status: domain.NotificationStatusFailure, ExternalID: "SM3"},
		},
		{
			name:    "invalid number",
			status:  http.StatusBadRequest,
			body:    `{"code":21211,"message":"Invalid 'To' Phone Number"}`,
			wantErr: errs.ErrGatewaySendFailed,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", r.URL.Path)
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "AC1", user)
				assert.Equal(t, "token", pass)
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "whatsapp:+15550001", r.PostForm.Get("From"))
				assert.Equal(t, "whatsapp:+15550002", r.PostForm.Get("To"))
				assert.Equal(t, "Alex: Baby is here", r.PostForm.Get("Body"))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(server.Close)

			gw := NewTwilioGateway(Config{
				BaseURL:    server.URL,
				AccountSID: "AC1",
				AuthToken:  "token",
				FromNumber: "+15550001",
			}, catalog)
			res, err := gw.Send(context.Background(), domain.Notification{
				ID:          2,
				Channel:     domain.ChannelWhatsApp,
				Destination: "+15550002",
				Template:    domain.TemplateLabourAnnouncement,
				Data:        map[string]string{"birthing_person_name": "Alex", "message": "Baby is here"},
			})
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.wantResult, res)
		})
	}
}

func TestWithPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "whatsapp:+1", withPrefix("+1"))
	assert.Equal(t, "whatsapp:+1", withPrefix("whatsapp:+1"))
}
