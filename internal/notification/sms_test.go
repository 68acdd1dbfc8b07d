package notification

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bagel-preorder-backend/config"
)

func TestTwilioSender_Send(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expectedErr string
	}{
		{name: "accepted", status: http.StatusCreated, body: `{"sid":"SM123"}`},
		{name: "provider error", status: http.StatusBadRequest, body: `{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`, expectedErr: "twilio returned 400 (code 21211): Invalid 'To' Phone Number"},
		{name: "opaque failure", status: http.StatusInternalServerError, body: `oops`, expectedErr: "500"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "AC123", user)
				assert.Equal(t, "secret", pass)
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "+15551234567", r.PostForm.Get("To"))
				assert.Equal(t, "+15550000000", r.PostForm.Get("From"))
				assert.Equal(t, "hello", r.PostForm.Get("Body"))
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			sender := NewTwilioSender(config.SMSConfig{
				AccountSID:     "AC123",
				AuthToken:      "secret",
				From:           "+15550000000",
				APIBase:        server.URL + "/",
				TimeoutSeconds: 2,
			})
			err := sender.Send(context.Background(), "+15551234567", "hello")
			if tc.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErr)
			}
		})
	}
}

func TestTwilioSender_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1500 * time.Millisecond)
	}))
	defer server.Close()

	sender := NewTwilioSender(config.SMSConfig{AccountSID: "AC1", AuthToken: "t", APIBase: server.URL, TimeoutSeconds: 1})
	start := time.Now()
	err := sender.Send(context.Background(), "+1", "x")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 1400*time.Millisecond)
}

func TestNewSMSSender_Disabled(t *testing.T) {
	sender := NewSMSSender(config.SMSConfig{})
	assert.ErrorIs(t, sender.Send(context.Background(), "+1", "x"), ErrSMSNotConfigured)

	_, ok := NewSMSSender(config.SMSConfig{AccountSID: "AC1", AuthToken: "t"}).(*TwilioSender)
	assert.True(t, ok)
}

func TestTwilioSender_CanceledContext(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	sender := NewTwilioSender(config.SMSConfig{AccountSID: "AC1", AuthToken: "t", APIBase: server.URL, TimeoutSeconds: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Send(ctx, "+1", "x"), context.Canceled)
	assert.False(t, called)
}

func TestAPIBaseTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	}))
	defer server.Close()

	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	client := &http.Client{Transport: &apiBaseTransport{base: base, next: http.DefaultTransport}}

	resp, err := client.Get("https://api.twilio.com/2010-04-01/Accounts/AC1/Messages.json?PageSize=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json?PageSize=1", string(body))
}
