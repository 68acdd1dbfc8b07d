package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"bagel-preorder-backend/config"
)

// ErrSMSNotConfigured is returned by the sender used when no credentials are set.
var ErrSMSNotConfigured = errors.New("sms is not configured")

// SMSSender sends a single text message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// NewSMSSender returns a Twilio sender, or a sender that always fails with
// ErrSMSNotConfigured when credentials are missing.
func NewSMSSender(cfg config.SMSConfig) SMSSender {
	if !cfg.Enabled() {
		log.Println("SMS credentials are not set. Confirmation texts are disabled.")
		return disabledSender{}
	}
	return NewTwilioSender(cfg)
}

type disabledSender struct{}

func (disabledSender) Send(context.Context, string, string) error { return ErrSMSNotConfigured }

// TwilioSender sends messages through the Twilio REST client.
type TwilioSender struct {
	from   string
	client *twilio.RestClient
}

// NewTwilioSender creates a sender with its own HTTP client. Requests go to
// cfg.APIBase, which tests and regional deployments can point elsewhere.
func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	transport := &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. SMS will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	var rt http.RoundTripper = transport
	if base, err := url.Parse(cfg.APIBase); err != nil || base.Host == "" {
		log.Printf("Warning: Invalid SMS api_base %q. Using the Twilio default.", cfg.APIBase)
	} else if base.Host != defaultAPIHost {
		rt = &apiBaseTransport{base: base, next: transport}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  &http.Client{Transport: rt, Timeout: timeout},
	}
	base.SetAccountSid(cfg.AccountSID)

	return &TwilioSender{
		from: cfg.From,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username:   cfg.AccountSID,
			Password:   cfg.AuthToken,
			AccountSid: cfg.AccountSID,
			Client:     base,
		}),
	}
}

// Send delivers body to the E.164 number to. The request is bounded by the
// client timeout; ctx is only checked before sending.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		var apiErr *twilioclient.TwilioRestError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("twilio returned %d (code %d): %s", apiErr.Status, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("twilio request failed: %w", err)
	}
	return nil
}

const defaultAPIHost = "api.twilio.com"

// apiBaseTransport redirects requests for the Twilio API host to base.
type apiBaseTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *apiBaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.Host = t.base.Host
	return t.next.RoundTrip(r)
}
