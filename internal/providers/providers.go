// Package providers constructs the vendor adapters behind the
// core.Provider interface.
package providers

import (
	"net/http"
	"time"

	"github.com/mealbridge/courier/internal/core"
	"github.com/mealbridge/courier/internal/providers/brevo"
	"github.com/mealbridge/courier/internal/providers/mailersend"
	"github.com/mealbridge/courier/internal/providers/resend"
	"github.com/mealbridge/courier/internal/providers/ses"
)

// NewResend creates the Resend adapter.
func NewResend(settings core.ProviderSettings, httpc *http.Client, timeout time.Duration) core.Provider {
	return resend.New(settings, httpc, timeout)
}

// NewBrevo creates the Brevo adapter.
func NewBrevo(settings core.ProviderSettings, httpc *http.Client, timeout time.Duration) core.Provider {
	return brevo.New(settings, httpc, timeout)
}

// NewSES creates the AWS SES adapter.
func NewSES(settings core.ProviderSettings, httpc *http.Client, timeout time.Duration) core.Provider {
	return ses.New(settings, httpc, timeout)
}

// NewMailerSend creates the MailerSend adapter.
func NewMailerSend(settings core.ProviderSettings, httpc *http.Client, timeout time.Duration) core.Provider {
	return mailersend.New(settings, httpc, timeout)
}
