// Package courier provides multi-provider transactional email delivery
// for the marketplace: a provider-agnostic send abstraction over
// Resend, Brevo, AWS SES and MailerSend with per-provider circuit
// breaking, time-windowed health and quota probing, and priority-based
// provider selection per message category.
//
// The AWS adapter signs requests with a local Signature V4
// implementation; no vendor SDK is involved.
//
// # Basic Usage
//
//	client, err := courier.New(courier.DefaultConfig(),
//		courier.WithResend(os.Getenv("RESEND_API_KEY")),
//		courier.WithDefaultFrom("hello@example.org", "MealBridge"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	result := client.Send(context.Background(), &courier.SendParams{
//		To:      []string{"neighbor@example.org"},
//		Subject: "Pickup confirmed",
//		HTML:    "<p>See you at 6pm.</p>",
//	}, courier.EmailTypeBooking)
//	if !result.Success {
//		log.Printf("send failed via %s: %s", result.Provider, result.Error)
//	}
//
// # Selection semantics
//
// Send picks the first configured provider in the category's priority
// list and tries it exactly once; it does not consult the circuit
// breaker and performs no failover, trading adaptiveness for
// predictability. BestProvider is the adaptive counterpart: it ranks
// configured, breaker-available providers by priority and health score.
// Callers that want degraded-mode behavior combine the two.
//
// # Failure model
//
// Expected failures are data: every send returns a SendResult whose
// Error string distinguishes configuration problems, timeouts and
// vendor rejections. Only the fire-and-forget metrics persistence
// swallows errors, logging them instead.
package courier
