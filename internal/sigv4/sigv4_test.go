package sigv4

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

var testCreds = Credentials{
	AccessKeyID:     "AKIDEXAMPLE",
	SecretAccessKey: "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY",
}

var testInstant = time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)

func TestSignPostOutboundEmail(t *testing.T) {
	payload := []byte(`{"FromEmailAddress":"no-reply@platesharing.org","Destination":{"ToAddresses":["neighbor@example.org"]},"Content":{"Simple":{"Subject":{"Data":"Pickup confirmed","Charset":"UTF-8"},"Body":{"Html":{"Data":"<p>See you at 6pm.</p>","Charset":"UTF-8"}}}}}`)

	req, err := http.NewRequest(http.MethodPost, "https://email.eu-west-1.amazonaws.com/v2/email/outbound-emails", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	Sign(req, payload, testCreds, "eu-west-1", "ses", testInstant)

	want := "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240315/eu-west-1/ses/aws4_request, " +
		"SignedHeaders=content-type;host;x-amz-content-sha256;x-amz-date, " +
		"Signature=da471f52206fbbddd37ad1908ab30e371db483c534ebbe0cd012a3e0023dad66"
	if got := req.Header.Get("Authorization"); got != want {
		t.Fatalf("Authorization mismatch:\n got %s\nwant %s", got, want)
	}

	if got := req.Header.Get("X-Amz-Date"); got != "20240315T123045Z" {
		t.Fatalf("unexpected x-amz-date: %s", got)
	}
	if got := req.Header.Get("X-Amz-Content-Sha256"); got != "f6328b7dc0e2c2ced65db348e04aa1d1dbf1f2907e47369f9e997b2c886fe5a2" {
		t.Fatalf("unexpected payload hash: %s", got)
	}
}

func TestSignGetWithQuery(t *testing.T) {
	// Query keys arrive out of order and must be sorted; the empty
	// payload hashes to the well-known SHA-256 of zero bytes.
	req, err := http.NewRequest(http.MethodGet, "https://email.eu-west-1.amazonaws.com/v2/email/account?b=2&a=1", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	Sign(req, nil, testCreds, "eu-west-1", "ses", testInstant)

	want := "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240315/eu-west-1/ses/aws4_request, " +
		"SignedHeaders=host;x-amz-content-sha256;x-amz-date, " +
		"Signature=18f907169f53aa87f5758cf839ce3a7b6ced3b8d2d22ba54f82a71cc09b58ae4"
	if got := req.Header.Get("Authorization"); got != want {
		t.Fatalf("Authorization mismatch:\n got %s\nwant %s", got, want)
	}
	if got := req.Header.Get("X-Amz-Content-Sha256"); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("unexpected empty payload hash: %s", got)
	}
}

func TestSignDeterministic(t *testing.T) {
	payload := []byte(`{"FromEmailAddress":"a@b.c"}`)

	sign := func() string {
		req, err := http.NewRequest(http.MethodPost, "https://email.us-east-1.amazonaws.com/v2/email/outbound-emails", nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		Sign(req, payload, testCreds, "us-east-1", "ses", testInstant)
		return req.Header.Get("Authorization")
	}

	first, second := sign(), sign()
	if first != second {
		t.Fatalf("signing is not deterministic:\n first %s\nsecond %s", first, second)
	}
}

func TestSignSessionToken(t *testing.T) {
	creds := testCreds
	creds.SessionToken = "FwoGZXIvYXdzEBY"

	req, err := http.NewRequest(http.MethodGet, "https://email.eu-west-1.amazonaws.com/v2/email/account", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	Sign(req, nil, creds, "eu-west-1", "ses", testInstant)

	if got := req.Header.Get("X-Amz-Security-Token"); got != creds.SessionToken {
		t.Fatalf("session token header not set, got %q", got)
	}
	auth := req.Header.Get("Authorization")
	if !strings.Contains(auth, "x-amz-security-token") {
		t.Fatalf("session token not in signed headers: %s", auth)
	}
}
