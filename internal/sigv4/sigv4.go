// Package sigv4 implements AWS Signature Version 4 request signing
// against primitive HMAC-SHA256, without the vendor SDK.
//
// Signing is a pure function of the request, payload, credentials and
// clock: the caller passes the signing instant explicitly, so the same
// inputs always produce the same Authorization header.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const algorithm = "AWS4-HMAC-SHA256"

// Credentials holds the AWS access key pair used for signing. The
// session token is optional and only present for temporary credentials.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Sign computes the Signature V4 authorization for req over the exact
// wire-serialized payload and injects the x-amz-date,
// x-amz-content-sha256, optional x-amz-security-token and Authorization
// headers. The host is taken from the request URL and is always part of
// the signed header set.
//
// Every byte of the canonicalization (header casing, trimming, sort
// order, query encoding) must match the verifier's independent
// re-derivation; a mismatch is rejected with a 403 and no partial
// credit.
func Sign(req *http.Request, payload []byte, creds Credentials, region, service string, now time.Time) {
	now = now.UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	payloadHash := sha256Hex(payload)
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	if creds.SessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", creds.SessionToken)
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(req)
	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI(req.URL.EscapedPath()),
		canonicalQuery(req.URL.RawQuery),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := strings.Join([]string{dateStamp, region, service, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	key := signingKey(creds.SecretAccessKey, dateStamp, region, service)
	signature := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	req.Header.Set("Authorization", algorithm+
		" Credential="+creds.AccessKeyID+"/"+credentialScope+
		", SignedHeaders="+signedHeaders+
		", Signature="+signature)
}

// canonicalURI normalizes the request path. An empty path canonicalizes
// to "/"; path segments keep their escaping but slashes stay literal.
func canonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// canonicalQuery sorts query parameters by key (values sorted within a
// key) and re-encodes them with the signing-specific escaping rules:
// spaces become %20, '*' is escaped and '~' is not.
func canonicalQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vals := append([]string(nil), values[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, escapeQuery(k)+"="+escapeQuery(v))
		}
	}
	return strings.Join(parts, "&")
}

func escapeQuery(value string) string {
	encoded := url.QueryEscape(value)
	encoded = strings.ReplaceAll(encoded, "+", "%20")
	encoded = strings.ReplaceAll(encoded, "*", "%2A")
	encoded = strings.ReplaceAll(encoded, "%7E", "~")
	return encoded
}

// canonicalizeHeaders folds the request headers into the canonical form:
// keys lower-cased and sorted, values trimmed, multiple values for a key
// joined with commas, each line terminated by \n. The host pseudo-header
// comes from the request URL. Returns the canonical block and the
// semicolon-joined signed header list.
func canonicalizeHeaders(req *http.Request) (string, string) {
	headers := map[string][]string{
		"host": {req.URL.Host},
	}
	for k, vals := range req.Header {
		lower := strings.ToLower(k)
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = strings.TrimSpace(v)
		}
		headers[lower] = trimmed
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var canonical strings.Builder
	for _, k := range keys {
		canonical.WriteString(k)
		canonical.WriteString(":")
		canonical.WriteString(strings.Join(headers[k], ","))
		canonical.WriteString("\n")
	}
	return canonical.String(), strings.Join(keys, ";")
}

// signingKey derives the per-date signing key via the four-stage HMAC
// chain, each stage keyed by the previous output.
func signingKey(secret, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
