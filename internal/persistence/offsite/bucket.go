// Package offsite copies finished archives and closed turn logs to an
// S3-compatible bucket (R2, MinIO, S3) in the background.
package offsite

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

const (
	sigV4Algorithm = "AWS4-HMAC-SHA256"
	sigV4Service   = "s3"
)

// Bucket signs PUT requests with AWS SigV4 against a path-style endpoint.
type Bucket struct {
	endpoint  string
	name      string
	region    string
	keyID     string
	secretKey string
	http      *http.Client
	now       func() time.Time
}

type BucketConfig struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func NewBucket(cfg BucketConfig) (*Bucket, error) {
	b := &Bucket{
		endpoint:  strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		name:      strings.TrimSpace(cfg.Bucket),
		region:    strings.TrimSpace(cfg.Region),
		keyID:     strings.TrimSpace(cfg.AccessKeyID),
		secretKey: strings.TrimSpace(cfg.SecretAccessKey),
		http:      &http.Client{Timeout: 2 * time.Minute},
		now:       time.Now,
	}
	if b.endpoint == "" || b.name == "" || b.keyID == "" || b.secretKey == "" {
		return nil, fmt.Errorf("offsite: endpoint, bucket and credentials are required")
	}
	u, err := url.Parse(b.endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("offsite: bad endpoint %q", cfg.Endpoint)
	}
	if b.region == "" {
		b.region = "auto"
	}
	return b, nil
}

// StatusError is a non-2xx answer from the bucket.
type StatusError struct {
	Status int
	Key    string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("offsite put %s: status %d: %s", e.Key, e.Status, e.Body)
}

// PutFile uploads localPath under key.
func (b *Bucket) PutFile(ctx context.Context, key, localPath string) error {
	key = cleanKey(key)
	if key == "" {
		return fmt.Errorf("offsite: empty object key")
	}
	body, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return b.put(ctx, key, body)
}

func (b *Bucket) put(ctx context.Context, key string, body []byte) error {
	payloadHash := sha256Hex(body)
	now := b.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	day := now.Format("20060102")

	uri := "/" + b.name + "/" + escapeKey(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.endpoint+uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	host := req.URL.Host
	req.Header.Set("x-amz-content-sha256", payloadHash)
	req.Header.Set("x-amz-date", amzDate)
	req.Header.Set("Content-Type", contentType(key))

	const signed = "host;x-amz-content-sha256;x-amz-date"
	canonical := strings.Join([]string{
		http.MethodPut,
		uri,
		"",
		"host:" + host + "\nx-amz-content-sha256:" + payloadHash + "\nx-amz-date:" + amzDate + "\n",
		signed,
		payloadHash,
	}, "\n")
	scope := day + "/" + b.region + "/" + sigV4Service + "/aws4_request"
	toSign := strings.Join([]string{sigV4Algorithm, amzDate, scope, sha256Hex([]byte(canonical))}, "\n")
	sig := hex.EncodeToString(hmacSHA256(signingKey(b.secretKey, day, b.region), []byte(toSign)))
	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		sigV4Algorithm, b.keyID, scope, signed, sig))

	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	return &StatusError{Status: resp.StatusCode, Key: key, Body: strings.TrimSpace(string(msg))}
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".zst"):
		return "application/zstd"
	default:
		return "application/octet-stream"
	}
}

// cleanKey normalizes slashes and refuses keys that climb out of the bucket.
func cleanKey(key string) string {
	key = strings.TrimPrefix(strings.TrimSpace(strings.ReplaceAll(key, "\\", "/")), "/")
	if key == "" {
		return ""
	}
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "." || clean == "" {
		return ""
	}
	return clean
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func signingKey(secret, day, region string) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), []byte(day))
	k = hmacSHA256(k, []byte(region))
	k = hmacSHA256(k, []byte(sigV4Service))
	return hmacSHA256(k, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write(data)
	return h.Sum(nil)
}
