package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T) (*Client, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	fixed := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return &Client{
		bucket: "media-bucket",
		ttl:    5 * time.Minute,
		signer: &serviceAccountInfo{
			clientEmail: "signer@example.com",
			privateKey:  key,
		},
		now: func() time.Time { return fixed },
	}, key
}

func TestSignedURLVerifies(t *testing.T) {
	t.Parallel()

	client, key := testClient(t)
	object := "products/boards/deck.png"

	raw, err := client.SignedURL(context.Background(), "", object)
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing url: %v", err)
	}
	if parsed.Path != "/media-bucket/"+object {
		t.Fatalf("unexpected resource path %q", parsed.Path)
	}
	if got := parsed.Query().Get("GoogleAccessId"); got != "signer@example.com" {
		t.Fatalf("unexpected access id %q", got)
	}

	expires, err := strconv.ParseInt(parsed.Query().Get("Expires"), 10, 64)
	if err != nil {
		t.Fatalf("parsing expires: %v", err)
	}
	wantExpires := time.Date(2026, time.March, 1, 12, 5, 0, 0, time.UTC).Unix()
	if expires != wantExpires {
		t.Fatalf("expected expires %d, got %d", wantExpires, expires)
	}

	signature, err := base64.StdEncoding.DecodeString(parsed.Query().Get("Signature"))
	if err != nil {
		t.Fatalf("decoding signature: %v", err)
	}
	toSign := strings.Join([]string{
		http.MethodGet, "", "",
		strconv.FormatInt(expires, 10),
		"/media-bucket/" + object,
	}, "\n")
	hash := sha256.Sum256([]byte(toSign))
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, hash[:], signature); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}
}

func TestSignedURLExplicitBucket(t *testing.T) {
	t.Parallel()

	client, _ := testClient(t)
	raw, err := client.SignedURL(context.Background(), "other-bucket", "a.png")
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}
	if !strings.Contains(raw, "/other-bucket/a.png") {
		t.Fatalf("expected explicit bucket in %q", raw)
	}
}

func TestSignedURLRequiresPath(t *testing.T) {
	t.Parallel()

	client, _ := testClient(t)
	if _, err := client.SignedURL(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty object path")
	}
}

func TestThumbnailURL(t *testing.T) {
	t.Parallel()

	client, _ := testClient(t)
	raw, err := client.ThumbnailURL(context.Background(), "", "products/boards/deck.png")
	if err != nil {
		t.Fatalf("thumbnail url: %v", err)
	}
	if !strings.Contains(raw, "/media-bucket/products/boards/thumb_deck.png") {
		t.Fatalf("unexpected thumbnail path in %q", raw)
	}
}

func TestThumbnailPath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"deck.png":          "thumb_deck.png",
		"media/deck.png":    "media/thumb_deck.png",
		"a/b/c/poster.webp": "a/b/c/thumb_poster.webp",
	}
	for in, want := range cases {
		if got := thumbnailPath(in); got != want {
			t.Errorf("thumbnailPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseServiceAccountRejectsPartialCreds(t *testing.T) {
	t.Parallel()

	if _, _, err := parseServiceAccount(`{"client_email":"x@example.com"}`); err == nil {
		t.Fatal("expected error for missing private key")
	}
	if _, _, err := parseServiceAccount(`not json`); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}
