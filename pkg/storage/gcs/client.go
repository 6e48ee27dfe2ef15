package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/config"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

const (
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	scope         = "https://www.googleapis.com/auth/devstorage.read_only"
	storageHost   = "https://storage.googleapis.com"
	pingTimeout   = 5 * time.Second
)

// Client signs time-limited media URLs for the storefront's product images.
// It satisfies the blob gateway contract; the signed-URL cache in front of it
// absorbs repeat renders.
type Client struct {
	httpClient *http.Client
	bucket     string
	ttl        time.Duration
	tokens     *tokenSource
	signer     *serviceAccountInfo
	now        func() time.Time
}

type serviceAccountInfo struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
}

// NewClient parses the service account credentials and verifies bucket
// access. Signing requires a private key, so metadata-server credentials are
// not enough here.
func NewClient(ctx context.Context, cfg config.BlobConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("blob bucket is required")
	}

	raw := cfg.CredentialsJSON
	if raw == "" && cfg.CredentialsFile != "" {
		bytes, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		raw = string(bytes)
	}
	if raw == "" {
		return nil, errors.New("blob gateway requires service account credentials")
	}

	signer, tokenURI, err := parseServiceAccount(raw)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	client := &Client{
		httpClient: httpClient,
		bucket:     cfg.Bucket,
		ttl:        cfg.SignedURLTTL,
		tokens:     newTokenSource(httpClient, signer, tokenURI),
		signer:     signer,
		now:        time.Now,
	}
	if client.ttl <= 0 {
		client.ttl = 45 * time.Minute
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("bucket health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "blob gateway initialized")
	}
	return client, nil
}

// DefaultBucket returns the configured media bucket.
func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// SignedURL returns a time-limited URL for the object at bucket/path. An
// empty bucket falls back to the configured one.
func (c *Client) SignedURL(_ context.Context, bucket, objectPath string) (string, error) {
	if c == nil || c.signer == nil {
		return "", errors.New("blob gateway not initialized")
	}
	if objectPath == "" {
		return "", errors.New("object path is required")
	}
	if bucket == "" {
		bucket = c.bucket
	}

	expires := c.now().Add(c.ttl).Unix()
	resource := "/" + bucket + "/" + objectPath
	toSign := strings.Join([]string{http.MethodGet, "", "", fmt.Sprint(expires), resource}, "\n")

	hash := sha256.Sum256([]byte(toSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.signer.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("signing object url: %w", err)
	}

	query := url.Values{}
	query.Set("GoogleAccessId", c.signer.clientEmail)
	query.Set("Expires", fmt.Sprint(expires))
	query.Set("Signature", base64.StdEncoding.EncodeToString(signature))
	return storageHost + resource + "?" + query.Encode(), nil
}

// ThumbnailURL signs the thumbnail rendition next to the object, named with
// a thumb_ prefix on the file name.
func (c *Client) ThumbnailURL(ctx context.Context, bucket, objectPath string) (string, error) {
	if objectPath == "" {
		return "", errors.New("object path is required")
	}
	return c.SignedURL(ctx, bucket, thumbnailPath(objectPath))
}

func thumbnailPath(objectPath string) string {
	dir, file := path.Split(objectPath)
	return dir + "thumb_" + file
}

// Ping lists one object from the bucket to prove the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errors.New("blob gateway not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", storageHost, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(body) > 0 {
			return fmt.Errorf("bucket check failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
		}
		return fmt.Errorf("bucket check failed: %s", resp.Status)
	}
	return nil
}

type tokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	fetch  func(context.Context) (string, time.Time, error)
}

func newTokenSource(client *http.Client, signer *serviceAccountInfo, tokenURI string) *tokenSource {
	return &tokenSource{
		fetch: func(ctx context.Context) (string, time.Time, error) {
			return fetchAccessToken(ctx, client, signer, tokenURI)
		},
	}
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Until(t.expiry) > time.Minute {
		return t.token, nil
	}

	token, expiry, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expiry = expiry
	return token, nil
}

func parseServiceAccount(raw string) (*serviceAccountInfo, string, error) {
	var creds struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
		TokenURI    string `json:"token_uri"`
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, "", fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, "", errors.New("invalid service account credentials")
	}
	key, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, "", err
	}
	tokenURI := creds.TokenURI
	if tokenURI == "" {
		tokenURI = tokenEndpoint
	}
	return &serviceAccountInfo{clientEmail: creds.ClientEmail, privateKey: key}, tokenURI, nil
}

func fetchAccessToken(ctx context.Context, client *http.Client, signer *serviceAccountInfo, tokenURI string) (string, time.Time, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	now := time.Now()
	claims := map[string]any{
		"iss":   signer.clientEmail,
		"scope": scope,
		"aud":   tokenURI,
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
	}
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	unsigned := header + "." + base64.RawURLEncoding.EncodeToString(payloadBytes)

	hash := sha256.Sum256([]byte(unsigned))
	signature, err := rsa.SignPKCS1v15(rand.Reader, signer.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", time.Time{}, err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", unsigned+"."+base64.RawURLEncoding.EncodeToString(signature))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", time.Time{}, err
	}
	return tokenResp.AccessToken, time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second), nil
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid private key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if priv, ok := key.(*rsa.PrivateKey); ok {
			return priv, nil
		}
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("unsupported private key format")
	}
	return priv, nil
}
