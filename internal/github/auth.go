package github

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource provides an Authorization token for GitHub API requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource wraps a personal access token. Used as the development
// fallback when no App credentials are configured.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a token source around a fixed PAT.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the static token.
func (s *StaticTokenSource) Token(_ context.Context) (string, error) {
	if s.token == "" {
		return "", fmt.Errorf("no GitHub token configured")
	}
	return s.token, nil
}

// AppTokenSource implements the GitHub App installation flow: a short-lived
// RS256 app JWT is exchanged for an installation access token, which is
// cached until shortly before expiry.
type AppTokenSource struct {
	appID          int64
	installationID int64
	privateKey     *rsa.PrivateKey
	baseURL        string
	httpClient     *http.Client

	mutex   sync.Mutex
	token   string
	expires time.Time
}

// NewAppTokenSource loads the PEM private key at keyPath and returns a token
// source for the given App installation.
func NewAppTokenSource(appID, installationID int64, keyPath, baseURL string) (*AppTokenSource, error) {
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read App private key: %w", err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse App private key: %w", err)
	}

	return &AppTokenSource{
		appID:          appID,
		installationID: installationID,
		privateKey:     key,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Token returns a valid installation access token, minting a new one when the
// cached token is within a minute of expiry.
func (a *AppTokenSource) Token(ctx context.Context) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.token != "" && time.Until(a.expires) > time.Minute {
		return a.token, nil
	}

	appJWT, err := a.signAppJWT()
	if err != nil {
		return "", fmt.Errorf("failed to sign App JWT: %w", err)
	}

	token, expires, err := a.createInstallationToken(ctx, appJWT)
	if err != nil {
		return "", err
	}

	a.token = token
	a.expires = expires
	return a.token, nil
}

// signAppJWT builds the RS256 JWT GitHub expects from an App. The issued-at
// claim is backdated 60s to absorb clock drift, per GitHub's guidance.
func (a *AppTokenSource) signAppJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    fmt.Sprintf("%d", a.appID),
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(a.privateKey)
}

func (a *AppTokenSource) createInstallationToken(ctx context.Context, appJWT string) (string, time.Time, error) {
	apiURL := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, a.installationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(nil))
	if err != nil {
		return "", time.Time{}, err
	}

	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to call GitHub API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, fmt.Errorf("installation token request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp installationTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode installation token response: %w", err)
	}

	expires, err := time.Parse(time.RFC3339, tokenResp.ExpiresAt)
	if err != nil {
		// GitHub tokens live an hour; a conservative fallback keeps the cache useful.
		expires = time.Now().Add(30 * time.Minute)
	}

	return tokenResp.Token, expires, nil
}
