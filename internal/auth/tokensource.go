package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// ServiceAccountTokenSource implements oauth2.TokenSource for the
// JWT-bearer flow: it builds the service account assertion through the
// injected TokenSigner and exchanges it for an access token.
type ServiceAccountTokenSource struct {
	Signer   TokenSigner
	Email    string   // service account client email (assertion issuer)
	Scopes   []string // requested OAuth scopes
	TokenURL string   // defaults to google.JWTTokenURL
	Client   *http.Client
	Now      func() time.Time // injectable clock for tests

	mu     sync.Mutex
	cached *oauth2.Token
}

// assertionClaims are the registered claims of the JWT-bearer assertion.
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Token returns a cached access token or exchanges a freshly signed
// assertion for a new one.
func (ts *ServiceAccountTokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.cached.Valid() {
		return ts.cached, nil
	}

	now := time.Now
	if ts.Now != nil {
		now = ts.Now
	}
	issued := now().UTC()

	tokenURL := ts.TokenURL
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}

	claims := &assertionClaims{
		Scope: strings.Join(ts.Scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Email,
			Audience:  jwt.ClaimStrings{tokenURL},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}

	assertion, err := ts.Signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign assertion: %w", err)
	}

	token, err := ts.exchange(tokenURL, assertion)
	if err != nil {
		return nil, err
	}

	ts.cached = token
	return token, nil
}

func (ts *ServiceAccountTokenSource) exchange(tokenURL, assertion string) (*oauth2.Token, error) {
	client := ts.Client
	if client == nil {
		client = http.DefaultClient
	}

	form := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		Expiry:      time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
