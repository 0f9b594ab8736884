package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/identity-service/internal/config"
)

func newTestProvider(tokenURL, userInfoURL string) *GoogleProvider {
	provider := NewGoogleProvider(config.OAuthConfig{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		CallbackURL:        "https://app.example/callback",
	})
	if tokenURL != "" {
		provider.tokenURL = tokenURL
	}
	if userInfoURL != "" {
		provider.userInfoURL = userInfoURL
	}
	return provider
}

func TestAuthCodeURL(t *testing.T) {
	provider := newTestProvider("", "")

	raw := provider.AuthCodeURL("nonce-123")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://app.example/callback", query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "nonce-123", query.Get("state"))
	assert.Contains(t, query.Get("scope"), "email")
}

func TestExchange(t *testing.T) {
	userInfoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer provider-access-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(UserInfo{
			Subject: "google-sub",
			Email:   "social@x.com",
			Name:    "Social User",
			Picture: "https://lh3.example/photo.jpg",
		})
	}))
	defer userInfoSrv.Close()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "auth-code", r.FormValue("code"))
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "provider-access-token"})
	}))
	defer tokenSrv.Close()

	provider := newTestProvider(tokenSrv.URL, userInfoSrv.URL)

	info, err := provider.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "social@x.com", info.Email)
	assert.Equal(t, "Social User", info.Name)
}

func TestExchangeRejectsProviderErrors(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer tokenSrv.Close()

	provider := newTestProvider(tokenSrv.URL, "")

	_, err := provider.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestExchangeRejectsEmptyAccessToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer tokenSrv.Close()

	provider := newTestProvider(tokenSrv.URL, "")

	_, err := provider.Exchange(context.Background(), "auth-code")
	assert.Error(t, err)
}
