package oauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentials configures machine-to-machine access to the attendance store.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Enabled reports whether enough is configured to request tokens.
func (c ClientCredentials) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}

// ParseScopes splits a comma or space separated scope list.
func ParseScopes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

// NewHTTPClient returns a client that attaches and refreshes bearer tokens. Token
// requests and API calls share base's transport; timeout bounds every API call.
func NewHTTPClient(ctx context.Context, creds ClientCredentials, base *http.Client, timeout time.Duration) *http.Client {
	if base == nil {
		base = &http.Client{Timeout: timeout}
	}
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		Scopes:       creds.Scopes,
		AuthStyle:    oauth2.AuthStyleAutoDetect,
	}

	client := cfg.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	client.Timeout = timeout
	return client
}
