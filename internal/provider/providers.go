package provider

import (
	"context"

	"github.com/lanterndev/google-signin/internal/pkce"
	"golang.org/x/oauth2"
)

// Providers contains all the implemented providers
type Providers struct {
	Google Google `group:"Google Provider" namespace:"google" env-namespace:"GOOGLE"`
	OIDC   OIDC   `group:"OIDC Provider" namespace:"oidc" env-namespace:"OIDC"`
}

// Provider is the interface every identity provider implements
type Provider interface {
	Name() string
	Setup() error
	GetLoginURL(redirectURI, state string, verifier *pkce.CodeVerifier) string
	ExchangeCode(redirectURI, code string, verifier *pkce.CodeVerifier) (string, error)
	GetUser(token string) (User, error)
}

// User is the profile record a provider resolves a token into. The
// field shapes follow Google's userinfo endpoint.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified_email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	Hd       string `json:"hd"`
}

// Shared oauth2 helpers

// OAuthProvider is a provider using the oauth2 library
type OAuthProvider struct {
	Config *oauth2.Config
	ctx    context.Context
}

// ConfigCopy returns a copy of the oauth2 config with the given
// redirectURI, which ensures the underlying config is not modified
func (p *OAuthProvider) ConfigCopy(redirectURI string) oauth2.Config {
	config := *p.Config
	config.RedirectURL = redirectURI
	return config
}

// OAuthGetLoginURL provides a base "GetLoginURL" for the oauth2 library
func (p *OAuthProvider) OAuthGetLoginURL(redirectURI, state string, verifier *pkce.CodeVerifier) string {
	config := p.ConfigCopy(redirectURI)

	opts := []oauth2.AuthCodeOption{}
	if verifier != nil {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", verifier.CodeChallengeS256()),
			oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
		)
	}

	return config.AuthCodeURL(state, opts...)
}

// OAuthExchangeCode provides a base "ExchangeCode" for the oauth2 library
func (p *OAuthProvider) OAuthExchangeCode(redirectURI, code string, verifier *pkce.CodeVerifier) (*oauth2.Token, error) {
	config := p.ConfigCopy(redirectURI)

	opts := []oauth2.AuthCodeOption{}
	if verifier != nil {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", verifier.String()))
	}

	return config.Exchange(p.ctx, code, opts...)
}
