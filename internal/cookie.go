package gsp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	errInvalidCookieFormat = errors.New("invalid cookie format")
	errUnableToDecodeMac   = errors.New("unable to decode cookie mac")
	errUnableToGenerateMac = errors.New("unable to generate mac")
	errInvalidCookieMac    = errors.New("invalid cookie mac")
	errInvalidCookieExpiry = errors.New("unable to parse cookie expiry")
	errCookieExpired       = errors.New("cookie has expired")

	errInvalidCSRFCookieValue = errors.New("invalid CSRF cookie value")
	errInvalidCSRFStateValue  = errors.New("invalid CSRF state value")
	errCSRFCookieMismatch     = errors.New("csrf cookie does not match state")
	errInvalidCSRFStateFormat = errors.New("invalid CSRF state format")
)

// Request Validation

// Cookie = hash(secret, cookie domain, session id, expires)|expires|session id
func ValidateSessionCookie(r *http.Request, c *http.Cookie) (string, error) {
	parts := strings.Split(c.Value, "|")

	if len(parts) != 3 {
		return "", errInvalidCookieFormat
	}

	mac, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errUnableToDecodeMac
	}

	expectedSignature := cookieSignature(r, parts[2], parts[1])
	expected, err := base64.URLEncoding.DecodeString(expectedSignature)
	if err != nil {
		return "", errUnableToGenerateMac
	}

	// Valid token?
	if !hmac.Equal(mac, expected) {
		return "", errInvalidCookieMac
	}

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", errInvalidCookieExpiry
	}

	// Has it expired?
	if time.Unix(expires, 0).Before(time.Now()) {
		return "", errCookieExpired
	}

	// Looks valid
	return parts[2], nil
}

// ValidateEmail checks whether a given email is allowed to sign in
func ValidateEmail(email string) bool {
	// Do we have any validation to perform?
	if len(config.Whitelist) == 0 && len(config.Domains) == 0 {
		return true
	}

	// Email whitelist validation
	if len(config.Whitelist) > 0 {
		for _, whitelist := range config.Whitelist {
			if email == whitelist {
				return true
			}
		}
		return false
	}

	// Domain validation
	parts := strings.Split(email, "@")
	if len(parts) < 2 {
		return false
	}
	for _, domain := range config.Domains {
		if domain == parts[1] {
			return true
		}
	}

	return false
}

// Utility methods

// Get the request base url
func redirectBase(r *http.Request) string {
	return fmt.Sprintf("%s://%s", requestScheme(r), requestHost(r))
}

// Get oauth redirect uri
func redirectURI(r *http.Request) string {
	return fmt.Sprintf("%s%s", redirectBase(r), config.CallbackPath)
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func requestHost(r *http.Request) string {
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		return host
	}
	return r.Host
}

// Cookie methods

// MakeSessionCookie creates an auth cookie referencing the given session
func MakeSessionCookie(r *http.Request, sessionID string) *http.Cookie {
	expires := cookieExpiry()
	mac := cookieSignature(r, sessionID, fmt.Sprintf("%d", expires.Unix()))
	value := fmt.Sprintf("%s|%d|%s", mac, expires.Unix(), sessionID)

	return &http.Cookie{
		Name:     config.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   cookieDomain(r),
		HttpOnly: true,
		Secure:   !config.InsecureCookie,
		Expires:  expires,
	}
}

// ClearSessionCookie creates a cookie to clear the auth cookie
func ClearSessionCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   cookieDomain(r),
		HttpOnly: true,
		Secure:   !config.InsecureCookie,
		Expires:  time.Now().Local().Add(time.Hour * -1),
	}
}

// MakeCSRFCookie creates a CSRF cookie (used during login only)
// Value = nonce.code-verifier
func MakeCSRFCookie(r *http.Request, nonce, verifier string) *http.Cookie {
	return &http.Cookie{
		Name:     config.CSRFCookieName,
		Value:    fmt.Sprintf("%s.%s", nonce, verifier),
		Path:     "/",
		Domain:   cookieDomain(r),
		HttpOnly: true,
		Secure:   !config.InsecureCookie,
		Expires:  time.Now().Local().Add(time.Hour * 1),
	}
}

// ClearCSRFCookie creates a cookie to clear the csrf cookie
func ClearCSRFCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     config.CSRFCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cookieDomain(r),
		HttpOnly: true,
		Secure:   !config.InsecureCookie,
		Expires:  time.Now().Local().Add(time.Hour * -1),
	}
}

// ValidateCSRFCookie validates the csrf cookie against the state param and
// returns the code verifier, provider and redirect target embedded in them
func ValidateCSRFCookie(r *http.Request, c *http.Cookie) (verifier, provider, redirect string, err error) {
	state := r.URL.Query().Get("state")

	cookieParts := strings.SplitN(c.Value, ".", 2)
	if len(cookieParts) != 2 || len(cookieParts[0]) != 32 {
		return "", "", "", errInvalidCSRFCookieValue
	}

	if len(state) < 34 {
		return "", "", "", errInvalidCSRFStateValue
	}

	// Check nonce match
	if cookieParts[0] != state[:32] {
		return "", "", "", errCSRFCookieMismatch
	}

	// Extract provider
	params := state[33:]
	split := strings.Index(params, ":")
	if split == -1 {
		return "", "", "", errInvalidCSRFStateFormat
	}

	// Valid, return verifier, provider and redirect
	return cookieParts[1], params[:split], params[split+1:], nil
}

// MakeState generates a state value for the login roundtrip
func MakeState(redirect, provider, nonce string) string {
	return fmt.Sprintf("%s:%s:%s", nonce, provider, redirect)
}

// Nonce generates a random nonce
func Nonce() (string, error) {
	nonce := make([]byte, 16)
	_, err := rand.Read(nonce)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", nonce), nil
}

// Cookie domain
func cookieDomain(r *http.Request) string {
	// Check if any of the given cookie domains matches
	_, domain := matchCookieDomains(requestHost(r))
	return domain
}

// Return matching cookie domain if exists
func matchCookieDomains(domain string) (bool, string) {
	// Remove port
	p := strings.Split(domain, ":")

	for _, d := range config.CookieDomains {
		if d.Match(p[0]) {
			return true, d.Domain
		}
	}

	return false, p[0]
}

// Create cookie hmac
func cookieSignature(r *http.Request, sessionID, expires string) string {
	hash := hmac.New(sha256.New, config.Secret)
	hash.Write([]byte(cookieDomain(r)))
	hash.Write([]byte(sessionID))
	hash.Write([]byte(expires))
	return base64.URLEncoding.EncodeToString(hash.Sum(nil))
}

// Get cookie expiry
func cookieExpiry() time.Time {
	return time.Now().Local().Add(config.Lifetime)
}

// CookieDomain holds a domain on which auth cookies may be set
type CookieDomain struct {
	Domain       string
	DomainLen    int
	SubDomain    string
	SubDomainLen int
}

// NewCookieDomain creates a new CookieDomain from the given domain string
func NewCookieDomain(domain string) *CookieDomain {
	return &CookieDomain{
		Domain:       domain,
		DomainLen:    len(domain),
		SubDomain:    fmt.Sprintf(".%s", domain),
		SubDomainLen: len(domain) + 1,
	}
}

// Match checks if the given host matches this domain or one of its subdomains
func (c *CookieDomain) Match(host string) bool {
	// Exact domain match?
	if host == c.Domain {
		return true
	}

	// Subdomain match?
	if len(host) >= c.SubDomainLen && host[len(host)-c.SubDomainLen:] == c.SubDomain {
		return true
	}

	return false
}

// UnmarshalFlag converts a string to a CookieDomain
func (c *CookieDomain) UnmarshalFlag(value string) error {
	*c = *NewCookieDomain(value)
	return nil
}

// MarshalFlag converts a CookieDomain back to a string
func (c *CookieDomain) MarshalFlag() (string, error) {
	return c.Domain, nil
}
