package provider

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// Utilities

// OAuthServer is a fake oauth server for testing. When an expected body is
// given for an endpoint, the request body must match it.
type OAuthServer struct {
	t        *testing.T
	expected map[string]string
}

func NewOAuthServer(t *testing.T, expected map[string]string) (*httptest.Server, *url.URL) {
	handler := &OAuthServer{t: t, expected: expected}
	server := httptest.NewServer(handler)
	serverURL, _ := url.Parse(server.URL)
	return server, serverURL
}

func (s *OAuthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	if r.URL.Path == "/token" {
		if expected, ok := s.expected["token"]; ok && expected != string(body) {
			s.t.Fatal("Unexpected token request body: ", string(body))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"123456789"}`)
	} else if r.URL.Path == "/userinfo" {
		if expected, ok := s.expected["authorization"]; ok && expected != r.Header.Get("Authorization") {
			s.t.Fatal("Unexpected authorization header: ", r.Header.Get("Authorization"))
		}
		fmt.Fprint(w, `{
			"id":"1",
			"email":"example@example.com",
			"verified_email":true,
			"name":"Example User",
			"picture":"http://example.com/avatar.png",
			"hd":"example.com"
		}`)
	} else {
		s.t.Fatal("Unrecognised request: ", r.Method, r.URL)
	}
}
