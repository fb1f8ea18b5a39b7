package gsp

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/lanterndev/google-signin/internal/pkce"
	"github.com/lanterndev/google-signin/internal/provider"
	"github.com/sirupsen/logrus"
)

// Placeholder texts shown by the portal page until a user is resolved
const (
	msgNotLoggedIn  = "not logged in"
	msgFetchingUser = "getting user details"
)

// Server is the portal http server
type Server struct {
	router   *mux.Router
	sessions *SessionStore
}

// NewServer creates a new server with the given session store
func NewServer(sessions *SessionStore) *Server {
	s := &Server{
		sessions: sessions,
	}
	s.buildRoutes()
	return s
}

func (s *Server) buildRoutes() {
	s.router = mux.NewRouter()

	s.router.HandleFunc("/", s.IndexHandler()).Methods("GET")
	s.router.HandleFunc("/login", s.LoginHandler()).Methods("GET")
	s.router.HandleFunc(config.CallbackPath, s.AuthCallbackHandler()).Methods("GET")
	s.router.HandleFunc("/logout", s.LogoutHandler()).Methods("GET")
	s.router.HandleFunc("/api/user", s.UserHandler()).Methods("GET")
	s.router.HandleFunc("/healthz", s.HealthHandler()).Methods("GET")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// IndexHandler serves the portal page
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger(r, "Serving portal page")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, pageData()); err != nil {
			log.Errorf("Error rendering page: %v", err)
		}
	}
}

// LoginHandler starts the oauth roundtrip with the chosen provider
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger(r, "Handling login")

		// Pick provider
		providerName := r.URL.Query().Get("provider")
		if providerName == "" {
			providerName = config.DefaultProvider
		}
		p, err := config.GetConfiguredProvider(providerName)
		if err != nil {
			logger.Warnf("Invalid provider: %v", err)
			http.Error(w, "Not found", 404)
			return
		}

		// Warn if the cookie will be unusable
		if !config.InsecureCookie && requestScheme(r) == "http" {
			logger.Warn("You are using \"secure\" cookies for a request that was not " +
				"received via https. You should either redirect to https or pass the " +
				"\"insecure-cookie\" config option to permit cookies via http.")
		}

		// Generate nonce
		nonce, err := Nonce()
		if err != nil {
			logger.Errorf("Error generating nonce: %v", err)
			http.Error(w, "Service unavailable", 503)
			return
		}

		verifier, err := pkce.CreateCodeVerifier()
		if err != nil {
			logger.Errorf("Error generating code verifier: %v", err)
			http.Error(w, "Service unavailable", 503)
			return
		}

		// Set the CSRF cookie
		http.SetCookie(w, MakeCSRFCookie(r, nonce, verifier.String()))
		logger.WithFields(logrus.Fields{
			"provider": p.Name(),
		}).Debug("Set CSRF cookie and redirecting to provider login")

		// Forward them on
		state := MakeState(returnTarget(r), p.Name(), nonce)
		loginURL := p.GetLoginURL(redirectURI(r), state, verifier)
		http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
	}
}

// AuthCallbackHandler handles the return from the provider
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger(r, "Handling callback")

		// Check for CSRF cookie
		c, err := r.Cookie(config.CSRFCookieName)
		if err != nil {
			logger.Warn("Missing csrf cookie")
			http.Error(w, "Not authorized", 401)
			return
		}

		// Validate state
		verifier, providerName, redirect, err := ValidateCSRFCookie(r, c)
		if err != nil {
			logger.Warnf("Error validating csrf cookie: %v", err)
			http.Error(w, "Not authorized", 401)
			return
		}

		// Clear CSRF cookie
		http.SetCookie(w, ClearCSRFCookie(r))

		// Get provider
		p, err := config.GetConfiguredProvider(providerName)
		if err != nil {
			logger.Warnf("Invalid provider in csrf state: %v", err)
			http.Error(w, "Not authorized", 401)
			return
		}

		// Did the provider report an error?
		if e := r.URL.Query().Get("error"); e != "" {
			logger.Warnf("Provider login failed: %s", e)
			http.Error(w, "Not authorized", 401)
			return
		}

		// Exchange code for token
		token, err := p.ExchangeCode(redirectURI(r), r.URL.Query().Get("code"), &pkce.CodeVerifier{Value: verifier})
		if err != nil {
			logger.Errorf("Code exchange failed with: %v", err)
			http.Error(w, "Service unavailable", 503)
			return
		}

		// Create session, resolve the user profile in the background
		session, err := s.sessions.New(p.Name(), token)
		if err != nil {
			logger.Errorf("Error creating session: %v", err)
			http.Error(w, "Service unavailable", 503)
			return
		}
		go s.sessions.FetchUser(session, p)

		// Generate cookie
		http.SetCookie(w, MakeSessionCookie(r, session.ID))
		logger.WithFields(logrus.Fields{
			"provider": p.Name(),
			"session":  session.ID,
		}).Infof("Generated auth cookie")

		// Redirect
		http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
	}
}

// LogoutHandler drops the session and redirects to the configured url
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger(r, "Handling logout")

		// Drop server side session, if any
		if c, err := r.Cookie(config.CookieName); err == nil {
			if id, err := ValidateSessionCookie(r, c); err == nil {
				s.sessions.Delete(id)
				logger.WithFields(logrus.Fields{
					"session": id,
				}).Debug("Deleted session")
			}
		}

		// Clear cookie
		http.SetCookie(w, ClearSessionCookie(r))

		logger.Info("Logged out")
		http.Redirect(w, r, config.LogoutRedirect, http.StatusTemporaryRedirect)
	}
}

// UserHandler reports the signed-in user, polled by the portal page
func (s *Server) UserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		session, ok := s.session(r)
		if !ok {
			writeUserStatus(w, userStatus{Status: "anonymous", Message: msgNotLoggedIn})
			return
		}

		state, user := session.Status()
		switch state {
		case StatePending:
			writeUserStatus(w, userStatus{Status: "pending", Message: msgFetchingUser})
		case StateReady:
			writeUserStatus(w, userStatus{Status: "ready", User: &user})
		default:
			// Failed fetch degrades to anonymous
			writeUserStatus(w, userStatus{Status: "anonymous", Message: msgNotLoggedIn})
		}
	}
}

// HealthHandler is a liveness check
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}
}

// session resolves the request cookie into a live session
func (s *Server) session(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(config.CookieName)
	if err != nil {
		return nil, false
	}

	id, err := ValidateSessionCookie(r, c)
	if err != nil {
		log.Debugf("Invalid cookie: %v", err)
		return nil, false
	}

	return s.sessions.Get(id)
}

type userStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	User    *provider.User `json:"user,omitempty"`
}

func writeUserStatus(w http.ResponseWriter, status userStatus) {
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Errorf("Error writing user status: %v", err)
	}
}

// returnTarget extracts the post-login redirect target from the request.
// Only local paths are allowed. Browsers treat "/\" like "//", so
// backslashes are rejected along with anything that parses to a host
// or scheme.
func returnTarget(r *http.Request) string {
	next := r.URL.Query().Get("next")
	if next == "" || next[0] != '/' || strings.ContainsRune(next, '\\') {
		return "/"
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return next
}

func (s *Server) logger(r *http.Request, msg string) *logrus.Entry {
	// Create logger
	logger := log.WithFields(logrus.Fields{
		"SourceIP": remoteIP(r),
	})

	// Log request
	logger.WithFields(logrus.Fields{
		"Path": r.URL.Path,
	}).Debug(msg)

	return logger
}

// remoteIP finds the client ip, looking through proxy headers first
func remoteIP(r *http.Request) string {
	for _, header := range []string{"CF-Connecting-IP", "X-Real-Ip"} {
		if ip := net.ParseIP(r.Header.Get(header)); ip != nil {
			return ip.String()
		}
	}

	for _, address := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(address)); ip != nil {
			return ip.String()
		}
	}

	host := r.RemoteAddr
	if strings.ContainsRune(host, ':') {
		host, _, _ = net.SplitHostPort(host)
	}
	return host
}
