package ctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"src.manglr.sh/pkg/store/storedefs"
	"src.manglr.sh/pkg/vals"
)

// Auth holds a bearer token. Its fields are:
//
//   - token: the token, or "" when logged out;
//   - auth_required: whether a new token is needed;
//   - user: the subject or name claim of the token, or nil;
//   - expires: the expiry claim in RFC 3339 form, or nil;
//   - error: the text of the last failed login, or nil;
//   - pending: whether a login is in flight.
//
// Tokens that are JWTs are inspected without verifying their signature, only
// to tell when they expire. Other tokens never expire.
type Auth struct {
	*vals.Model
	env      *Env
	id       string
	loginURL string

	expiry *time.Timer
	// Incremented by every token change.
	tokens int
	// Incremented by every login.
	gen    int
	closed bool
}

// NewAuth creates an Auth, restoring the token stored for id.
func NewAuth(env *Env, id, loginURL string) *Auth {
	a := &Auth{Model: vals.NewModel(env.Eng), env: env, id: id, loginURL: loginURL}
	token := ""
	if env.DB != nil {
		t, err := env.DB.Token(id)
		switch err {
		case nil:
			token = t
		case storedefs.ErrNoToken:
		default:
			logger.Printf("auth %s: reading token: %v", id, err)
		}
	}
	a.Load(map[string]any{"error": nil, "pending": false})
	a.apply(token)
	return a
}

// ID returns the name the Auth is bound to.
func (a *Auth) ID() string { return a.id }

// Token returns the current token.
func (a *Auth) Token() string { return vals.ToText(a.Field("token").Value()) }

// SetToken replaces the token and stores it.
func (a *Auth) SetToken(token string) {
	a.apply(token)
	if a.env.DB == nil {
		return
	}
	var err error
	if token == "" {
		err = a.env.DB.DelToken(a.id)
	} else {
		err = a.env.DB.SetToken(a.id, token)
	}
	if err != nil {
		logger.Printf("auth %s: storing token: %v", a.id, err)
	}
}

// Logout forgets the token.
func (a *Auth) Logout() { a.SetToken("") }

func (a *Auth) apply(token string) {
	a.tokens++
	if a.expiry != nil {
		a.expiry.Stop()
		a.expiry = nil
	}
	fields := map[string]any{"token": token, "auth_required": token == "",
		"user": nil, "expires": nil}
	if token != "" {
		claims := jwt.MapClaims{}
		_, _, err := jwt.NewParser().ParseUnverified(token, claims)
		if err == nil {
			a.inspect(claims, fields)
		}
	}
	a.Load(fields)
}

func (a *Auth) inspect(claims jwt.MapClaims, fields map[string]any) {
	if sub, _ := claims.GetSubject(); sub != "" {
		fields["user"] = sub
	} else if name, ok := claims["name"].(string); ok {
		fields["user"] = name
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	fields["expires"] = exp.UTC().Format(time.RFC3339)
	left := exp.Sub(a.env.now())
	if left <= 0 {
		fields["auth_required"] = true
		return
	}
	tokens := a.tokens
	a.expiry = time.AfterFunc(left, func() {
		a.env.post(func() {
			if !a.closed && tokens == a.tokens {
				a.Field("auth_required").Set(true)
			}
		})
	})
}

// Submit logs in by posting the submitted fields as JSON to the login URL,
// which must answer with {"token": "..."}.
func (a *Auth) Submit(fields map[string]any) {
	if a.closed {
		return
	}
	if a.loginURL == "" {
		a.Field("error").Set("no login URL")
		return
	}
	a.gen++
	gen := a.gen
	body, err := json.Marshal(fields)
	if err != nil {
		a.Field("error").Set(err.Error())
		return
	}
	a.Load(map[string]any{"pending": true, "error": nil})
	u := a.env.config().ResolveURL(a.loginURL)
	timeout := a.env.config().Store.Timeout.D()
	go func() {
		token, err := a.login(u, body, timeout)
		a.env.post(func() {
			if a.closed || gen != a.gen {
				return
			}
			if err != nil {
				logger.Printf("auth %s: login: %v", a.id, err)
				a.Load(map[string]any{"pending": false, "error": err.Error()})
				return
			}
			a.Field("pending").Set(false)
			a.SetToken(token)
		})
	}()
}

func (a *Auth) login(u string, body []byte, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.env.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("POST %s: %s", u, resp.Status)
	}
	var reply struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", err
	}
	if reply.Token == "" {
		return "", fmt.Errorf("POST %s: no token in reply", u)
	}
	return reply.Token, nil
}

// Close stops the expiry timer and drops logins in flight.
func (a *Auth) Close() {
	a.closed = true
	if a.expiry != nil {
		a.expiry.Stop()
	}
}
