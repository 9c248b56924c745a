package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// DefaultCallbackAddr is where the local redirect listener binds
	DefaultCallbackAddr = "localhost:8089"
	// DefaultAuthTimeout bounds how long the browser login may take
	DefaultAuthTimeout = 5 * time.Minute
)

var (
	ErrStateMismatch = errors.New("auth: callback state mismatch")
	ErrAccessDenied  = errors.New("auth: athlete denied access")
	ErrNoCode        = errors.New("auth: callback without authorization code")
	ErrTimeout       = errors.New("auth: login timed out")
)

const connectedPage = `<!DOCTYPE html>
<html>
<head><title>Endurance Coach</title></head>
<body style="font-family: system-ui; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #10B981;">Strava connected</h1>
<p>Endurance Coach will fill rest days in your ledger from synced activities.</p>
<p>You can close this window and return to the terminal.</p>
</div>
</body>
</html>`

// RedirectURL is the callback URL registered for addr
func RedirectURL(addr string) string {
	return "http://" + addr + "/callback"
}

// CallbackFlow runs the authorization code flow against a local redirect listener
type CallbackFlow struct {
	oauth   *oauth2.Config
	addr    string
	timeout time.Duration
	out     io.Writer
	log     zerolog.Logger
}

// FlowOption configures a CallbackFlow
type FlowOption func(*CallbackFlow)

// WithCallbackAddr overrides the listener address
func WithCallbackAddr(addr string) FlowOption {
	return func(f *CallbackFlow) { f.addr = addr }
}

// WithTimeout overrides how long to wait for the browser
func WithTimeout(d time.Duration) FlowOption {
	return func(f *CallbackFlow) { f.timeout = d }
}

// WithPromptWriter sets where the login URL is printed
func WithPromptWriter(w io.Writer) FlowOption {
	return func(f *CallbackFlow) { f.out = w }
}

// NewCallbackFlow creates a login flow for cfg
func NewCallbackFlow(cfg *oauth2.Config, log zerolog.Logger, opts ...FlowOption) *CallbackFlow {
	f := &CallbackFlow{
		oauth:   cfg,
		addr:    DefaultCallbackAddr,
		timeout: DefaultAuthTimeout,
		out:     os.Stdout,
		log:     log.With().Str("component", "strava_auth").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type callbackResult struct {
	code string
	err  error
}

// Run prints the login URL, waits for the redirect and exchanges the code.
func (f *CallbackFlow) Run(ctx context.Context) (*AuthResult, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	listener, err := net.Listen("tcp", f.addr)
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle("/callback", f.callback(state, results))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			results <- callbackResult{err: fmt.Errorf("callback listener: %w", err)}
		}
	}()
	defer shutdownServer(server)

	fmt.Fprintf(f.out, "\nConnect Endurance Coach to Strava by opening:\n\n  %s\n\nWaiting for the redirect...\n",
		f.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline))
	f.log.Info().Str("addr", f.addr).Msg("Waiting for Strava redirect")

	waitCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %v", ErrTimeout, f.timeout)
	}
	if res.err != nil {
		return nil, res.err
	}

	return f.exchange(ctx, res.code)
}

// callback validates the redirect and hands the code to results once.
func (f *CallbackFlow) callback(state string, results chan<- callbackResult) http.HandlerFunc {
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			deliver(callbackResult{err: ErrStateMismatch})
			http.Error(w, "State mismatch", http.StatusBadRequest)
		case q.Get("error") != "":
			deliver(callbackResult{err: fmt.Errorf("%w: %s", ErrAccessDenied, q.Get("error"))})
			http.Error(w, "Strava access was not granted", http.StatusBadRequest)
		case q.Get("code") == "":
			deliver(callbackResult{err: ErrNoCode})
			http.Error(w, "No authorization code", http.StatusBadRequest)
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, connectedPage)
			deliver(callbackResult{code: q.Get("code")})
		}
	}
}

func (f *CallbackFlow) exchange(ctx context.Context, code string) (*AuthResult, error) {
	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	res := &AuthResult{Token: token, AthleteID: ExtractAthleteID(token)}
	f.log.Info().Int64("athlete", res.AthleteID).Msg("Strava connected")
	return res, nil
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
