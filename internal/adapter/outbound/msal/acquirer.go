// Package msal acquires Microsoft identity platform tokens through an MSAL
// public client: interactive sign-in for authentication-context challenges
// and silent reuse of the signed-in account for ambient Graph calls.
package msal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"golang.org/x/oauth2"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// DefaultScopes are requested for every token. RoleManagement and
// PrivilegedAccess cover both role sources and the policy endpoints.
var DefaultScopes = []string{
	"https://graph.microsoft.com/RoleManagement.ReadWrite.Directory",
	"https://graph.microsoft.com/PrivilegedAccess.ReadWrite.AzureADGroup",
	"https://graph.microsoft.com/RoleManagementPolicy.Read.AzureADGroup",
	"https://graph.microsoft.com/Policy.Read.ConditionalAccess",
	"https://graph.microsoft.com/User.Read",
}

const defaultAmbientTimeout = 2 * time.Minute

// ErrNoAccount is returned by silent acquisition before anyone signed in.
var ErrNoAccount = errors.New("no signed-in account")

// Config holds the public client registration.
type Config struct {
	TenantID      string
	ClientID      string
	AuthorityHost string
	RedirectURI   string
	LoginHint     string
	Scopes        []string
	// AmbientTimeout bounds the interactive fallback of Token.
	AmbientTimeout time.Duration
	// CacheFile persists the MSAL token cache across runs. Empty keeps it
	// in memory only.
	CacheFile string
}

// publicClient is the subset of public.Client used here.
type publicClient interface {
	AcquireTokenInteractive(ctx context.Context, scopes []string, opts ...public.AcquireInteractiveOption) (public.AuthResult, error)
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...public.AcquireSilentOption) (public.AuthResult, error)
	Accounts(ctx context.Context) ([]public.Account, error)
	RemoveAccount(ctx context.Context, account public.Account) error
}

// Acquirer implements outbound.TokenAcquirer and oauth2.TokenSource.
type Acquirer struct {
	app            publicClient
	scopes         []string
	redirectURI    string
	loginHint      string
	ambientTimeout time.Duration
	logger         *slog.Logger

	mu      sync.Mutex
	account *public.Account
	// ambient caches the last Graph token. Replaced on SignOut.
	ambient oauth2.TokenSource
}

var (
	_ outbound.TokenAcquirer = (*Acquirer)(nil)
	_ oauth2.TokenSource     = (*Acquirer)(nil)
)

// New creates an Acquirer for the tenant's authority.
func New(cfg Config, logger *slog.Logger) (*Acquirer, error) {
	if cfg.ClientID == "" || cfg.TenantID == "" {
		return nil, errors.New("msal: tenant id and client id are required")
	}
	host := strings.TrimRight(cfg.AuthorityHost, "/")
	if host == "" {
		host = "https://login.microsoftonline.com"
	}
	opts := []public.Option{public.WithAuthority(host + "/" + cfg.TenantID)}
	if cfg.CacheFile != "" {
		opts = append(opts, public.WithCache(newFileCache(cfg.CacheFile, logger)))
	}
	app, err := public.New(cfg.ClientID, opts...)
	if err != nil {
		return nil, fmt.Errorf("msal: create public client: %w", err)
	}
	return newAcquirer(app, cfg, logger), nil
}

func newAcquirer(app publicClient, cfg Config, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	timeout := cfg.AmbientTimeout
	if timeout <= 0 {
		timeout = defaultAmbientTimeout
	}
	a := &Acquirer{
		app:            app,
		scopes:         scopes,
		redirectURI:    cfg.RedirectURI,
		loginHint:      cfg.LoginHint,
		ambientTimeout: timeout,
		logger:         logger,
	}
	a.ambient = oauth2.ReuseTokenSource(nil, a)
	return a
}

// AcquireTokenInteractive opens the browser sign-in. A non-empty claims
// string is passed as the claims challenge.
func (a *Acquirer) AcquireTokenInteractive(ctx context.Context, claims string) (outbound.AccessToken, error) {
	var opts []public.AcquireInteractiveOption
	if a.redirectURI != "" {
		opts = append(opts, public.WithRedirectURI(a.redirectURI))
	}
	if hint := a.hint(); hint != "" {
		opts = append(opts, public.WithLoginHint(hint))
	}
	if claims != "" {
		opts = append(opts, public.WithClaims(claims))
	}

	res, err := a.app.AcquireTokenInteractive(ctx, a.scopes, opts...)
	if err != nil {
		return outbound.AccessToken{}, fmt.Errorf("interactive sign-in: %w", err)
	}
	a.remember(res.Account)
	a.logger.Debug("interactive token acquired",
		"claims", claims != "",
		"expires_on", res.ExpiresOn,
	)
	return outbound.AccessToken{Token: res.AccessToken, ExpiresOn: res.ExpiresOn}, nil
}

// AcquireTokenSilent returns a token for the remembered account from the
// MSAL cache, refreshing it when needed.
func (a *Acquirer) AcquireTokenSilent(ctx context.Context) (outbound.AccessToken, error) {
	acct, err := a.currentAccount(ctx)
	if err != nil {
		return outbound.AccessToken{}, err
	}
	res, err := a.app.AcquireTokenSilent(ctx, a.scopes, public.WithSilentAccount(acct))
	if err != nil {
		return outbound.AccessToken{}, fmt.Errorf("silent token: %w", err)
	}
	return outbound.AccessToken{Token: res.AccessToken, ExpiresOn: res.ExpiresOn}, nil
}

// Token implements oauth2.TokenSource for ambient Graph calls: silent first,
// interactive without claims when the cache cannot serve.
func (a *Acquirer) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.ambientTimeout)
	defer cancel()

	tok, err := a.AcquireTokenSilent(ctx)
	if err != nil {
		a.logger.Debug("silent acquisition failed, signing in", "error", err)
		tok, err = a.AcquireTokenInteractive(ctx, "")
		if err != nil {
			return nil, err
		}
	}
	return &oauth2.Token{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresOn,
	}, nil
}

// TokenSource returns a source that reuses the ambient token until it
// expires. The cached token is dropped by SignOut.
func (a *Acquirer) TokenSource() oauth2.TokenSource {
	return ambientSource{a: a}
}

// SignOut forgets the remembered account, removes every account from the
// MSAL cache and drops the cached ambient token. The next call signs in
// again.
func (a *Acquirer) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.account = nil
	a.ambient = oauth2.ReuseTokenSource(nil, a)
	a.mu.Unlock()

	accounts, err := a.app.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("list cached accounts: %w", err)
	}
	var errs []error
	for _, acct := range accounts {
		if err := a.app.RemoveAccount(ctx, acct); err != nil {
			errs = append(errs, fmt.Errorf("remove account %s: %w", acct.PreferredUsername, err))
		}
	}
	a.logger.Debug("signed out", "accounts_removed", len(accounts)-len(errs))
	return errors.Join(errs...)
}

// ambientSource delegates to the acquirer's current reuse source.
type ambientSource struct {
	a *Acquirer
}

func (s ambientSource) Token() (*oauth2.Token, error) {
	s.a.mu.Lock()
	src := s.a.ambient
	s.a.mu.Unlock()
	return src.Token()
}

func (a *Acquirer) remember(acct public.Account) {
	if acct.HomeAccountID == "" {
		return
	}
	a.mu.Lock()
	a.account = &acct
	a.mu.Unlock()
}

func (a *Acquirer) hint() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.account != nil && a.account.PreferredUsername != "" {
		return a.account.PreferredUsername
	}
	return a.loginHint
}

func (a *Acquirer) currentAccount(ctx context.Context) (public.Account, error) {
	a.mu.Lock()
	if a.account != nil {
		acct := *a.account
		a.mu.Unlock()
		return acct, nil
	}
	a.mu.Unlock()

	accounts, err := a.app.Accounts(ctx)
	if err != nil {
		return public.Account{}, fmt.Errorf("list cached accounts: %w", err)
	}
	for _, acct := range accounts {
		if a.loginHint == "" || strings.EqualFold(acct.PreferredUsername, a.loginHint) {
			a.remember(acct)
			return acct, nil
		}
	}
	return public.Account{}, ErrNoAccount
}
