package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"mentorship-backend/config"
	"mentorship-backend/internal/model"
	"mentorship-backend/internal/store"
)

// CredentialStore is the persistence the manager needs.
type CredentialStore interface {
	GetCredential(ctx context.Context, expertID string) (*model.OAuthCredential, error)
	SaveCredential(ctx context.Context, cred *model.OAuthCredential) error
	SwapCredential(ctx context.Context, prevAccessToken string, next *model.OAuthCredential) (bool, error)
}

// Manager hands out access tokens that stay valid for at least the safety
// margin, refreshing and persisting them first when needed.
type Manager struct {
	store      CredentialStore
	conf       *oauth2.Config
	provider   string
	margin     time.Duration
	timeout    time.Duration
	httpClient *http.Client
	now        func() time.Time
	flights    singleflight.Group
	log        *zap.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a credential manager.
func NewManager(st CredentialStore, cfg config.OAuthConfig, log *zap.Logger, opts ...Option) *Manager {
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint = oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
	}

	m := &Manager{
		store: st,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		provider: cfg.Provider,
		margin:   cfg.SafetyMargin,
		timeout:  cfg.RefreshTimeout,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save stores the credential produced by the expert's OAuth handshake.
func (m *Manager) Save(ctx context.Context, expertID string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" || tok.RefreshToken == "" {
		return errors.New("token must carry both an access and a refresh token")
	}
	return m.store.SaveCredential(ctx, &model.OAuthCredential{
		ExpertID:     expertID,
		Provider:     m.provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	})
}

// GetValidAccessToken returns the expert's access token, refreshing it first
// when it expires within the safety margin.
func (m *Manager) GetValidAccessToken(ctx context.Context, expertID string) (string, error) {
	cred, err := m.load(ctx, expertID)
	if err != nil {
		return "", err
	}
	if m.fresh(cred) {
		return cred.AccessToken, nil
	}
	return m.refresh(ctx, expertID, "")
}

// ForceRefresh refreshes the credential after the provider rejected the
// given access token. If the stored token already changed, the new one is
// returned without another round trip.
func (m *Manager) ForceRefresh(ctx context.Context, expertID, rejected string) (string, error) {
	return m.refresh(ctx, expertID, rejected)
}

func (m *Manager) refresh(ctx context.Context, expertID, rejected string) (string, error) {
	var tok string
	// A forced refresh may join a flight started by a plain caller that
	// still saw the rejected token as fresh. One more round settles it.
	for attempt := 0; attempt < 2; attempt++ {
		// Callers share one refresh per expert. The flight must outlive a
		// single caller's cancellation.
		v, err, shared := m.flights.Do(expertID, func() (any, error) {
			flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
			defer cancel()
			return m.refreshOnce(flightCtx, expertID, rejected)
		})
		if err != nil {
			return "", err
		}
		if shared {
			m.log.Debug("joined in-flight credential refresh", zap.String("expertID", expertID))
		}
		tok = v.(string)
		if rejected == "" || tok != rejected {
			break
		}
	}
	return tok, nil
}

func (m *Manager) refreshOnce(ctx context.Context, expertID, rejected string) (string, error) {
	cred, err := m.load(ctx, expertID)
	if err != nil {
		return "", err
	}
	if m.fresh(cred) && (rejected == "" || cred.AccessToken != rejected) {
		return cred.AccessToken, nil
	}

	tok, err := m.exchange(ctx, cred)
	if err != nil {
		m.log.Warn("credential refresh failed", zap.String("expertID", expertID), zap.Error(err))
		return "", err
	}

	next := &model.OAuthCredential{
		ExpertID:     expertID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}
	if !m.fresh(next) {
		return "", &RefreshFailedError{
			ExpertID: expertID,
			Err:      fmt.Errorf("provider issued a token expiring at %s, inside the safety margin", next.Expiry.Format(time.RFC3339)),
		}
	}

	swapped, err := m.store.SwapCredential(ctx, cred.AccessToken, next)
	if err != nil {
		return "", err
	}
	if !swapped {
		// Another process refreshed first; its token wins.
		latest, err := m.load(ctx, expertID)
		if err != nil {
			return "", err
		}
		if !m.fresh(latest) {
			return "", &RefreshFailedError{ExpertID: expertID, Transient: true, Err: errors.New("concurrent refresh left a stale credential")}
		}
		return latest.AccessToken, nil
	}

	m.log.Info("calendar credential refreshed",
		zap.String("expertID", expertID),
		zap.Time("expiry", next.Expiry))
	return next.AccessToken, nil
}

func (m *Manager) exchange(ctx context.Context, cred *model.OAuthCredential) (*oauth2.Token, error) {
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	tok, err := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		rfe := &RefreshFailedError{ExpertID: cred.ExpertID, Err: err, Transient: true}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			rfe.Body = string(re.Body)
			if re.Response != nil {
				rfe.StatusCode = re.Response.StatusCode
			}
			rfe.Transient = transientStatus(rfe.StatusCode)
		}
		return nil, rfe
	}
	return tok, nil
}

// transientStatus reports whether a token endpoint answer is worth retrying.
// Any other status means the grant itself was refused.
func transientStatus(code int) bool {
	return code == 0 || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (m *Manager) load(ctx context.Context, expertID string) (*model.OAuthCredential, error) {
	cred, err := m.store.GetCredential(ctx, expertID)
	if errors.Is(err, store.ErrCredentialNotFound) {
		return nil, ErrNotConnected
	}
	return cred, err
}

// fresh reports whether the token outlives now plus the safety margin. A zero
// expiry is never fresh.
func (m *Manager) fresh(cred *model.OAuthCredential) bool {
	if cred.AccessToken == "" || cred.Expiry.IsZero() {
		return false
	}
	return m.now().Add(m.margin).Before(cred.Expiry)
}
