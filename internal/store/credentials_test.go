package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorship-backend/internal/model"
)

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)

	_, err := s.GetCredential(ctx, "expert-1")
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, s.SaveCredential(ctx, &model.OAuthCredential{
		ExpertID:     "expert-1",
		Provider:     "google",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       expiry,
	}))

	require.NoError(t, s.SaveCredential(ctx, &model.OAuthCredential{
		ExpertID:     "expert-1",
		Provider:     "google",
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		Expiry:       expiry,
	}), "saving again replaces the credential")

	next := &model.OAuthCredential{
		ExpertID:     "expert-1",
		AccessToken:  "access-3",
		RefreshToken: "refresh-3",
		Expiry:       expiry.Add(time.Hour),
	}
	ok, err := s.SwapCredential(ctx, "access-1", next)
	require.NoError(t, err)
	assert.False(t, ok, "stale access token must not overwrite")

	ok, err = s.SwapCredential(ctx, "access-2", next)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetCredential(ctx, "expert-1")
	require.NoError(t, err)
	assert.Equal(t, "access-3", got.AccessToken)
	assert.Equal(t, "refresh-3", got.RefreshToken)
	assert.WithinDuration(t, expiry.Add(time.Hour), got.Expiry, time.Second)
}

func TestPushSubscriptions(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", UserID: "founder-a", P256DH: "k", Auth: "a"}
	require.NoError(t, s.SavePushSubscription(ctx, sub))
	require.NoError(t, s.SavePushSubscription(ctx, &model.PushSubscription{Endpoint: "https://push.example/2", UserID: "founder-a", P256DH: "k", Auth: "a"}))

	subs, err := s.ListPushSubscriptions(ctx, "founder-a")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	require.NoError(t, s.DeletePushSubscription(ctx, "founder-a", "https://push.example/1"))
	subs, err = s.ListPushSubscriptions(ctx, "founder-a")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example/2", subs[0].Endpoint)
}

func TestPushSubscriptions_ScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)

	endpoint := "https://push.example/shared"
	require.NoError(t, s.SavePushSubscription(ctx, &model.PushSubscription{Endpoint: endpoint, UserID: "founder-a", P256DH: "k1", Auth: "a1"}))

	err := s.SavePushSubscription(ctx, &model.PushSubscription{Endpoint: endpoint, UserID: "founder-b", P256DH: "k2", Auth: "a2"})
	assert.ErrorIs(t, err, ErrSubscriptionOwned)

	require.NoError(t, s.DeletePushSubscription(ctx, "founder-b", endpoint))

	subs, err := s.ListPushSubscriptions(ctx, "founder-a")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k1", subs[0].P256DH, "another user's save must not rewrite the keys")

	subs, err = s.ListPushSubscriptions(ctx, "founder-b")
	require.NoError(t, err)
	assert.Empty(t, subs)

	require.NoError(t, s.SavePushSubscription(ctx, &model.PushSubscription{Endpoint: endpoint, UserID: "founder-a", P256DH: "k3", Auth: "a3"}))
	subs, err = s.ListPushSubscriptions(ctx, "founder-a")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k3", subs[0].P256DH, "the owner may refresh the keys")
}
