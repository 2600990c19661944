package store_test

import (
	"context"
	"testing"

	"planforge/internal/approval"
	"planforge/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	scope := store.Scope{OwnerID: "local", ProjectID: "demo"}

	aspects := approval.Parse("## Phase 1: Infra\n### Storage\n- Buy disks\n", approval.SourceStrategist)
	aspects[0].Status = approval.StatusApproved
	aspects[0].Tasks[0].UserComment = "check budget first"

	require.NoError(t, s.SaveDraft(ctx, scope, approval.SourceStrategist, aspects))

	got, err := s.LoadDraft(ctx, scope, approval.SourceStrategist)
	require.NoError(t, err)
	if diff := cmp.Diff(aspects, got); diff != "" {
		t.Errorf("draft round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDraftSaveReplacesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	scope := store.Scope{OwnerID: "local", ProjectID: "demo"}

	first := approval.Parse("## One\n- a\n", approval.SourceStrategist)
	second := approval.Parse("## Two\n- b\n", approval.SourceStrategist)

	require.NoError(t, s.SaveDraft(ctx, scope, approval.SourceStrategist, first))
	require.NoError(t, s.SaveDraft(ctx, scope, approval.SourceStrategist, second))

	got, err := s.LoadDraft(ctx, scope, approval.SourceStrategist)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Two", got[0].Title)
}

func TestDraftMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadDraft(context.Background(),
		store.Scope{OwnerID: "nobody", ProjectID: "nothing"}, approval.SourceVisionary)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDraftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	scope := store.Scope{OwnerID: "local", ProjectID: "demo"}

	aspects := approval.Parse("## One\n- a\n", approval.SourceStrategist)
	require.NoError(t, s.SaveDraft(ctx, scope, approval.SourceStrategist, aspects))
	require.NoError(t, s.DeleteDraft(ctx, scope, approval.SourceStrategist))

	got, err := s.LoadDraft(ctx, scope, approval.SourceStrategist)
	require.NoError(t, err)
	assert.Nil(t, got)
}
