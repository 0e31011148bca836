package repository

import (
	"context"
	"testing"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func camping() *domain.MeritBadge {
	return &domain.MeritBadge{
		Code:          "camping",
		Name:          "Camping",
		EagleRequired: true,
		Version:       "2024",
		Requirements: []domain.Requirement{
			{Number: "1", Description: "Safety", SortKey: "0001"},
			{Number: "2", Description: "Plan", SortKey: "0002"},
			{Number: "10", Description: "Report", SortKey: "0010"},
		},
	}
}

func TestAdvancementRepository_Catalog(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	repo := a.AdvancementRepository()

	b := camping()
	require.NoError(t, repo.UpsertBadge(ctx, b))
	assert.NotZero(t, b.ID)

	got, err := repo.GetBadgeByCode(ctx, "camping")
	require.NoError(t, err)
	require.Len(t, got.Requirements, 3)
	assert.Equal(t, []string{"1", "2", "10"}, []string{got.Requirements[0].Number, got.Requirements[1].Number, got.Requirements[2].Number})

	// Re-import updates in place / Le réimport met à jour sur place
	b2 := camping()
	b2.Name = "Camping (revised)"
	b2.Requirements = b2.Requirements[:2]
	b2.Requirements[0].Description = "Safety first"
	require.NoError(t, repo.UpsertBadge(ctx, b2))
	assert.Equal(t, b.ID, b2.ID)
	assert.Equal(t, b.Requirements[0].ID, b2.Requirements[0].ID)

	badges, err := repo.ListBadges(ctx)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "Camping (revised)", badges[0].Name)
	require.Len(t, badges[0].Requirements, 2)
	assert.Equal(t, "Safety first", badges[0].Requirements[0].Description)

	_, err = repo.GetBadgeByCode(ctx, "cooking")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestAdvancementRepository_Progress(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	admin := seedProfile(t, a, "admin@example.com")
	u := seedUnit(t, a, admin.ID)
	s, _ := seedScout(t, a, u.ID, "Sam", "Scout")
	repo := a.AdvancementRepository()

	b := camping()
	require.NoError(t, repo.UpsertBadge(ctx, b))

	sb := &domain.ScoutBadge{ScoutID: s.ID, BadgeID: b.ID, Counselor: "Mr. Smith"}
	require.NoError(t, repo.StartBadge(ctx, sb))
	assert.ErrorIs(t, repo.StartBadge(ctx, &domain.ScoutBadge{ScoutID: s.ID, BadgeID: b.ID}), ErrDup)

	c := &domain.RequirementCompletion{ScoutBadgeID: sb.ID, RequirementID: b.Requirements[2].ID, CompletedAt: time.Now(), RecordedBy: admin.ID}
	added, err := repo.RecordCompletion(ctx, c)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.RecordCompletion(ctx, c)
	require.NoError(t, err)
	assert.False(t, added)

	got, err := repo.GetScoutBadge(ctx, s.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "camping", got.BadgeCode)
	require.Len(t, got.Completions, 1)
	assert.Equal(t, "10", got.Completions[0].Number)

	// Completed requirements survive catalog removal / Les exigences validées survivent
	trimmed := camping()
	trimmed.Requirements = trimmed.Requirements[:1]
	require.NoError(t, repo.UpsertBadge(ctx, trimmed))
	reloaded, err := repo.GetBadgeByCode(ctx, "camping")
	require.NoError(t, err)
	assert.Len(t, reloaded.Requirements, 2)

	require.NoError(t, repo.CompleteBadge(ctx, sb.ID, time.Now()))
	assert.ErrorIs(t, repo.CompleteBadge(ctx, sb.ID, time.Now()), ErrNoRecord)

	list, err := repo.ListScoutBadges(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsComplete())
	assert.Len(t, list[0].Completions, 1)
}
