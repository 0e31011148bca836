package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/roster"
)

const rosterSnapshot = `<html><body>
<table class="roster"><tbody>
  <tr data-member-id="1001">
    <td>Smith, Alexander (Alex)</td><td>Youth</td><td>Troop 42 (Patrol Leader)</td><td>Eagles</td><td>First Class</td>
  </tr>
  <tr data-member-id="1002">
    <td>Jordan Lee</td><td>Youth</td><td>Troop 42 (Scout)</td><td>Hawks</td><td>Scout</td>
  </tr>
  <tr data-member-id="2001">
    <td>Parent, Pat</td><td>Adult</td><td>Troop 42 (Committee Member)</td><td></td><td></td>
  </tr>
</tbody></table>
</body></html>`

func TestExtensionService_TokenLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, leader := env.member("leader@troop42.test", domain.RoleLeader)

	tok, plain, err := env.extensions.CreateExtensionToken(env.ctx, leader, "  ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plain, ExtensionTokenPrefix))
	assert.Len(t, plain, len(ExtensionTokenPrefix)+64)
	assert.Equal(t, "Browser extension", tok.Name)
	assert.NotContains(t, tok.TokenHash, plain)

	got, m, err := env.extensions.AuthenticateExtension(env.ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)
	assert.Equal(t, leader.ProfileID, m.ProfileID)
	assert.Equal(t, env.unit.ID, m.UnitID)

	tokens, err := env.extensions.ListExtensionTokens(env.ctx, env.actor)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.NotNil(t, tokens[0].LastUsedAt)

	for _, bad := range []string{"", "not-a-token", ExtensionTokenPrefix + "deadbeef"} {
		_, _, err := env.extensions.AuthenticateExtension(env.ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", bad)
	}

	require.NoError(t, env.extensions.RevokeExtensionToken(env.ctx, env.actor, tok.ID))
	_, _, err = env.extensions.AuthenticateExtension(env.ctx, plain)
	assert.ErrorIs(t, err, ErrInvalidToken)

	err = env.extensions.RevokeExtensionToken(env.ctx, env.actor, tok.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExtensionService_TokenRequiresSyncPermission(t *testing.T) {
	env := newTestEnv(t)
	_, parent := env.member("parent@troop42.test", domain.RoleParent)
	_, _, err := env.extensions.CreateExtensionToken(env.ctx, parent, "mine")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, leader := env.member("leader@troop42.test", domain.RoleLeader)
	_, plain, err := env.extensions.CreateExtensionToken(env.ctx, leader, "laptop")
	require.NoError(t, err)

	// Demoting the creator disables their tokens
	_, err = env.units.ChangeRole(env.ctx, env.actor, leader.ID, domain.RoleParent)
	require.NoError(t, err)
	_, _, err = env.extensions.AuthenticateExtension(env.ctx, plain)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtensionService_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.extensions.now = func() time.Time { return time.Now().Add(-100 * 24 * time.Hour) }
	_, plain, err := env.extensions.CreateExtensionToken(env.ctx, env.actor, "old")
	require.NoError(t, err)
	env.extensions.now = time.Now

	_, _, err = env.extensions.AuthenticateExtension(env.ctx, plain)
	assert.ErrorIs(t, err, ErrInvalidToken)

	n, err := env.extensions.PurgeTokens(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestExtensionService_StageAndConfirmSync(t *testing.T) {
	env := newTestEnv(t)
	existing, _ := env.scout("Jordan", "Lee")
	tok, _, err := env.extensions.CreateExtensionToken(env.ctx, env.actor, "laptop")
	require.NoError(t, err)

	preview, err := env.extensions.StageSync(env.ctx, tok, strings.NewReader(rosterSnapshot))
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPending, preview.Status)
	assert.Equal(t, roster.Summary{Added: 1, Updated: 1, Skipped: 1}, preview.Summary)
	require.Len(t, preview.Diff.Updated, 1)
	assert.Equal(t, existing.ID, preview.Diff.Updated[0].ScoutID)
	assert.Equal(t, 1, env.metrics.Count(env.metrics.RosterImports, "extension/staged"))

	// Staging changes nothing
	scouts, err := env.roster.ListScouts(env.ctx, env.actor, false, nil)
	require.NoError(t, err)
	assert.Len(t, scouts, 1)

	fetched, err := env.extensions.GetSync(env.ctx, env.actor, preview.ID)
	require.NoError(t, err)
	assert.Equal(t, preview.Summary, fetched.Summary)

	result, err := env.extensions.ConfirmSync(env.ctx, env.actor, preview.ID, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Eagles", "Hawks"}, result.PatrolsCreated)
	assert.Equal(t, 1, env.metrics.Count(env.metrics.RosterImports, "extension/applied"))

	scouts, err = env.roster.ListScouts(env.ctx, env.actor, false, nil)
	require.NoError(t, err)
	require.Len(t, scouts, 2)
	jordan, err := env.roster.GetScout(env.ctx, env.actor, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "1002", jordan.BSAMemberID)
	assert.Equal(t, "Hawks", jordan.PatrolName)

	fetched, err = env.extensions.GetSync(env.ctx, env.actor, preview.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncApplied, fetched.Status)

	// A sync applies once
	_, err = env.extensions.ConfirmSync(env.ctx, env.actor, preview.ID, false)
	assert.ErrorIs(t, err, domain.ErrConflict)
	scouts, err = env.roster.ListScouts(env.ctx, env.actor, false, nil)
	require.NoError(t, err)
	assert.Len(t, scouts, 2)
}

func TestExtensionService_ExpiredSync(t *testing.T) {
	env := newTestEnv(t)
	tok, _, err := env.extensions.CreateExtensionToken(env.ctx, env.actor, "laptop")
	require.NoError(t, err)
	preview, err := env.extensions.StageSync(env.ctx, tok, strings.NewReader(rosterSnapshot))
	require.NoError(t, err)

	env.extensions.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	fetched, err := env.extensions.GetSync(env.ctx, env.actor, preview.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncExpired, fetched.Status)

	_, err = env.extensions.ConfirmSync(env.ctx, env.actor, preview.ID, false)
	assert.ErrorIs(t, err, domain.ErrSyncExpired)

	n, err := env.extensions.ExpireSyncs(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	scouts, err := env.roster.ListScouts(env.ctx, env.actor, false, nil)
	require.NoError(t, err)
	assert.Empty(t, scouts)
}

func TestExtensionService_StageInvalidSnapshot(t *testing.T) {
	env := newTestEnv(t)
	tok, _, err := env.extensions.CreateExtensionToken(env.ctx, env.actor, "laptop")
	require.NoError(t, err)

	_, err = env.extensions.StageSync(env.ctx, tok, strings.NewReader("<p>signed out</p>"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, env.metrics.Count(env.metrics.RosterImports, "extension/invalid"))

	_, err = env.extensions.GetSync(env.ctx, env.actor, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
