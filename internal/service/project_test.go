package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pochaneco/ai-Knowledge-api/internal/mailer"
	"github.com/pochaneco/ai-Knowledge-api/internal/model"
)

func newProjectService(t *testing.T, db *gorm.DB) (*ProjectService, *mailer.Recorder, *fakeClock) {
	t.Helper()

	rec := &mailer.Recorder{}
	clock := newFakeClock()
	svc := NewProjectService(db, rec, ProjectOptions{
		BaseURL:       "http://localhost:8080",
		InvitationTTL: 7 * 24 * time.Hour,
	}).WithClock(clock.Now)
	return svc, rec, clock
}

func TestCreateProjectOwnerMembership(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")

	project, err := svc.Create("P", "a project", owner.ID, true)
	require.NoError(t, err)
	require.NotZero(t, project.ID)
	require.NotNil(t, project.Owner)
	assert.Equal(t, "alice", project.Owner.Username)

	var members []model.ProjectMember
	require.NoError(t, db.Where("project_id = ?", project.ID).Find(&members).Error)
	require.Len(t, members, 1)
	assert.Equal(t, owner.ID, members[0].UserID)
	assert.Equal(t, model.RoleOwner, members[0].Role)

	// The owner role passes every rank.
	assert.True(t, svc.CheckPermission(project.ID, owner.ID, model.RoleMember))
	assert.True(t, svc.CheckPermission(project.ID, owner.ID, model.RoleAdmin))
	assert.True(t, svc.CheckPermission(project.ID, owner.ID, model.RoleOwner))
}

func TestAddMemberDuplicate(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	bob := seedUser(t, db, "bob", "bob@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(project.ID, bob.ID, model.RoleMember))
	err = svc.AddMember(project.ID, bob.ID, model.RoleAdmin)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	// Exactly one row, and the role was not silently upgraded.
	var members []model.ProjectMember
	require.NoError(t, db.Where("project_id = ? AND user_id = ?", project.ID, bob.ID).Find(&members).Error)
	require.Len(t, members, 1)
	assert.Equal(t, model.RoleMember, members[0].Role)
}

func TestCheckPermissionRanks(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	admin := seedUser(t, db, "bea", "bea@x.com")
	member := seedUser(t, db, "carl", "carl@x.com")
	outsider := seedUser(t, db, "dora", "dora@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(project.ID, admin.ID, model.RoleAdmin))
	require.NoError(t, svc.AddMember(project.ID, member.ID, model.RoleMember))

	cases := []struct {
		name     string
		userID   uint
		required string
		want     bool
	}{
		{"member passes member", member.ID, model.RoleMember, true},
		{"member fails admin", member.ID, model.RoleAdmin, false},
		{"member fails owner", member.ID, model.RoleOwner, false},
		{"admin passes member", admin.ID, model.RoleMember, true},
		{"admin passes admin", admin.ID, model.RoleAdmin, true},
		{"admin fails owner", admin.ID, model.RoleOwner, false},
		{"owner passes owner", owner.ID, model.RoleOwner, true},
		{"no membership row fails", outsider.ID, model.RoleMember, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, svc.CheckPermission(project.ID, tc.userID, tc.required))
		})
	}

	// Unknown required role falls back to member.
	assert.True(t, svc.CheckPermission(project.ID, member.ID, ""))
}

func TestRemoveMember(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	admin := seedUser(t, db, "bea", "bea@x.com")
	member := seedUser(t, db, "carl", "carl@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(project.ID, admin.ID, model.RoleAdmin))
	require.NoError(t, svc.AddMember(project.ID, member.ID, model.RoleMember))

	// The owner can never be removed, whoever asks.
	assert.ErrorIs(t, svc.RemoveMember(project.ID, owner.ID, admin.ID), ErrOwnerProtected)
	assert.ErrorIs(t, svc.RemoveMember(project.ID, owner.ID, owner.ID), ErrOwnerProtected)

	// A plain member cannot remove anyone.
	assert.ErrorIs(t, svc.RemoveMember(project.ID, admin.ID, member.ID), ErrForbidden)

	// An admin can remove a member.
	require.NoError(t, svc.RemoveMember(project.ID, member.ID, admin.ID))
	assert.False(t, svc.CheckPermission(project.ID, member.ID, model.RoleMember))

	// Removing again reports the missing row.
	assert.ErrorIs(t, svc.RemoveMember(project.ID, member.ID, admin.ID), ErrMemberNotFound)

	assert.ErrorIs(t, svc.RemoveMember(9999, member.ID, admin.ID), ErrProjectNotFound)
}

func TestDeleteProject(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	admin := seedUser(t, db, "bea", "bea@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(project.ID, admin.ID, model.RoleAdmin))
	_, err = svc.Invite(project.ID, "carl@x.com", owner.ID)
	require.NoError(t, err)
	item := model.KnowledgeItem{Title: "t", Content: "c", ProjectID: project.ID, CreatedByID: owner.ID}
	require.NoError(t, db.Create(&item).Error)

	// Admins can edit the project but never destroy it.
	assert.ErrorIs(t, svc.Delete(project.ID, admin.ID), ErrForbidden)

	require.NoError(t, svc.Delete(project.ID, owner.ID))
	_, err = svc.GetByID(project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	var members, invitations, items int64
	require.NoError(t, db.Model(&model.ProjectMember{}).Where("project_id = ?", project.ID).Count(&members).Error)
	require.NoError(t, db.Model(&model.ProjectInvitation{}).Where("project_id = ?", project.ID).Count(&invitations).Error)
	require.NoError(t, db.Model(&model.KnowledgeItem{}).Where("project_id = ?", project.ID).Count(&items).Error)
	assert.Zero(t, members)
	assert.Zero(t, invitations)
	assert.Zero(t, items)

	assert.ErrorIs(t, svc.Delete(project.ID, owner.ID), ErrProjectNotFound)
}

func TestListMembers(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	bob := seedUser(t, db, "bob", "bob@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(project.ID, bob.ID, model.RoleMember))

	members, err := svc.ListMembers(project.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	roles := map[string]string{}
	for _, m := range members {
		require.NotNil(t, m.User)
		roles[m.User.Username] = m.Role
	}
	assert.Equal(t, model.RoleOwner, roles["alice"])
	assert.Equal(t, model.RoleMember, roles["bob"])
}

func TestListForUser(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	alice := seedUser(t, db, "alice", "alice@x.com")
	bob := seedUser(t, db, "bob", "bob@x.com")

	p1, err := svc.Create("alpha", "", alice.ID, true)
	require.NoError(t, err)
	p2, err := svc.Create("beta", "", bob.ID, true)
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(p2.ID, alice.ID, model.RoleAdmin))

	rows, err := svc.ListForUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	roles := map[uint]string{}
	for _, row := range rows {
		roles[row.ID] = row.Role
	}
	assert.Equal(t, model.RoleOwner, roles[p1.ID])
	assert.Equal(t, model.RoleAdmin, roles[p2.ID])
}

func TestInvite(t *testing.T) {
	db := testDB(t)
	svc, rec, clock := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")

	project, err := svc.Create("P", "desc", owner.ID, true)
	require.NoError(t, err)

	invitation, err := svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvitationPending, invitation.Status)
	assert.NotEmpty(t, invitation.Token)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), invitation.ExpiresAt)

	require.Len(t, rec.Sent, 1)
	assert.Equal(t, "bob@x.com", rec.Sent[0].To)
	assert.Contains(t, rec.Sent[0].Body, invitation.Token)

	// Only one pending invitation per (project, email).
	_, err = svc.Invite(project.ID, "bob@x.com", owner.ID)
	assert.ErrorIs(t, err, ErrDuplicatePending)

	// An address that already maps to a member is refused.
	_, err = svc.Invite(project.ID, "alice@x.com", owner.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = svc.Invite(9999, "bob@x.com", owner.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestInvitePendingUniqueIndex(t *testing.T) {
	db := testDB(t)
	svc, _, clock := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	_, err = svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)

	// A racing invite that got past the count check still hits the unique
	// index on the pending key, so two pending rows for one (project, email)
	// pair can never both commit.
	key := model.InvitationPendingKey(project.ID, "bob@x.com")
	racer := model.ProjectInvitation{
		ProjectID:   project.ID,
		Email:       "bob@x.com",
		InvitedByID: owner.ID,
		Token:       "racer-token",
		Status:      model.InvitationPending,
		PendingKey:  &key,
		ExpiresAt:   clock.Now().Add(7 * 24 * time.Hour),
	}
	assert.ErrorIs(t, db.Create(&racer).Error, gorm.ErrDuplicatedKey)
}

func TestReinviteAfterTerminal(t *testing.T) {
	db := testDB(t)
	svc, _, clock := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	seedUser(t, db, "bob", "bob@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)

	// A rejected invitation frees the pair for a fresh one.
	first, err := svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RejectInvitation(first.Token))

	second, err := svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)

	// So does one that expired.
	clock.Advance(7*24*time.Hour + time.Minute)
	_, err = svc.AcceptInvitation(second.Token)
	require.ErrorIs(t, err, ErrInvitationExpired)

	_, err = svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)
}

func TestAcceptInvitationFlow(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)

	invitation, err := svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)

	// No account yet: accept fails without consuming the invitation.
	_, err = svc.AcceptInvitation(invitation.Token)
	assert.ErrorIs(t, err, ErrNoAccount)

	var stored model.ProjectInvitation
	require.NoError(t, db.First(&stored, invitation.ID).Error)
	assert.Equal(t, model.InvitationPending, stored.Status)

	// After registering, the same token works and grants the member role.
	bob := seedUser(t, db, "bob", "bob@x.com")
	accepted, err := svc.AcceptInvitation(invitation.Token)
	require.NoError(t, err)
	assert.Equal(t, model.InvitationAccepted, accepted.Status)
	assert.True(t, svc.CheckPermission(project.ID, bob.ID, model.RoleMember))
	assert.False(t, svc.CheckPermission(project.ID, bob.ID, model.RoleAdmin))

	// A consumed token is gone.
	_, err = svc.AcceptInvitation(invitation.Token)
	assert.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestAcceptInvitationExpired(t *testing.T) {
	db := testDB(t)
	svc, _, clock := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	seedUser(t, db, "bob", "bob@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	invitation, err := svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour + time.Minute)

	// Lazy expiry: the failed accept persists the terminal state.
	_, err = svc.AcceptInvitation(invitation.Token)
	assert.ErrorIs(t, err, ErrInvitationExpired)

	var stored model.ProjectInvitation
	require.NoError(t, db.First(&stored, invitation.ID).Error)
	assert.Equal(t, model.InvitationExpired, stored.Status)

	// The second accept sees a processed invitation, not expired-again.
	_, err = svc.AcceptInvitation(invitation.Token)
	assert.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestAcceptInvitationRaceWithMembership(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	bob := seedUser(t, db, "bob", "bob@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	invitation, err := svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)

	// Bob gets added through another path before accepting.
	require.NoError(t, svc.AddMember(project.ID, bob.ID, model.RoleMember))

	// The membership failure propagates and the invitation is not consumed.
	_, err = svc.AcceptInvitation(invitation.Token)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	var stored model.ProjectInvitation
	require.NoError(t, db.First(&stored, invitation.ID).Error)
	assert.Equal(t, model.InvitationPending, stored.Status)
}

func TestRejectInvitation(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")
	seedUser(t, db, "bob", "bob@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	invitation, err := svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)

	require.NoError(t, svc.RejectInvitation(invitation.Token))

	var stored model.ProjectInvitation
	require.NoError(t, db.First(&stored, invitation.ID).Error)
	assert.Equal(t, model.InvitationRejected, stored.Status)
	assert.True(t, stored.Terminal())

	// Rejected is terminal.
	_, err = svc.AcceptInvitation(invitation.Token)
	assert.ErrorIs(t, err, ErrInvitationNotFound)
	assert.ErrorIs(t, svc.RejectInvitation(invitation.Token), ErrInvitationNotFound)
}

func TestListInvitations(t *testing.T) {
	db := testDB(t)
	svc, _, _ := newProjectService(t, db)
	owner := seedUser(t, db, "alice", "alice@x.com")

	project, err := svc.Create("P", "", owner.ID, true)
	require.NoError(t, err)
	_, err = svc.Invite(project.ID, "bob@x.com", owner.ID)
	require.NoError(t, err)
	_, err = svc.Invite(project.ID, "carl@x.com", owner.ID)
	require.NoError(t, err)

	invitations, err := svc.ListInvitations(project.ID)
	require.NoError(t, err)
	require.Len(t, invitations, 2)
	for _, inv := range invitations {
		assert.Equal(t, model.InvitationPending, inv.Status)
		require.NotNil(t, inv.InvitedBy)
		assert.Equal(t, "alice", inv.InvitedBy.Username)
	}
}
