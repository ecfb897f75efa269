package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickupStatusTransitions(t *testing.T) {
	allowed := map[PickupStatus][]PickupStatus{
		PickupStatusRequested: {PickupStatusAssigned, PickupStatusCanceled},
		PickupStatusAssigned:  {PickupStatusOnGoing, PickupStatusCanceled},
		PickupStatusOnGoing:   {PickupStatusCompleted},
	}

	for _, from := range PickupStatuses() {
		for _, to := range PickupStatuses() {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestPickupStatusTerminalStatesHaveNoExit(t *testing.T) {
	for _, status := range []PickupStatus{PickupStatusCompleted, PickupStatusCanceled} {
		assert.True(t, status.IsTerminal())
		for _, next := range PickupStatuses() {
			assert.False(t, status.CanTransitionTo(next))
		}
	}
}

func TestCancelableStatuses(t *testing.T) {
	assert.ElementsMatch(t, []PickupStatus{PickupStatusRequested, PickupStatusAssigned}, CancelableStatuses())
	assert.False(t, PickupStatusOnGoing.IsCancelable())
	assert.False(t, PickupStatusCompleted.IsCancelable())
}

func TestParsePickupStatus(t *testing.T) {
	status, err := ParsePickupStatus("ON_GOING")
	require.NoError(t, err)
	assert.Equal(t, PickupStatusOnGoing, status)

	_, err = ParsePickupStatus("in_progress")
	assert.Error(t, err)
}

func TestParseWasteTypeDefaultsToMixed(t *testing.T) {
	wt, err := ParseWasteType("")
	require.NoError(t, err)
	assert.Equal(t, WasteTypeMixed, wt)

	wt, err = ParseWasteType(" plastic ")
	require.NoError(t, err)
	assert.Equal(t, WasteTypePlastic, wt)

	_, err = ParseWasteType("nuclear")
	assert.Error(t, err)
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("agent")
	require.NoError(t, err)
	assert.Equal(t, RoleAgent, role)

	_, err = ParseUserRole("MUNICIPAL")
	assert.Error(t, err)
}

func TestMunicipalRolesAreStaff(t *testing.T) {
	role, err := ParseUserRole(" hysacam ")
	require.NoError(t, err)
	assert.Equal(t, RoleHysacam, role)

	assert.True(t, RoleCouncil.IsValid())
	assert.True(t, RoleCouncil.IsStaff())
	assert.True(t, RoleAdmin.IsStaff())
	assert.False(t, RoleAgent.IsStaff())
	assert.False(t, RoleHousehold.IsStaff())
}
