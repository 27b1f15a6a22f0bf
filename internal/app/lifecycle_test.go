package app

import (
	"testing"

	"rewear/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionSwap(t *testing.T) {
	all := []models.SwapStatus{models.SwapRequested, models.SwapAccepted, models.SwapRejected, models.SwapCancelled, models.SwapCompleted}
	allowed := map[[2]models.SwapStatus]bool{
		{models.SwapRequested, models.SwapAccepted}:  true,
		{models.SwapRequested, models.SwapRejected}:  true,
		{models.SwapRequested, models.SwapCancelled}: true,
		{models.SwapAccepted, models.SwapRejected}:   true,
		{models.SwapAccepted, models.SwapCancelled}:  true,
		{models.SwapAccepted, models.SwapCompleted}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]models.SwapStatus{from, to}], CanTransitionSwap(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalSwapStatuses(t *testing.T) {
	testCases := []struct {
		status   models.SwapStatus
		terminal bool
	}{
		{models.SwapRequested, false},
		{models.SwapAccepted, false},
		{models.SwapRejected, true},
		{models.SwapCancelled, true},
		{models.SwapCompleted, true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.terminal, tc.status.Terminal())
			if tc.terminal {
				assert.False(t, CanTransitionSwap(tc.status, models.SwapCancelled))
				assert.False(t, CanTransitionSwap(tc.status, models.SwapCompleted))
			}
		})
	}
}

func TestCanTransitionItem(t *testing.T) {
	assert.True(t, CanTransitionItem(models.ItemPendingApproval, models.ItemAvailable))
	assert.True(t, CanTransitionItem(models.ItemPendingApproval, models.ItemRejected))
	assert.True(t, CanTransitionItem(models.ItemAvailable, models.ItemSwapped))
	assert.False(t, CanTransitionItem(models.ItemPendingApproval, models.ItemSwapped))
	assert.False(t, CanTransitionItem(models.ItemRejected, models.ItemAvailable))
	assert.False(t, CanTransitionItem(models.ItemSwapped, models.ItemAvailable))
}

func TestSwapActorAllowed(t *testing.T) {
	testCases := []struct {
		to    models.SwapStatus
		actor Actor
		want  bool
	}{
		{models.SwapAccepted, ActorResponder, true},
		{models.SwapAccepted, ActorRequester, false},
		{models.SwapRejected, ActorResponder, true},
		{models.SwapRejected, ActorRequester, false},
		{models.SwapCancelled, ActorRequester, true},
		{models.SwapCancelled, ActorResponder, true},
		{models.SwapCompleted, ActorRequester, true},
		{models.SwapCompleted, ActorResponder, true},
		{models.SwapAccepted, ActorAdmin, true},
		{models.SwapCompleted, ActorAdmin, true},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, SwapActorAllowed(tc.to, tc.actor), "%s by %d", tc.to, tc.actor)
	}
}

func TestDefaultPointsCost(t *testing.T) {
	assert.Equal(t, 200, defaultPointsCost("New"))
	assert.Equal(t, 150, defaultPointsCost("Like New"))
	assert.Equal(t, 100, defaultPointsCost("Used"))
	assert.Equal(t, 50, defaultPointsCost("Heavily Used"))
	assert.Equal(t, 100, defaultPointsCost("Vintage"))
}
