package app

import "rewear/internal/models"

// Actor is the role a caller plays with respect to a swap.
type Actor int

const (
	ActorRequester Actor = iota
	ActorResponder
	ActorAdmin
)

var itemTransitions = map[models.ItemStatus][]models.ItemStatus{
	models.ItemPendingApproval: {models.ItemAvailable, models.ItemRejected},
	models.ItemAvailable:       {models.ItemSwapped},
}

var swapTransitions = map[models.SwapStatus][]models.SwapStatus{
	models.SwapRequested: {models.SwapAccepted, models.SwapRejected, models.SwapCancelled},
	models.SwapAccepted:  {models.SwapRejected, models.SwapCancelled, models.SwapCompleted},
}

// CanTransitionItem reports whether an item may move from one status to another.
func CanTransitionItem(from, to models.ItemStatus) bool {
	return contains(itemTransitions[from], to)
}

// CanTransitionSwap reports whether the swap state machine has an edge from one status to another.
// Terminal statuses have no outgoing edges.
func CanTransitionSwap(from, to models.SwapStatus) bool {
	if from.Terminal() {
		return false
	}
	return contains(swapTransitions[from], to)
}

// SwapActorAllowed reports whether actor may drive a swap into status to.
// Accepting and rejecting belong to the responder; either party may cancel or complete.
// An admin may take any edge.
func SwapActorAllowed(to models.SwapStatus, actor Actor) bool {
	if actor == ActorAdmin {
		return true
	}
	switch to {
	case models.SwapAccepted, models.SwapRejected:
		return actor == ActorResponder
	case models.SwapCancelled, models.SwapCompleted:
		return actor == ActorRequester || actor == ActorResponder
	default:
		return false
	}
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// defaultPointsCost prices a listing by its condition when the owner gives no cost.
func defaultPointsCost(condition string) int {
	switch condition {
	case "New":
		return 200
	case "Like New":
		return 150
	case "Used":
		return 100
	case "Heavily Used":
		return 50
	default:
		return 100
	}
}
