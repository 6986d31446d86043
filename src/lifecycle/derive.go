package lifecycle

import (
	"github.com/openpantry/pantry/src/utils/model"
)

// DeriveStatus computes an item's status from its full claim set.
// Item.status is only a cache of this function over the current
// claims: always re-derivable, never authoritative. Re-deriving
// instead of incrementing counters keeps concurrent writers safe,
// running it redundantly always converges to the same answer.
func DeriveStatus(claims []*model.Claim) model.ItemStatus {
	status := model.ItemAvailable
	for _, claim := range claims {
		switch claim.Status {
		case model.ClaimCompleted:
			// Terminal, beats everything else
			return model.ItemCompleted
		case model.ClaimAccepted:
			status = model.ItemReserved
		case model.ClaimPending:
			if status == model.ItemAvailable {
				status = model.ItemRequested
			}
		}
	}
	return status
}

// claimTransitions lists the permitted claim status changes.
// completed is terminal, rejected only changes via re-claiming.
var claimTransitions = map[model.ClaimStatus][]model.ClaimStatus{
	model.ClaimPending:  {model.ClaimAccepted, model.ClaimRejected},
	model.ClaimAccepted: {model.ClaimRejected, model.ClaimCompleted},
}

func transitionAllowed(from, to model.ClaimStatus) bool {
	for _, allowed := range claimTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
