package response

import (
	"github.com/openpantry/pantry/src/utils/model"
)

type Claims struct {
	Claims []*model.Claim `json:"claims"`
}

func ClaimsToResponse(claims []*model.Claim) *Claims {
	if claims == nil {
		claims = []*model.Claim{}
	}
	return &Claims{Claims: claims}
}
