package response

import (
	"github.com/openpantry/pantry/src/query"
	"github.com/openpantry/pantry/src/utils/model"
)

type Items struct {
	Items []*model.Item `json:"items"`
}

func ItemsToResponse(items []*model.Item) *Items {
	if items == nil {
		items = []*model.Item{}
	}
	return &Items{Items: items}
}

type ItemDetails struct {
	Item   *model.Item    `json:"item"`
	Claims []*model.Claim `json:"claims"`
}

func ItemDetailsToResponse(details *query.ItemDetails) *ItemDetails {
	claims := details.Claims
	if claims == nil {
		claims = []*model.Claim{}
	}
	return &ItemDetails{
		Item:   details.Item,
		Claims: claims,
	}
}
