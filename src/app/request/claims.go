package request

type CreateClaim struct {
	ItemId  string `json:"item_id" binding:"required"`
	Message string `json:"message"`
}

type UpdateClaim struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}
