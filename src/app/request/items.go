package request

type CreateItem struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	ItemType        string   `json:"item_type" binding:"required"`
	Category        string   `json:"category"`
	Quantity        int      `json:"quantity"`
	Tags            []string `json:"tags"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	CollaborationId string   `json:"collaboration_id"`
}

type CompleteItem struct {
	ClaimId string `json:"claim_id" binding:"required"`
}
