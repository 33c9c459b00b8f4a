package dto

type SetCampaignImageRequest struct {
	CampaignAddress string `json:"campaignAddress"`
	CreatorAddress  string `json:"creatorAddress"`
	ImageURL        string `json:"imageUrl"`
}

type ReviewParticipationRequest struct {
	Status string `json:"status"`
}

type NonceRequest struct {
	Address string `json:"address"`
}

type VerifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}
