package dto

import "github.com/HappilyMart/deal-service/internal/model"

type GetPost struct {
	Post       model.FullPost `json:"post"`
	PostStatus model.PostStatus `json:"post_status"`
	DealResult string         `json:"deal_result"`
	IsUnlocked bool           `json:"is_unlocked"`
}

type UnlockPostResponse struct {
	Message                string         `json:"message"`
	Post                   model.FullPost `json:"post"`
	RemainingUnlockCredits int64          `json:"remaining_unlock_credits"`
	RemainingCredits       int64          `json:"remaining_credits"`
}

type ChangeValidityResponse struct {
	Message string     `json:"message"`
	Post    model.Post `json:"post"`
	Revived bool       `json:"revived"`
}
