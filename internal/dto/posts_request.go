package dto

type CreatePostRequest struct {
	Title          string `json:"title" binding:"required,min=2"`
	Description    string `json:"description" binding:"required,min=10"`
	CreditCost     int64  `json:"credit_cost" binding:"min=0"`
	ValidityPeriod int    `json:"validity_period" binding:"required,oneof=7 15 30"`
}

type DealToggleRequest struct {
	DealToggleStatus string `json:"deal_toggle_status" binding:"required,oneof=pending success fail"`
}

type ChangeValidityRequest struct {
	ValidityPeriod int `json:"validity_period" binding:"required,oneof=7 15 30"`
}

type GetPostsStatsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

type GetLedgerRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
