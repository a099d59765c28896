package model

import "time"

type Activity struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Description string    `json:"description"`
	Action      string    `json:"action"`
	CreatedAt   time.Time `json:"createdAt"`
}
