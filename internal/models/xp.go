package models

import "time"

// XPTransaction is one row of the append-only experience ledger. Negative
// amounts are compensating entries (e.g. the upload grant reversed when a
// photo is deleted).
type XPTransaction struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Amount    int       `json:"amount" bson:"amount"`
	Reason    string    `json:"reason" bson:"reason"`
	RelatedID string    `json:"related_id,omitempty" bson:"related_id,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type AddXPRequest struct {
	Amount    int    `json:"amount"`
	Reason    string `json:"reason"`
	RelatedID string `json:"related_id"`
}

func (r *AddXPRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Amount == 0 {
		errors["amount"] = "Amount must be non-zero"
	}
	if r.Reason == "" {
		errors["reason"] = "Reason is required"
	}

	return errors
}

// XPResult is returned by every experience grant.
type XPResult struct {
	NewXP    int `json:"new_xp"`
	NewLevel int `json:"new_level"`
}
