package handlers

import "time"

// MessageLimitRequest is the request body for checking a message against the limits.
type MessageLimitRequest struct {
	Body struct {
		AccountID string `doc:"Account sending the message"  example:"123"        json:"accountId" minLength:"1"`
		Phone     string `doc:"Business phone number in use" example:"9898989898" json:"phone"     minLength:"1"`
	}
}

// MessageLimitResponse is the outcome of a rate limit check.
type MessageLimitResponse struct {
	Body struct {
		AccountID           string    `doc:"Account the decision applies to"                 json:"accountId"`
		Phone               string    `doc:"Phone number the decision applies to"            json:"phone"`
		AccountMessageCount int       `doc:"Messages counted for the account in this window" json:"accountMessageCount"`
		PhoneMessageCount   int       `doc:"Messages counted for the phone in this window"   json:"phoneMessageCount"`
		LastAccountMessage  time.Time `doc:"Last accepted message for the account"           json:"lastAccountMessage"`
		LastPhoneMessage    time.Time `doc:"Last accepted message for the phone"             json:"lastPhoneMessage"`
		IsRateLimitOkay     bool      `doc:"Whether the message may be sent"                 json:"isRateLimitOkay"`
		Reason              string    `doc:"Quota that rejected the message" enum:"phone,account" json:"reason,omitempty"`
	}
}
