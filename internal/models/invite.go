package models

import "time"

type Invite struct {
	Code      string     `json:"code"`
	Role      Role       `json:"role"`
	MaxUses   int        `json:"max_uses"`
	Used      int        `json:"used"`
	Remaining int        `json:"remaining"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// RemainingUses is always derived as MaxUses - Used, never below zero, so the displayed
// count cannot contradict the usage accounting even if the server sent something else.
func (i Invite) RemainingUses() int {
	if n := i.MaxUses - i.Used; n > 0 {
		return n
	}
	return 0
}

func (i Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// Redeemable reports whether the invite can still be used at now.
func (i Invite) Redeemable(now time.Time) bool {
	return i.RemainingUses() > 0 && !i.Expired(now)
}

// Normalized returns a copy whose Remaining agrees with MaxUses and Used.
func (i Invite) Normalized() Invite {
	i.Remaining = i.RemainingUses()
	return i
}
