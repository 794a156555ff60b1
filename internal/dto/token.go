package dto

import "time"

type TokenPair struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	AccessTTL    time.Duration `json:"-"`
	RefreshTTL   time.Duration `json:"-"`
}

type AccessToken struct {
	AccessToken string        `json:"accessToken"`
	TTL         time.Duration `json:"-"`
}
