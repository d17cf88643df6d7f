package model

import "time"

type AppSettings struct {
	RateLimitEnabled      bool      `json:"rateLimitEnabled"`
	RateLimitRequests     int       `json:"rateLimitRequests"`
	RateLimitWindowSecs   int       `json:"rateLimitWindowSecs"`
	RequestTimeoutSecs    int       `json:"requestTimeoutSecs"`
	StreamIdleTimeoutSecs int       `json:"streamIdleTimeoutSecs"`
	EnableFullLogging     bool      `json:"enableFullLogging"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

type AppSettingsRequest struct {
	RateLimitEnabled      *bool `json:"rateLimitEnabled,omitempty"`
	RateLimitRequests     *int  `json:"rateLimitRequests,omitempty" binding:"omitempty,min=1"`
	RateLimitWindowSecs   *int  `json:"rateLimitWindowSecs,omitempty" binding:"omitempty,min=1"`
	RequestTimeoutSecs    *int  `json:"requestTimeoutSecs,omitempty" binding:"omitempty,min=1,max=3600"`
	StreamIdleTimeoutSecs *int  `json:"streamIdleTimeoutSecs,omitempty" binding:"omitempty,min=1,max=3600"`
	EnableFullLogging     *bool `json:"enableFullLogging,omitempty"`
}
