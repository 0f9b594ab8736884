package dto

// RefreshRequest carries a replacement snapshot request. Update is the
// explicit intent flag; without it the embedded snapshot stays as issued.
type RefreshRequest struct {
	Update      bool    `json:"update"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}
