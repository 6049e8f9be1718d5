package transport

import "github.com/Skotchmaster/travel_social/internal/service"

const TokenTypeBearer = "Bearer"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthenticationResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	UserID       uint     `json:"user_id"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
}

func NewAuthenticationResponse(p *service.SessionPair) AuthenticationResponse {
	roles := p.RoleNames
	if roles == nil {
		roles = []string{}
	}
	return AuthenticationResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    p.ExpiresIn,
		UserID:       p.PrincipalID,
		Username:     p.PrincipalName,
		Roles:        roles,
	}
}

type WhoAmIResponse struct {
	UserID      uint     `json:"user_id"`
	Username    string   `json:"username"`
	Authorities []string `json:"authorities"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
