package api

import (
	"context"
	"net/http"
)

// Login signs in with phone and password and stores the returned token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.doPublic(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// SignUp registers a new account. The account stays unverified until the
// code sent to its phone is confirmed with VerifyCode.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	var out SignUpResponse
	if err := c.doPublic(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendCode asks the service to (re)send a verification code.
func (c *Client) SendCode(ctx context.Context, req SendCodeRequest) (*SendCodeResponse, error) {
	var out SendCodeResponse
	if err := c.doPublic(ctx, http.MethodPost, "/auth/code/send", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyCode confirms a verification code. Sign-up codes sign the client in.
func (c *Client) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*VerifyCodeResponse, error) {
	var out VerifyCodeResponse
	if err := c.doPublic(ctx, http.MethodPost, "/auth/code/verify", req, &out); err != nil {
		return nil, err
	}
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return &out, nil
}

// ResetPassword sets a new password using the token from a reset code.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*SuccessResponse, error) {
	var out SuccessResponse
	if err := c.doPublic(ctx, http.MethodPost, "/auth/password/reset", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout forgets the current token.
func (c *Client) Logout() {
	c.SetToken("")
}
