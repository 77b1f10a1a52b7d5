package oauth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

const googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Google verifica access tokens contra el endpoint userinfo de OpenID
// Connect de Google.
type Google struct {
	http        *http.Client
	userinfoURL string
}

// NewGoogle construye el verifier de Google.
func NewGoogle() *Google {
	return &Google{http: newHTTPClient(), userinfoURL: googleUserinfoURL}
}

func (g *Google) Provider() string { return "google" }

func (g *Google) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, ErrVerificationFailed
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		logger.From(ctx).Warn("google userinfo request failed",
			logger.Provider("google"), logger.Err(err))
		return nil, ErrVerificationFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.From(ctx).Warn("google userinfo rejected token",
			logger.Provider("google"), logger.Status(resp.StatusCode))
		return nil, ErrVerificationFailed
	}

	var body struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Sub == "" {
		logger.From(ctx).Warn("google userinfo malformed response",
			logger.Provider("google"), logger.Err(err))
		return nil, ErrVerificationFailed
	}

	return &Identity{
		Provider:      "google",
		Subject:       body.Sub,
		Email:         body.Email,
		EmailVerified: body.EmailVerified,
		Name:          body.Name,
		Picture:       body.Picture,
	}, nil
}
