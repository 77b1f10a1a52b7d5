package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

const facebookGraphURL = "https://graph.facebook.com/v19.0/me"

// Facebook verifica access tokens contra la Graph API.
type Facebook struct {
	http     *http.Client
	graphURL string
}

// NewFacebook construye el verifier de Facebook.
func NewFacebook() *Facebook {
	return &Facebook{http: newHTTPClient(), graphURL: facebookGraphURL}
}

func (f *Facebook) Provider() string { return "facebook" }

func (f *Facebook) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	q := url.Values{}
	q.Set("fields", "id,name,email,picture.type(large)")
	q.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, ErrVerificationFailed
	}

	resp, err := f.http.Do(req)
	if err != nil {
		logger.From(ctx).Warn("facebook graph request failed",
			logger.Provider("facebook"), logger.Err(err))
		return nil, ErrVerificationFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.From(ctx).Warn("facebook graph rejected token",
			logger.Provider("facebook"), logger.Status(resp.StatusCode))
		return nil, ErrVerificationFailed
	}

	var body struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.ID == "" {
		logger.From(ctx).Warn("facebook graph malformed response",
			logger.Provider("facebook"), logger.Err(err))
		return nil, ErrVerificationFailed
	}

	// Facebook solo entrega emails ya verificados por ellos.
	return &Identity{
		Provider:      "facebook",
		Subject:       body.ID,
		Email:         body.Email,
		EmailVerified: body.Email != "",
		Name:          body.Name,
		Picture:       body.Picture.Data.URL,
	}, nil
}
