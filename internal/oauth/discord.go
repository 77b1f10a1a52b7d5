package oauth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

const discordMeURL = "https://discord.com/api/v10/users/@me"

// Discord verifica access tokens contra el endpoint /users/@me.
type Discord struct {
	http  *http.Client
	meURL string
}

// NewDiscord construye el verifier de Discord.
func NewDiscord() *Discord {
	return &Discord{http: newHTTPClient(), meURL: discordMeURL}
}

func (d *Discord) Provider() string { return "discord" }

func (d *Discord) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.meURL, nil)
	if err != nil {
		return nil, ErrVerificationFailed
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := d.http.Do(req)
	if err != nil {
		logger.From(ctx).Warn("discord me request failed",
			logger.Provider("discord"), logger.Err(err))
		return nil, ErrVerificationFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.From(ctx).Warn("discord me rejected token",
			logger.Provider("discord"), logger.Status(resp.StatusCode))
		return nil, ErrVerificationFailed
	}

	var body struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.ID == "" {
		logger.From(ctx).Warn("discord me malformed response",
			logger.Provider("discord"), logger.Err(err))
		return nil, ErrVerificationFailed
	}

	picture := ""
	if body.Avatar != "" {
		picture = "https://cdn.discordapp.com/avatars/" + body.ID + "/" + body.Avatar + ".png"
	}

	return &Identity{
		Provider:      "discord",
		Subject:       body.ID,
		Email:         body.Email,
		EmailVerified: body.Verified,
		Name:          body.Username,
		Picture:       picture,
	}, nil
}
