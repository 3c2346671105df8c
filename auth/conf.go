package auth

import "golang.org/x/oauth2/clientcredentials"

// Conf represents the configuration needed for authentication against the
// dispatch backend. A static Token takes precedence; otherwise the OAuth2
// client credentials flow is used when ClientID and AuthURL are set.
type Conf struct {
	Token        string   `json:"token"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether any credential is configured.
func (c Conf) Enabled() bool {
	return c.Token != "" || (c.ClientID != "" && c.AuthURL != "")
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
		Scopes:       c.Scopes,
	}
}
