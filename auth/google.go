package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oa2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type GoogleProvider struct {
	config *oauth2.Config
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) I_IdentityProvider {
	return &GoogleProvider{&oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}}
}

func (me *GoogleProvider) AuthCodeURL(state string) string {
	return me.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (me *GoogleProvider) Exchange(ctx context.Context, code string) (*Assertion, error) {
	token, err := me.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for google token: %w", err)
	}

	service, err := oa2.NewService(ctx, option.WithTokenSource(me.config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("creating oauth2 service: %w", err)
	}

	userInfo, err := service.Userinfo.Get().Do()
	if err != nil {
		return nil, fmt.Errorf("getting user info: %w", err)
	}

	return &Assertion{
		UID:     userInfo.Id,
		Name:    userInfo.Name,
		Email:   userInfo.Email,
		Picture: userInfo.Picture,
	}, nil
}
