package remote

import (
	"context"
	"net/http"
	"strings"

	"github.com/kinpoint/kinpoint/internal/schema"
	"github.com/kinpoint/kinpoint/internal/secrets"
)

// NewUser carries the fields for account registration. Password
// material is sent to the server and never persisted locally.
type NewUser struct {
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	EmailVisibility bool   `json:"emailVisibility"`
}

type authResponse struct {
	Token  string      `json:"token"`
	Record schema.User `json:"record"`
}

// SignIn authenticates with email and password. On success the session
// token and user id are persisted to the secret store. Bad credentials
// surface as *AuthError.
func (c *Client) SignIn(ctx context.Context, email, password string) (*schema.User, error) {
	var res authResponse
	err := c.send(ctx, http.MethodPost, "/api/collections/users/auth-with-password", nil, map[string]string{
		"identity": email,
		"password": password,
	}, &res)
	if err != nil {
		if apiErr, ok := err.(*apiError); ok && apiErr.Status == http.StatusBadRequest {
			return nil, &AuthError{Message: "invalid email or password"}
		}
		return nil, err
	}

	if err := c.secrets.Set(secrets.KeyMyUserID, res.Record.ID); err != nil {
		return nil, err
	}
	return &res.Record, nil
}

// Register creates an account. The password confirmation is checked
// client-side before any network call.
func (c *Client) Register(ctx context.Context, user NewUser) (*schema.User, error) {
	if user.Password != user.PasswordConfirm {
		return nil, &ValidationError{Message: "passwords do not match"}
	}

	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	user.FirstName = strings.TrimSpace(strings.ToLower(user.FirstName))
	user.LastName = strings.TrimSpace(strings.ToLower(user.LastName))
	user.EmailVisibility = true

	var created schema.User
	err := c.send(ctx, http.MethodPost, "/api/collections/users/records", nil, user, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RefreshAuth silently renews the stored session. Fails with
// *AuthError when the stored session is absent or expired.
func (c *Client) RefreshAuth(ctx context.Context) error {
	if token, ok := c.secrets.Get(secrets.KeySessionToken); !ok || token == "" {
		return &AuthError{Message: "no stored session"}
	}

	var res authResponse
	return c.send(ctx, http.MethodPost, "/api/collections/users/auth-refresh", nil, nil, &res)
}

// SignOut clears the local session. The remote is not called; the
// token simply stops being presented.
func (c *Client) SignOut() error {
	if err := c.secrets.Delete(secrets.KeySessionToken); err != nil {
		return err
	}
	return c.secrets.Delete(secrets.KeyMyUserID)
}

// UpdateProfile carries the mutable profile fields for UpdateMe.
// Empty fields are left unchanged.
type UpdateProfile struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// UpdateMe updates the signed-in user's profile on the remote and
// returns the updated record.
func (c *Client) UpdateMe(ctx context.Context, fields UpdateProfile) (*schema.User, error) {
	id, err := c.UserID()
	if err != nil {
		return nil, err
	}

	fields.FirstName = strings.TrimSpace(strings.ToLower(fields.FirstName))
	fields.LastName = strings.TrimSpace(strings.ToLower(fields.LastName))

	var updated schema.User
	err = c.send(ctx, http.MethodPatch, "/api/collections/users/records/"+id, nil, fields, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AvatarURL builds the file URL for the signed-in user's avatar.
func (c *Client) AvatarURL(avatar string) (string, error) {
	id, err := c.UserID()
	if err != nil {
		return "", err
	}
	return c.BaseURL() + "/api/files/users/" + id + "/" + avatar, nil
}
