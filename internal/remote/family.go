package remote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// Member is a family member as returned by the members endpoint.
type Member struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// CreateFamilyResult is the response from a family create: the family
// itself plus the creator's membership row.
type CreateFamilyResult struct {
	Family       schema.RemoteFamily `json:"family"`
	FamilyMember schema.FamilyMember `json:"familyMember"`
}

// CreateFamily creates a family with a client-generated join code and
// returns the new family plus the creator's membership.
func (c *Client) CreateFamily(ctx context.Context, name string) (*CreateFamilyResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Message: "family name is required"}
	}

	code := strings.ReplaceAll(uuid.NewString(), "-", "")

	var res CreateFamilyResult
	err := c.send(ctx, http.MethodPost, "/mobile/families", nil, map[string]string{
		"name": name,
		"code": code,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FamilyMembers lists the members of a family with their join times.
func (c *Client) FamilyMembers(ctx context.Context, familyID string) ([]Member, error) {
	var members []Member
	err := c.send(ctx, http.MethodGet, "/mobile/families/"+familyID+"/members", nil, nil, &members)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// MemberLocations returns the latest known position of every member of
// a family.
func (c *Client) MemberLocations(ctx context.Context, familyID string) ([]schema.MemberLocation, error) {
	var locations []schema.MemberLocation
	err := c.send(ctx, http.MethodGet, "/mobile/families/"+familyID+"/members/locations", nil, nil, &locations)
	if err != nil {
		return nil, err
	}
	return locations, nil
}

// Invitations lists the signed-in user's pending family invitations.
func (c *Client) Invitations(ctx context.Context) ([]schema.Invitation, error) {
	var invitations []schema.Invitation
	err := c.send(ctx, http.MethodGet, "/mobile/invitations", nil, nil, &invitations)
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

// AcceptInvitation accepts a pending invitation and returns the id of
// the joined family.
func (c *Client) AcceptInvitation(ctx context.Context, invitationID string) (string, error) {
	var res struct {
		FamilyID string `json:"familyId"`
	}
	err := c.send(ctx, http.MethodPut, "/mobile/invitations/"+invitationID, nil, nil, &res)
	if err != nil {
		return "", err
	}
	return res.FamilyID, nil
}

// DeclineInvitation deletes a pending invitation.
func (c *Client) DeclineInvitation(ctx context.Context, invitationID string) error {
	return c.send(ctx, http.MethodDelete, "/api/collections/invitations/records/"+invitationID, nil, nil, nil)
}
