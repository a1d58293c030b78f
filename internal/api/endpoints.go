package api

import (
	"context"
	"net/url"
)

func call(ctx context.Context, r Requester, name string, pathParams map[string]string, query map[string]any, body any, result any) error {
	opts, err := Catalog.mustLookup(name).Options(pathParams, query, body)
	if err != nil {
		return err
	}
	return r.Request(ctx, opts, result)
}

// Login exchanges credentials for an access token. Credentials are sent
// form-encoded as an OAuth2 password grant.
func Login(ctx context.Context, r Requester, username, password string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	var token Token
	if err := call(ctx, r, EndpointLoginAccessToken, nil, nil, form, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// TestToken validates the current token and returns its user.
func TestToken(ctx context.Context, r Requester) (*UserPublic, error) {
	var user UserPublic
	if err := call(ctx, r, EndpointLoginTestToken, nil, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ReadMe returns the current user.
func ReadMe(ctx context.Context, r Requester) (*UserPublic, error) {
	var user UserPublic
	if err := call(ctx, r, EndpointUsersReadMe, nil, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe updates the current user.
func UpdateMe(ctx context.Context, r Requester, in UserUpdateMe) (*UserPublic, error) {
	var user UserPublic
	if err := call(ctx, r, EndpointUsersUpdateMe, nil, nil, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePasswordMe changes the current user's password.
func UpdatePasswordMe(ctx context.Context, r Requester, in UpdatePassword) (*Message, error) {
	var msg Message
	if err := call(ctx, r, EndpointUsersUpdatePasswordMe, nil, nil, in, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Register creates a new user.
func Register(ctx context.Context, r Requester, in UserRegister) (*UserPublic, error) {
	var user UserPublic
	if err := call(ctx, r, EndpointUsersRegister, nil, nil, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ReadItems lists items. A nil skip or limit is omitted from the query.
func ReadItems(ctx context.Context, r Requester, skip, limit *int) (*ItemsPublic, error) {
	var items ItemsPublic
	query := map[string]any{"skip": skip, "limit": limit}
	if err := call(ctx, r, EndpointItemsRead, nil, query, nil, &items); err != nil {
		return nil, err
	}
	return &items, nil
}

// CreateItem creates an item.
func CreateItem(ctx context.Context, r Requester, in ItemCreate) (*ItemPublic, error) {
	var item ItemPublic
	if err := call(ctx, r, EndpointItemsCreate, nil, nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ReadItem returns one item.
func ReadItem(ctx context.Context, r Requester, id string) (*ItemPublic, error) {
	var item ItemPublic
	if err := call(ctx, r, EndpointItemsReadOne, map[string]string{"id": id}, nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem replaces the mutable fields of an item.
func UpdateItem(ctx context.Context, r Requester, id string, in ItemUpdate) (*ItemPublic, error) {
	var item ItemPublic
	if err := call(ctx, r, EndpointItemsUpdate, map[string]string{"id": id}, nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem deletes an item.
func DeleteItem(ctx context.Context, r Requester, id string) (*Message, error) {
	var msg Message
	if err := call(ctx, r, EndpointItemsDelete, map[string]string{"id": id}, nil, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// HealthCheck reports whether the backend answered its health endpoint.
func HealthCheck(ctx context.Context, r Requester) (bool, error) {
	var ok bool
	if err := call(ctx, r, EndpointUtilsHealthCheck, nil, nil, nil, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
