package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAssertion indicates the identity assertion lacked the data
// required to resolve a user, most commonly a provider profile without an
// email address.
var ErrInvalidAssertion = errors.New("users: invalid identity assertion")

// Assertion is a claim of identity presented by an authentication flow.
// OAuth flows supply the full profile; magic-link flows supply only the email.
type Assertion struct {
	Provider    string
	SubjectID   string
	Email       string
	DisplayName string
}

// Directory is the persistence surface the resolver needs.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, id string, updates map[string]interface{}) (*User, error)
}

// Resolver turns identity assertions into canonical user records, creating
// the record on first contact and reconciling provider linkage by email.
type Resolver struct {
	store Directory
}

// NewResolver constructs a resolver over the given directory.
func NewResolver(store Directory) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("users: directory required")
	}
	return &Resolver{store: store}, nil
}

// ResolveOrCreate finds the user owning the asserted email, creating one when
// absent. An existing record gains provider linkage only when it has none
// yet; an already-linked provider is never overwritten.
func (r *Resolver) ResolveOrCreate(ctx context.Context, assertion Assertion) (*User, error) {
	email := NormalizeEmail(assertion.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrInvalidAssertion)
	}

	existing, err := r.store.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if existing == nil {
		user := &User{
			Email:    email,
			Provider: assertion.Provider,
		}
		switch assertion.Provider {
		case ProviderGoogle:
			user.Name = strings.TrimSpace(assertion.DisplayName)
			user.ProviderSubjectID = assertion.SubjectID
			if user.Name == "" {
				user.Name = placeholderName(email)
			}
		default:
			user.Provider = ProviderMagic
			user.Name = placeholderName(email)
		}
		if err := r.store.Insert(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	// First provider wins: backfill linkage only on records that never
	// authenticated through a provider before.
	if assertion.Provider == ProviderGoogle && existing.Provider == "" {
		updated, err := r.store.Update(ctx, existing.ID, map[string]interface{}{
			"provider":            ProviderGoogle,
			"provider_subject_id": assertion.SubjectID,
		})
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return existing, nil
}

// placeholderName derives a display name from the local part of the address
// for users who never supplied one.
func placeholderName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
