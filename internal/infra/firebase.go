// README: Firebase Admin SDK initialisation, token verifier and identity lookups.
package infra

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"gohappygo/internal/notify"
	"gohappygo/internal/types"
)

// FirebaseToken holds the verified token data used by downstream middleware.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw Firebase ID token string and returns token data.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

// NewFirebaseApp builds the shared Admin SDK app. If credentialsFile is empty
// application-default credentials / GOOGLE_APPLICATION_CREDENTIALS are used.
func NewFirebaseApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	return app, nil
}

type firebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, app *firebase.App) (TokenVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}

// VerifiedClaim is the custom claim set by the KYC flow once a user passed
// identity verification.
const VerifiedClaim = "verified"

// FirebaseIdentity answers "is this user verified" from Firebase Auth custom claims.
type FirebaseIdentity struct {
	client *auth.Client
}

func NewFirebaseIdentity(ctx context.Context, app *firebase.App) (*FirebaseIdentity, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	return &FirebaseIdentity{client: client}, nil
}

func (f *FirebaseIdentity) IsVerified(ctx context.Context, userID types.ID) (bool, error) {
	rec, err := f.client.GetUser(ctx, string(userID))
	if auth.IsUserNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("infra.FirebaseIdentity.IsVerified: %w", err)
	}
	return ClaimTrue(rec.CustomClaims, VerifiedClaim), nil
}

// Contact resolves the email channel address for a user.
func (f *FirebaseIdentity) Contact(ctx context.Context, userID types.ID) (notify.Contact, error) {
	rec, err := f.client.GetUser(ctx, string(userID))
	if err != nil {
		return notify.Contact{}, fmt.Errorf("infra.FirebaseIdentity.Contact: %w", err)
	}
	return notify.Contact{Email: rec.Email, Name: rec.DisplayName}, nil
}

// StaticIdentity is a fixed allow-list, used in tests and local development.
// A nil map with AllowAll set verifies everybody.
type StaticIdentity struct {
	Verified map[types.ID]bool
	AllowAll bool
}

func (s StaticIdentity) IsVerified(_ context.Context, userID types.ID) (bool, error) {
	if s.AllowAll {
		return true, nil
	}
	return s.Verified[userID], nil
}

func ClaimTrue(claims map[string]interface{}, key string) bool {
	v, ok := claims[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
