package firebase

import (
	"context"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/anonto42/chirpline/backend/internal/models"
)

// App holds the initialized Firebase app and auth client
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
}

// InitFirebase initializes the Firebase application and authentication client
func InitFirebase(ctx context.Context, credentialsPath string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}

	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	firebaseApp, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	return &App{FirebaseApp: firebaseApp, AuthClient: authClient}, nil
}

// IdentityProvider resolves identity-provider subjects into profile seeds.
type IdentityProvider struct {
	client *auth.Client
}

func NewIdentityProvider(client *auth.Client) *IdentityProvider {
	return &IdentityProvider{client: client}
}

// LookupIdentity fetches the Firebase user record for uid.
func (p *IdentityProvider) LookupIdentity(ctx context.Context, uid string) (*models.Identity, error) {
	record, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("get firebase user %s: %w", uid, err)
	}

	firstName, lastName := splitDisplayName(record.DisplayName)
	return &models.Identity{
		UID:            record.UID,
		Email:          record.Email,
		FirstName:      firstName,
		LastName:       lastName,
		ProfilePicture: record.PhotoURL,
	}, nil
}

func splitDisplayName(name string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}
