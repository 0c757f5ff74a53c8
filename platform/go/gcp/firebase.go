// Package gcp builds Google Cloud clients from explicit configuration.
package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Credentials selects how clients authenticate. An empty path uses application default credentials.
type Credentials struct {
	File      string
	ProjectID string
}

func (c Credentials) options() []option.ClientOption {
	if c.File == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.File)}
}

// NewFirebaseApp creates a Firebase App instance.
func NewFirebaseApp(ctx context.Context, creds Credentials) (*firebase.App, error) {
	var cfg *firebase.Config
	if creds.ProjectID != "" {
		cfg = &firebase.Config{ProjectID: creds.ProjectID}
	}
	app, err := firebase.NewApp(ctx, cfg, creds.options()...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}

// NewFirebaseAuth returns an Auth client used to verify ID tokens when AUTH_PROVIDER=firebase.
func NewFirebaseAuth(ctx context.Context, creds Credentials) (*firebaseauth.Client, error) {
	app, err := NewFirebaseApp(ctx, creds)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}
	return client, nil
}

// NewStorageClient returns a Cloud Storage client for tenant assets.
func NewStorageClient(ctx context.Context, creds Credentials) (*storage.Client, error) {
	client, err := storage.NewClient(ctx, creds.options()...)
	if err != nil {
		return nil, fmt.Errorf("initialize storage client: %w", err)
	}
	return client, nil
}
