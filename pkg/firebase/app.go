package firebase

import (
	"context"
	"os"

	fb "firebase.google.com/go/v4"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

type Options struct {
	ProjectID       string
	CredentialsFile string
	StorageBucket   string
	// APIKey is the web api key, required for password sign-in.
	APIKey string
}

// App wraps the admin SDK app and hands out the service adapters.
type App struct {
	app  *fb.App
	opts Options
}

// resolveProjectID reads the project from the service account or the
// application default credentials when it is not configured.
func resolveProjectID(ctx context.Context, opts Options) string {
	if opts.ProjectID != "" {
		return opts.ProjectID
	}
	var creds *google.Credentials
	var err error
	if opts.CredentialsFile != "" {
		data, readErr := os.ReadFile(opts.CredentialsFile)
		if readErr != nil {
			log.Printf("could not read credentials file: %v", readErr)
			return ""
		}
		creds, err = google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, cloudPlatformScope)
	}
	if err != nil {
		log.Printf("could not find default credentials: %v", err)
		return ""
	}
	return creds.ProjectID
}

func NewApp(ctx context.Context, opts Options) (*App, error) {
	opts.ProjectID = resolveProjectID(ctx, opts)
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	app, err := fb.NewApp(ctx, &fb.Config{
		ProjectID:     opts.ProjectID,
		StorageBucket: opts.StorageBucket,
	}, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "initialize firebase app")
	}
	log.Printf("firebase app initialized for project %q", opts.ProjectID)
	return &App{app: app, opts: opts}, nil
}

func (a *App) Firestore(ctx context.Context) (*FirestoreStore, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "firestore client")
	}
	return NewFirestoreStore(client), nil
}

func (a *App) Notifier(ctx context.Context) (*Notifier, error) {
	client, err := a.app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "messaging client")
	}
	return &Notifier{client: client}, nil
}
