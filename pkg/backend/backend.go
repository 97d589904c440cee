package backend

import (
	"context"
	"path/filepath"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/cache"
	"github.com/matst80/securityapp/pkg/common"
	"github.com/matst80/securityapp/pkg/config"
	"github.com/matst80/securityapp/pkg/firebase"
	"github.com/matst80/securityapp/pkg/records"
	"github.com/matst80/securityapp/pkg/storage"
	"github.com/matst80/securityapp/pkg/types"
)

// Backend is the set of external services a command runs against: Firebase,
// or the on-disk replacements when LOCAL_DATA_DIR is set.
type Backend struct {
	Store    types.DocumentStore
	Auth     types.AuthProvider
	Blobs    types.BlobStore
	Notifier types.LoginNotifier
	Cache    *cache.Cache
	// BlobFolder is set when blobs are stored on disk and served by the api.
	BlobFolder string
	closers    []common.ShutdownHook
}

// LogNotifier only logs login notifications.
type LogNotifier struct{}

func (LogNotifier) NotifyLogin(ctx context.Context, account types.Account, record types.Record) error {
	log.WithFields(log.Fields{
		"uid":     account.ID,
		"devices": len(account.DeviceTokens),
	}).Printf("login on %q at %s", record.Label, record.Timestamp)
	return nil
}

func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	var b *Backend
	var err error
	if cfg.Local() {
		b, err = openLocal(cfg)
	} else {
		b, err = openFirebase(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Redis.Enabled() {
		b.Cache = cache.NewCache(cfg.Redis.Options())
		if err := b.Cache.Ping(ctx); err != nil {
			log.Printf("redis not reachable, views are cached locally only: %v", err)
		}
		b.closers = append(b.closers, func(ctx context.Context) error { return b.Cache.Close() })
	}
	return b, nil
}

func openLocal(cfg config.Config) (*Backend, error) {
	disk := storage.NewDiskStorage(cfg.LocalDataDir)
	store, err := storage.NewPersistentMemoryStore(disk)
	if err != nil {
		return nil, err
	}
	auth, err := storage.NewPersistentMemoryAuth(disk)
	if err != nil {
		return nil, err
	}
	blobs := storage.NewDiskBlobStore(disk, cfg.PublicURL)
	folder, err := filepath.Abs(blobs.Folder())
	if err != nil {
		return nil, errors.Wrap(err, "blob folder")
	}
	log.Printf("using local data in %s", cfg.LocalDataDir)
	return &Backend{
		Store:      store,
		Auth:       auth,
		Blobs:      blobs,
		Notifier:   LogNotifier{},
		BlobFolder: folder,
		closers:    []common.ShutdownHook{func(ctx context.Context) error { return store.Save() }},
	}, nil
}

func openFirebase(ctx context.Context, cfg config.Config) (*Backend, error) {
	app, err := firebase.NewApp(ctx, cfg.Firebase.Options())
	if err != nil {
		return nil, err
	}
	store, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	auth, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := app.Notifier(ctx)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		Store:    store,
		Auth:     auth,
		Notifier: notifier,
		closers:  []common.ShutdownHook{func(ctx context.Context) error { return store.Close() }},
	}
	if cfg.Firebase.StorageBucket != "" {
		if b.Blobs, err = app.Blobs(ctx); err != nil {
			return nil, err
		}
	} else {
		log.Printf("no storage bucket configured, profile pictures are disabled")
		b.Blobs = noBlobs{}
	}
	return b, nil
}

type noBlobs struct{}

func (noBlobs) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	return "", errors.New("blob storage is not configured")
}

// Aggregator builds the record aggregator, with the view cache when redis is configured.
func (b *Backend) Aggregator(schema types.Schema) *records.Aggregator {
	var opts []records.Option
	if b.Cache != nil {
		opts = append(opts, records.WithCache(b.Cache))
	}
	return records.NewAggregator(b.Store, schema, opts...)
}

// Hooks are run on shutdown to flush and close the backend.
func (b *Backend) Hooks() []common.ShutdownHook {
	return b.closers
}

func (b *Backend) Close(ctx context.Context) {
	common.RunHooks(ctx, 0, b.closers...)
}
