package deps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parklistmc/parklist/config"
	"github.com/parklistmc/parklist/internal/db"
	"github.com/parklistmc/parklist/internal/db/sqlite"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/internal/vote"
	"github.com/parklistmc/parklist/internal/votifier"
	"github.com/parklistmc/parklist/util/email"
	"github.com/parklistmc/parklist/util/storage"
	"github.com/parklistmc/parklist/util/websockets"
)

// Store is everything the HTTP layer needs from persistence. Both the
// PostgreSQL and the SQLite backends satisfy it.
type Store interface {
	vote.Directory
	vote.Ledger

	ListPublishedListings(ctx context.Context) ([]model.Listing, error)
	ListListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Listing, error)
	ListingBySlug(ctx context.Context, slug string) (model.Listing, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreateListing(ctx context.Context, l model.Listing) (model.Listing, error)
	UpdateListing(ctx context.Context, l model.Listing) (model.Listing, error)
	CountVotes(ctx context.Context, listingID string) (int64, error)

	CreateUser(ctx context.Context, u model.User) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error
	AccountByProvider(ctx context.Context, provider, providerAccountID string) (model.Account, error)
	CreateAccount(ctx context.Context, a model.Account) error
	CreatePasswordReset(ctx context.Context, r model.PasswordReset) error
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)

	Migrate(ctx context.Context) error
	Close() error
}

// BannerUploader stores listing banner images and returns their public URL.
type BannerUploader interface {
	UploadBanner(ctx context.Context, source, slug string) (string, error)
}

type Dependencies struct {
	Store      Store
	Engine     *vote.Engine
	Resolver   *vote.Resolver
	Cloudinary BannerUploader
	WebSocket  *websockets.WebSocketManager
	Mailer     email.Sender
	Votifier   *votifier.Forwarder
	Logger     *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	resolver, err := vote.NewResolver(cfg.IPHashSalt)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	cloudinary, err := storage.NewCloudinary(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	deps := Dependencies{
		Store:      store,
		Engine:     vote.NewEngine(store, store, vote.WithLogger(logger)),
		Resolver:   resolver,
		Cloudinary: cloudinary,
		WebSocket:  websockets.NewWebSocketManager(),
		Mailer:     newMailer(cfg, logger),
		Votifier:   votifier.NewForwarder(cfg.VotifierServiceName, logger),
		Logger:     logger,
	}
	return &deps, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		logger.Info("using sqlite store", "path", cfg.SQLitePath)
		return sqlite.New(cfg.SQLitePath, logger)
	default:
		database, err := db.New(cfg.Dsn, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return database, nil
	}
}

func newMailer(cfg *config.Config, logger *slog.Logger) email.Sender {
	switch {
	case cfg.SMTPHost != "":
		return email.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	case cfg.AuthEmailLog || !cfg.IsProduction():
		return email.LogMailer{Logger: logger}
	default:
		return email.DisabledMailer{Logger: logger}
	}
}

func (d *Dependencies) Close() error {
	d.Votifier.Wait()
	return d.Store.Close()
}
