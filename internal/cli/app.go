package cli

import (
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/jasperwreed/guidera-chat/internal/audit"
	"github.com/jasperwreed/guidera-chat/internal/chat"
	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/logger"
	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/session"
	"github.com/jasperwreed/guidera-chat/internal/storage"
)

// app bundles what most commands need: the database, the session stored in
// it and an API client bound to that session.
type app struct {
	store   *storage.SQLiteStore
	session *session.Store
	client  *client.Client
	audit   *audit.Log
}

func openApp() (*app, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	sess := session.NewStore(store)
	api := client.New(cfg.API.BaseURL, sess,
		client.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout()}),
		client.WithLogger(logger.L().Named("client")),
	)
	return &app{store: store, session: sess, client: api}, nil
}

func openStore() (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func (a *app) Close() error {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			logger.Warn("failed to close audit log", zap.Error(err))
		}
	}
	return a.store.Close()
}

// generator is the client, wrapped in an audit recorder when the audit
// trail is enabled.
func (a *app) generator() (chat.Generator, error) {
	if !cfg.Audit.Enabled {
		return a.client, nil
	}
	if a.audit == nil {
		log, err := audit.Open(audit.Config{
			Dir:          cfg.Audit.Dir,
			MaxShardSize: cfg.Audit.MaxShardSize(),
			Compress:     cfg.Audit.Compress,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		a.audit = log
	}
	return audit.NewRecorder(a.client, a.audit, logger.L().Named("audit")), nil
}

// controller builds a chat controller seeded with the stored history that
// writes every change back to the database.
func (a *app) controller(notifier chat.Notifier) (*chat.Controller, error) {
	gen, err := a.generator()
	if err != nil {
		return nil, err
	}

	ctrl := chat.New(gen,
		chat.WithNotifier(notifier),
		chat.WithLogger(logger.L().Named("chat")),
	)

	saved, err := a.store.ListMessages(0, 0, storage.MessageFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	ctrl.Restore(saved)
	persistHistory(ctrl, a.store)
	return ctrl, nil
}

// persistHistory syncs the controller's current history on every change.
// It reads History() under its own lock instead of trusting the listener's
// snapshot, so overlapping cycles never write an older state last.
func persistHistory(ctrl *chat.Controller, store *storage.SQLiteStore) {
	var mu sync.Mutex
	ctrl.OnChange(func([]models.Message) {
		mu.Lock()
		defer mu.Unlock()
		if err := store.SyncMessages(ctrl.History()); err != nil {
			logger.Error("failed to persist history", zap.Error(err))
		}
	})
}

func defaultOptions() chat.Options {
	return chat.Options{
		Tradeoff:          cfg.Chat.Tradeoff,
		ComplianceEnabled: cfg.Chat.ComplianceEnabled,
	}
}
