package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/tora/internal/config"
	"github.com/nikbrunner/tora/internal/docstore"
	"github.com/nikbrunner/tora/internal/mutation"
	"github.com/nikbrunner/tora/internal/notify"
	"github.com/nikbrunner/tora/internal/pin"
	"github.com/nikbrunner/tora/internal/projection"
	"github.com/nikbrunner/tora/internal/session"
	"github.com/nikbrunner/tora/internal/syncer"
)

// readyTimeout bounds the wait for the first snapshot of both collections.
const readyTimeout = 15 * time.Second

// app is one signed-in session: store, sync engine and the write side.
type app struct {
	cfg *config.Config
	log *logrus.Logger

	store    docstore.Store
	notifier notify.Notifier
	ownStore bool

	session *session.Manual
	engine  *syncer.Engine
	mutate  *mutation.Service
	vault   *pin.Vault
	userID  string

	stop context.CancelFunc
	done chan error
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigFilePath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv()

	if opts.user != "" {
		cfg.DefaultUser = opts.user
	}
	if opts.db != "" {
		cfg.DBPath = opts.db
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// openApp builds the store, starts the sync engine, signs the configured user
// in and waits until their folders and links are loaded.
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)
	if opts.logOutput != nil {
		log.SetOutput(opts.logOutput)
	}

	a := &app{cfg: cfg, log: log, userID: cfg.DefaultUser}
	if err := a.openStore(ctx, opts); err != nil {
		return nil, err
	}

	a.session = session.NewManual()
	a.engine = syncer.New(a.store, log)
	a.mutate = mutation.New(a.store, a.session, log)
	a.vault = pin.NewVault(pin.NewStoreGate(a.store))

	runCtx, cancel := context.WithCancel(ctx)
	a.stop = cancel
	a.done = make(chan error, 1)
	go func() {
		a.done <- a.engine.Run(runCtx, a.session.Watch(runCtx))
	}()

	a.session.SignIn(session.User{ID: a.userID})

	waitCtx, cancelWait := context.WithTimeout(ctx, readyTimeout)
	defer cancelWait()
	st, err := a.engine.WaitUser(waitCtx, a.userID)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("waiting for %s to sync: %w", a.userID, err)
	}
	if st.LastErr != nil {
		log.WithError(st.LastErr).Warn("sync started with errors, data may be incomplete")
	}

	log.WithFields(logrus.Fields{
		"user_id": a.userID,
		"folders": len(st.Folders),
		"links":   len(st.Links),
	}).Debug("synced")
	return a, nil
}

func (a *app) openStore(ctx context.Context, opts *rootOptions) error {
	switch {
	case opts.store != nil:
		a.store = opts.store
		return nil
	case opts.memory:
		a.store = docstore.NewMemoryStore()
		a.ownStore = true
		return nil
	}

	if a.cfg.RedisAddr != "" {
		n, err := notify.NewRedis(ctx, a.cfg.RedisAddr, a.cfg.RedisChannel, a.log)
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", a.cfg.RedisAddr, err)
		}
		a.notifier = n
	}

	path := a.cfg.DBPath
	if path == "" {
		var err error
		if path, err = docstore.DefaultSQLitePath(); err != nil {
			return err
		}
	}

	store, err := docstore.NewSQLiteStore(path, a.notifier, a.log)
	if err != nil {
		if a.notifier != nil {
			a.notifier.Close()
		}
		return err
	}
	a.store = store
	a.ownStore = true
	return nil
}

// close stops the engine and releases the store.
func (a *app) close() {
	a.stop()
	if err := <-a.done; err != nil {
		a.log.WithError(err).Warn("sync engine stopped with error")
	}
	if a.ownStore {
		if err := a.store.Close(); err != nil {
			a.log.WithError(err).Warn("closing store")
		}
	}
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.log.WithError(err).Warn("closing notifier")
		}
	}
}

// view returns the projections of the synced data.
func (a *app) view() *projection.View {
	return a.engine.View()
}

// awaitVersion waits until the engine has applied a change newer than version,
// so a command can print the state that includes its own write.
func (a *app) awaitVersion(ctx context.Context, version int64) {
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := a.engine.WaitFor(waitCtx, func(s syncer.State) bool { return s.Version > version }); err != nil {
		a.log.WithError(err).Debug("no change observed after write")
	}
}

// unlockVault opens the vault when a PIN was given.
func (a *app) unlockVault(ctx context.Context, pinCode string) (bool, error) {
	if pinCode == "" {
		return false, nil
	}
	if _, err := a.vault.Unlock(ctx, a.userID, pinCode); err != nil {
		return false, err
	}
	return true, nil
}
