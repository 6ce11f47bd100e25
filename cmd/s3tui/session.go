package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rescp17/s3tui/internal/app_events/transfers"
	"github.com/rescp17/s3tui/internal/config"
	"github.com/rescp17/s3tui/internal/logger"
	"github.com/rescp17/s3tui/pkg/app"
	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/persistence"
	"github.com/rescp17/s3tui/pkg/resumable"
	"github.com/rescp17/s3tui/pkg/s3client"
	"github.com/rescp17/s3tui/pkg/transfer"
	"github.com/rescp17/s3tui/pkg/ui"
)

// loadConfig reads the environment and applies flag overrides
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.credsFile != "" {
		cfg.CredsFile = f.credsFile
	}
	if f.concurrency != 0 {
		cfg.Concurrency = f.concurrency
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is everything one interactive run owns
type session struct {
	cfg   *config.Config
	creds credentials.Set
	app   *app.App
	store *resumable.Store
	logs  io.Closer
}

func openSession(f flags) (*session, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	level, _ := cfg.Level()
	_, logs := logger.Init(cfg.LogFile, level)

	s := &session{cfg: cfg, logs: logs}
	if err := s.open(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) open() error {
	creds, err := credentials.Load(s.cfg.CredsFile, s.cfg.CredsDir())
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	s.creds = creds

	tc := s.cfg.TransferConfig()
	manager, err := transfer.NewManager(tc)
	if err != nil {
		return err
	}

	s.store, err = resumable.Open(s.cfg.DataDir)
	if err != nil {
		if errors.Is(err, resumable.ErrStoreLocked) {
			return fmt.Errorf("another s3tui is using %s: %w", s.cfg.DataDir, err)
		}
		return err
	}

	progress := make(chan transfer.Progress, tc.ProgressBufferSize)
	plane := s3client.NewTransferer(s3client.NewClientCache(nil), s.store, tc, progress)

	s.app, err = app.NewApp(app.Options{
		Config:      tc,
		Manager:     manager,
		DataPlane:   plane,
		Progress:    progress,
		Snapshots:   persistence.New(s.cfg.DataDir),
		Credentials: creds,
	})
	if err != nil {
		return err
	}
	return s.app.Restore()
}

// credential picks the credential named by --credential or the selected one
func (s *session) credential(name string) (credentials.FileCredential, error) {
	return pickCredential(s.creds, name)
}

func pickCredential(creds credentials.Set, name string) (credentials.FileCredential, error) {
	if name != "" {
		return creds.Lookup(name)
	}
	cred, ok := creds.Selected()
	if !ok {
		return credentials.FileCredential{}, credentials.ErrNoCredentials
	}
	return cred, nil
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to release transfer state lock", "error", err)
		}
	}
	if err := s.logs.Close(); err != nil {
		slog.Warn("Failed to close log file", "error", err)
	}
}

// runTUI opens a session, lets prepare add selections, and runs the
// transfers page until the user quits. Selections added by prepare are
// started right away.
func runTUI(ctx context.Context, f flags, prepare func(*session) error) error {
	s, err := openSession(f)
	if err != nil {
		return err
	}
	defer s.Close()

	autorun := false
	if prepare != nil {
		if err := prepare(s); err != nil {
			return err
		}
		autorun = true
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.app.Run(ctx) }()

	if autorun {
		s.app.AppEvents() <- transfers.RunTransfersMsg{}
	}

	p := tea.NewProgram(ui.NewModel(s.app), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		runErr = nil // interrupted by a signal
	}

	cancel()
	if err := <-done; err != nil {
		slog.Error("App stopped with error", "error", err)
		runErr = errors.Join(runErr, err)
	}
	slog.Info("Session ended", "data_dir", s.cfg.DataDir)
	return runErr
}
