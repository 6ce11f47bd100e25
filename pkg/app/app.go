package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	appevents "github.com/rescp17/s3tui/internal/app_events"
	"github.com/rescp17/s3tui/internal/app_events/transfers"
	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/model"
	"github.com/rescp17/s3tui/pkg/persistence"
	"github.com/rescp17/s3tui/pkg/s3client"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// DataPlane moves bytes for a single job. Upload and Download must return
// promptly once ctx is done, with context.Cause(ctx) as the error.
type DataPlane interface {
	Upload(ctx context.Context, req s3client.UploadRequest) error
	Download(ctx context.Context, req s3client.DownloadRequest) error
	ListObjects(ctx context.Context, creds credentials.FileCredential, bucket, prefix string) ([]s3client.Object, error)
}

var _ DataPlane = (*s3client.Transferer)(nil)

// Options wires the App to its collaborators
type Options struct {
	Config      *transfer.TransferConfig
	Manager     *transfer.Manager
	DataPlane   DataPlane
	Progress    <-chan transfer.Progress
	Snapshots   *persistence.Store
	Credentials credentials.Set
	Now         func() time.Time
}

type progressEntry struct {
	last      transfer.Progress
	startedAt time.Time
}

// App is the application controller. It owns the selection lists and
// moves them through the transfer manager.
type App struct {
	config    *transfer.TransferConfig
	manager   *transfer.Manager
	plane     DataPlane
	progress  <-chan transfer.Progress
	snapshots *persistence.Store
	creds     credentials.Set
	now       func() time.Time

	mu         sync.Mutex // guards the selections and progress
	s3Items    []model.S3SelectedItem
	localItems []model.LocalSelectedItem
	bytes      map[transfer.JobID]progressEntry

	uiMessages   chan tea.Msg            // App -> TUI
	appEvents    chan appevents.AppEvent // TUI -> App
	saveRequests chan struct{}
}

// NewApp creates an application controller
func NewApp(opts Options) (*App, error) {
	if opts.Manager == nil || opts.DataPlane == nil {
		return nil, errors.New("app requires a manager and a data plane")
	}
	if opts.Config == nil {
		opts.Config = transfer.DefaultTransferConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &App{
		config:       opts.Config,
		manager:      opts.Manager,
		plane:        opts.DataPlane,
		progress:     opts.Progress,
		snapshots:    opts.Snapshots,
		creds:        opts.Credentials,
		now:          opts.Now,
		bytes:        make(map[transfer.JobID]progressEntry),
		uiMessages:   make(chan tea.Msg, opts.Config.EventBufferSize),
		appEvents:    make(chan appevents.AppEvent, 16),
		saveRequests: make(chan struct{}, 1),
	}, nil
}

// UIMessages returns the channel for the UI to listen on for updates.
func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

// AppEvents returns a write-only channel for the TUI to send events to the app.
func (a *App) AppEvents() chan<- appevents.AppEvent {
	return a.appEvents
}

// Restore loads the last saved selection and re-binds each item to the
// loaded credential of the same name. Items whose credential is gone are
// kept; they fail when run.
func (a *App) Restore() error {
	if a.snapshots == nil {
		return nil
	}
	saved, err := a.snapshots.Load()
	if err != nil {
		return fmt.Errorf("failed to load pending transfers: %w", err)
	}

	model.WalkS3(saved.S3Items, func(item *model.S3SelectedItem) bool {
		item.Creds = a.bind(item.Creds)
		return false
	})
	model.WalkLocal(saved.LocalItems, func(item *model.LocalSelectedItem) bool {
		item.Creds = a.bind(item.Creds)
		return false
	})

	a.mu.Lock()
	a.s3Items = append(a.s3Items, saved.S3Items...)
	a.localItems = append(a.localItems, saved.LocalItems...)
	a.mu.Unlock()

	if !saved.Empty() {
		slog.Info("Restored pending transfers", "downloads", len(saved.S3Items), "uploads", len(saved.LocalItems))
	}
	return nil
}

func (a *App) bind(ref credentials.FileCredential) credentials.FileCredential {
	cred, err := a.creds.Bind(ref)
	if err != nil {
		slog.Warn("Credential for restored item not found", "credential", ref.Name, "error", err)
	}
	return cred
}

// AddS3 selects objects or prefixes for download. Items already selected
// are skipped.
func (a *App) AddS3(items ...model.S3SelectedItem) {
	a.mu.Lock()
	for _, item := range items {
		if !model.ContainsS3(a.s3Items, item) {
			a.s3Items = append(a.s3Items, item)
		}
	}
	a.mu.Unlock()
	a.selectionChanged()
}

// AddLocal selects local files or directories for upload. Items already
// selected are skipped.
func (a *App) AddLocal(items ...model.LocalSelectedItem) {
	a.mu.Lock()
	for _, item := range items {
		if !model.ContainsLocal(a.localItems, item) {
			a.localItems = append(a.localItems, item)
		}
	}
	a.mu.Unlock()
	a.selectionChanged()
}

// Items returns the transfers table rows with live byte counters
func (a *App) Items() []model.TransferItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows := model.TransferItems(a.s3Items, a.localItems)
	for i, row := range rows {
		if entry, ok := a.bytes[row.JobID]; ok && row.JobID != 0 {
			rows[i] = row.WithProgress(entry.last, entry.startedAt)
		}
	}
	return rows
}

// Stats exposes the manager's counters for the status bar
func (a *App) Stats() transfer.Stats {
	return a.manager.Stats()
}

// Run starts the worker pool and the application's event loops. It
// returns after ctx is cancelled. Active jobs are stopped with their
// checkpoints kept and the selection is saved one last time.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < a.config.Concurrency; i++ {
		g.Go(func() error {
			return a.runWorker(ctx)
		})
	}
	g.Go(func() error {
		return a.runStateChanges()
	})
	g.Go(func() error {
		return a.runProgress(ctx)
	})
	g.Go(func() error {
		return a.runSaver(ctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				a.manager.Close()
				return nil
			case event := <-a.appEvents:
				a.handleEvent(ctx, event)
			}
		}
	})

	err := g.Wait()
	if saveErr := a.save(); saveErr != nil {
		err = errors.Join(err, saveErr)
	}
	return err
}

func (a *App) handleEvent(ctx context.Context, event appevents.AppEvent) {
	switch e := event.(type) {
	case transfers.RunTransfersMsg:
		a.RunTransfers(ctx)
	case transfers.PauseTransferMsg:
		a.report("Failed to pause transfer", a.Pause(e.Item))
	case transfers.ResumeTransferMsg:
		a.report("Failed to resume transfer", a.Resume(e.Item))
	case transfers.CancelTransferMsg:
		a.report("Failed to cancel transfer", a.Cancel(e.Item))
	case transfers.ClearFinishedMsg:
		a.ClearFinished()
	default:
		slog.Warn("Unhandled app event", "event", fmt.Sprintf("%T", event))
	}
}

// notify sends msg to the UI without blocking. The UI re-reads Items on
// every message, so a dropped message only delays a redraw.
func (a *App) notify(msg tea.Msg) {
	select {
	case a.uiMessages <- msg:
	default:
		slog.Debug("UI message dropped", "message", fmt.Sprintf("%T", msg))
	}
}

// report logs err and forwards it to the UI
func (a *App) report(baseMessage string, err error) {
	if err == nil {
		return
	}
	slog.Error(baseMessage, "error", err)
	a.notify(appevents.AppErrorMsg{Err: fmt.Errorf("%s: %w", baseMessage, err)})
}

func (a *App) selectionChanged() {
	a.requestSave()
	a.notify(transfers.SelectionChangedMsg{})
}
