package downloader

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"sync"
	"time"

	"github.com/cesargomez89/downpour/internal/app"
	"github.com/cesargomez89/downpour/internal/constants"
	"github.com/cesargomez89/downpour/internal/domain"
	"github.com/cesargomez89/downpour/internal/httpclient"
	"github.com/cesargomez89/downpour/internal/logger"
	"github.com/cesargomez89/downpour/internal/queue"
	"github.com/cesargomez89/downpour/internal/tagging"
)

// TagFunc writes metadata into a finished file. Failures are logged, never
// fatal.
type TagFunc func(path string, meta tagging.Meta, art []byte) error

// Pool claims queued tasks and runs downloads, at most Max at a time. It only
// ever touches the task store through short mutations and hands finished
// tasks to the engine for history promotion.
type Pool struct {
	Tasks  *queue.Store
	Engine *app.Engine
	Prober Prober
	Runner Runner
	Thumbs *httpclient.Client
	Tag    TagFunc
	Max    int
	Log    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup
}

func NewPool(tasks *queue.Store, engine *app.Engine, prober Prober, runner Runner, thumbs *httpclient.Client, tag TagFunc, max int, log *logger.Logger) *Pool {
	if max <= 0 {
		max = constants.DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		Tasks:  tasks,
		Engine: engine,
		Prober: prober,
		Runner: runner,
		Thumbs: thumbs,
		Tag:    tag,
		Max:    max,
		Log:    log.WithComponent("worker"),
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, max),
	}
}

func (p *Pool) Start() {
	p.wg.Add(1)
	go p.loop()
	p.Log.Info("worker pool started", "max_concurrent", p.Max)
}

// Stop cancels in-flight downloads and waits for all workers to return.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.Log.Info("worker pool stopped")
}

func (p *Pool) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(constants.DefaultPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.dispatch()
		}
	}
}

// dispatch claims queued tasks while worker slots are free. The slot is
// reserved before the claim so a claimed task always has a worker.
func (p *Pool) dispatch() {
	for {
		select {
		case p.sem <- struct{}{}:
		default:
			return
		}
		task, ok := p.Tasks.ClaimNext()
		if !ok {
			<-p.sem
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer func() { <-p.sem }()
			p.run(task)
		}()
	}
}

func (p *Pool) run(task domain.DownloadTask) {
	log := p.Log.WithTask(task.ID, task.URL)

	ctx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	go p.watchCancel(ctx, cancel, task.ID)

	info := p.resolve(ctx, task.ID, task.URL, log)

	fresh, ok := p.Tasks.Get(task.ID)
	if !ok || fresh.Status != domain.StatusDownloading {
		return
	}

	res, err := p.Runner.Run(ctx, fresh, &taskEvents{tasks: p.Tasks, id: task.ID})

	if cur, ok := p.Tasks.Get(task.ID); !ok || cur.Status == domain.StatusCancelled {
		// Cancelled mid-flight. The task either stays visible as cancelled
		// or was already removed by a delete; either way nothing to record.
		log.Info("download cancelled")
		return
	}
	if p.ctx.Err() != nil {
		// Shutdown, not a task-level failure.
		return
	}
	if err != nil {
		log.Error("download failed", "error", err)
		p.Tasks.Mutate(task.ID, func(t *domain.DownloadTask) {
			if t.Transition(domain.StatusError) {
				t.ErrorMessage = err.Error()
			}
		})
		return
	}

	p.finish(task.ID, res, info, log)
}

// watchCancel polls the task and tears the download context down when the
// task is cancelled or removed.
func (p *Pool) watchCancel(ctx context.Context, cancel context.CancelFunc, id uint64) {
	ticker := time.NewTicker(constants.CancelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t, ok := p.Tasks.Get(id)
			if !ok || t.Status == domain.StatusCancelled {
				cancel()
				return
			}
		}
	}
}

// resolve probes metadata and folds it into the task. Retried tasks arrive
// already seeded with their playlist items; those are kept.
func (p *Pool) resolve(ctx context.Context, id uint64, url string, log *logger.Logger) *Info {
	if p.Prober == nil {
		return nil
	}
	info, err := p.Prober.Probe(ctx, url)
	if err != nil {
		log.Warn("metadata probe failed", "error", err)
		return nil
	}
	p.Tasks.Mutate(id, func(t *domain.DownloadTask) {
		if t.Filename == "" {
			t.Filename = info.Title
		}
		if len(info.ItemTitles) > 1 {
			t.IsPlaylist = true
			if t.PlaylistName == "" {
				t.PlaylistName = info.PlaylistName
			}
			if len(t.PlaylistItems) == 0 {
				t.TotalPlaylistItems = len(info.ItemTitles)
				for _, title := range info.ItemTitles {
					t.PlaylistItems = append(t.PlaylistItems, domain.PlaylistItem{Title: title})
				}
			}
		}
	})
	return info
}

// finish finalizes a successful run: terminal status, thumbnail, tags, and
// promotion into history.
func (p *Pool) finish(id uint64, res *Result, info *Info, log *logger.Logger) {
	final := domain.StatusCompleted
	if res.AlreadyExists {
		final = domain.StatusAlreadyExists
	}
	p.Tasks.Mutate(id, func(t *domain.DownloadTask) {
		if !t.Transition(final) {
			return
		}
		t.Progress = 1
		if res.FilePath != "" {
			t.FilePath = res.FilePath
			t.Filename = Filename(res.FilePath)
		}
		if res.FileSize > 0 {
			t.FileSize = res.FileSize
		}
	})

	var art []byte
	thumbB64 := ""
	if p.Thumbs != nil && info != nil && info.ThumbnailURL != "" {
		data, err := p.Thumbs.FetchBytes(p.ctx, info.ThumbnailURL)
		if err != nil {
			log.Warn("thumbnail fetch failed", "error", err)
		} else {
			art = data
			thumbB64 = base64.StdEncoding.EncodeToString(data)
		}
	}

	if p.Tag != nil && final == domain.StatusCompleted {
		p.tagFiles(id, info, art, log)
	}

	if _, ok := p.Engine.RecordFinished(id, thumbB64); ok {
		log.Info("download recorded", "status", string(final))
	}
}

func (p *Pool) tagFiles(id uint64, info *Info, art []byte, log *logger.Logger) {
	t, ok := p.Tasks.Get(id)
	if !ok {
		return
	}
	title := t.Filename
	if info != nil && info.Title != "" {
		title = info.Title
	}
	paths := []string{t.FilePath}
	if t.IsPlaylist {
		paths = paths[:0]
		for i := range t.PlaylistItems {
			if t.PlaylistItems[i].Downloaded && t.PlaylistItems[i].FilePath != "" {
				paths = append(paths, t.PlaylistItems[i].FilePath)
			}
		}
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		meta := tagging.Meta{Title: title, Album: t.PlaylistName}
		if t.IsPlaylist {
			meta.Title = trimExt(path)
		}
		if err := p.Tag(path, meta, art); err != nil {
			log.Warn("tagging failed", "path", path, "error", err)
		}
	}
}

func trimExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// taskEvents folds runner callbacks into task mutations. Each callback is a
// single short critical section.
type taskEvents struct {
	tasks *queue.Store
	id    uint64
}

func (e *taskEvents) OnProgress(progress float64) {
	e.tasks.Mutate(e.id, func(t *domain.DownloadTask) {
		if t.Status == domain.StatusDownloading {
			t.Progress = progress
		}
	})
}

func (e *taskEvents) OnItemStart(index int, title string) {
	e.tasks.Mutate(e.id, func(t *domain.DownloadTask) {
		if t.Status != domain.StatusDownloading {
			return
		}
		t.CurrentPlaylistItem = index
		t.CurrentItemTitle = title
		t.Progress = 0
	})
}

func (e *taskEvents) OnItemDone(index int, path string, size int64) {
	e.tasks.Mutate(e.id, func(t *domain.DownloadTask) {
		t.MarkItemDownloaded(index, path, size)
	})
}

func (e *taskEvents) OnDestination(path string) {
	e.tasks.Mutate(e.id, func(t *domain.DownloadTask) {
		if t.IsPlaylist {
			return
		}
		t.FilePath = path
		t.Filename = Filename(path)
	})
}
