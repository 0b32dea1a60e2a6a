package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-photo-culler/internal/analyzer"
	"go-photo-culler/internal/cluster"
	apperrors "go-photo-culler/internal/errors"
	"go-photo-culler/internal/observer"
	"go-photo-culler/internal/storage"
	"go-photo-culler/internal/store"
	"go-photo-culler/pkg/classify"
	"go-photo-culler/pkg/models"
)

const (
	// StatusProcessing marks a run that is actively working through chunks.
	StatusProcessing = "processing"
	// StatusPaused marks a run suspended at a chunk boundary.
	StatusPaused = "paused"
	// StatusCompleted marks a run that processed every file.
	StatusCompleted = "completed"
	// StatusCancelled marks a run stopped before finishing.
	StatusCancelled = "cancelled"
)

// Orchestrator drives batch runs: it processes files in fixed-size chunks,
// records results, and clusters duplicates when a run finishes.
type Orchestrator struct {
	source     storage.ImageSource
	extractor  analyzer.Extractor
	classifier *classify.Classifier
	records    store.RecordStore
	publisher  *observer.EventPublisher
	pool       *WorkerPool
	logger     *logrus.Logger

	chunkSize int
	threshold float64
}

// Options configures an Orchestrator.
type Options struct {
	Source              storage.ImageSource
	Extractor           analyzer.Extractor
	Classifier          *classify.Classifier
	Records             store.RecordStore
	Publisher           *observer.EventPublisher
	Pool                *WorkerPool
	Logger              *logrus.Logger
	ChunkSize           int
	SimilarityThreshold float64
}

// New creates an Orchestrator. The worker pool is started if it has not been
// already.
func New(opts Options) *Orchestrator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 10
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = cluster.DefaultThreshold
	}
	if opts.Publisher == nil {
		opts.Publisher = observer.NewEventPublisher()
	}
	if opts.Pool == nil {
		opts.Pool = NewWorkerPool(0)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	opts.Pool.Start()

	return &Orchestrator{
		source:     opts.Source,
		extractor:  opts.Extractor,
		classifier: opts.Classifier,
		records:    opts.Records,
		publisher:  opts.Publisher,
		pool:       opts.Pool,
		logger:     opts.Logger,
		chunkSize:  opts.ChunkSize,
		threshold:  opts.SimilarityThreshold,
	}
}

// Run is one batch run in flight. Progress and control methods are safe to
// call from any goroutine while Execute runs.
type Run struct {
	ID int64

	orch    *Orchestrator
	items   []*Item
	control *Control

	mu       sync.Mutex
	progress models.BatchProgress
	status   string
	groups   []models.DuplicateGroup
}

// NewRun creates the batch record and prepares a run over the given files.
// Execute must be called exactly once to process it.
func (o *Orchestrator) NewRun(ctx context.Context, name string, files []models.BatchFile) (*Run, error) {
	if len(files) == 0 {
		return nil, apperrors.NewEmptyBatchError()
	}

	batchID, err := o.records.CreateBatch(ctx, name, len(files))
	if err != nil {
		return nil, apperrors.NewBatchCreationError(err)
	}

	items := make([]*Item, len(files))
	for i, f := range files {
		items[i] = newItem(i, f)
	}

	return &Run{
		ID:      batchID,
		orch:    o,
		items:   items,
		control: newControl(),
		status:  StatusProcessing,
		progress: models.BatchProgress{
			Total: len(files),
		},
	}, nil
}

// StartBatch creates a run and executes it synchronously.
func (o *Orchestrator) StartBatch(ctx context.Context, name string, files []models.BatchFile) (*Run, error) {
	run, err := o.NewRun(ctx, name, files)
	if err != nil {
		return nil, err
	}
	if err := run.Execute(ctx); err != nil {
		return nil, err
	}
	return run, nil
}

// Progress returns a snapshot of the run's counters.
func (r *Run) Progress() models.BatchProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Status returns the run's current status.
func (r *Run) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Groups returns the duplicate groups found when the run completed.
func (r *Run) Groups() []models.DuplicateGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups
}

// Pause suspends processing at the next chunk boundary. Items already in
// flight run to completion. A run that already finished cannot be paused.
func (r *Run) Pause() error {
	if err := r.transitionStatus(StatusPaused); err != nil {
		return err
	}
	r.control.Pause()
	r.orch.publisher.NotifyObservers(context.Background(), observer.BatchEvent{
		EventType: observer.BatchPaused,
		Timestamp: time.Now(),
		BatchID:   r.ID,
	})
	return nil
}

// Resume continues a paused run. A run that already finished cannot be
// resumed.
func (r *Run) Resume() error {
	if err := r.transitionStatus(StatusProcessing); err != nil {
		return err
	}
	r.control.Resume()
	r.orch.publisher.NotifyObservers(context.Background(), observer.BatchEvent{
		EventType: observer.BatchResumed,
		Timestamp: time.Now(),
		BatchID:   r.ID,
	})
	return nil
}

// Cancel stops the run before the next chunk. Results already recorded are
// kept; clustering is skipped.
func (r *Run) Cancel() {
	r.control.Cancel()
}

func terminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// transitionStatus writes a non-terminal status, rejecting the change once
// the run has reached completed or cancelled.
func (r *Run) transitionStatus(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if terminalStatus(r.status) {
		return apperrors.NewValidationError(
			fmt.Sprintf("batch %d is already %s", r.ID, r.status), nil)
	}
	r.status = s
	return nil
}

// itemOutcome is what one processed file reports back to the run goroutine.
type itemOutcome struct {
	imageID     int64
	metrics     *models.MetricResult
	disposition models.Disposition
	duration    time.Duration
	err         error
}

// Execute processes every file in chunks, persists results and counters, and
// clusters duplicates at the end. It returns once the run reaches a terminal
// status. Only the store's failure to record the batch itself is an error;
// individual file failures are recorded and counted, not propagated.
func (r *Run) Execute(ctx context.Context) error {
	o := r.orch
	log := o.logger.WithFields(logrus.Fields{"batch_id": r.ID, "total": len(r.items)})

	o.publisher.NotifyObservers(ctx, observer.BatchEvent{
		EventType: observer.BatchStarted,
		Timestamp: time.Now(),
		BatchID:   r.ID,
	})
	log.Info("Batch run started")

	cancelled := false
	outcomes := make([]itemOutcome, len(r.items))

	for start := 0; start < len(r.items); start += o.chunkSize {
		r.control.WaitWhilePaused()
		if r.control.Cancelled() {
			cancelled = true
			break
		}

		end := start + o.chunkSize
		if end > len(r.items) {
			end = len(r.items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			item := r.items[i]
			wg.Add(1)
			o.pool.Submit(func() {
				defer wg.Done()
				outcomes[item.Index] = o.processItem(ctx, r.ID, item)
			})
		}
		wg.Wait()

		// Merge in global index order so events are deterministic
		// regardless of worker scheduling, then fold the whole chunk
		// into the shared counters in one step so concurrent readers
		// only ever observe chunk boundaries.
		var tally chunkTally
		for i := start; i < end; i++ {
			r.mergeOutcome(ctx, r.items[i], outcomes[i], &tally)
		}
		r.applyTally(tally)

		if err := o.records.UpdateBatchCounters(ctx, r.ID, r.counters(), StatusProcessing); err != nil {
			log.WithError(err).Error("Failed to persist batch counters")
		}

		o.publisher.NotifyObservers(ctx, observer.BatchEvent{
			EventType: observer.ChunkSettled,
			Timestamp: time.Now(),
			BatchID:   r.ID,
			Progress:  r.progressPtr(),
		})
	}

	if cancelled {
		return r.finish(ctx, StatusCancelled, nil)
	}

	groups := r.clusterResults(outcomes)
	return r.finish(ctx, StatusCompleted, groups)
}

func (r *Run) counters() store.Counters {
	p := r.Progress()
	return store.Counters{
		Processed: p.Processed,
		Accepted:  p.Accepted,
		Rejected:  p.Rejected,
		Review:    p.Review,
	}
}

func (r *Run) progressPtr() *models.BatchProgress {
	p := r.Progress()
	return &p
}

// processItem runs the full pipeline for one file: load, extract, classify,
// persist. It never panics out; a panicking extractor is converted into an
// extraction error for that item alone.
func (o *Orchestrator) processItem(ctx context.Context, batchID int64, item *Item) (out itemOutcome) {
	start := time.Now()
	defer func() {
		out.duration = time.Since(start)
		if rec := recover(); rec != nil {
			out = itemOutcome{
				duration: time.Since(start),
				err:      apperrors.NewExtractionError(fmt.Sprintf("panic while processing %s: %v", item.File.Name, rec), nil),
			}
		}
	}()

	if err := item.Begin(); err != nil {
		return itemOutcome{err: apperrors.NewInternalError("invalid item state", err)}
	}

	decoded, err := o.source.Load(ctx, item.File.Ref)
	if err != nil {
		return itemOutcome{err: err}
	}

	metrics, err := o.extractor.Extract(decoded.Buf)
	if err != nil {
		return itemOutcome{err: err}
	}

	// Report the dimensions of the image as shot, not the analysis raster.
	metrics.Width = decoded.OrigWidth
	metrics.Height = decoded.OrigHeight

	disposition := o.classifier.Disposition(metrics.Overall)

	imageID, err := o.records.InsertImageResult(ctx, batchID, store.ImageResult{
		Filename:    item.File.Name,
		FileSize:    item.File.Size,
		Metrics:     metrics,
		Disposition: disposition,
	})
	if err != nil {
		return itemOutcome{err: apperrors.NewPersistenceError("failed to record image result", err)}
	}

	return itemOutcome{
		imageID:     imageID,
		metrics:     metrics,
		disposition: disposition,
	}
}

// chunkTally accumulates one chunk's counter movement so the shared progress
// can be updated once per chunk instead of once per item.
type chunkTally struct {
	processed int
	accepted  int
	rejected  int
	review    int
	errors    int
}

// mergeOutcome records one item's outcome and adds it to the chunk tally.
// Failed items count toward processed but toward no disposition bucket.
// Item events carry no progress snapshot; counters are published only when
// the chunk settles.
func (r *Run) mergeOutcome(ctx context.Context, item *Item, out itemOutcome, tally *chunkTally) {
	o := r.orch

	if out.err != nil {
		if err := item.Fail(); err != nil {
			o.logger.WithError(err).Warn("Item state transition rejected")
		}
		if _, err := o.records.InsertImageError(ctx, r.ID, item.File.Name, item.File.Size, out.err.Error()); err != nil {
			o.logger.WithError(err).Error("Failed to record image error")
		}
	} else {
		if err := item.Complete(); err != nil {
			o.logger.WithError(err).Warn("Item state transition rejected")
		}
	}

	tally.processed++
	if out.err != nil {
		tally.errors++
	} else {
		switch out.disposition {
		case models.DispositionAccepted:
			tally.accepted++
		case models.DispositionRejected:
			tally.rejected++
		default:
			tally.review++
		}
	}

	event := observer.BatchEvent{
		Timestamp:      time.Now(),
		BatchID:        r.ID,
		Filename:       item.File.Name,
		ProcessingTime: out.duration,
	}
	if out.err != nil {
		event.EventType = observer.ItemFailed
		event.ErrorMessage = out.err.Error()
	} else {
		event.EventType = observer.ItemCompleted
		event.Disposition = string(out.disposition)
	}
	o.publisher.NotifyObservers(ctx, event)
}

// applyTally folds a settled chunk into the run counters in a single locked
// update.
func (r *Run) applyTally(t chunkTally) {
	r.mu.Lock()
	r.progress.Processed += t.processed
	r.progress.Accepted += t.accepted
	r.progress.Rejected += t.rejected
	r.progress.Review += t.review
	r.progress.Errors += t.errors
	r.progress.Percentage = int(math.Round(100 * float64(r.progress.Processed) / float64(r.progress.Total)))
	r.mu.Unlock()
}

// clusterResults groups successfully processed images by fingerprint
// similarity and persists the groups.
func (r *Run) clusterResults(outcomes []itemOutcome) []models.DuplicateGroup {
	entries := make([]cluster.Entry, 0, len(outcomes))
	for i, out := range outcomes {
		if out.err != nil || out.metrics == nil {
			continue
		}
		entries = append(entries, cluster.Entry{
			ID:          out.imageID,
			Filename:    r.items[i].File.Name,
			Fingerprint: out.metrics.Fingerprint,
			Score:       out.metrics.Overall,
		})
	}
	return cluster.FindDuplicates(entries, r.orch.threshold)
}

func (r *Run) finish(ctx context.Context, status string, groups []models.DuplicateGroup) error {
	o := r.orch

	for _, g := range groups {
		memberIDs := make([]int64, len(g.Members))
		for i, m := range g.Members {
			memberIDs[i] = m.ID
		}
		groupID, err := o.records.CreateDuplicateGroup(ctx, r.ID, memberIDs, g.BestID, g.Similarity)
		if err != nil {
			o.logger.WithError(err).Error("Failed to persist duplicate group")
			continue
		}
		if err := o.records.LinkImagesToGroup(ctx, memberIDs, groupID); err != nil {
			o.logger.WithError(err).Error("Failed to link group members")
		}
	}

	r.mu.Lock()
	r.status = status
	r.groups = groups
	r.mu.Unlock()

	if err := o.records.UpdateBatchCounters(ctx, r.ID, r.counters(), status); err != nil {
		return apperrors.NewPersistenceError("failed to finalize batch", err)
	}

	eventType := observer.BatchCompleted
	if status == StatusCancelled {
		eventType = observer.BatchCancelled
	}
	o.publisher.NotifyObservers(ctx, observer.BatchEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		BatchID:   r.ID,
		Progress:  r.progressPtr(),
		Metadata:  map[string]interface{}{"duplicate_groups": len(groups)},
	})
	o.logger.WithFields(logrus.Fields{
		"batch_id": r.ID,
		"status":   status,
		"groups":   len(groups),
	}).Info("Batch run finished")

	return nil
}
