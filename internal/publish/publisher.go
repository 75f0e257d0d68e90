package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signage-cms/internal/models"
	"signage-cms/internal/scheduler"
	"signage-cms/internal/storage"
)

var ErrPlaylistNotFound = errors.New("playlist not found")

var (
	jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signage_publish_jobs_total",
			Help: "Manifest publish attempts",
		},
		[]string{"status"},
	)
	duration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signage_publish_duration_seconds",
			Help:    "Time to build and store one manifest",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var registerOnce sync.Once

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(jobs, duration)
	})
}

// Store is where manifests end up.
type Store interface {
	PutManifest(ctx context.Context, playlistID uint, body []byte) error
	ListManifests(ctx context.Context) ([]string, error)
	DeleteManifest(ctx context.Context, playlistID uint) error
}

// Manifest is the document a player downloads: its playlist content plus
// the pre-computed day calendar, so players never evaluate rules themselves.
type Manifest struct {
	ID          uuid.UUID               `json:"id"`
	PlaylistID  uint                    `json:"playlist_id"`
	Name        string                  `json:"name"`
	GeneratedAt time.Time               `json:"generated_at"`
	Timezone    string                  `json:"timezone"`
	WindowText  string                  `json:"window_text"`
	Items       []ManifestItem          `json:"items"`
	Days        []scheduler.CalendarDay `json:"days"`
}

type ManifestItem struct {
	MediaID         uint   `json:"media_id"`
	Key             string `json:"key"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	DurationSeconds int    `json:"duration_seconds"`
}

type Options struct {
	Interval    time.Duration
	HorizonDays int
	Location    *time.Location
	// Simulate writes manifests to Out instead of the store.
	Simulate bool
	Out      io.Writer
}

type Worker struct {
	db    *gorm.DB
	store Store
	clock scheduler.Clock
	log   *zap.Logger
	opts  Options
}

func New(db *gorm.DB, store Store, clock scheduler.Clock, log *zap.Logger, opts Options) *Worker {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.HorizonDays < 1 {
		opts.HorizonDays = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	return &Worker{db: db, store: store, clock: clock, log: log, opts: opts}
}

// Build assembles the manifest for [today, today+horizon).
func (w *Worker) Build(pl *models.Playlist) Manifest {
	now := w.clock.Now().In(w.opts.Location)
	last := now.AddDate(0, 0, w.opts.HorizonDays-1)

	items := make([]ManifestItem, 0, len(pl.Items))
	for _, it := range pl.Items {
		item := ManifestItem{MediaID: it.MediaID, DurationSeconds: it.DurationSeconds}
		if it.Media != nil {
			item.Key = it.Media.Key
			item.Name = it.Media.Name
			item.Kind = it.Media.Kind
			if item.DurationSeconds == 0 {
				item.DurationSeconds = it.Media.DurationSeconds
			}
		}
		items = append(items, item)
	}

	return Manifest{
		ID:          uuid.New(),
		PlaylistID:  pl.ID,
		Name:        pl.Name,
		GeneratedAt: now,
		Timezone:    w.opts.Location.String(),
		WindowText:  scheduler.FormatActiveWindow(pl.ActiveBetween),
		Items:       items,
		Days:        scheduler.BuildCalendar(now, last, pl.TimeTags, pl.ActiveBetween),
	}
}

func (w *Worker) loadPlaylists(ctx context.Context, ids ...uint) ([]models.Playlist, error) {
	var playlists []models.Playlist
	q := w.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Preload("Items.Media")
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	if err := q.Order("id asc").Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("load playlists: %w", err)
	}
	return playlists, nil
}

func (w *Worker) publish(ctx context.Context, pl *models.Playlist) (*Manifest, error) {
	timer := prometheus.NewTimer(duration)
	defer timer.ObserveDuration()

	m := w.Build(pl)
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		jobs.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("encode manifest %d: %w", pl.ID, err)
	}

	if w.opts.Simulate {
		if w.opts.Out != nil {
			fmt.Fprintf(w.opts.Out, "%s\n", body)
		}
		jobs.WithLabelValues("simulated").Inc()
		return &m, nil
	}

	if err := w.store.PutManifest(ctx, pl.ID, body); err != nil {
		jobs.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("store manifest %d: %w", pl.ID, err)
	}
	jobs.WithLabelValues("success").Inc()
	return &m, nil
}

// PublishPlaylist publishes one playlist immediately.
func (w *Worker) PublishPlaylist(ctx context.Context, id uint) (*Manifest, error) {
	playlists, err := w.loadPlaylists(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return nil, ErrPlaylistNotFound
	}
	return w.publish(ctx, &playlists[0])
}

// PublishAll publishes every playlist, continuing past individual failures.
// It returns the number published and the first error seen.
func (w *Worker) PublishAll(ctx context.Context) (int, error) {
	playlists, err := w.loadPlaylists(ctx)
	if err != nil {
		return 0, err
	}

	var (
		published int
		firstErr  error
	)
	for i := range playlists {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if _, err := w.publish(ctx, &playlists[i]); err != nil {
			w.log.Error("publish failed", zap.Uint("playlist_id", playlists[i].ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		published++
	}
	return published, firstErr
}

// Prune deletes manifests whose playlist no longer exists, so players
// assigned to a deleted playlist stop showing it. It returns the number removed.
func (w *Worker) Prune(ctx context.Context) (int, error) {
	keys, err := w.store.ListManifests(ctx)
	if err != nil {
		return 0, fmt.Errorf("list manifests: %w", err)
	}

	var ids []uint
	if err := w.db.WithContext(ctx).Model(&models.Playlist{}).Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("load playlist ids: %w", err)
	}
	live := make(map[uint]bool, len(ids))
	for _, id := range ids {
		live[id] = true
	}

	removed := 0
	for _, key := range keys {
		id, ok := storage.ManifestID(key)
		if !ok || live[id] {
			continue
		}
		if err := w.store.DeleteManifest(ctx, id); err != nil {
			return removed, fmt.Errorf("delete manifest %d: %w", id, err)
		}
		w.log.Info("pruned manifest", zap.Uint("playlist_id", id))
		removed++
	}
	return removed, nil
}

// Run publishes everything now and then on every tick until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	w.log.Info("publisher started",
		zap.Duration("interval", w.opts.Interval),
		zap.Int("horizon_days", w.opts.HorizonDays),
		zap.Bool("simulate", w.opts.Simulate))
	_ = w.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			_ = w.RunOnce(ctx)
		case <-ctx.Done():
			w.log.Info("publisher stopped")
			return
		}
	}
}

// RunOnce is one publish pass followed by a prune; a simulated pass does
// not prune. Failures are logged and returned joined.
func (w *Worker) RunOnce(ctx context.Context) error {
	n, err := w.PublishAll(ctx)
	if err != nil {
		w.log.Warn("publish pass finished with errors", zap.Int("published", n), zap.Error(err))
	} else {
		w.log.Info("publish pass complete", zap.Int("published", n))
	}

	if w.opts.Simulate {
		return err
	}
	if _, pruneErr := w.Prune(ctx); pruneErr != nil {
		w.log.Warn("prune failed", zap.Error(pruneErr))
		err = errors.Join(err, pruneErr)
	}
	return err
}
