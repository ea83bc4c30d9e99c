package background

import (
	"context"
	"log"
	"time"

	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-co-op/gocron/v2"
)

const (
	orphanSweepInterval   = 1 * time.Hour
	orphanRetention       = 24 * time.Hour
	thumbBackfillInterval = 6 * time.Hour
	backfillBatchSize     = 100
)

// JobScheduler runs the catalog's maintenance jobs: sweeping stale orphan
// uploads and backfilling missing thumbnails.
type JobScheduler struct {
	scheduler gocron.Scheduler
	images    services.ImageService
	imageRepo repositories.ImageRepository
	jobs      map[string]gocron.Job
}

func NewJobScheduler(images services.ImageService, imageRepo repositories.ImageRepository) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler: scheduler,
		images:    images,
		imageRepo: imageRepo,
		jobs:      make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js, nil
}

func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	orphanJob, err := js.scheduler.NewJob(
		gocron.DurationJob(orphanSweepInterval),
		gocron.NewTask(js.sweepOrphanImages, context.Background()),
		gocron.WithName("orphan-image-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create orphan sweep job: %v", err)
	} else {
		js.jobs["orphan-sweep"] = orphanJob
	}

	backfillJob, err := js.scheduler.NewJob(
		gocron.DurationJob(thumbBackfillInterval),
		gocron.NewTask(js.backfillThumbnails, context.Background()),
		gocron.WithName("thumbnail-backfill"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create thumbnail backfill job: %v", err)
	} else {
		js.jobs["thumbnail-backfill"] = backfillJob
	}
}

// sweepOrphanImages deletes uploads that never got attached to a product
// and are not the placeholder, once they are older than the retention
// window. Each deletion removes the stored files as well as the row.
func (js *JobScheduler) sweepOrphanImages(ctx context.Context) {
	cutoff := time.Now().Add(-orphanRetention)

	orphans, err := js.imageRepo.ListOrphaned(ctx, cutoff)
	if err != nil {
		log.Printf("Orphan sweep failed to list images: %v", err)
		return
	}

	removed := 0
	for _, image := range orphans {
		if err := js.images.Delete(ctx, image.ID); err != nil {
			log.Printf("Orphan sweep failed to delete image %s: %v", image.ID.String(), err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Orphan sweep removed %d stale uploads", removed)
	}
}

// backfillThumbnails walks every image and regenerates any missing
// thumbnail. Generation is a no-op for thumbnails that already exist, so a
// full pass is cheap.
func (js *JobScheduler) backfillThumbnails(ctx context.Context) {
	for offset := 0; ; offset += backfillBatchSize {
		images, err := js.imageRepo.List(ctx, backfillBatchSize, offset)
		if err != nil {
			log.Printf("Thumbnail backfill failed to list images: %v", err)
			return
		}
		if len(images) == 0 {
			return
		}

		for _, image := range images {
			if err := js.images.EnsureThumbnail(ctx, image); err != nil {
				log.Printf("Thumbnail backfill failed for image %s: %v", image.ID.String(), err)
			}
		}
	}
}
