package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"fetchmedia/internal/artifacts"
	"fetchmedia/internal/catalog"
	"fetchmedia/internal/logging"
	"fetchmedia/internal/selection"
	"fetchmedia/internal/services"
)

const stage = "retrieval"

// Fetcher is the byte-retrieval half of the catalog.
type Fetcher interface {
	Fetch(ctx context.Context, descriptor catalog.Descriptor, dst io.Writer) (int64, error)
}

// Retriever writes the descriptors of a plan into temporary artifacts.
type Retriever struct {
	fetcher Fetcher
	tracker *artifacts.Tracker
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a Retriever. timeout bounds each descriptor retrieval; zero
// leaves it unbounded.
func New(fetcher Fetcher, tracker *artifacts.Tracker, timeout time.Duration, logger *slog.Logger) *Retriever {
	return &Retriever{
		fetcher: fetcher,
		tracker: tracker,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "retrieval"),
	}
}

type job struct {
	role       artifacts.Role
	descriptor catalog.Descriptor
}

func jobsFor(plan selection.Plan) []job {
	switch plan.Variant {
	case selection.VariantProgressive:
		return []job{{role: artifacts.RoleVideo, descriptor: plan.Video}}
	case selection.VariantSplit:
		return []job{
			{role: artifacts.RoleVideo, descriptor: plan.Video},
			{role: artifacts.RoleAudio, descriptor: plan.Audio},
		}
	case selection.VariantAudioOnly:
		return []job{{role: artifacts.RoleAudio, descriptor: plan.Audio}}
	default:
		return nil
	}
}

// Retrieve fetches every descriptor of the plan into dir/.base_<role>.<container>.
// Split plans fetch both descriptors concurrently; the first failure cancels
// the sibling and both are joined before Retrieve returns. Artifacts are
// registered with the tracker before their first byte is written.
func (r *Retriever) Retrieve(ctx context.Context, plan selection.Plan, dir, base string) (map[artifacts.Role]artifacts.Artifact, error) {
	ctx = services.WithStage(ctx, stage)
	jobs := jobsFor(plan)
	if len(jobs) == 0 {
		return nil, services.Wrap(services.ErrNoStream, stage, "plan", "plan has no descriptors", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]artifacts.Artifact, len(jobs))
	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.fetchOne(runCtx, j, dir, base)
			if errs[i] != nil {
				cancel()
			}
		}()
	}
	wg.Wait()

	if err := firstCause(errs); err != nil {
		return nil, err
	}

	out := make(map[artifacts.Role]artifacts.Artifact, len(results))
	for _, a := range results {
		out[a.Role] = a
	}
	return out, nil
}

// firstCause prefers an error that is not merely the sibling cancellation.
func firstCause(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		if !errors.Is(err, services.ErrCanceled) {
			return err
		}
	}
	return first
}

func (r *Retriever) fetchOne(ctx context.Context, j job, dir, base string) (artifacts.Artifact, error) {
	path := artifacts.TempPath(dir, base, j.role, j.descriptor.Container)
	artifact := r.tracker.Track(j.role, path)
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String("role", string(j.role)),
		logging.String("descriptor", j.descriptor.ID),
		logging.String("path", path),
	)

	fetchCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return artifact, services.Wrap(services.ErrRetrieval, stage, "create artifact", path, err)
	}

	started := time.Now()
	written, err := r.fetcher.Fetch(fetchCtx, j.descriptor, file)
	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = closeErr
	}
	if err == nil && fetchCtx.Err() != nil {
		err = fetchCtx.Err()
	}
	if err != nil {
		if ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return artifact, services.Wrap(services.ErrTimeout, stage, "fetch "+string(j.role), fmt.Sprintf("exceeded %s", r.timeout), err)
		}
		return artifact, services.WrapContext(ctx, services.ErrRetrieval, stage, "fetch "+string(j.role), j.descriptor.ID, err)
	}
	if written == 0 {
		return artifact, services.Wrap(services.ErrRetrieval, stage, "fetch "+string(j.role), "catalog returned no bytes", nil)
	}

	logger.Info("descriptor retrieved",
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "retrieval_complete"),
	)
	return artifact, nil
}
