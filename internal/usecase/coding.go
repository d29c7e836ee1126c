package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"
	"thematic/internal/domain"
	"thematic/internal/logger"
	"thematic/internal/port"
)

// ProgressFunc is called with the number of settled tasks out of total.
// Calls are serialized.
type ProgressFunc func(done, total int)

// CodingOptions configures a CodingUseCase.
type CodingOptions struct {
	MaxParallelCalls int
	// Store checkpoints successful task results. Optional, and ignored when
	// the coder simulates.
	Store port.ResultStore
}

// CodingUseCase fans a Coder out over every (chunk, identity) pair.
type CodingUseCase struct {
	chunker     port.Chunker
	coder       *Coder
	logger      *slog.Logger
	maxParallel int
	store       port.ResultStore
}

// NewCodingUseCase creates a new coding use case.
func NewCodingUseCase(chunker port.Chunker, coder *Coder, l *slog.Logger, opts CodingOptions) *CodingUseCase {
	if opts.MaxParallelCalls < 1 {
		opts.MaxParallelCalls = 1
	}
	store := opts.Store
	if coder.Simulated() {
		store = nil
	}
	return &CodingUseCase{
		chunker:     chunker,
		coder:       coder,
		logger:      logger.OrDiscard(l),
		maxParallel: opts.MaxParallelCalls,
		store:       store,
	}
}

// RunResult contains the results of a coding run.
type RunResult struct {
	Result domain.CoderResult
	Chunks int // Chunks across all interactions
	Tasks  int // Scheduled (chunk, identity) pairs
	Done   int // Tasks that settled before the run ended
	Failed int // Settled tasks whose provider calls were exhausted
	Cached int // Settled tasks served from the result store
	Errors []string
}

type codingTask struct {
	interactionID string
	chunk         domain.Chunk
	identity      domain.Identity
}

type taskSlot struct {
	done   bool
	cached bool
	result TaskResult
}

// Run chunks every interaction, codes each chunk once per identity with at
// most MaxParallelCalls tasks in flight, and concatenates the per-task
// results in submission order (interaction, then chunk, then identity).
// A failed task contributes an empty result and never aborts its siblings.
// If ctx is cancelled, Run returns the aggregate of the tasks that settled
// together with ctx.Err().
func (u *CodingUseCase) Run(ctx context.Context, interactions []domain.Interaction, identities []domain.Identity, progress ProgressFunc) (*RunResult, error) {
	tasks, chunks := u.plan(interactions, identities)
	result := &RunResult{Chunks: chunks, Tasks: len(tasks)}

	var progressMu sync.Mutex
	settled := 0
	report := func() {
		if progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		settled++
		progress(settled, len(tasks))
	}
	if progress != nil {
		progress(0, len(tasks))
	}

	slots := make([]taskSlot, len(tasks))
	sem := semaphore.NewWeighted(int64(u.maxParallel))
	var wg sync.WaitGroup

	var runErr error
	for i, task := range tasks {
		if cached, ok := u.lookup(task); ok {
			slots[i] = taskSlot{done: true, cached: true, result: TaskResult{Result: cached}}
			report()
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			runErr = err
			break
		}
		wg.Add(1)
		go func(i int, task codingTask) {
			defer wg.Done()
			defer sem.Release(1)

			res := u.coder.Code(ctx, task.identity, task.chunk, task.interactionID)
			if res.Err == nil {
				u.persist(task, res.Result)
			}
			slots[i] = taskSlot{done: true, result: res}
			report()
		}(i, task)
	}
	wg.Wait()

	if runErr == nil {
		runErr = ctx.Err()
	}

	agg := domain.EmptyResult()
	for i, slot := range slots {
		if !slot.done {
			continue
		}
		result.Done++
		if slot.cached {
			result.Cached++
		}
		if slot.result.Err != nil {
			result.Failed++
			t := tasks[i]
			result.Errors = append(result.Errors, fmt.Sprintf("interaction %s chunk %d identity %s: %v",
				t.interactionID, t.chunk.ChunkIndex, t.identity.ID, slot.result.Err))
		}
		agg = agg.Merge(slot.result.Result)
	}
	result.Result = agg

	u.logger.Info("coding run finished",
		"interactions", len(interactions),
		"identities", len(identities),
		"chunks", result.Chunks,
		"tasks", result.Tasks,
		"done", result.Done,
		"failed", result.Failed,
		"cached", result.Cached,
		"codes", len(agg.Codes),
		"prompt_tokens", agg.TokenUsage.PromptTokens,
		"completion_tokens", agg.TokenUsage.CompletionTokens,
	)

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// plan chunks every interaction and builds the task list in submission order.
func (u *CodingUseCase) plan(interactions []domain.Interaction, identities []domain.Identity) ([]codingTask, int) {
	var tasks []codingTask
	chunks := 0
	for _, in := range interactions {
		for _, chunk := range u.chunker.Chunk(in.Text) {
			chunks++
			for _, identity := range identities {
				tasks = append(tasks, codingTask{
					interactionID: in.ID,
					chunk:         chunk,
					identity:      identity,
				})
			}
		}
	}
	return tasks, chunks
}

func (u *CodingUseCase) lookup(task codingTask) (domain.CoderResult, bool) {
	if u.store == nil {
		return domain.CoderResult{}, false
	}
	res, ok, err := u.store.GetResult(TaskKey(task.identity, task.interactionID, task.chunk))
	if err != nil {
		u.logger.Warn("result store lookup failed",
			"interaction_id", task.interactionID,
			"chunk_index", task.chunk.ChunkIndex,
			"identity_id", task.identity.ID,
			"error", err.Error(),
		)
		return domain.CoderResult{}, false
	}
	return res, ok
}

func (u *CodingUseCase) persist(task codingTask, res domain.CoderResult) {
	if u.store == nil {
		return
	}
	if err := u.store.PutResult(TaskKey(task.identity, task.interactionID, task.chunk), res); err != nil {
		u.logger.Warn("result store write failed",
			"interaction_id", task.interactionID,
			"chunk_index", task.chunk.ChunkIndex,
			"identity_id", task.identity.ID,
			"error", err.Error(),
		)
	}
}

// TaskKey identifies a (chunk, identity) task for checkpointing. It changes
// when the chunk text or the identity prompt changes.
func TaskKey(identity domain.Identity, interactionID string, chunk domain.Chunk) string {
	h := sha256.New()
	for _, part := range []string{
		identity.ID,
		identity.PromptPrefix,
		interactionID,
		strconv.Itoa(chunk.ChunkIndex),
		strconv.Itoa(chunk.StartPos),
		chunk.Text,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
