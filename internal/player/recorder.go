package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/viditforsv/quizplayer/internal/model"
)

// AttemptPoster sends one attempt to the progress backend.
type AttemptPoster interface {
	RecordAttempt(ctx context.Context, a model.Attempt) error
}

// AttemptSink receives the outcome of every recording call. err is nil on
// success.
type AttemptSink interface {
	LogAttempt(ctx context.Context, a model.Attempt, err error) error
}

type recordKey struct {
	session  string
	question string
}

// Recorder reports checked answers to the backend at most once per
// question per session. Calls run in the background; a failed call is
// logged and un-marks the question so a later check can retry.
type Recorder struct {
	poster  AttemptPoster
	sink    AttemptSink
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	recorded map[recordKey]struct{}
	wg       sync.WaitGroup
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithTimeout bounds each recording call. Default 10s.
func WithTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithSink passes every outcome to sink.
func WithSink(sink AttemptSink) RecorderOption {
	return func(r *Recorder) { r.sink = sink }
}

// WithLogger sets the logger used for recording failures.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRecorder(poster AttemptPoster, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		poster:   poster,
		timeout:  10 * time.Second,
		logger:   slog.Default(),
		recorded: make(map[recordKey]struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Record starts a background recording call for a unless the question is
// already marked for its session. It returns whether a call was started.
func (r *Recorder) Record(a model.Attempt) bool {
	k := recordKey{a.SessionID, a.QuestionID}
	r.mu.Lock()
	if _, ok := r.recorded[k]; ok {
		r.mu.Unlock()
		return false
	}
	r.recorded[k] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		err := r.poster.RecordAttempt(ctx, a)
		if err != nil {
			r.mu.Lock()
			delete(r.recorded, k)
			r.mu.Unlock()
			r.logger.Warn("record attempt failed",
				"session", a.SessionID, "question", a.QuestionID, "error", err)
		} else {
			r.logger.Debug("attempt recorded",
				"session", a.SessionID, "question", a.QuestionID, "correct", a.IsCorrect)
		}
		if r.sink != nil {
			// The call's own deadline may already be spent.
			sinkCtx, sinkCancel := context.WithTimeout(context.Background(), r.timeout)
			defer sinkCancel()
			if serr := r.sink.LogAttempt(sinkCtx, a, err); serr != nil {
				r.logger.Warn("log attempt", "question", a.QuestionID, "error", serr)
			}
		}
	}()
	return true
}

// Recorded reports whether qid is marked for sessionID.
func (r *Recorder) Recorded(sessionID, qid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.recorded[recordKey{sessionID, qid}]
	return ok
}

// RecordedQuestions lists the marked questions of sessionID.
func (r *Recorder) RecordedQuestions(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k := range r.recorded {
		if k.session == sessionID {
			out = append(out, k.question)
		}
	}
	return out
}

// MarkRecorded marks questions as already recorded, used when a player is
// restored from a snapshot.
func (r *Recorder) MarkRecorded(sessionID string, qids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range qids {
		r.recorded[recordKey{sessionID, q}] = struct{}{}
	}
}

// Forget drops the dedup set of sessionID.
func (r *Recorder) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.recorded {
		if k.session == sessionID {
			delete(r.recorded, k)
		}
	}
}

// Wait blocks until all in-flight recording calls have finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
