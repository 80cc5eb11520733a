package player

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/viditforsv/quizplayer/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPlayer(t *testing.T, opts Options) *Player {
	t.Helper()
	p, err := New(sampleBundle(), opts)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("sess-%d", n.Add(1))
	}
}

func TestPlayerRecordsCheckedAnswersOnce(t *testing.T) {
	clock := &fakeClock{now: t0}
	poster := &fakePoster{}
	rec := NewRecorder(poster)
	p := newTestPlayer(t, Options{Now: clock.Now, Recorder: rec, NewSessionID: sequentialIDs()})

	_, err := p.Start()
	require.NoError(t, err)

	clock.Advance(4 * time.Second)
	_, err = p.SetAnswer("q1", "A")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		c, err := p.CheckAnswer("q1")
		require.NoError(t, err)
		require.True(t, c.Correct)
	}
	rec.Wait()
	require.Equal(t, 1, poster.count())
	require.Equal(t, 4, poster.calls[0].TimeTakenSeconds)
	require.Equal(t, "sess-1", poster.calls[0].SessionID)

	// Subjective answers are never recorded.
	_, _ = p.SetAnswer("q3", "essay")
	_, err = p.CheckAnswer("q3")
	require.NoError(t, err)
	rec.Wait()
	require.Equal(t, 1, poster.count())
}

func TestPlayerRetryAfterRecordingFailure(t *testing.T) {
	poster := &fakePoster{fail: true}
	rec := NewRecorder(poster)
	p := newTestPlayer(t, Options{Recorder: rec})
	_, err := p.Start()
	require.NoError(t, err)

	_, _ = p.SetAnswer("q2", "False")
	_, err = p.CheckAnswer("q2")
	require.NoError(t, err, "recording failures never surface")
	rec.Wait()

	poster.setFail(false)
	_, _ = p.SetAnswer("q2", "True")
	_, err = p.CheckAnswer("q2")
	require.NoError(t, err)
	rec.Wait()

	require.Equal(t, 2, poster.count())
	require.True(t, poster.calls[1].IsCorrect)
	require.True(t, rec.Recorded(p.State().SessionID(), "q2"))
}

func TestPlayerRetryGetsFreshSession(t *testing.T) {
	rec := NewRecorder(&fakePoster{})
	p := newTestPlayer(t, Options{Recorder: rec, NewSessionID: sequentialIDs()})

	s, _ := p.Start()
	first := s.SessionID()
	_, _ = p.SetAnswer("q1", "A")
	_, _ = p.CheckAnswer("q1")
	rec.Wait()
	_, err := p.Submit()
	require.NoError(t, err)

	s, err = p.Retry()
	require.NoError(t, err)
	require.NotEqual(t, first, s.SessionID())
	require.False(t, rec.Recorded(first, "q1"))
	require.Empty(t, s.Answers())
}

func TestPlayerObserver(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	p := newTestPlayer(t, Options{Observer: func(ev Event, s State) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}})

	_, _ = p.Start()
	_, _ = p.Next()
	_, _ = p.SetAnswer("q2", "True")
	_, _ = p.CheckAnswer("q2")
	_, _ = p.Submit()
	_, err := p.Submit()
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	require.Equal(t, []Event{EventStarted, EventNavigated, EventAnswered, EventChecked, EventSubmitted}, events)
}

// Timer expiry and a manual submit racing each other must produce exactly
// one submission.
func TestConcurrentSubmitAndExpiry(t *testing.T) {
	for round := 0; round < 50; round++ {
		var submits atomic.Int32
		p := newTestPlayer(t, Options{Observer: func(ev Event, s State) {
			if ev == EventSubmitted {
				submits.Add(1)
			}
		}})
		_, err := p.Start()
		require.NoError(t, err)
		for i := 0; i < 59; i++ {
			p.Tick()
		}

		var wg sync.WaitGroup
		var manualErr error
		var expired bool
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, manualErr = p.Submit()
		}()
		go func() {
			defer wg.Done()
			expired = p.Tick()
		}()
		wg.Wait()

		require.Equal(t, int32(1), submits.Load())
		require.Equal(t, model.StatusSubmitted, p.State().Status())
		if expired {
			require.True(t, errors.Is(manualErr, ErrAlreadySubmitted))
			require.True(t, p.State().AutoSubmitted())
		} else {
			require.NoError(t, manualErr)
			require.False(t, p.State().AutoSubmitted())
		}
	}
}

func TestBackgroundTickerAutoSubmits(t *testing.T) {
	b := sampleBundle()
	b.Quiz.TimeLimit = ptr(1)
	done := make(chan State, 1)
	p, err := New(b, Options{
		TickInterval: time.Millisecond,
		Observer: func(ev Event, s State) {
			if ev == EventSubmitted {
				done <- s
			}
		},
	})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	_, err = p.Start()
	require.NoError(t, err)

	select {
	case s := <-done:
		require.True(t, s.AutoSubmitted())
		remaining, _ := s.Remaining()
		require.Zero(t, remaining)
	case <-time.After(5 * time.Second):
		t.Fatal("ticker did not submit the quiz")
	}
}

func TestPlayerSnapshotRestore(t *testing.T) {
	rec := NewRecorder(&fakePoster{})
	p := newTestPlayer(t, Options{Recorder: rec})
	_, _ = p.Start()
	_, _ = p.SetAnswer("q1", "A")
	_, _ = p.CheckAnswer("q1")
	rec.Wait()

	snap := p.Snapshot()
	require.Equal(t, []string{"q1"}, snap.Recorded)

	rec2 := NewRecorder(&fakePoster{})
	restored, err := Restore(snap, Options{Recorder: rec2})
	require.NoError(t, err)
	t.Cleanup(restored.Close)

	require.True(t, rec2.Recorded(snap.SessionID, "q1"))
	accepted, err := restored.SetAnswer("q1", "B")
	require.NoError(t, err)
	require.False(t, accepted)
}

func TestLockedAnswerSendsNoEvent(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	p := newTestPlayer(t, Options{Observer: func(ev Event, s State) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}})

	_, err := p.Start()
	require.NoError(t, err)
	_, err = p.SetAnswer("q1", "A")
	require.NoError(t, err)
	_, err = p.CheckAnswer("q1")
	require.NoError(t, err)
	seq := p.State().Seq()

	accepted, err := p.SetAnswer("q1", "B")
	require.NoError(t, err)
	require.False(t, accepted)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []Event{EventStarted, EventAnswered, EventChecked}, events)
	require.Equal(t, seq, p.State().Seq())
}

func TestSeqFollowsTransitions(t *testing.T) {
	p := newTestPlayer(t, Options{})
	_, err := p.Start()
	require.NoError(t, err)
	prev := p.State().Seq()
	for _, step := range []func(){
		func() { _, _ = p.Next() },
		func() { p.Tick() },
		func() { _, _ = p.SetAnswer("q2", "True") },
		func() { _, _ = p.Submit() },
	} {
		step()
		cur := p.State().Seq()
		require.Greater(t, cur, prev)
		prev = cur
	}
}

func TestRestoreSubmitsExpiredQuiz(t *testing.T) {
	clock := &fakeClock{now: t0}
	p := newTestPlayer(t, Options{Now: clock.Now})
	_, err := p.Start()
	require.NoError(t, err)
	_, err = p.SetAnswer("q1", "A")
	require.NoError(t, err)
	snap := p.Snapshot()

	clock.Advance(2 * time.Minute)
	var events []Event
	restored, err := Restore(snap, Options{Now: clock.Now, Observer: func(ev Event, s State) {
		events = append(events, ev)
	}})
	require.NoError(t, err)
	t.Cleanup(restored.Close)

	require.Equal(t, []Event{EventSubmitted}, events)
	st := restored.State()
	require.Equal(t, model.StatusSubmitted, st.Status())
	require.True(t, st.AutoSubmitted())
	r, ok := st.Result()
	require.True(t, ok)
	require.Equal(t, 1, r.Correct)
}
