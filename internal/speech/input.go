package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// #region phrases

// DefaultPhrases is the built-in phrase bank.
var DefaultPhrases = []string{
	"The quick brown fox jumps over the lazy dog",
	"She sells seashells by the seashore",
	"How can a clam cram in a clean cream can?",
	"I scream, you scream, we all scream for ice cream!",
	"The rain in Spain stays mainly in the plain.",
}

// PhraseBank picks target phrases at random.
type PhraseBank struct {
	phrases []string
	rng     *rand.Rand
}

// NewPhraseBank returns a bank over phrases, or DefaultPhrases when empty.
// rng may be nil for a time-seeded source.
func NewPhraseBank(phrases []string, rng *rand.Rand) *PhraseBank {
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PhraseBank{phrases: append([]string(nil), phrases...), rng: rng}
}

// Pick returns one phrase.
func (b *PhraseBank) Pick() string {
	return b.phrases[b.rng.Intn(len(b.phrases))]
}

// Len returns the number of phrases in the bank.
func (b *PhraseBank) Len() int { return len(b.phrases) }

// #endregion phrases

// #region listen

// Transcriber produces one finalized utterance. Implementations must return
// when ctx is done.
type Transcriber interface {
	Transcribe(ctx context.Context) (string, error)
}

// Listen runs tr for at most timeout. If the window closes without a
// transcript it returns ErrEmptyInput; cancelling ctx returns ctx.Err().
func Listen(ctx context.Context, tr Transcriber, timeout time.Duration) (string, error) {
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := tr.Transcribe(lctx)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "", ErrEmptyInput
	}
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	return text, nil
}

// LineTranscriber reads one line of text as the utterance.
type LineTranscriber struct {
	lines  chan lineResult
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

type lineResult struct {
	text string
	err  error
}

// NewLineTranscriber reads lines from r in the background until r ends or
// Close is called. A read already blocked in r finishes only when r returns.
func NewLineTranscriber(r io.Reader) *LineTranscriber {
	lt := &LineTranscriber{
		lines:  make(chan lineResult, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go func() {
		defer close(lt.exited)
		defer close(lt.lines)
		send := func(l lineResult) bool {
			select {
			case lt.lines <- l:
				return true
			case <-lt.done:
				return false
			}
		}
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if !send(lineResult{text: sc.Text()}) {
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		send(lineResult{err: err})
	}()
	return lt
}

// Close stops the background reader. Lines not yet read are discarded.
func (lt *LineTranscriber) Close() {
	lt.once.Do(func() { close(lt.done) })
}

// Transcribe returns the next line or ctx.Err().
func (lt *LineTranscriber) Transcribe(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-lt.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// #endregion listen
