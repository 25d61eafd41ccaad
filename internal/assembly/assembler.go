// Package assembly selects the frozen question set of a test.
package assembly

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

// Shuffler permutes n elements through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// NewSeededShuffler returns a Shuffler whose permutations are fully
// determined by seed.
func NewSeededShuffler(seed int64) Shuffler {
	return rand.New(rand.NewSource(seed))
}

// lockedShuffler lets one rand.Rand be shared by concurrent requests.
type lockedShuffler struct {
	mu sync.Mutex
	r  Shuffler
}

func (l *lockedShuffler) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// Request describes what a test asks for. The candidate pool passed next to
// it must already be filtered by exam, subject scope and question type.
type Request struct {
	RequestedCount int
	Mode           exam.Mode
	// Selection is an explicit, ordered choice of question ids for manual
	// mode. Ignored in random mode.
	Selection []string
}

// Assembled is the outcome of one assembly. ActualCount < RequestedCount
// means the pool could not supply the full request.
type Assembled struct {
	IDs            []string
	RequestedCount int
	ActualCount    int
}

// Shortfall is how many requested questions the pool could not supply.
func (a Assembled) Shortfall() int {
	if a.RequestedCount <= a.ActualCount {
		return 0
	}
	return a.RequestedCount - a.ActualCount
}

type Assembler struct {
	shuffler Shuffler
}

type Option func(*Assembler)

// WithShuffler replaces the default time-seeded source.
func WithShuffler(s Shuffler) Option { return func(a *Assembler) { a.shuffler = s } }

// WithSeed makes random selections reproducible.
func WithSeed(seed int64) Option {
	return func(a *Assembler) { a.shuffler = NewSeededShuffler(seed) }
}

func New(opts ...Option) *Assembler {
	a := &Assembler{shuffler: NewSeededShuffler(time.Now().UnixNano())}
	for _, o := range opts {
		o(a)
	}
	a.shuffler = &lockedShuffler{r: a.shuffler}
	return a
}

// Assemble picks at most req.RequestedCount distinct ids from pool. It never
// fails: an empty or undersized pool yields a shorter selection.
func (a *Assembler) Assemble(req Request, pool []exam.Question) Assembled {
	ids := uniqueIDs(pool)

	switch {
	case req.Mode == exam.ModeRandom:
		a.shuffler.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	case req.Selection != nil:
		ids = restrict(req.Selection, ids)
	}

	n := req.RequestedCount
	if n < 0 {
		n = 0
	}
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]string, n)
	copy(out, ids[:n])
	return Assembled{IDs: out, RequestedCount: req.RequestedCount, ActualCount: n}
}

func uniqueIDs(pool []exam.Question) []string {
	seen := make(map[string]struct{}, len(pool))
	ids := make([]string, 0, len(pool))
	for _, q := range pool {
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		ids = append(ids, q.ID)
	}
	return ids
}

// restrict keeps the selection's order, dropping ids not in the pool and repeats.
func restrict(selection, pool []string) []string {
	allowed := make(map[string]bool, len(pool))
	for _, id := range pool {
		allowed[id] = true
	}
	out := make([]string, 0, len(selection))
	for _, id := range selection {
		if allowed[id] {
			out = append(out, id)
			allowed[id] = false
		}
	}
	return out
}
