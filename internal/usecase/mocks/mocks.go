package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/iho/txledger/internal/domain"
)

// SliceSource replays a fixed list of records, then io.EOF.
// Errs, when set, is returned at the matching position instead of a record.
type SliceSource struct {
	Records []domain.Transaction
	Errs    map[int]error

	pos int
}

func NewSliceSource(records ...domain.Transaction) *SliceSource {
	return &SliceSource{Records: records}
}

func (s *SliceSource) Next(ctx context.Context) (domain.Transaction, error) {
	if s.pos >= len(s.Records) {
		return domain.Transaction{}, io.EOF
	}
	i := s.pos
	s.pos++
	if err, ok := s.Errs[i]; ok {
		return domain.Transaction{}, err
	}
	return s.Records[i], nil
}

// MemorySink keeps every snapshot it receives.
type MemorySink struct {
	mu     sync.Mutex
	Runs   []string
	Last   []domain.AccountSnapshot
	Writes int

	WriteSnapshotFunc func(ctx context.Context, runID string, accounts []domain.AccountSnapshot) error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Name() string {
	return "memory"
}

func (m *MemorySink) WriteSnapshot(ctx context.Context, runID string, accounts []domain.AccountSnapshot) error {
	if m.WriteSnapshotFunc != nil {
		return m.WriteSnapshotFunc(ctx, runID, accounts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs = append(m.Runs, runID)
	m.Last = accounts
	m.Writes++
	return nil
}

// StaticIDGenerator always returns ID.
type StaticIDGenerator struct {
	ID string
}

func (g StaticIDGenerator) Generate() string {
	return g.ID
}
