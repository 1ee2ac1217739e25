package retrieval

import (
	"context"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

var _ Index = (*UnavailableIndex)(nil)

// UnavailableIndex stands in for an index that failed to initialize. Every
// call reports RetrievalUnavailable with the original cause.
type UnavailableIndex struct {
	cause error
}

// Unavailable returns a degraded Index that always fails with cause.
func Unavailable(cause error) *UnavailableIndex {
	return &UnavailableIndex{cause: cause}
}

func (u *UnavailableIndex) err(op string) error {
	return apperr.Wrap(apperr.RetrievalUnavailable, u.cause, "%s: index is not initialized", op)
}

func (u *UnavailableIndex) Upsert(context.Context, Collection, Record) error { return u.err("upsert") }

func (u *UnavailableIndex) Query(context.Context, Collection, []float32, int) ([]ScoredRecord, error) {
	return nil, u.err("query")
}

func (u *UnavailableIndex) Get(context.Context, Collection, string) (Record, error) {
	return Record{}, u.err("get")
}

func (u *UnavailableIndex) Count(context.Context, Collection) (int, error) { return 0, u.err("count") }

// Degraded reports whether idx is a stand-in for a failed index.
func Degraded(idx Index) bool {
	_, ok := idx.(*UnavailableIndex)
	return ok
}
