package bulksave

import (
	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"
)

// Request is one bulk save batch.
type Request struct {
	Save   []*Item
	Delete []*Item
	// None holds items that take no action; one of them may mark the root.
	None []*Item

	refsLookup map[int]*Item
}

// RefsLookup maps a local reference id to the save item that declared it as
// its primary ref. Built on first use; a duplicate id overwrites the earlier item.
func (r *Request) RefsLookup() map[int]*Item {
	if r.refsLookup == nil {
		r.refsLookup = make(map[int]*Item, len(r.Save))
		for _, it := range r.Save {
			if ref, ok := it.PrimaryRef(); ok {
				r.refsLookup[ref] = it
			}
		}
	}
	return r.refsLookup
}

func (r *Request) size() int {
	return len(r.Save) + len(r.Delete) + len(r.None)
}

type ItemState int

const (
	Pending ItemState = iota
	Saved
	Failed
)

func (s ItemState) String() string {
	switch s {
	case Saved:
		return "saved"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Item is one unit of work in a batch.
type Item struct {
	Type    string
	Action  string
	Root    bool
	Refs    map[string]int
	Data    model.Record
	Binding model.Binding

	state     ItemState
	reason    string
	behaviors crud.Behaviors
}

func (it *Item) State() ItemState {
	return it.state
}

// FailureReason is the message of the result that failed the item.
func (it *Item) FailureReason() string {
	return it.reason
}

// PrimaryRefName is the JSON name of the DTO's primary key.
func (it *Item) PrimaryRefName() string {
	return it.Binding.Dto.PrimaryKey().JSONName
}

// PrimaryRef is the local reference id the item declares for itself.
func (it *Item) PrimaryRef() (int, bool) {
	ref, ok := it.Refs[it.PrimaryRefName()]
	return ref, ok
}

// PrimaryKey is the key from the saved result, or the one supplied by the
// client; nil while the item has no key.
func (it *Item) PrimaryKey() any {
	v := it.Data[it.PrimaryRefName()]
	if model.IsEmptyKey(v) {
		return nil
	}
	return v
}

func (it *Item) markSaved(obj model.Record) {
	if obj != nil {
		it.Data = obj
	}
	it.state = Saved
}

func (it *Item) markFailed(reason string) {
	it.state = Failed
	it.reason = reason
}
