package output

import "github.com/ericogr/lightlog/pkg/record"

// Progress locates a record within the run budget.
type Progress struct {
	Taken int
	Total int
}

// Output mirrors each durably written record somewhere else.
type Output interface {
	Publish(record.Aggregate, Progress) error
	Close() error
}

// helper constructors are in subpackages
