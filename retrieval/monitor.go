package retrieval

import "github.com/poiesic/docchat/core"

// Monitor provides hooks to observe a search.
// Implement this interface to trace scoring decisions.
type Monitor interface {
	Start(query, collection string)
	AfterQueryEmbedding(dimensions int)
	AfterScan(records int)
	Refused(record *core.DocumentRecord)
	Reconciled(fromDimensions, toDimensions, records int)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string) {}
func (n *noopMonitor) AfterQueryEmbedding(_ int) {}
func (n *noopMonitor) AfterScan(_ int) {}
func (n *noopMonitor) Refused(_ *core.DocumentRecord) {}
func (n *noopMonitor) Reconciled(_, _, _ int) {}
func (n *noopMonitor) Finish(_ []*core.SearchResult) {}
