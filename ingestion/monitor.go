package ingestion

// Monitor provides hooks to observe an ingestion run.
// Callbacks are made from the goroutine running the ingestion, in order.
type Monitor interface {
	Start(space string, mode Mode, files int)
	FileExtracted(path string, chunks int)
	FileSkipped(path string, err error)
	Embedded(chunks int)
	ChunkStored(done, total int)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Mode, _ int) {}
func (n *noopMonitor) FileExtracted(_ string, _ int) {}
func (n *noopMonitor) FileSkipped(_ string, _ error) {}
func (n *noopMonitor) Embedded(_ int)                {}
func (n *noopMonitor) ChunkStored(_, _ int)          {}
func (n *noopMonitor) Finish(_ *Result)              {}
