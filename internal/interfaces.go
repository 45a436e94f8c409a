package internal

// ProgressSink is the abstract consumer of transfer progress. The core
// never renders a progress bar directly; it reports through this
// interface, whose concrete pb/v3-backed implementation lives outside
// the core (utils.PBProgressSink).
type ProgressSink interface {
	// Start announces a new transfer of the given label and total byte
	// count (0 when unknown).
	Start(label string, total uint64)

	// SetInitial seeds the sink with bytes already accounted for, used
	// when a download resumes above zero.
	SetInitial(n uint64)

	// Add reports n additional bytes transferred.
	Add(n uint64)

	// SetActiveConnections publishes the current/maximum worker counts
	// for a multi-stream transfer, rendered as "[k/P connections]".
	SetActiveConnections(active, max int)

	// Finish marks the transfer complete and releases any rendering
	// resources (e.g. stops the underlying bar).
	Finish()

	// Message prints a one-line status update associated with the
	// transfer without disturbing the bar's running total.
	Message(msg string)
}

// NopProgressSink discards every call; useful for tests and for quiet
// mode where bar rendering is suppressed.
type NopProgressSink struct{}

func (NopProgressSink) Start(string, uint64)             {}
func (NopProgressSink) SetInitial(uint64)                 {}
func (NopProgressSink) Add(uint64)                        {}
func (NopProgressSink) SetActiveConnections(int, int)     {}
func (NopProgressSink) Finish()                           {}
func (NopProgressSink) Message(string)                    {}
