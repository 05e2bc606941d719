package types

// BatchAbort signals that no further packages in the batch may be processed.
type BatchAbort struct {
	Reason         string
	ExitCode       int
	RebootRequired bool
}

type RunOutcome struct {
	Results *ResultSet
	Abort   *BatchAbort
}

func NewRunOutcome() RunOutcome {
	return RunOutcome{Results: NewResultSet()}
}
