package types

type ResultMessage struct {
	Kind MessageKind
	Text string
}

// PackageResult is the outcome of one package within one command.
// An empty Version means the version was never resolved.
type PackageResult struct {
	Name            string
	Version         string
	PreviousVersion string
	InstallLocation string
	Source          string
	SourceType      SourceType
	Success         bool
	Inconclusive    bool
	Abandoned       bool
	ExitCode        int
	Messages        []ResultMessage
}

func NewPackageResult(name, version, installLocation string) *PackageResult {
	return &PackageResult{
		Name:            name,
		Version:         version,
		InstallLocation: installLocation,
		Success:         true,
	}
}

func (r *PackageResult) AddNote(text string) {
	r.Messages = append(r.Messages, ResultMessage{Kind: MessageKindNote, Text: text})
}

func (r *PackageResult) AddWarning(text string) {
	r.Messages = append(r.Messages, ResultMessage{Kind: MessageKindWarning, Text: text})
}

// AddError records an error message and marks the result failed.
func (r *PackageResult) AddError(text string) {
	r.Messages = append(r.Messages, ResultMessage{Kind: MessageKindError, Text: text})
	r.Success = false
}

func (r *PackageResult) HasWarning() bool {
	_, ok := r.FirstMessage(MessageKindWarning)
	return ok
}

func (r *PackageResult) FirstMessage(kind MessageKind) (ResultMessage, bool) {
	for _, msg := range r.Messages {
		if msg.Kind == kind {
			return msg, true
		}
	}
	return ResultMessage{}, false
}

func (r *PackageResult) MessagesOf(kind MessageKind) []ResultMessage {
	var out []ResultMessage
	for _, msg := range r.Messages {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

func (r *PackageResult) RebootPending() bool {
	return r.ExitCode == ExitCodeRebootInitiated || r.ExitCode == ExitCodeRebootRequired
}
