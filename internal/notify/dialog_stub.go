//go:build !windows && !darwin

package notify

// Dialog falls back to logging where no native dialog is available.
// Questions are answered No.
type Dialog struct {
	*Log
}

// NewDialog returns a logging notifier.
func NewDialog(title string) *Dialog {
	return &Dialog{Log: NewLog(No)}
}
