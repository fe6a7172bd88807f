package pacs

// Source tags upload messages in the UI log.
const Source = "PacsUploader"

// Notifier receives user-facing progress messages. Implementations must not
// block for long; failures are swallowed.
type Notifier interface {
	Notify(message, color string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message, color string)

func (f NotifierFunc) Notify(message, color string) { f(message, color) }
