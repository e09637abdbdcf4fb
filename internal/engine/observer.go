package engine

// Observer watches the engine from the outside: the input it receives, the
// state changes it makes, each collision evaluation, and diagnostics.
// Observers run synchronously on the engine's goroutine and must not call
// back into the engine.
type Observer interface {
	Event(ev Event)
	Transition(t Transition)
	Evaluation(ev Evaluation)
	Diagnostic(d Diagnostic)
}

// NopObserver ignores everything. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) Event(Event)           {}
func (NopObserver) Transition(Transition) {}
func (NopObserver) Evaluation(Evaluation) {}
func (NopObserver) Diagnostic(Diagnostic) {}

// Observers fans every notification out to each observer in order.
type Observers []Observer

func (os Observers) Event(ev Event) {
	for _, o := range os {
		o.Event(ev)
	}
}

func (os Observers) Transition(t Transition) {
	for _, o := range os {
		o.Transition(t)
	}
}

func (os Observers) Evaluation(ev Evaluation) {
	for _, o := range os {
		o.Evaluation(ev)
	}
}

func (os Observers) Diagnostic(d Diagnostic) {
	for _, o := range os {
		o.Diagnostic(d)
	}
}
