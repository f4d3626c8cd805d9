package orchestrator

// EventKind names which entity's snapshot changed, or that a failure was
// surfaced.
type EventKind string

const (
	EventConversation EventKind = "conversation"
	EventPortfolio    EventKind = "portfolio"
	EventMarket       EventKind = "market"
	EventSwap         EventKind = "swap"
	EventOrder        EventKind = "order"
	EventVault        EventKind = "vault"
	EventError        EventKind = "error"
)

// Event is a notification that a snapshot transitioned or an operation
// failed. Handlers read the new state through the Core's accessors; the
// event itself carries only identity and, for failures, the short
// user-visible message.
type Event struct {
	Kind    EventKind `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Handler receives events. Handlers run synchronously on the notifying
// goroutine and must not call back into Subscribe or Unsubscribe.
type Handler func(Event)

// Subscription is the capability to stop receiving events.
type Subscription struct {
	core *Core
	id   uint64
}

// Subscribe registers a handler and returns its subscription. The returned
// subscription is the only way to deregister.
func (c *Core) Subscribe(handler Handler) *Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subscribers[id] = handler

	return &Subscription{core: c, id: id}
}

// Unsubscribe deregisters the handler. Once Unsubscribe returns, the handler
// is never invoked again.
func (s *Subscription) Unsubscribe() {
	s.core.subMu.Lock()
	defer s.core.subMu.Unlock()
	delete(s.core.subscribers, s.id)
}

// notify delivers an event to every registered handler. Delivery happens
// under the subscriber read lock, which is what makes the post-unsubscribe
// guarantee hold: Unsubscribe blocks until in-progress deliveries finish.
func (c *Core) notify(event Event) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, handler := range c.subscribers {
		handler(event)
	}
}

// fail logs a failure and surfaces it through the notification channel,
// leaving the entity's last-known-good snapshot in place.
func (c *Core) fail(op, message string) {
	c.notify(Event{Kind: EventError, Op: op, Message: message})
}
