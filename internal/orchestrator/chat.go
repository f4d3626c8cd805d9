package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avvvet/defidvisor-core/internal/advisor"
	"github.com/avvvet/defidvisor-core/internal/fault"
	"github.com/avvvet/defidvisor-core/internal/market"
	"github.com/avvvet/defidvisor-core/internal/memory"
)

const (
	opChat   = "chat.submit"
	opMarket = "market.refresh"
)

// SubmitChatMessage runs one chat exchange with the advisor backend.
//
// Submissions are single-flight: a call made while a prior one is still in
// flight is rejected, as is empty or whitespace-only text. The user's message
// is echoed into the conversation immediately and never retracted. Every call
// that reaches the backend settles with exactly one remote entry (a
// well-formed reply) or one system entry (network failure, backend error, or
// a reply that is not the strict intent envelope). A well-formed intent that
// names a token also kicks off a dependent news and price refresh for it.
func (c *Core) SubmitChatMessage(ctx context.Context, text string) ([]memory.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fault.New(fault.ValidationError, opChat, "message is empty")
	}
	if !c.chatInFlight.CompareAndSwap(false, true) {
		return nil, fault.New(fault.ValidationError, opChat, "a chat submission is already in flight")
	}
	defer c.chatInFlight.Store(false)

	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opChat, opErr) }()

	// Prompt context is the exchange before this message; the message itself
	// travels separately.
	var history []advisor.Turn
	if c.conv != nil {
		turns, err := c.conv.History(ctx, c.session.ID)
		if err != nil {
			c.logger.Warn("failed to load conversation history", zap.Error(err))
		} else {
			history = turns
		}
	}

	// Optimistic echo: send-then-confirm, not validate-then-send.
	c.appendEntry(ctx, memory.Entry{Text: text, Sender: memory.SenderLocal, At: time.Now()})

	raw, err := c.provider.Reply(ctx, text, history)
	if err != nil {
		opErr = fault.Wrap(fault.NetworkFailure, opChat, "advisor backend unavailable", err)
		c.logger.Warn("advisor call failed", zap.Error(err))
		entries := c.appendEntry(ctx, memory.Entry{
			Text:   "The advisor is unavailable right now. Please try again.",
			Sender: memory.SenderSystem,
			At:     time.Now(),
		})
		c.fail(opChat, fault.Message(opErr))
		return entries, nil
	}

	envelope, err := advisor.ParseReply(raw)
	if err != nil {
		opErr = fault.Wrap(fault.MalformedResponse, opChat, "could not understand AI response", err)
		c.logger.Warn("advisor reply was malformed", zap.Error(err))
		entries := c.appendEntry(ctx, memory.Entry{
			Text:   advisor.FallbackMessage,
			Sender: memory.SenderSystem,
			At:     time.Now(),
		})
		c.fail(opChat, fault.Message(opErr))
		return entries, nil
	}

	entries := c.appendEntry(ctx, memory.Entry{
		Text:   envelope.Response,
		Sender: memory.SenderRemote,
		At:     time.Now(),
	})

	if token := envelope.Intent.TokenID(); token != "" {
		// Dependent refresh runs detached from the chat request lifetime.
		go c.refreshMarket(context.WithoutCancel(ctx), token)
	}

	return entries, nil
}

// TopMarkets lists the current top coins by market cap. A plain passthrough;
// the listing has no snapshot of its own.
func (c *Core) TopMarkets(ctx context.Context, limit int) ([]market.Coin, error) {
	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opMarket, opErr) }()

	coins, err := c.market.TopMarkets(ctx, limit)
	if err != nil {
		opErr = err
		c.fail(opMarket, fault.Message(err))
		return nil, err
	}
	return coins, nil
}

// refreshMarket fetches news and price history for a token. The two fetches
// fan out concurrently; whichever parts succeed are committed, guarded by a
// generation counter so a stale refresh never overwrites a newer one.
func (c *Core) refreshMarket(ctx context.Context, token string) {
	generation := c.marketGen.Add(1)

	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opMarket, opErr) }()

	type result struct {
		news     []market.Article
		prices   []market.PricePoint
		newsErr  error
		priceErr error
	}
	var res result

	done := make(chan struct{}, 2)
	go func() {
		res.news, res.newsErr = c.market.News(ctx, token, 5)
		done <- struct{}{}
	}()
	go func() {
		res.prices, res.priceErr = c.market.PriceHistory(ctx, token)
		done <- struct{}{}
	}()
	<-done
	<-done

	if res.newsErr != nil {
		opErr = res.newsErr
		c.logger.Warn("news fetch failed", zap.String("token", token), zap.Error(res.newsErr))
	}
	if res.priceErr != nil {
		opErr = res.priceErr
		c.logger.Warn("price history fetch failed", zap.String("token", token), zap.Error(res.priceErr))
	}

	c.mu.Lock()
	if generation <= c.marketCommitted {
		c.mu.Unlock()
		return
	}
	previous := c.marketView
	next := &MarketSnapshot{Token: token, FetchedAt: time.Now()}
	if res.newsErr == nil {
		next.News = res.news
	} else if previous != nil && previous.Token == token {
		next.News = previous.News
	}
	if res.priceErr == nil {
		next.Prices = res.prices
	} else if previous != nil && previous.Token == token {
		next.Prices = previous.Prices
	}
	c.marketView = next
	c.marketCommitted = generation
	c.mu.Unlock()

	c.notify(Event{Kind: EventMarket})
	if opErr != nil {
		c.fail(opMarket, fault.Message(opErr))
	}
}
