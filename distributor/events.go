package distributor

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/types"
)

// SettlementResult is delivered to subscribers when the decryption request
// they wait on reaches a terminal state. Err is nil on successful
// settlement; an integrity alarm delivers the alarm error instead.
type SettlementResult struct {
	RequestID types.RequestID
	Purpose   types.Purpose
	Recipient common.Address
	Amount    *types.BigInt
	Err       error
}

// Subscribe registers interest in the terminal outcome of a pending request.
// The returned channel receives exactly one result and is then closed. If
// the request is administratively reopened instead of settled, or is no
// longer pending by the time of the call, the channel is closed without a
// value.
func (p *Protocol) Subscribe(id types.RequestID) <-chan SettlementResult {
	p.lock.Lock()
	defer p.lock.Unlock()
	if _, err := p.stg.PendingRequest(id); err != nil {
		// The request reached a terminal state before the subscription.
		ch := make(chan SettlementResult)
		close(ch)
		return ch
	}
	p.subsLock.Lock()
	defer p.subsLock.Unlock()
	ch, ok := p.subs[id]
	if !ok {
		ch = make(chan SettlementResult, 1)
		p.subs[id] = ch
	}
	return ch
}

// notify delivers a terminal result to the subscriber of the request, if
// any, and drops the subscription.
func (p *Protocol) notify(res SettlementResult) {
	p.subsLock.Lock()
	ch, ok := p.subs[res.RequestID]
	delete(p.subs, res.RequestID)
	p.subsLock.Unlock()
	if ok {
		ch <- res
		close(ch)
	}
}

// dropSubscription closes a subscription without a result, used when a
// request is administratively reopened.
func (p *Protocol) dropSubscription(id types.RequestID) {
	p.subsLock.Lock()
	ch, ok := p.subs[id]
	delete(p.subs, id)
	p.subsLock.Unlock()
	if ok {
		close(ch)
	}
}
