package ipc

// OnTimeEvent is the conductor-facing duty-cycle operation. It
// refreshes pubPos from the producer position, then drives whatever the
// current lifecycle state requires: untethered bookkeeping and blocked-
// publisher detection while ACTIVE, drain-or-unblock while INACTIVE, and the
// end-of-life signal while LINGER.
func (p *Publication) OnTimeEvent(conductor Conductor, nowNs int64) {
	producer := p.producerPosition()
	p.pubPos.SetOrdered(producer)

	switch p.state {
	case PublicationActive:
		p.CheckUntetheredSubscriptions(conductor, nowNs)
		if !p.isExclusive {
			p.checkBlockedPublisher(nowNs)
		}

	case PublicationInactive:
		if p.IsDrained() {
			p.state = PublicationLinger
			p.timeOfLastStateChangeNs = nowNs
			p.subscribers.Each(func(sp *SubscriberPosition) {
				conductor.OnUnavailableImage(p, sp)
			})
			return
		}
		p.attemptUnblock()

	case PublicationLinger:
		p.hasReachedEndOfLife = true
	}
}

// checkBlockedPublisher checks whether the consumer position has not
// moved since the last check while the producer has outrun it, and if that
// stall has persisted past unblockTimeoutNs, tries to free the stuck writer.
func (p *Publication) checkBlockedPublisher(nowNs int64) {
	producer := p.producerPosition()

	if p.consumerPosition == p.lastConsumerPosition && producer > p.consumerPosition {
		if nowNs > p.timeOfLastConsumerPositionChangeNs+p.unblockTimeoutNs {
			p.attemptUnblock()
		}
		return
	}

	p.lastConsumerPosition = p.consumerPosition
	p.timeOfLastConsumerPositionChangeNs = nowNs
}
