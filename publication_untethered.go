package ipc

// CheckUntetheredSubscriptions drives the ACTIVE/LINGER/RESTING state
// machine for every attached subscriber whose IsTether is false. Tethered
// subscribers simply have their update time refreshed unconditionally; they
// never leave ACTIVE because they always participate in flow control.
func (p *Publication) CheckUntetheredSubscriptions(conductor Conductor, nowNs int64) {
	p.subscribers.Each(func(sp *SubscriberPosition) {
		if sp.IsTether {
			sp.TimeOfLastUpdateNs = nowNs
			return
		}

		switch sp.State {
		case SubscriberActive:
			withinWindow := sp.Pos.GetVolatile() > p.consumerPosition-int64(p.termWindowLength)+int64(p.tripGain)
			if withinWindow {
				sp.TimeOfLastUpdateNs = nowNs
				return
			}
			if nowNs > sp.TimeOfLastUpdateNs+p.ctx.UntetheredWindowLimitTimeoutNs {
				sp.State = SubscriberLinger
				sp.TimeOfLastUpdateNs = nowNs
				conductor.OnUnavailableImage(p, sp)
			}

		case SubscriberLinger:
			if nowNs > sp.TimeOfLastUpdateNs+p.ctx.UntetheredWindowLimitTimeoutNs {
				sp.State = SubscriberResting
				sp.TimeOfLastUpdateNs = nowNs
			}

		case SubscriberResting:
			if nowNs > sp.TimeOfLastUpdateNs+p.ctx.UntetheredRestingTimeoutNs {
				sp.State = SubscriberActive
				sp.Pos.SetOrdered(p.consumerPosition)
				sp.TimeOfLastUpdateNs = nowNs
				conductor.OnAvailableImage(p, sp)
			}
		}
	})
}
