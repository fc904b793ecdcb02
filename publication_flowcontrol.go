package ipc

// UpdatePubLmt advances the publication limit to the
// slowest non-resting subscriber plus the window, amortizing updates with
// tripGain hysteresis so a single slow byte of consumer movement doesn't
// force a fresh ordered store every tick.
//
// It returns the work count the conductor's duty cycle accumulates: 1 if the
// limit advanced past the trip limit, 0 otherwise — including when every
// subscriber is resting and the limit is set to the prior consumerPosition.
func (p *Publication) UpdatePubLmt() int {
	if p.subscribers.Len() == 0 {
		return 0
	}

	minSubPos := p.consumerPosition
	maxSubPos := p.consumerPosition
	contributed := false

	p.subscribers.Each(func(sp *SubscriberPosition) {
		if sp.State == SubscriberResting {
			return
		}
		pos := sp.Pos.GetVolatile()
		if !contributed {
			minSubPos = pos
			maxSubPos = pos
			contributed = true
			return
		}
		if pos < minSubPos {
			minSubPos = pos
		}
		if pos > maxSubPos {
			maxSubPos = pos
		}
	})

	if !contributed {
		// Every subscriber is resting: freeze the limit at the prior
		// consumerPosition (maxSubPos's initial value) rather than advance
		// it, until a subscriber reactivates.
		p.pubLmt.SetOrdered(maxSubPos)
		p.tripLimit = maxSubPos
		return 0
	}

	workCount := 0
	proposedLimit := minSubPos + int64(p.termWindowLength)
	if proposedLimit > p.tripLimit {
		p.cleanBuffer(minSubPos)
		p.pubLmt.SetOrdered(proposedLimit)
		p.tripLimit = proposedLimit + int64(p.tripGain)
		workCount = 1
	}

	p.consumerPosition = maxSubPos
	return workCount
}

// cleanBuffer zeroes term-buffer bytes from cleanPosition up
// to target, never past the end of the containing term, then releases the
// leading 8-byte frame-length word of the cleaned range last so a reader can
// never observe a stale frame header pointing into half-zeroed payload.
func (p *Publication) cleanBuffer(target int64) {
	if target <= p.cleanPosition {
		return
	}

	termLength := int64(p.metadata.TermLength())
	cleanOffset := ComputeTermOffset(p.cleanPosition, p.positionBitsToShift)
	termStart := p.cleanPosition - int64(cleanOffset)
	termEnd := termStart + termLength

	upper := target
	if upper > termEnd {
		upper = termEnd
	}
	if upper <= p.cleanPosition {
		p.cleanPosition = upper
		return
	}

	length := upper - p.cleanPosition
	termID := ComputeTermID(p.cleanPosition, p.positionBitsToShift, p.metadata.InitialTermID())
	idx := int(mod(int64(termID-p.metadata.InitialTermID()), PartitionCount))
	term := p.mappedLog.TermBytes(idx, int32(termLength))

	if length > frameLengthFieldSize {
		start := cleanOffset + frameLengthFieldSize
		end := cleanOffset + uint32(length)
		for i := start; i < end; i++ {
			term[i] = 0
		}
	}
	if length >= frameLengthFieldSize {
		writeFrameLengthOrdered(term, cleanOffset, 0)
	}

	p.cleanPosition = upper
}

// attemptUnblock runs the unblocker against the active partition at the
// current consumerPosition, the only place a stalled reservation can block
// every other subscriber from making progress.
func (p *Publication) attemptUnblock() bool {
	termLength := p.metadata.TermLength()
	idx := p.metadata.ActivePartitionIndex()
	term := p.mappedLog.TermBytes(idx, termLength)
	offset := ComputeTermOffset(p.consumerPosition, p.positionBitsToShift)

	_, advanced := p.unblocker.TryUnblock(term, termLength, offset)
	if advanced && p.ctx.SystemCounters != nil {
		p.ctx.SystemCounters.IncrementUnblockedPublications()
	}
	return advanced
}
