package connection

import "time"

// scheduleReconnectLocked arms the single retry timer. Attempt n waits
// n*ReconnectBaseDelay. Once MaxReconnectAttempts retries have been spent
// without a successful connect, the budget is exhausted: the event is
// published once and no timer is armed until a connect succeeds or an
// explicit Connect starts over.
func (m *Manager) scheduleReconnectLocked() {
	if m.state == StateClosed || m.timer != nil {
		return
	}

	if m.attempts >= m.cfg.MaxReconnectAttempts {
		if !m.exhausted {
			m.exhausted = true
			m.logger.Error("max reconnect attempts reached", "attempts", m.attempts)
			m.metrics.ObserveReconnectExhausted()
			m.events.PublishMaxReconnectAttemptsReached(m.attempts)
		}
		return
	}

	m.attempts++
	delay := m.cfg.ReconnectBaseDelay * time.Duration(m.attempts)
	gen := m.gen
	m.timer = time.AfterFunc(delay, func() { m.fireReconnect(gen) })

	m.logger.Info("attempting reconnection",
		"attempt", m.attempts,
		"max_attempts", m.cfg.MaxReconnectAttempts,
		"delay", delay,
	)
	m.metrics.ObserveReconnectAttempt()
	m.events.PublishReconnecting(m.attempts, delay)
}

// cancelReconnectLocked stops a pending retry, if any.
func (m *Manager) cancelReconnectLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// fireReconnect runs when the retry timer for gen expires. A timer that was
// cancelled, or whose generation has moved on, does nothing.
func (m *Manager) fireReconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	p := m.beginConnectLocked()
	m.mu.Unlock()

	m.dial(p)
}
