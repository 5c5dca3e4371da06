package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// WithdrawListener periodically drives the withdrawal engine. The engine
// itself makes no scheduling assumption beyond being called again later.
type WithdrawListener interface {
	Observe()
	Stop()
}

type withdrawListener struct {
	withdrawSvc WithdrawService
	interval    time.Duration
	quit        chan struct{}
	done        chan struct{}
}

// NewWithdrawListener returns a listener invoking one engine pass at every
// tick of the given interval.
func NewWithdrawListener(
	withdrawSvc WithdrawService, interval time.Duration,
) WithdrawListener {
	return &withdrawListener{
		withdrawSvc: withdrawSvc,
		interval:    interval,
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (l *withdrawListener) Observe() {
	go l.observe()
}

func (l *withdrawListener) Stop() {
	close(l.quit)
	<-l.done
	log.Debug("withdraw listener stopped")
}

func (l *withdrawListener) observe() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.withdrawSvc.RunPass(context.Background()); err != nil {
				log.WithError(err).Warn("withdraw pass failed")
			}
		case <-l.quit:
			return
		}
	}
}
