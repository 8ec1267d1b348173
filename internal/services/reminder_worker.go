package services

import (
	"log"
	"time"
)

// ReminderWorker runs the dispatcher on a fixed interval for deployments
// without an external cron. The cron endpoint and the worker share one
// Dispatcher; the pending/due selection keeps a reminder from being
// processed twice within a run.
type ReminderWorker struct {
	dispatcher *Dispatcher
	interval   time.Duration
}

// NewReminderWorker creates a ticker-driven worker around the dispatcher
func NewReminderWorker(dispatcher *Dispatcher, interval time.Duration) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute * 5
	}
	return &ReminderWorker{
		dispatcher: dispatcher,
		interval:   interval,
	}
}

func (w *ReminderWorker) Start() {
	go w.run()
}

func (w *ReminderWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for range ticker.C {
		result, err := w.dispatcher.Run()
		if err != nil {
			log.Printf("Error: reminder dispatch run failed: %v", err)
			continue
		}
		if result.Processed > 0 {
			log.Printf("Dispatched %d reminders (%d sent, %d failed, %d retried)",
				result.Processed, result.Sent, result.Failed, result.Retried)
		}
	}
}
