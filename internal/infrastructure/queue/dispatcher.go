package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/api/metrics"
	"github.com/otpchat/chat-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// ErrStopped is returned by Send once the dispatcher has shut down.
var ErrStopped = errors.New("otp dispatcher stopped")

// Delivery is one code waiting to be handed to the downstream sender.
type Delivery struct {
	Phone string
	Code  string
}

// Dispatcher fans OTP deliveries out to a fixed set of workers, hashing on
// the phone number so codes for the same number leave in issue order.
// It satisfies ports.OTPSender.
type Dispatcher struct {
	workers []chan Delivery
	sender  ports.OTPSender
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender ports.OTPSender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan Delivery, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan Delivery, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit only after Stop has
// closed their channel and every accepted delivery was handed to the
// sender. Cancelling ctx does not drop queued codes.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Send enqueues a delivery. It blocks only when the worker's buffer is full.
func (d *Dispatcher) Send(ctx context.Context, phone, code string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	idx := d.shardIndex(phone)
	select {
	case d.workers[idx] <- Delivery{Phone: phone, Code: code}:
		metrics.OTPDeliveryQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes every worker channel and waits for pending deliveries.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a phone number deterministically to a worker index.
func (d *Dispatcher) shardIndex(phone string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan Delivery) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for job := range ch {
		metrics.OTPDeliveryQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		if err := d.sender.Send(ctx, job.Phone, job.Code); err != nil {
			metrics.OTPDeliveriesTotal.WithLabelValues("failed").Inc()
			d.log.Error().Err(err).
				Str("phone", job.Phone).
				Int("worker_id", id).
				Msg("otp delivery failed")
			continue
		}
		metrics.OTPDeliveriesTotal.WithLabelValues("sent").Inc()
	}
}
