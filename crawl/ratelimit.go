package crawl

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/calregs"
	"golang.org/x/time/rate"
)

var _ calregs.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter enforces the politeness delay of the walk: requests to one
// host are at least interval apart, the first one goes out immediately and
// hosts never wait on each other. Host names are compared case-insensitively.
type DomainLimiter struct {
	interval time.Duration
	hosts    sync.Map // host -> *rate.Limiter
}

// NewDomainLimiter returns a limiter spacing requests by interval. A
// non-positive interval lets every request through.
func NewDomainLimiter(interval time.Duration) *DomainLimiter {
	return &DomainLimiter{interval: interval}
}

// Wait blocks until a request to domain may be sent or ctx is done.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	if d.interval <= 0 {
		return ctx.Err()
	}
	return d.limiter(domain).Wait(ctx)
}

func (d *DomainLimiter) limiter(domain string) *rate.Limiter {
	key := strings.ToLower(domain)
	if l, ok := d.hosts.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := d.hosts.LoadOrStore(key, rate.NewLimiter(rate.Every(d.interval), 1))
	return l.(*rate.Limiter)
}
