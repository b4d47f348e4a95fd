// Package gmail speaks Gmail's IMAP dialect. It implements the session
// contract the archival engine consumes, using the X-GM-RAW search and
// X-GM-LABELS store extensions that plain IMAP clients do not expose.
package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	imap "github.com/BrianLeishman/go-imap"
	"golang.org/x/time/rate"

	"github.com/labelsweep/labelsweep/internal/archive"
	"github.com/labelsweep/labelsweep/internal/config"
)

// Gmail throttles aggressive IMAP clients; one command per 100ms keeps
// a multi-worker sweep under the radar. The limiter is shared across
// every session the provider opens.
const commandInterval = 100 * time.Millisecond

// Provider dials authenticated Gmail IMAP sessions. It satisfies the
// archive engine's provider contract: each Open returns an isolated
// connection with no folder selected.
type Provider struct {
	cfg     *config.Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewProvider(cfg *config.Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(commandInterval), 1),
		logger:  logger,
	}
}

// Open dials and authenticates a fresh IMAP connection.
func (p *Provider) Open(ctx context.Context) (archive.Session, error) {
	return p.OpenSession(ctx)
}

// OpenSession is Open with a concrete return type, for the commands
// that need the Gmail-specific surface (labels, senders, trash).
func (p *Provider) OpenSession(ctx context.Context) (*Session, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	dl, err := imap.New(p.cfg.Email, p.cfg.Password, p.cfg.Host, p.cfg.Port)
	if err != nil {
		if isAuthError(err) {
			// Chain-terminal for the archive engine: retrying a bad
			// login only walks the account toward a lockout.
			return nil, fmt.Errorf("login %s: %w: %v", p.cfg.Email, archive.ErrAuth, err)
		}
		return nil, fmt.Errorf("dial %s:%d: %w", p.cfg.Host, p.cfg.Port, err)
	}
	p.logger.Debug("imap session opened", "host", p.cfg.Host, "user", p.cfg.Email)
	return &Session{dl: dl, limiter: p.limiter, logger: p.logger}, nil
}
