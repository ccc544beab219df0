package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/usage"
	"github.com/iliyamo/bike-marketplace/internal/utils"
)

// Caller is the anonymous client behind a request.  IPHash is empty when
// no address was resolvable or no IP salt is configured.
type Caller struct {
	IP     string
	IPHash string
}

func (c Caller) hashPtr() *string {
	if c.IPHash == "" {
		return nil
	}
	h := c.IPHash
	return &h
}

// Checks selects the admission steps an endpoint applies.  Enabled steps
// always run in the order blocklist, quota, captcha.
type Checks struct {
	Blocklist bool
	Quota     bool
	Captcha   bool
}

// Admission profiles per endpoint.
var (
	CreateListingChecks = Checks{Blocklist: true, Quota: true, Captcha: true}
	UpdatePriceChecks   = Checks{Blocklist: true, Quota: true}
	SellerChecks        = Checks{Blocklist: true}
	AnonymousPostChecks = Checks{Blocklist: true, Captcha: true}
)

// Gate runs the admission checks for anonymous writes.
type Gate struct {
	blocklist BlocklistStore
	ledger    *usage.Ledger
	captcha   CaptchaVerifier
	ipHasher  utils.Hasher
	log       *zap.SugaredLogger
}

func NewGate(blocklist BlocklistStore, ledger *usage.Ledger, captcha CaptchaVerifier, ipHasher utils.Hasher, log *zap.SugaredLogger) *Gate {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Gate{blocklist: blocklist, ledger: ledger, captcha: captcha, ipHasher: ipHasher, log: log}
}

// Identify hashes the client address.
func (g *Gate) Identify(ip string) Caller {
	c := Caller{IP: ip}
	if ip == "" {
		return c
	}
	h, err := g.ipHasher.Hash(ip)
	if err != nil {
		if !errors.Is(err, utils.ErrNoSalt) {
			g.log.Warnw("ip hash failed", "error", err)
		}
		return c
	}
	c.IPHash = h
	return c
}

// HashIP hashes a raw address for admin use.
func (g *Gate) HashIP(ip string) (string, error) {
	return g.ipHasher.Hash(ip)
}

// Admit applies the selected checks and returns the first failure.
func (g *Gate) Admit(ctx context.Context, caller Caller, captchaToken string, checks Checks) error {
	if checks.Blocklist {
		if err := g.CheckBlocklist(ctx, caller); err != nil {
			return err
		}
	}
	if checks.Quota {
		if err := g.CheckQuota(ctx); err != nil {
			return err
		}
	}
	if checks.Captcha {
		if err := g.captcha.Verify(ctx, captchaToken, caller.IP); err != nil {
			g.log.Debugw("captcha rejected", "error", err)
			return &Error{Kind: KindExternal, Message: MsgCaptchaFailed, Err: err}
		}
	}
	return nil
}

// CheckBlocklist rejects a denylisted caller.  Callers without a hash are
// never blocked.
func (g *Gate) CheckBlocklist(ctx context.Context, caller Caller) error {
	if caller.IPHash == "" {
		return nil
	}
	blocked, err := g.blocklist.IsBlocked(ctx, caller.IPHash)
	if err != nil {
		return internal("blocklist lookup", err)
	}
	if blocked {
		return forbidden(MsgBlocked)
	}
	return nil
}

// CheckQuota rejects writes while usage is past the cutoff and no
// override is set.
func (g *Gate) CheckQuota(ctx context.Context) error {
	s, err := g.ledger.Summary(ctx)
	if err != nil {
		return internal("usage summary", err)
	}
	if !s.Blocked {
		return nil
	}
	reason := usage.BlockReason("")
	if s.BlockReason != nil {
		reason = *s.BlockReason
	}
	return rateLimited(reason.Message())
}
