package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/repository"
	"github.com/iliyamo/bike-marketplace/internal/utils"
)

// Sellers maps bearer tokens to seller identities.
type Sellers struct {
	store  SellerStore
	hasher utils.Hasher
	clock  clock.Clock
}

func NewSellers(store SellerStore, hasher utils.Hasher, clk clock.Clock) *Sellers {
	return &Sellers{store: store, hasher: hasher, clock: clk}
}

// Resolve returns the seller owning token.  Every failure, including a
// missing salt, is reported as an invalid token.
func (s *Sellers) Resolve(ctx context.Context, token string) (*model.Seller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &Error{Kind: KindAuth, Message: MsgInvalidToken}
	}
	hash, err := s.hasher.Hash(token)
	if err != nil {
		return nil, &Error{Kind: KindAuth, Message: MsgInvalidToken, Err: err}
	}
	seller, err := s.store.SellerByTokenHash(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &Error{Kind: KindAuth, Message: MsgInvalidToken}
	}
	if err != nil {
		return nil, internal("seller lookup", err)
	}
	return seller, nil
}

// Mint creates a seller and returns it with its plaintext token.  The
// token is not retrievable afterwards.
func (s *Sellers) Mint(ctx context.Context) (*model.Seller, string, error) {
	token, hash, err := s.newToken()
	if err != nil {
		return nil, "", err
	}
	seller := &model.Seller{ID: utils.NewID(), TokenHash: hash, CreatedAt: s.clock.Now().Unix()}
	if err := s.store.InsertSeller(ctx, seller); err != nil {
		return nil, "", internal("insert seller", err)
	}
	return seller, token, nil
}

// ResetToken overwrites the seller's hash with a fresh token, which
// invalidates the previous one.
func (s *Sellers) ResetToken(ctx context.Context, sellerID string) (string, error) {
	token, hash, err := s.newToken()
	if err != nil {
		return "", err
	}
	err = s.store.UpdateSellerToken(ctx, sellerID, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return "", notFound(MsgSellerNotFound)
	}
	if err != nil {
		return "", internal("update seller token", err)
	}
	return token, nil
}

func (s *Sellers) newToken() (string, string, error) {
	token, err := utils.NewSellerToken()
	if err != nil {
		return "", "", internal("generate token", err)
	}
	hash, err := s.hasher.Hash(token)
	if err != nil {
		return "", "", internal("hash token", err)
	}
	return token, hash, nil
}
