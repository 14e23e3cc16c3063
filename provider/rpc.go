package provider

import (
	"context"
	"math/big"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

// fetchParallelism bounds concurrent header requests so public endpoints do
// not rate-limit us.
const fetchParallelism = 8

// Client fetches headers from an execution-layer RPC endpoint.
type Client struct {
	ec *ethclient.Client
}

// Dial connects to an execution-layer endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, &FetchError{Op: "dial", Err: err}
	}
	return &Client{ec: ec}, nil
}

func (c *Client) Close() {
	c.ec.Close()
}

// HeaderByNumber fetches a single header.
func (c *Client) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	h, err := c.ec.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, &FetchError{Op: "header", Number: number, Err: err}
	}
	return h, nil
}

// FetchRange downloads headers first through last inclusive and builds an
// archive over them. Requests run concurrently; ordering is by number.
func (c *Client) FetchRange(ctx context.Context, first, last uint64) (*Archive, error) {
	if last < first {
		last = first
	}
	start := time.Now()
	headers := make([]*types.Header, last-first+1)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)
	for i := range headers {
		g.Go(func() error {
			h, err := c.HeaderByNumber(ctx, first+uint64(i))
			if err != nil {
				return err
			}
			headers[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log := logger.Logger()
	log.Info().
		Uint64("first", first).
		Uint64("last", last).
		Int("nbHeaders", len(headers)).
		Dur("took", time.Since(start)).
		Msg("fetched header range")
	return NewArchive(headers)
}
