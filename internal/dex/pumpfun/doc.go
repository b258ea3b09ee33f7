// Package pumpfun implements the Pump.fun bonding curve as a migration venue.
//
// The venue reads the global account and the token's bonding curve, reports
// virtual reserves as a constant-product pool (base = token, quote = SOL) and
// builds sell/buy instructions from a precomputed quote.
//
//   - config.go: program addresses and per-token PDA setup.
//   - accounts.go: PDA derivation and batched account reads.
//   - bonding_curve.go, global_account.go: account layouts.
//   - instructions.go: buy/sell instruction encoding.
//   - pumpfun.go: the venue itself.
//
// Usage:
//
//	cfg := pumpfun.GetDefaultConfig()
//	if err := cfg.SetupForToken(mint, logger); err != nil {
//		return err
//	}
//	venue, err := pumpfun.NewDEX(client, logger, cfg)
package pumpfun
