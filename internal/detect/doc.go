// Package detect runs the periodic price change sweep for watched cards.
//
// The sweep compares each watched (card, shop) pair's latest price inside the
// recent window with the price in effect before it. Every transition becomes
// an immutable price change row, fanned out to the watching users' in-app
// notifications and, for large swings, to the outbound post queue. A sweep
// with enough changes also queues one summary post of the top movers.
package detect
