// Package automation decides which grow-room devices to switch, and when.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────────┐
//	│                 Scheduler (scheduler.go)                  │
//	│   cron: cycle │ sensor sample │ retention │ lights        │
//	└───────────────┬───────────────────────────────────────────┘
//	                ▼
//	┌───────────────────────────────────────────────────────────┐
//	│               Controller (controller.go)                  │
//	│  1. fetch reading (bounded, outside the lock)             │
//	│  2. lock ── snapshot → Evaluate → apply deltas ── unlock  │
//	│  3. append activity, broadcast events                     │
//	│  manual toggle │ emergency stop │ resume                  │
//	└───────┬───────────────────┬───────────────────────────────┘
//	        ▼                   ▼
//	  ┌───────────┐      ┌──────────────┐
//	  │   Store   │      │   Evaluate   │
//	  │ (rules)   │      │ (pure func)  │
//	  └───────────┘      └──────────────┘
//
// # Rules
//
// A Rule watches one metric against a band [LowThreshold, HighThreshold]
// and drives one device: ActionBelow when the value falls under the band,
// ActionAbove when it rises over it. A device that is on stays inside the
// "below" zone until the value clears LowThreshold+HysteresisMargin, and
// inside the "above" zone until it drops under HighThreshold-HysteresisMargin.
//
// When several rules drive the same device, the last matching rule in
// store order wins. Store order is creation order and is persisted.
//
// # Emergency stop
//
// EmergencyStop waits for any in-flight cycle, switches everything off and
// blocks cycles and manual control until Resume. The light schedule is
// skipped while stopped.
package automation
